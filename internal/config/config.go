// Package config loads planner settings from an optional YAML file merged
// over built-in defaults. Connection settings (PORT, DATABASE_URL,
// REDIS_URL) stay in the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Planner struct {
	FairnessWeight            float64 `yaml:"fairness_weight"`
	QuantityWeight            float64 `yaml:"quantity_weight"`
	MaxIterations             int     `yaml:"max_iterations"`
	EarlyTerminationThreshold float64 `yaml:"early_termination_threshold"`
	ClusterRadiusKm           float64 `yaml:"cluster_radius_km"`
}

type Governor struct {
	BaseTimeoutMs int `yaml:"base_timeout_ms"`
	MinTimeoutMs  int `yaml:"min_timeout_ms"`
	MaxTimeoutMs  int `yaml:"max_timeout_ms"`
	GraceMs       int `yaml:"grace_ms"`
	MaxAttempts   int `yaml:"max_attempts"`
	BackoffBaseMs int `yaml:"backoff_base_ms"`
	MaxIterations int `yaml:"max_iterations"`
	MaxHeapMB     int `yaml:"max_heap_mb"`
	MaxCPUSeconds int `yaml:"max_cpu_seconds"`
}

type Schedule struct {
	DailyBudgetMin int `yaml:"daily_budget_min"`
	DayStartHour   int `yaml:"day_start_hour"`
	DayEndHour     int `yaml:"day_end_hour"`
}

type Fallback struct {
	PerStrategyMs int `yaml:"per_strategy_ms"`
}

type Config struct {
	Planner  Planner  `yaml:"planner"`
	Governor Governor `yaml:"governor"`
	Schedule Schedule `yaml:"schedule"`
	Fallback Fallback `yaml:"fallback"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Planner: Planner{
			FairnessWeight:            0.6,
			QuantityWeight:            0.4,
			MaxIterations:             2000,
			EarlyTerminationThreshold: 0.98,
			ClusterRadiusKm:           1.0,
		},
		Governor: Governor{
			BaseTimeoutMs: 5000,
			MinTimeoutMs:  100,
			MaxTimeoutMs:  30000,
			GraceMs:       100,
			MaxAttempts:   3,
			BackoffBaseMs: 50,
			MaxIterations: 1_000_000,
			MaxHeapMB:     512,
			MaxCPUSeconds: 60,
		},
		Schedule: Schedule{
			DailyBudgetMin: 720,
			DayStartHour:   8,
			DayEndHour:     22,
		},
		Fallback: Fallback{PerStrategyMs: 500},
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults without error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func (g Governor) BaseTimeout() time.Duration { return time.Duration(g.BaseTimeoutMs) * time.Millisecond }
func (g Governor) MinTimeout() time.Duration  { return time.Duration(g.MinTimeoutMs) * time.Millisecond }
func (g Governor) MaxTimeout() time.Duration  { return time.Duration(g.MaxTimeoutMs) * time.Millisecond }
func (g Governor) Grace() time.Duration       { return time.Duration(g.GraceMs) * time.Millisecond }
func (g Governor) BackoffBase() time.Duration {
	return time.Duration(g.BackoffBaseMs) * time.Millisecond
}
