// Package governor wraps pipeline stages with deadlines, resource ceilings,
// retry-with-backoff, and a post-timeout grace window. It is the only
// component that imposes cancellation on a stage.
package governor

import (
	"context"
	"log"
	"time"

	"tripnav/internal/triperr"
)

type Config struct {
	BaseTimeout time.Duration
	MinTimeout  time.Duration
	MaxTimeout  time.Duration
	// Grace is the window after a deadline during which a stage may still
	// surface a best-partial result instead of failing outright.
	Grace time.Duration

	MaxAttempts int
	BackoffBase time.Duration

	MaxIterations int
	MaxHeapBytes  uint64
	MaxCPUTime    time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseTimeout <= 0 {
		c.BaseTimeout = 5 * time.Second
	}
	if c.MinTimeout <= 0 {
		c.MinTimeout = 100 * time.Millisecond
	}
	if c.MaxTimeout <= 0 {
		c.MaxTimeout = 30 * time.Second
	}
	if c.Grace < 0 {
		c.Grace = 0
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 50 * time.Millisecond
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 1_000_000
	}
	if c.MaxHeapBytes == 0 {
		c.MaxHeapBytes = 512 << 20
	}
	if c.MaxCPUTime <= 0 {
		c.MaxCPUTime = time.Minute
	}
	return c
}

type Governor struct {
	cfg  Config
	hist *History
}

// New builds a Governor around an injected timing history; hist may be
// shared across governors and requests.
func New(cfg Config, hist *History) *Governor {
	if hist == nil {
		hist = NewHistory()
	}
	return &Governor{cfg: cfg.withDefaults(), hist: hist}
}

func (g *Governor) Config() Config    { return g.cfg }
func (g *Governor) History() *History { return g.hist }

// StageFunc is a stage body. It must honor ctx cancellation and may stash a
// best-partial result before returning.
type StageFunc func(ctx context.Context) error

// StageResult reports how a stage run ended.
type StageResult struct {
	Err      error
	Elapsed  time.Duration
	Timeout  time.Duration // configured deadline for the run
	TimedOut bool
	// Partial means the stage finished inside the grace window after its
	// deadline fired; its result is usable but degraded.
	Partial  bool
	Attempts int
}

// Run executes fn under a hard deadline, retrying transient failures with
// exponential backoff. Retries never apply to validation or permission
// errors, and a timeout is surfaced to the fallback chain rather than
// retried here.
func (g *Governor) Run(ctx context.Context, stage string, timeout time.Duration, fn StageFunc) StageResult {
	if timeout <= 0 {
		timeout = g.cfg.BaseTimeout
	}
	res := StageResult{Timeout: timeout}
	start := time.Now()

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		err, timedOut, partial := g.runOnce(ctx, timeout, fn)
		res.Elapsed = time.Since(start)
		res.TimedOut = timedOut
		res.Partial = partial
		res.Err = err
		if err == nil {
			g.hist.Record(stage, res.Elapsed)
			return res
		}
		if timedOut || !transient(err) || attempt == g.cfg.MaxAttempts {
			if timedOut {
				log.Printf("[GOV] stage=%s timeout elapsed=%v configured=%v partial=%v", stage, res.Elapsed, timeout, partial)
			}
			return res
		}
		backoff := g.cfg.BackoffBase * (1 << (attempt - 1))
		log.Printf("[GOV] stage=%s attempt=%d retrying in %v: %v", stage, attempt, backoff, err)
		select {
		case <-ctx.Done():
			res.Err = triperr.Classify(ctx.Err())
			return res
		case <-time.After(backoff):
		}
	}
	return res
}

// runOnce runs fn under one deadline. When the deadline fires it waits up to
// Grace for fn to come back with a partial result.
func (g *Governor) runOnce(parent context.Context, timeout time.Duration, fn StageFunc) (err error, timedOut, partial bool) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- triperr.Newf(triperr.KindUnknown, "stage panic: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && triperr.KindOf(err) == triperr.KindOptimizationTimeout {
			return err, true, false
		}
		return err, false, false
	case <-ctx.Done():
		if g.cfg.Grace > 0 {
			select {
			case err := <-done:
				// the stage salvaged a result inside the grace window
				if err == nil || triperr.KindOf(err) == triperr.KindOptimizationTimeout {
					return nil, true, true
				}
				return err, true, false
			case <-time.After(g.cfg.Grace):
			}
		}
		return triperr.Wrap(ctx.Err(), triperr.KindOptimizationTimeout, "stage deadline exceeded"), true, false
	}
}

// transient reports whether the governor may retry the failure in place.
// Only upstream data errors and unknowns qualify; other retryable kinds are
// the fallback chain's business.
func transient(err error) bool {
	switch triperr.KindOf(err) {
	case triperr.KindUpstreamDataError, triperr.KindUnknown:
		return true
	}
	return false
}
