package api

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"tripnav/internal/config"
	"tripnav/internal/governor"
	"tripnav/internal/pipeline"
	"tripnav/internal/store"
)

type Server struct {
	Store  store.Store
	Pipe   *pipeline.Pipeline
	Broker EventBroker

	locks groupLocks
}

// NewServer wires the store, broker, governor and pipeline from the
// environment. No DATABASE_URL means in-memory; no REDIS_URL means an
// in-process broker.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn == "" {
		s = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := pg.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = pg
	}

	var broker EventBroker
	if url := os.Getenv("REDIS_URL"); url != "" {
		rb, err := NewRedisBroker(url)
		if err != nil {
			log.Printf("redis broker unavailable, using in-memory: %v", err)
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	gov := governor.New(governor.Config{
		BaseTimeout:   cfg.Governor.BaseTimeout(),
		MinTimeout:    cfg.Governor.MinTimeout(),
		MaxTimeout:    cfg.Governor.MaxTimeout(),
		Grace:         cfg.Governor.Grace(),
		MaxAttempts:   cfg.Governor.MaxAttempts,
		BackoffBase:   cfg.Governor.BackoffBase(),
		MaxIterations: cfg.Governor.MaxIterations,
		MaxHeapBytes:  uint64(cfg.Governor.MaxHeapMB) << 20,
		MaxCPUTime:    time.Duration(cfg.Governor.MaxCPUSeconds) * time.Second,
	}, governor.NewHistory())

	pipe := pipeline.New(s, gov, cfg)
	srv := &Server{Store: s, Pipe: pipe, Broker: broker}
	pipe.Progress = srv.publishProgress
	return srv, nil
}

func (s *Server) publishProgress(groupID, stage string, percent int, message string) {
	s.Broker.Publish(groupID, ProgressEvent{Stage: stage, Percent: percent, Message: message})
}

// groupLocks serializes optimization requests for the same group so
// concurrent runs cannot race on persisted results.
type groupLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (g *groupLocks) forGroup(id string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.m == nil {
		g.m = map[string]*sync.Mutex{}
	}
	if g.m[id] == nil {
		g.m[id] = &sync.Mutex{}
	}
	return g.m[id]
}
