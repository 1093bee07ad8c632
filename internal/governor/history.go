package governor

import (
	"sync"
	"time"
)

// History is an append-only store of observed stage durations, injected into
// the Governor and shared across requests. Safe for concurrent use.
type History struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
	cap     int
}

func NewHistory() *History {
	return &History{samples: map[string][]time.Duration{}, cap: 256}
}

func (h *History) Record(stage string, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := append(h.samples[stage], d)
	if len(s) > h.cap {
		s = s[len(s)-h.cap:]
	}
	h.samples[stage] = s
}

// Estimate returns the mean observed duration for a stage.
func (h *History) Estimate(stage string) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.samples[stage]
	if len(s) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total / time.Duration(len(s)), true
}

// Count reports how many samples exist for a stage.
func (h *History) Count(stage string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples[stage])
}
