package governor

import (
	"runtime"
	"time"

	"tripnav/internal/triperr"
)

// Monitor enforces resource ceilings inside long-running stages. The stage
// calls Check from its iteration loop; heap inspection is sampled to keep
// the per-iteration cost negligible.
type Monitor struct {
	maxIter  int
	maxHeap  uint64
	maxCPU   time.Duration
	started  time.Time
	calls    int
	PeakHeap uint64
}

const heapSampleEvery = 256

func (g *Governor) NewMonitor() *Monitor {
	return &Monitor{
		maxIter: g.cfg.MaxIterations,
		maxHeap: g.cfg.MaxHeapBytes,
		maxCPU:  g.cfg.MaxCPUTime,
		started: time.Now(),
	}
}

// Check returns a resource-exceeded error when any ceiling is crossed.
func (m *Monitor) Check(iteration int) error {
	if m.maxIter > 0 && iteration > m.maxIter {
		return triperr.Newf(triperr.KindResourceExceeded, "iteration ceiling %d exceeded", m.maxIter)
	}
	if m.maxCPU > 0 && time.Since(m.started) > m.maxCPU {
		return triperr.Newf(triperr.KindResourceExceeded, "cpu time ceiling %v exceeded", m.maxCPU)
	}
	m.calls++
	if m.maxHeap > 0 && m.calls%heapSampleEvery == 0 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if ms.HeapAlloc > m.PeakHeap {
			m.PeakHeap = ms.HeapAlloc
		}
		if ms.HeapAlloc > m.maxHeap {
			return triperr.Newf(triperr.KindResourceExceeded, "heap ceiling %d bytes exceeded", m.maxHeap)
		}
	}
	return nil
}
