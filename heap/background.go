package heap

import (
	"sync"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Collector: periodic background collection
// ---------------------------------------------------------------------------

// DefaultGCInterval is the default period of the background collector.
const DefaultGCInterval = 30 * time.Second

// Collector runs incremental marking on its own goroutine at a fixed
// interval, interleaving steps with the mutator. Tables stay scannable at
// every instant, so the mutator never pauses for it. A cycle may complete
// between any two mutator calls, so objects the mutator holds only in Go
// variables must be allocated inside an open Scope and stay in it until
// they are rooted or reachable from a root.
type Collector struct {
	heap     *Heap
	interval time.Duration
	enabled  atomic.Bool
	stop     chan struct{}
	stopped  chan struct{}
	mu       sync.Mutex // protects start/stop lifecycle

	cycleCount atomic.Uint64
	lastStats  atomic.Value // *CollectStats
}

// NewCollector creates a background collector for h. A non-positive interval
// selects DefaultGCInterval.
func NewCollector(h *Heap, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	c := &Collector{
		heap:     h,
		interval: interval,
	}
	c.enabled.Store(true)
	return c
}

// Start begins the periodic loop. Calling Start again while running does
// nothing.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.stopped = make(chan struct{})

	// Capture locally so the goroutine never reads fields Stop nils out.
	stopCh := c.stop
	stoppedCh := c.stopped
	go c.loop(stopCh, stoppedCh)
}

// Stop halts the loop and waits for it to exit. Safe to call repeatedly or
// on a collector that was never started.
func (c *Collector) Stop() {
	c.mu.Lock()
	stopCh := c.stop
	stoppedCh := c.stopped
	c.stop = nil
	c.stopped = nil
	c.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// SetEnabled toggles whether ticks run a cycle.
func (c *Collector) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// IsEnabled returns whether ticks currently run a cycle.
func (c *Collector) IsEnabled() bool {
	return c.enabled.Load()
}

// Interval returns the configured period.
func (c *Collector) Interval() time.Duration {
	return c.interval
}

// CycleCount returns the number of cycles this collector completed.
func (c *Collector) CycleCount() uint64 {
	return c.cycleCount.Load()
}

// LastStats returns the most recent cycle's stats, or nil before the first.
func (c *Collector) LastStats() *CollectStats {
	v := c.lastStats.Load()
	if v == nil {
		return nil
	}
	return v.(*CollectStats)
}

// CollectNow runs one full incremental cycle on the calling goroutine.
func (c *Collector) CollectNow() *CollectStats {
	return c.cycle(nil)
}

func (c *Collector) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if c.enabled.Load() {
				c.cycle(stopCh)
			}
		}
	}
}

// cycle marks in budgeted steps, yielding between them, then finishes. A
// cycle interrupted by stop still finishes so no pass is left open.
func (c *Collector) cycle(stopCh <-chan struct{}) *CollectStats {
	c.heap.StartMarking()
	for !c.heap.Step(0) {
		select {
		case <-stopCh:
			stats := c.heap.FinishMarking()
			return c.record(&stats)
		default:
		}
	}
	stats := c.heap.FinishMarking()
	return c.record(&stats)
}

func (c *Collector) record(stats *CollectStats) *CollectStats {
	c.cycleCount.Add(1)
	c.lastStats.Store(stats)
	return stats
}
