package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name  string
	value atomic.Int64
}

var counters []*Counter

func registerCounter(name string) *Counter {
	c := &Counter{name: name}
	counters = append(counters, c)
	return c
}

// Inc adds one.
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds n. Non-positive values are ignored.
func (c *Counter) Add(n int64) {
	if !enabled || n <= 0 {
		return
	}
	c.value.Add(n)
}

// Name returns the counter name.
func (c *Counter) Name() string {
	return c.name
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.value.Load()
}

// Reset sets the count back to zero.
func (c *Counter) Reset() {
	c.value.Store(0)
}

// CounterStats is a snapshot of one counter.
type CounterStats struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Counters, in report order.
var (
	NodesLocked      = registerCounter("nodes_locked")
	NodesUnlocked    = registerCounter("nodes_unlocked")
	SyncChanges      = registerCounter("sync_changes")
	OscillatingSyncs = registerCounter("oscillating_syncs")
	BlocksRendered   = registerCounter("blocks_rendered")
	SourceReloads    = registerCounter("source_reloads")
)

// AllCounters returns every registered counter.
func AllCounters() []*Counter {
	return counters
}

// AllCounterStats returns stats for every counter with a non-zero value.
func AllCounterStats() []CounterStats {
	stats := make([]CounterStats, 0, len(counters))
	for _, c := range counters {
		if v := c.Value(); v > 0 {
			stats = append(stats, CounterStats{Name: c.name, Value: v})
		}
	}
	return stats
}
