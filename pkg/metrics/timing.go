// Package metrics instruments the hot paths of vl: the visibility manager's
// sync loop, forced layout, block rendering and painting, plus source loading
// and exports. Counters track lock churn and convergence.
//
// All values live in process memory and are updated atomically. Collection
// is on unless VL_METRICS=0.
//
//	func (m *Manager) sync() {
//	    defer metrics.Timer(metrics.Sync)()
//	    ...
//	}
package metrics

import (
	"math"
	"os"
	"sync/atomic"
	"time"
)

var enabled = os.Getenv("VL_METRICS") != "0"

// Enabled reports whether samples are being recorded.
func Enabled() bool {
	return enabled
}

// SetEnabled turns collection on or off. Tests use it to pin the state.
func SetEnabled(e bool) {
	enabled = e
}

// TimingMetric aggregates durations of one named operation.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64
	max   atomic.Int64
	min   atomic.Int64 // math.MaxInt64 until the first sample
}

var timings []*TimingMetric

func newTimingMetric(name string) *TimingMetric {
	m := &TimingMetric{name: name}
	m.min.Store(math.MaxInt64)
	return m
}

func registerTiming(name string) *TimingMetric {
	m := newTimingMetric(name)
	timings = append(timings, m)
	return m
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	raise(&m.max, ns)
	lower(&m.min, ns)
}

func raise(v *atomic.Int64, ns int64) {
	for old := v.Load(); ns > old; old = v.Load() {
		if v.CompareAndSwap(old, ns) {
			return
		}
	}
}

func lower(v *atomic.Int64, ns int64) {
	for old := v.Load(); ns < old; old = v.Load() {
		if v.CompareAndSwap(old, ns) {
			return
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string {
	return m.name
}

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 {
	return m.count.Load()
}

// Stats snapshots the metric. Durations are in milliseconds; all zero when
// nothing was recorded.
func (m *TimingMetric) Stats() TimingStats {
	s := TimingStats{Name: m.name, Count: m.count.Load()}
	if s.Count == 0 {
		return s
	}
	total := m.total.Load()
	s.TotalMs = ms(total)
	s.AvgMs = ms(total / s.Count)
	s.MaxMs = ms(m.max.Load())
	s.MinMs = ms(m.min.Load())
	return s
}

func ms(ns int64) float64 {
	return float64(ns) / float64(time.Millisecond)
}

// Reset drops every sample.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(math.MaxInt64)
}

// TimingStats is a point-in-time view of a TimingMetric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts timing and returns the function that stops it. Meant for
// defer.
func Timer(m *TimingMetric) func() {
	if !enabled || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Timing metrics, in report order.
var (
	Sync            = registerTiming("sync")
	MeasureRevealed = registerTiming("measure_revealed")
	Reconcile       = registerTiming("reconcile")
	Layout          = registerTiming("layout")
	BlockRender     = registerTiming("block_render")
	Paint           = registerTiming("paint")
	SourceLoad      = registerTiming("source_load")
	SnapshotExport  = registerTiming("snapshot_export")
)

// AllTimingMetrics returns every registered timing metric.
func AllTimingMetrics() []*TimingMetric {
	return timings
}

// ResetAll clears every timing metric and counter.
func ResetAll() {
	for _, m := range timings {
		m.Reset()
	}
	for _, c := range counters {
		c.Reset()
	}
}

// AllTimingStats returns stats for the timing metrics that have samples.
func AllTimingStats() []TimingStats {
	stats := make([]TimingStats, 0, len(timings))
	for _, m := range timings {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}
