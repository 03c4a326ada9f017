package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is used when a non-positive duration is given.
const DefaultDebounceDuration = 200 * time.Millisecond

// Debouncer coalesces bursts of triggers into one call that runs after the
// burst has been quiet for the configured duration.
type Debouncer struct {
	duration time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates a debouncer. d <= 0 selects DefaultDebounceDuration.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Trigger (re)starts the quiet period; fn runs once it elapses. Only the fn
// from the last trigger of a burst runs.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		current := gen == d.gen
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops a pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Duration returns the quiet period.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}
