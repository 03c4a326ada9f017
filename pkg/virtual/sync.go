package virtual

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/vanderheijden86/virtlist/pkg/debug"
	"github.com/vanderheijden86/virtlist/pkg/metrics"
)

// sync is one fixpoint iteration: measure what is revealed, work out which
// nodes cover the buffered viewport, and lock/unlock/observe the difference.
// It reschedules itself while anything changed.
func (m *Manager) sync() {
	if m.closed || m.children.Len() == 0 {
		return
	}
	defer metrics.Timer(metrics.Sync)()
	m.syncs++

	m.measureRevealed()

	h := m.container.ViewportHeight()
	low := -h * m.buffer
	high := h + h*m.buffer

	bounds := FindBounds(m.children, low, high)
	wantRevealed := roaring.New()
	if !bounds.Empty() {
		for n := bounds.Low; n != nil; n = n.Next() {
			wantRevealed.Add(m.handles.acquire(n))
			if n == bounds.High {
				break
			}
		}
	}

	wantObserved := wantRevealed.Clone()
	if !bounds.Empty() {
		if prev := bounds.Low.Prev(); prev != nil {
			wantObserved.Add(m.handles.acquire(prev))
		}
		if next := bounds.High.Next(); next != nil {
			wantObserved.Add(m.handles.acquire(next))
		}
	}

	changes := m.applyRevealed(wantRevealed) + m.applyObserved(wantObserved)
	debug.Assert(roaring.AndNot(m.revealed, m.observed).IsEmpty(), "revealed node outside the observed set")
	debug.Assert(m.observed.GetCardinality()-m.revealed.GetCardinality() <= 2, "more than two observed border nodes")

	m.lastChanges = changes
	m.totalChanges += changes
	metrics.SyncChanges.Add(int64(changes))

	if changes == 0 {
		m.unsettledTicks = 0
		m.warned = false
		return
	}

	m.unsettledTicks++
	if m.maxSettleTicks > 0 && m.unsettledTicks > m.maxSettleTicks {
		if !m.warned {
			m.warned = true
			metrics.OscillatingSyncs.Inc()
			m.logf("virtual: %d consecutive syncs changed the revealed set (last: %d changes); sizes may depend on lock state",
				m.unsettledTicks, changes)
		}
		if m.haltOnOscillation {
			return
		}
	}
	m.scheduleSync()
}

// measureRevealed is the single forced-layout point per sync.
func (m *Manager) measureRevealed() {
	defer metrics.Timer(metrics.MeasureRevealed)()
	for _, id := range m.revealed.ToArray() {
		if n := m.handles.node(id); n != nil {
			m.sizes.Measure(n)
		}
	}
}

func (m *Manager) applyRevealed(want *roaring.Bitmap) int {
	changes := 0
	for _, id := range roaring.AndNot(m.revealed, want).ToArray() {
		if n := m.handles.node(id); n != nil {
			m.hide(n)
		}
		m.revealed.Remove(id)
		changes++
	}
	for _, id := range roaring.AndNot(want, m.revealed).ToArray() {
		if n := m.handles.node(id); n != nil {
			m.reveal(n)
		}
		m.revealed.Add(id)
		changes++
	}
	return changes
}

func (m *Manager) applyObserved(want *roaring.Bitmap) int {
	changes := 0
	for _, id := range roaring.AndNot(m.observed, want).ToArray() {
		if n := m.handles.node(id); n != nil {
			m.visibility.Unobserve(n)
		}
		m.observed.Remove(id)
		changes++
	}
	for _, id := range roaring.AndNot(want, m.observed).ToArray() {
		if n := m.handles.node(id); n != nil {
			m.visibility.Observe(n)
		}
		m.observed.Add(id)
		changes++
	}
	return changes
}
