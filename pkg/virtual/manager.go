package virtual

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/vanderheijden86/virtlist/pkg/debug"
	"github.com/vanderheijden86/virtlist/pkg/metrics"
)

// DefaultBuffer is the fraction of the viewport height kept rendered above
// and below the viewport to absorb fast scrolls.
const DefaultBuffer = 0.2

// DefaultMaxSettleTicks is the number of consecutive changing syncs after
// which the manager reports a suspected oscillation.
const DefaultMaxSettleTicks = 64

// Option configures a Manager.
type Option func(*Manager)

// WithBuffer sets the off-screen buffer as a fraction of the viewport height.
// Negative values are ignored.
func WithBuffer(fraction float64) Option {
	return func(m *Manager) {
		if fraction >= 0 {
			m.buffer = fraction
		}
	}
}

// WithDefaultSize sets the size estimate used before anything is measured.
func WithDefaultSize(size float64) Option {
	return func(m *Manager) {
		m.defaultSize = size
	}
}

// WithMaxSettleTicks sets how many consecutive changing syncs are tolerated
// before a warning is logged. Zero disables the diagnostic.
func WithMaxSettleTicks(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.maxSettleTicks = n
		}
	}
}

// WithHaltOnOscillation stops rescheduling once the settle cap is crossed.
// The next structural or visibility change restarts the loop.
func WithHaltOnOscillation(halt bool) Option {
	return func(m *Manager) {
		m.haltOnOscillation = halt
	}
}

// WithLogger replaces the diagnostic logger (debug.Log by default).
func WithLogger(fn func(format string, args ...any)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.logf = fn
		}
	}
}

// Manager is the visibility orchestrator for one container. It is the only
// stateful component: it owns the revealed and observed sets, the size
// records, and the sync scheduling flag.
type Manager struct {
	container  Container
	children   Children
	sizes      *SizeManager
	handles    *arena
	revealed   *roaring.Bitmap
	observed   *roaring.Bitmap
	visibility VisibilityWatcher
	stopWatch  func()

	syncPending bool
	closed      bool

	buffer            float64
	defaultSize       float64
	maxSettleTicks    int
	haltOnOscillation bool
	logf              func(format string, args ...any)

	// diagnostics
	syncs          int
	lastChanges    int
	totalChanges   int
	unsettledTicks int
	warned         bool
}

// NewManager takes over container: it captures the live child collection,
// installs the watchers, hides every current child and schedules the first
// sync.
func NewManager(container Container, opts ...Option) *Manager {
	m := &Manager{
		container:      container,
		children:       container.Children(),
		handles:        newArena(),
		revealed:       roaring.New(),
		observed:       roaring.New(),
		buffer:         DefaultBuffer,
		defaultSize:    DefaultSize,
		maxSettleTicks: DefaultMaxSettleTicks,
		logf:           debug.Log,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sizes = NewSizeManager(m.defaultSize)

	m.stopWatch = container.WatchMutations(m.reconcile)
	m.visibility = container.WatchVisibility(m.scheduleSync)

	for i := 0; i < m.children.Len(); i++ {
		m.hide(m.children.At(i))
	}
	m.scheduleSync()
	return m
}

// scheduleSync requests one sync on the next frame. Calls made while a sync
// is already pending are dropped.
func (m *Manager) scheduleSync() {
	if m.syncPending || m.closed {
		return
	}
	m.syncPending = true
	m.container.RequestFrame(func() {
		m.syncPending = false
		m.sync()
	})
}

func (m *Manager) hide(n Node) {
	m.handles.acquire(n)
	n.Lock(m.sizes.HopefulSize(n))
	metrics.NodesLocked.Inc()
}

func (m *Manager) reveal(n Node) {
	n.Unlock()
	metrics.NodesUnlocked.Inc()
}

// reconcile applies a batch of structural changes. A node removed and
// re-added within one batch (or added then removed) is treated as neither;
// its position is re-evaluated by the next sync anyway.
func (m *Manager) reconcile(records []MutationRecord) {
	if m.closed {
		return
	}
	defer metrics.Timer(metrics.Reconcile)()

	added := make(map[Node]struct{})
	removed := make(map[Node]struct{})
	// queued* hold every node ever appended to the order slices, so a node
	// that flaps within the batch is still processed at most once.
	queuedAdd := make(map[Node]struct{})
	queuedRemove := make(map[Node]struct{})
	var addedOrder, removedOrder []Node
	touched := false

	for _, rec := range records {
		for _, n := range rec.Removed {
			if n == nil {
				continue
			}
			touched = true
			if _, ok := added[n]; ok {
				delete(added, n)
				continue
			}
			removed[n] = struct{}{}
			if _, ok := queuedRemove[n]; !ok {
				queuedRemove[n] = struct{}{}
				removedOrder = append(removedOrder, n)
			}
		}
		for _, n := range rec.Added {
			if n == nil {
				continue
			}
			touched = true
			if _, ok := removed[n]; ok {
				delete(removed, n)
				continue
			}
			added[n] = struct{}{}
			if _, ok := queuedAdd[n]; !ok {
				queuedAdd[n] = struct{}{}
				addedOrder = append(addedOrder, n)
			}
		}
	}

	for _, n := range removedOrder {
		if _, ok := removed[n]; ok {
			m.forget(n)
		}
	}
	for _, n := range addedOrder {
		if _, ok := added[n]; ok {
			m.hide(n)
		}
	}

	if touched {
		m.logf("virtual: reconcile +%d -%d", len(added), len(removed))
		m.scheduleSync()
	}
}

// forget drops every record of a node that left the container.
func (m *Manager) forget(n Node) {
	n.Unlock()
	if id, ok := m.handles.lookup(n); ok {
		if m.observed.Contains(id) {
			m.visibility.Unobserve(n)
		}
		m.revealed.Remove(id)
		m.observed.Remove(id)
	}
	m.sizes.Remove(n)
	m.handles.release(n)
}

// State returns n's position in the lock/observe state machine.
func (m *Manager) State(n Node) NodeState {
	id, ok := m.handles.lookup(n)
	if !ok {
		return StateUnmanaged
	}
	switch {
	case m.revealed.Contains(id):
		return StateRevealed
	case m.observed.Contains(id):
		return StateHiddenObserved
	default:
		return StateHidden
	}
}

// Close detaches the manager from its container: watchers are stopped, a
// pending sync is dropped and every managed node is unlocked. Idempotent.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	if m.stopWatch != nil {
		m.stopWatch()
	}
	m.visibility.Disconnect()
	for i := 0; i < m.children.Len(); i++ {
		n := m.children.At(i)
		if _, ok := m.handles.lookup(n); ok {
			n.Unlock()
		}
	}
	m.revealed.Clear()
	m.observed.Clear()
}

// Stats is a point-in-time summary of the manager.
type Stats struct {
	Managed        int     `json:"managed"`
	Revealed       int     `json:"revealed"`
	Observed       int     `json:"observed"`
	Measured       int     `json:"measured"`
	AverageSize    float64 `json:"average_size"`
	Syncs          int     `json:"syncs"`
	LastChanges    int     `json:"last_changes"`
	TotalChanges   int     `json:"total_changes"`
	UnsettledTicks int     `json:"unsettled_ticks"`
	SyncPending    bool    `json:"sync_pending"`
	Settled        bool    `json:"settled"`
}

// Stats returns the current diagnostics.
func (m *Manager) Stats() Stats {
	avg, _ := m.sizes.Average()
	return Stats{
		Managed:        m.handles.len(),
		Revealed:       int(m.revealed.GetCardinality()),
		Observed:       int(m.observed.GetCardinality()),
		Measured:       m.sizes.Len(),
		AverageSize:    avg,
		Syncs:          m.syncs,
		LastChanges:    m.lastChanges,
		TotalChanges:   m.totalChanges,
		UnsettledTicks: m.unsettledTicks,
		SyncPending:    m.syncPending,
		Settled:        m.syncs > 0 && !m.syncPending && m.lastChanges == 0,
	}
}
