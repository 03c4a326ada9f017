package virtual

// Bounds is a node's vertical extent in viewport-relative pixels.
// Negative values are above the viewport.
type Bounds struct {
	Top    float64
	Bottom float64
}

// Height returns Bottom - Top.
func (b Bounds) Height() float64 {
	return b.Bottom - b.Top
}

// Node is one item of the managed sequence. Nodes are owned by the host; the
// manager never creates or destroys them, it only toggles their lock state.
//
// Prev and Next must return an untyped nil (not a typed nil pointer) at the
// ends of the sequence.
type Node interface {
	// Bounds returns the current bounding box. May force a layout.
	Bounds() Bounds
	// Lock stops rendering the node and reserves placeholder pixels for it.
	Lock(placeholder float64)
	// Unlock restores normal rendering.
	Unlock()
	Prev() Node
	Next() Node
}

// Children is a live, ordered view of a container's nodes. Membership changes
// must be visible without re-querying the container. Nodes are sorted by
// display position.
type Children interface {
	Len() int
	At(i int) Node
}

// MutationRecord describes one structural change batch entry.
type MutationRecord struct {
	Added   []Node
	Removed []Node
}

// VisibilityWatcher notifies when an observed node crosses the viewport
// boundary or changes size.
type VisibilityWatcher interface {
	Observe(n Node)
	Unobserve(n Node)
	Disconnect()
}

// Container is everything the manager needs from its host.
type Container interface {
	Children() Children
	ViewportHeight() float64

	// WatchMutations delivers batched structural changes to fn until stop
	// is called.
	WatchMutations(fn func([]MutationRecord)) (stop func())

	// WatchVisibility returns a watcher that calls fn whenever any observed
	// node changes visibility or size.
	WatchVisibility(fn func()) VisibilityWatcher

	// RequestFrame runs fn once on the next animation frame.
	RequestFrame(fn func())
}

// NodeState is a node's position in the manager's state machine.
type NodeState int

const (
	// StateUnmanaged means the manager does not track the node.
	StateUnmanaged NodeState = iota
	// StateHidden means the node is locked and not observed.
	StateHidden
	// StateHiddenObserved means the node is locked and observed; it borders
	// the revealed range.
	StateHiddenObserved
	// StateRevealed means the node is unlocked (and always observed).
	StateRevealed
)

func (s NodeState) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateHiddenObserved:
		return "hidden+observed"
	case StateRevealed:
		return "revealed"
	default:
		return "unmanaged"
	}
}
