package pane

import "github.com/vanderheijden86/virtlist/pkg/virtual"

type observation struct {
	known      bool
	intersects bool
	height     int
}

// visibilityWatcher reports when an observed block enters or leaves the
// viewport or changes height.
type visibilityWatcher struct {
	pane         *Pane
	onChange     func()
	observed     map[*Block]*observation
	disconnected bool
}

func (w *visibilityWatcher) Observe(n virtual.Node) {
	b, ok := n.(*Block)
	if !ok || w.disconnected {
		return
	}
	if _, exists := w.observed[b]; !exists {
		w.observed[b] = &observation{}
	}
}

func (w *visibilityWatcher) Unobserve(n virtual.Node) {
	if b, ok := n.(*Block); ok {
		delete(w.observed, b)
	}
}

func (w *visibilityWatcher) Disconnect() {
	w.disconnected = true
	w.observed = make(map[*Block]*observation)
	w.pane.dropWatcher(w)
}

// check compares every observed block against its last observation. The
// first check after Observe always counts as a change.
func (w *visibilityWatcher) check() bool {
	if w.disconnected || len(w.observed) == 0 {
		return false
	}
	p := w.pane
	p.ensureLayout()
	changed := false
	for b, obs := range w.observed {
		if b.index < 0 {
			continue
		}
		top := b.top - p.scrollY
		intersects := top+b.height > 0 && top < p.height
		if !obs.known || obs.intersects != intersects || obs.height != b.height {
			changed = true
		}
		obs.known = true
		obs.intersects = intersects
		obs.height = b.height
	}
	if changed {
		w.onChange()
	}
	return changed
}

func (w *visibilityWatcher) observes(b *Block) bool {
	_, ok := w.observed[b]
	return ok
}
