package virtual

// fakeList is an in-memory container with a trivial vertical layout: locked
// nodes take their placeholder height, unlocked nodes their real height.

type fakeNode struct {
	list        *fakeList
	index       int
	height      float64
	heightFn    func(*fakeNode) float64
	locked      bool
	placeholder float64
	locks       int
	unlocks     int
	top         float64
	laidOut     float64
}

func (n *fakeNode) realHeight() float64 {
	if n.heightFn != nil {
		return n.heightFn(n)
	}
	return n.height
}

func (n *fakeNode) Bounds() Bounds {
	n.list.layout()
	top := n.top - n.list.scroll
	return Bounds{Top: top, Bottom: top + n.laidOut}
}

func (n *fakeNode) Lock(placeholder float64) {
	n.locked = true
	n.placeholder = placeholder
	n.locks++
	n.list.dirty = true
}

func (n *fakeNode) Unlock() {
	n.unlocks++
	n.locked = false
	n.list.dirty = true
}

func (n *fakeNode) Prev() Node {
	if n.index <= 0 || n.index > len(n.list.nodes) || n.list.nodes[n.index] != n {
		return nil
	}
	return n.list.nodes[n.index-1]
}

func (n *fakeNode) Next() Node {
	if n.index < 0 || n.index+1 >= len(n.list.nodes) || n.list.nodes[n.index] != n {
		return nil
	}
	return n.list.nodes[n.index+1]
}

type fakeWatcher struct {
	onChange     func()
	observed     map[Node]bool
	disconnected bool
}

func (w *fakeWatcher) Observe(n Node)   { w.observed[n] = true }
func (w *fakeWatcher) Unobserve(n Node) { delete(w.observed, n) }
func (w *fakeWatcher) Disconnect() {
	w.disconnected = true
	w.observed = make(map[Node]bool)
}

func (w *fakeWatcher) fire() {
	if !w.disconnected {
		w.onChange()
	}
}

type fakeList struct {
	nodes    []*fakeNode
	viewport float64
	scroll   float64
	dirty    bool
	layouts  int

	onMutation func([]MutationRecord)
	pending    []MutationRecord
	frames     []func()
	watcher    *fakeWatcher
}

func newFakeList(viewport float64, heights ...float64) *fakeList {
	l := &fakeList{viewport: viewport, dirty: true}
	for _, h := range heights {
		l.nodes = append(l.nodes, &fakeNode{list: l, height: h})
	}
	l.reindex()
	return l
}

func uniformHeights(n int, h float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = h
	}
	return out
}

func (l *fakeList) reindex() {
	for i, n := range l.nodes {
		n.index = i
	}
	l.dirty = true
}

func (l *fakeList) layout() {
	if !l.dirty {
		return
	}
	l.layouts++
	top := 0.0
	for _, n := range l.nodes {
		n.top = top
		if n.locked {
			n.laidOut = n.placeholder
		} else {
			n.laidOut = n.realHeight()
		}
		top += n.laidOut
	}
	l.dirty = false
}

func (l *fakeList) Len() int { return len(l.nodes) }

func (l *fakeList) At(i int) Node { return l.nodes[i] }

func (l *fakeList) Children() Children { return l }

func (l *fakeList) ViewportHeight() float64 { return l.viewport }

func (l *fakeList) WatchMutations(fn func([]MutationRecord)) func() {
	l.onMutation = fn
	return func() { l.onMutation = nil }
}

func (l *fakeList) WatchVisibility(fn func()) VisibilityWatcher {
	l.watcher = &fakeWatcher{onChange: fn, observed: make(map[Node]bool)}
	return l.watcher
}

func (l *fakeList) RequestFrame(fn func()) {
	l.frames = append(l.frames, fn)
}

// runFrame runs the callbacks queued before this frame and reports how many
// ran.
func (l *fakeList) runFrame() int {
	cbs := l.frames
	l.frames = nil
	for _, cb := range cbs {
		cb()
	}
	return len(cbs)
}

// settle runs frames until none are pending or limit is reached and returns
// the number of frames that did work.
func (l *fakeList) settle(limit int) int {
	frames := 0
	for frames < limit && len(l.frames) > 0 {
		l.runFrame()
		frames++
	}
	return frames
}

func (l *fakeList) appendNodes(heights ...float64) []*fakeNode {
	var added []Node
	var out []*fakeNode
	for _, h := range heights {
		n := &fakeNode{list: l, height: h}
		l.nodes = append(l.nodes, n)
		added = append(added, n)
		out = append(out, n)
	}
	l.reindex()
	l.pending = append(l.pending, MutationRecord{Added: added})
	return out
}

func (l *fakeList) removeNodes(victims ...*fakeNode) {
	drop := make(map[*fakeNode]bool, len(victims))
	var removed []Node
	for _, v := range victims {
		drop[v] = true
		removed = append(removed, v)
	}
	kept := l.nodes[:0]
	for _, n := range l.nodes {
		if !drop[n] {
			kept = append(kept, n)
		}
	}
	l.nodes = kept
	for _, v := range victims {
		v.index = -1
	}
	l.reindex()
	l.pending = append(l.pending, MutationRecord{Removed: removed})
}

func (l *fakeList) flush() {
	if len(l.pending) == 0 || l.onMutation == nil {
		l.pending = nil
		return
	}
	records := l.pending
	l.pending = nil
	l.onMutation(records)
}

func (l *fakeList) scrollTo(y float64) {
	l.scroll = y
	l.watcher.fire()
}

func (l *fakeList) unlockedIndexes() []int {
	var out []int
	for i, n := range l.nodes {
		if !n.locked {
			out = append(out, i)
		}
	}
	return out
}
