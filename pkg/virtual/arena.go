package virtual

// arena hands out stable uint32 handles for nodes so that set membership can
// live in bitmaps. Handles are recycled after release.
type arena struct {
	ids   map[Node]uint32
	nodes []Node // handle -> node, nil when free
	free  []uint32
}

func newArena() *arena {
	return &arena{ids: make(map[Node]uint32)}
}

// acquire returns n's handle, allocating one on first sight.
func (a *arena) acquire(n Node) uint32 {
	if id, ok := a.ids[n]; ok {
		return id
	}
	var id uint32
	if last := len(a.free) - 1; last >= 0 {
		id = a.free[last]
		a.free = a.free[:last]
		a.nodes[id] = n
	} else {
		id = uint32(len(a.nodes))
		a.nodes = append(a.nodes, n)
	}
	a.ids[n] = id
	return id
}

func (a *arena) lookup(n Node) (uint32, bool) {
	id, ok := a.ids[n]
	return id, ok
}

func (a *arena) node(id uint32) Node {
	if int(id) >= len(a.nodes) {
		return nil
	}
	return a.nodes[id]
}

// release frees n's handle. The caller must drop the handle from every set
// first.
func (a *arena) release(n Node) {
	id, ok := a.ids[n]
	if !ok {
		return
	}
	delete(a.ids, n)
	a.nodes[id] = nil
	a.free = append(a.free, id)
}

func (a *arena) len() int {
	return len(a.ids)
}
