package pane

// BlockSnapshot is the layout of one block at snapshot time.
type BlockSnapshot struct {
	ID       string `json:"id"`
	Top      int    `json:"top"`
	Height   int    `json:"height"`
	Locked   bool   `json:"locked"`
	Observed bool   `json:"observed"`
}

// Snapshot is a point-in-time copy of the pane layout, used by the
// diagnostic exporters.
type Snapshot struct {
	Width         int             `json:"width"`
	Height        int             `json:"height"`
	ScrollY       int             `json:"scroll_y"`
	ContentHeight int             `json:"content_height"`
	Blocks        []BlockSnapshot `json:"blocks"`
}

// Revealed returns the number of unlocked blocks.
func (s Snapshot) Revealed() int {
	n := 0
	for _, b := range s.Blocks {
		if !b.Locked {
			n++
		}
	}
	return n
}

// Snapshot lays the pane out and copies every block's position.
func (p *Pane) Snapshot() Snapshot {
	p.FlushMutations()
	p.ensureLayout()
	s := Snapshot{
		Width:         p.width,
		Height:        p.height,
		ScrollY:       p.scrollY,
		ContentHeight: p.contentHeight,
		Blocks:        make([]BlockSnapshot, len(p.blocks)),
	}
	for i, b := range p.blocks {
		observed := false
		for _, w := range p.watchers {
			if w.observes(b) {
				observed = true
				break
			}
		}
		s.Blocks[i] = BlockSnapshot{
			ID:       b.item.ID,
			Top:      b.top,
			Height:   b.height,
			Locked:   b.locked,
			Observed: observed,
		}
	}
	return s
}
