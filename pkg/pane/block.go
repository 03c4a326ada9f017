package pane

import (
	"math"

	"github.com/vanderheijden86/virtlist/pkg/metrics"
	"github.com/vanderheijden86/virtlist/pkg/model"
	"github.com/vanderheijden86/virtlist/pkg/virtual"
)

// Block is one item laid out in a Pane. It implements virtual.Node in rows.
type Block struct {
	pane  *Pane
	item  model.Item
	index int // -1 once removed from the pane

	locked      bool
	placeholder int
	fresh       bool // added but not yet delivered to mutation subscribers

	lines      []string
	linesWidth int

	top    int
	height int
}

var _ virtual.Node = (*Block)(nil)

func newBlock(p *Pane, item model.Item) *Block {
	return &Block{pane: p, item: item, index: -1, fresh: true}
}

// Item returns the item the block displays.
func (b *Block) Item() model.Item { return b.item }

// Index returns the block's position in the pane, or -1 if it was removed.
func (b *Block) Index() int { return b.index }

// Locked reports whether the block is showing a placeholder.
func (b *Block) Locked() bool { return b.locked }

// Bounds returns the block's rows relative to the top of the viewport.
// Forces a layout if anything changed since the last one.
func (b *Block) Bounds() virtual.Bounds {
	if b.index < 0 {
		return virtual.Bounds{}
	}
	b.pane.ensureLayout()
	top := float64(b.top - b.pane.scrollY)
	return virtual.Bounds{Top: top, Bottom: top + float64(b.height)}
}

// Lock replaces the block's content with placeholder rows and drops its
// rendered lines.
func (b *Block) Lock(placeholder float64) {
	rows := int(math.Ceil(placeholder))
	if rows < 1 {
		rows = 1
	}
	if b.locked && b.placeholder == rows {
		return
	}
	b.locked = true
	b.placeholder = rows
	b.lines = nil
	b.pane.invalidate()
}

// Unlock restores rendering. The content is rendered on the next layout.
func (b *Block) Unlock() {
	if !b.locked {
		return
	}
	b.locked = false
	b.pane.invalidate()
}

// Prev returns the block above, or nil for the first block.
func (b *Block) Prev() virtual.Node {
	if b.index <= 0 {
		return nil
	}
	return b.pane.blocks[b.index-1]
}

// Next returns the block below, or nil for the last block.
func (b *Block) Next() virtual.Node {
	if b.index < 0 || b.index+1 >= len(b.pane.blocks) {
		return nil
	}
	return b.pane.blocks[b.index+1]
}

// setItem swaps in new content for the same ID.
func (b *Block) setItem(item model.Item) {
	if b.item.SameContent(item) {
		b.item = item
		return
	}
	b.item = item
	b.lines = nil
	if !b.locked {
		b.pane.invalidate()
	}
}

// render fills the line cache for width unless it is already current.
func (b *Block) render(width int) {
	if b.lines != nil && b.linesWidth == width {
		return
	}
	stop := metrics.Timer(metrics.BlockRender)
	lines := b.pane.renderer.Render(b.item, width)
	stop()
	if len(lines) == 0 {
		lines = []string{""}
	}
	b.lines = lines
	b.linesWidth = width
	metrics.BlocksRendered.Inc()
}
