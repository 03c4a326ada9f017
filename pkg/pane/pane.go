// Package pane is a scrollable terminal list that hosts a virtual.Manager.
//
// A Pane lays items out vertically as Blocks (one per item, measured in
// rows), queues structural changes as mutation records, runs frame callbacks
// on demand, and tracks the visibility of observed blocks. Everything runs on
// the caller's goroutine; in the application that is the Bubble Tea update
// loop.
package pane

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/virtlist/internal/datasource"
	"github.com/vanderheijden86/virtlist/pkg/debug"
	"github.com/vanderheijden86/virtlist/pkg/metrics"
	"github.com/vanderheijden86/virtlist/pkg/model"
	"github.com/vanderheijden86/virtlist/pkg/virtual"
)

// DefaultPlaceholder is the glyph painted on rows of locked blocks.
const DefaultPlaceholder = "·"

// Option configures a Pane.
type Option func(*Pane)

// WithRenderer sets the block renderer (PlainRenderer by default).
func WithRenderer(r Renderer) Option {
	return func(p *Pane) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithPlaceholder sets the glyph painted on placeholder rows.
func WithPlaceholder(glyph string) Option {
	return func(p *Pane) {
		if glyph != "" {
			p.placeholderGlyph = glyph
		}
	}
}

type mutationSub struct {
	fn func([]virtual.MutationRecord)
}

// Pane is a viewport over a vertical list of blocks.
type Pane struct {
	width, height int
	scrollY       int
	contentHeight int

	blocks []*Block
	byID   map[string]*Block
	dirty  bool

	renderer         Renderer
	placeholderGlyph string
	placeholderStyle lipgloss.Style

	pending   []virtual.MutationRecord
	mutations []*mutationSub
	frames    []func()
	watchers  []*visibilityWatcher
}

var _ virtual.Container = (*Pane)(nil)

// New creates an empty pane of the given size in cells.
func New(width, height int, opts ...Option) *Pane {
	p := &Pane{
		width:            max(width, 1),
		height:           max(height, 1),
		byID:             make(map[string]*Block),
		dirty:            true,
		renderer:         NewPlainRenderer(),
		placeholderGlyph: DefaultPlaceholder,
		placeholderStyle: lipgloss.NewStyle().Foreground(colorMuted).Faint(true),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Width returns the pane width in cells.
func (p *Pane) Width() int { return p.width }

// Height returns the viewport height in rows.
func (p *Pane) Height() int { return p.height }

// ScrollY returns the row at the top of the viewport.
func (p *Pane) ScrollY() int { return p.scrollY }

// Len returns the number of blocks.
func (p *Pane) Len() int { return len(p.blocks) }

// Block returns the block at index i.
func (p *Pane) Block(i int) *Block { return p.blocks[i] }

// Lookup returns the block showing the item with the given ID.
func (p *Pane) Lookup(id string) (*Block, bool) {
	b, ok := p.byID[id]
	return b, ok
}

// Items returns the items in display order.
func (p *Pane) Items() []model.Item {
	out := make([]model.Item, len(p.blocks))
	for i, b := range p.blocks {
		out[i] = b.item
	}
	return out
}

// ContentHeight returns the total height of all blocks in rows.
func (p *Pane) ContentHeight() int {
	p.FlushMutations()
	p.ensureLayout()
	return p.contentHeight
}

// children is the live view of the pane's blocks handed to the manager.
type children struct{ p *Pane }

func (c children) Len() int               { return len(c.p.blocks) }
func (c children) At(i int) virtual.Node { return c.p.blocks[i] }

// Children returns a live view of the blocks in display order.
func (p *Pane) Children() virtual.Children { return children{p} }

// ViewportHeight returns the viewport height in rows.
func (p *Pane) ViewportHeight() float64 { return float64(p.height) }

// WatchMutations subscribes fn to batches of structural changes. The returned
// function unsubscribes.
func (p *Pane) WatchMutations(fn func([]virtual.MutationRecord)) func() {
	sub := &mutationSub{fn: fn}
	p.mutations = append(p.mutations, sub)
	return func() {
		for i, s := range p.mutations {
			if s == sub {
				p.mutations = append(p.mutations[:i], p.mutations[i+1:]...)
				return
			}
		}
	}
}

// WatchVisibility returns a watcher that calls fn when an observed block
// enters or leaves the viewport.
func (p *Pane) WatchVisibility(fn func()) virtual.VisibilityWatcher {
	w := &visibilityWatcher{pane: p, onChange: fn, observed: make(map[*Block]*observation)}
	p.watchers = append(p.watchers, w)
	return w
}

func (p *Pane) dropWatcher(w *visibilityWatcher) {
	for i, cur := range p.watchers {
		if cur == w {
			p.watchers = append(p.watchers[:i], p.watchers[i+1:]...)
			return
		}
	}
}

// RequestFrame queues fn for the next RunFrame.
func (p *Pane) RequestFrame(fn func()) {
	p.frames = append(p.frames, fn)
}

// FramePending reports whether RunFrame has work to do: callbacks to run or
// mutations to deliver.
func (p *Pane) FramePending() bool { return len(p.frames) > 0 || len(p.pending) > 0 }

// RunFrame delivers queued mutations, runs the callbacks requested before
// this frame, then checks visibility. It reports whether more frames were
// requested.
func (p *Pane) RunFrame() bool {
	p.FlushMutations()
	cbs := p.frames
	p.frames = nil
	for _, cb := range cbs {
		cb()
	}
	p.checkVisibility()
	return len(p.frames) > 0
}

// Settle runs frames until none are pending or limit frames have run. It
// returns the number of frames run.
func (p *Pane) Settle(limit int) int {
	p.FlushMutations()
	n := 0
	for n < limit && p.FramePending() {
		p.RunFrame()
		n++
	}
	return n
}

// FlushMutations delivers queued mutation records to every subscriber in a
// single batch.
func (p *Pane) FlushMutations() {
	if len(p.pending) == 0 {
		return
	}
	records := p.pending
	p.pending = nil
	for _, rec := range records {
		for _, n := range rec.Added {
			if b, ok := n.(*Block); ok && b.fresh {
				b.fresh = false
				p.dirty = true
			}
		}
	}
	for _, sub := range append([]*mutationSub(nil), p.mutations...) {
		sub.fn(records)
	}
}

func (p *Pane) checkVisibility() {
	for _, w := range append([]*visibilityWatcher(nil), p.watchers...) {
		w.check()
	}
}

func (p *Pane) invalidate() {
	p.dirty = true
}

func (p *Pane) reindex(from int) {
	for i := from; i < len(p.blocks); i++ {
		p.blocks[i].index = i
	}
	p.dirty = true
}

// ensureLayout renders stale unlocked blocks and recomputes every top. Blocks
// not yet delivered to subscribers take one row and are never rendered.
func (p *Pane) ensureLayout() {
	if !p.dirty {
		return
	}
	defer metrics.Timer(metrics.Layout)()
	top := 0
	for _, b := range p.blocks {
		b.top = top
		switch {
		case b.fresh:
			b.height = 1
		case b.locked:
			b.height = b.placeholder
		default:
			b.render(p.width)
			b.height = len(b.lines)
		}
		top += b.height
	}
	p.contentHeight = top
	p.dirty = false
	p.scrollY = p.clamp(p.scrollY)
}

func (p *Pane) clamp(y int) int {
	maxY := p.contentHeight - p.height
	if y > maxY {
		y = maxY
	}
	if y < 0 {
		y = 0
	}
	return y
}

// SetItems replaces the pane's content, reusing blocks by item ID. Blocks
// whose relative order changed are recorded as removed and re-added.
func (p *Pane) SetItems(items []model.Item) (datasource.ItemDiff, error) {
	if err := model.ValidateAll(items); err != nil {
		return datasource.ItemDiff{}, fmt.Errorf("setting items: %w", err)
	}
	diff := datasource.Diff(p.Items(), items)
	if !diff.HasChanges() {
		return diff, nil
	}

	gone := make(map[string]bool, len(diff.Removed)+len(diff.Moved))
	for _, it := range diff.Removed {
		gone[it.ID] = true
	}
	moved := make(map[string]bool, len(diff.Moved))
	for _, it := range diff.Moved {
		moved[it.ID] = true
	}

	var rec virtual.MutationRecord
	for _, b := range p.blocks {
		switch {
		case gone[b.item.ID]:
			rec.Removed = append(rec.Removed, b)
			b.index = -1
			delete(p.byID, b.item.ID)
		case moved[b.item.ID]:
			rec.Removed = append(rec.Removed, b)
		}
	}

	blocks := make([]*Block, 0, len(items))
	for _, it := range items {
		b, ok := p.byID[it.ID]
		if !ok {
			b = newBlock(p, it)
			p.byID[it.ID] = b
			rec.Added = append(rec.Added, b)
		} else {
			b.setItem(it)
			if moved[it.ID] {
				rec.Added = append(rec.Added, b)
			}
		}
		blocks = append(blocks, b)
	}
	p.blocks = blocks
	p.reindex(0)
	p.queue(rec)
	debug.Log("pane: set items: %s", diff.Summary())
	return diff, nil
}

// Append adds items at the end.
func (p *Pane) Append(items ...model.Item) error {
	return p.Insert(len(p.blocks), items...)
}

// Insert adds items before index i.
func (p *Pane) Insert(i int, items ...model.Item) error {
	if i < 0 || i > len(p.blocks) {
		return fmt.Errorf("insert index %d out of range [0,%d]", i, len(p.blocks))
	}
	if err := model.ValidateAll(items); err != nil {
		return fmt.Errorf("inserting items: %w", err)
	}
	for _, it := range items {
		if _, dup := p.byID[it.ID]; dup {
			return fmt.Errorf("inserting items: id %q already present", it.ID)
		}
	}
	if len(items) == 0 {
		return nil
	}

	added := make([]*Block, len(items))
	nodes := make([]virtual.Node, len(items))
	for j, it := range items {
		b := newBlock(p, it)
		p.byID[it.ID] = b
		added[j] = b
		nodes[j] = b
	}
	tail := append(added, p.blocks[i:]...)
	p.blocks = append(p.blocks[:i], tail...)
	p.reindex(i)
	p.queue(virtual.MutationRecord{Added: nodes})
	return nil
}

// Remove deletes the blocks with the given IDs. Unknown IDs are ignored. It
// returns the number of blocks removed.
func (p *Pane) Remove(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := p.byID[id]; ok {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}
	var rec virtual.MutationRecord
	kept := p.blocks[:0]
	for _, b := range p.blocks {
		if drop[b.item.ID] {
			rec.Removed = append(rec.Removed, b)
			b.index = -1
			delete(p.byID, b.item.ID)
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(p.blocks); i++ {
		p.blocks[i] = nil
	}
	p.blocks = kept
	p.reindex(0)
	p.queue(rec)
	return len(rec.Removed)
}

func (p *Pane) queue(rec virtual.MutationRecord) {
	if len(rec.Added) == 0 && len(rec.Removed) == 0 {
		return
	}
	p.pending = append(p.pending, rec)
}

// ScrollBy moves the viewport by delta rows.
func (p *Pane) ScrollBy(delta int) {
	p.ScrollTo(p.scrollY + delta)
}

// ScrollTo moves the top of the viewport to row y, clamped to the content.
func (p *Pane) ScrollTo(y int) {
	p.FlushMutations()
	p.ensureLayout()
	y = p.clamp(y)
	if y == p.scrollY {
		return
	}
	p.scrollY = y
	p.checkVisibility()
}

// ScrollToTop moves the viewport to the first row.
func (p *Pane) ScrollToTop() { p.ScrollTo(0) }

// ScrollToBottom moves the viewport so the last row is visible.
func (p *Pane) ScrollToBottom() {
	p.FlushMutations()
	p.ensureLayout()
	p.ScrollTo(p.contentHeight)
}

// AtBottom reports whether the last row is visible.
func (p *Pane) AtBottom() bool {
	p.FlushMutations()
	p.ensureLayout()
	return p.scrollY >= p.contentHeight-p.height
}

// Resize changes the viewport size. A width change invalidates every
// rendered block.
func (p *Pane) Resize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	if width == p.width && height == p.height {
		return
	}
	if width != p.width {
		p.width = width
		p.dirty = true
	}
	if height != p.height {
		p.height = height
		p.dirty = true
	}
	p.FlushMutations()
	p.checkVisibility()
}

// TopItem returns the item shown on the first row of the viewport.
func (p *Pane) TopItem() (model.Item, bool) {
	p.FlushMutations()
	n := virtual.FindElement(p.Children(), 0, virtual.BiasHigh)
	b, ok := n.(*Block)
	if !ok {
		return model.Item{}, false
	}
	return b.item, true
}

// View paints the viewport. Locked blocks show dim placeholder rows.
func (p *Pane) View() string {
	p.FlushMutations()
	p.ensureLayout()
	defer metrics.Timer(metrics.Paint)()

	rows := make([]string, 0, p.height)
	bounds := virtual.FindBounds(p.Children(), 0, float64(p.height-1))
	if !bounds.Empty() {
		placeholder := p.placeholderStyle.Render(p.placeholderGlyph)
		for i := bounds.LowIndex; i <= bounds.HighIndex && len(rows) < p.height; i++ {
			b := p.blocks[i]
			for r := 0; r < b.height; r++ {
				y := b.top + r - p.scrollY
				if y < 0 {
					continue
				}
				if y >= p.height {
					break
				}
				if b.locked {
					rows = append(rows, placeholder)
				} else {
					rows = append(rows, b.lines[r])
				}
			}
		}
	}
	for len(rows) < p.height {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}
