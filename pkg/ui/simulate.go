package ui

import (
	"github.com/vanderheijden86/virtlist/pkg/export"
	"github.com/vanderheijden86/virtlist/pkg/pane"
	"github.com/vanderheijden86/virtlist/pkg/virtual"
)

// Simulate runs the pane headlessly: it settles at the top, then pages down
// until the last row is visible, settling after every page. Each position
// becomes one Step. settleLimit caps the frames run per position.
func Simulate(p *pane.Pane, mgr *virtual.Manager, settleLimit int) []export.Step {
	page := max(p.Height()-1, 1)
	var steps []export.Step
	total := mgr.Stats().TotalChanges

	p.ScrollToTop()
	for i := 0; ; i++ {
		frames := p.Settle(settleLimit)
		stats := mgr.Stats()
		step := export.Step{
			Index:    i,
			ScrollY:  p.ScrollY(),
			Frames:   frames,
			Revealed: stats.Revealed,
			Observed: stats.Observed,
			Changes:  stats.TotalChanges - total,
			Settled:  stats.Settled,
		}
		if item, ok := p.TopItem(); ok {
			step.TopItem = item.ID
		}
		steps = append(steps, step)
		total = stats.TotalChanges

		if p.AtBottom() {
			return steps
		}
		p.ScrollBy(page)
	}
}
