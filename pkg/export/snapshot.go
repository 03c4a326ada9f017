// Package export writes diagnostic pictures and reports of a virtualized
// list: which blocks are revealed, which are observed, and how the manager
// converged.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/virtlist/pkg/metrics"
	"github.com/vanderheijden86/virtlist/pkg/pane"
	"github.com/vanderheijden86/virtlist/pkg/virtual"
)

// ErrNoBlocks is returned when there is nothing to draw.
var ErrNoBlocks = errors.New("no blocks to export")

// LayoutSnapshotOptions controls layout snapshot export behaviour.
type LayoutSnapshotOptions struct {
	Path     string        // Output path; format inferred from extension when Format empty
	Format   string        // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title    string        // Optional title rendered in summary block
	Snapshot pane.Snapshot // Pane layout to draw
	Stats    virtual.Stats // Manager diagnostics for the summary
}

// SaveLayoutSnapshot renders the pane layout as SVG or PNG: a full-list
// overview on the left and a zoomed view around the viewport on the right,
// with blocks coloured by state.
func SaveLayoutSnapshot(opts LayoutSnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotExport)()

	if len(opts.Snapshot.Blocks) == 0 {
		return ErrNoBlocks
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts)

	switch format {
	case "svg":
		return renderSVG(opts.Path, layout)
	default:
		return renderPNG(opts.Path, layout)
	}
}

// --- layout computation ----------------------------------------------------

type blockState int

const (
	stateHidden blockState = iota
	stateObserved
	stateRevealed
)

func stateOf(b pane.BlockSnapshot) blockState {
	switch {
	case !b.Locked:
		return stateRevealed
	case b.Observed:
		return stateObserved
	default:
		return stateHidden
	}
}

type bar struct {
	ID    string
	Y, H  float64
	State blockState
}

type column struct {
	X, W     float64
	Bars     []bar
	ViewTop  float64
	ViewH    float64
	Labelled bool
}

type layoutResult struct {
	Width    int
	Height   int
	Header   float64
	Overview column
	Detail   column
	Summary  summaryInfo
}

type summaryInfo struct {
	Title  string
	Blocks string
	View   string
	Sync   string
}

const (
	padding       = 36.0
	headerHeight  = 120.0
	overviewW     = 120.0
	detailW       = 420.0
	columnGap     = 48.0
	maxOverviewPx = 1200.0
	detailRowPx   = 14.0
)

func buildLayout(opts LayoutSnapshotOptions) layoutResult {
	snap := opts.Snapshot
	content := float64(max(snap.ContentHeight, 1))
	top := padding + headerHeight

	// Overview: the whole list, at most maxOverviewPx tall.
	rowPx := 4.0
	if content*rowPx > maxOverviewPx {
		rowPx = maxOverviewPx / content
	}
	overview := column{
		X:       padding,
		W:       overviewW,
		ViewTop: top + float64(snap.ScrollY)*rowPx,
		ViewH:   float64(snap.Height) * rowPx,
	}
	for _, b := range snap.Blocks {
		overview.Bars = append(overview.Bars, bar{
			ID:    b.ID,
			Y:     top + float64(b.Top)*rowPx,
			H:     max(float64(b.Height)*rowPx, 1),
			State: stateOf(b),
		})
	}

	// Detail: the viewport plus half a viewport on each side.
	lo := max(snap.ScrollY-snap.Height/2, 0)
	hi := min(snap.ScrollY+snap.Height+snap.Height/2, snap.ContentHeight)
	detail := column{
		X:        padding + overviewW + columnGap,
		W:        detailW,
		ViewTop:  top + float64(snap.ScrollY-lo)*detailRowPx,
		ViewH:    float64(snap.Height) * detailRowPx,
		Labelled: true,
	}
	for _, b := range snap.Blocks {
		start, end := max(b.Top, lo), min(b.Top+b.Height, hi)
		if end <= start {
			continue
		}
		detail.Bars = append(detail.Bars, bar{
			ID:    b.ID,
			Y:     top + float64(start-lo)*detailRowPx,
			H:     float64(end-start) * detailRowPx,
			State: stateOf(b),
		})
	}

	width := int(detail.X + detailW + padding)
	bodyH := max(content*rowPx, float64(hi-lo)*detailRowPx)
	height := max(int(top+bodyH+padding), 480)

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Layout Snapshot"
	}
	observed := 0
	for _, b := range snap.Blocks {
		if b.Observed {
			observed++
		}
	}
	settled := "no"
	if opts.Stats.Settled {
		settled = "yes"
	}

	return layoutResult{
		Width:    width,
		Height:   height,
		Header:   headerHeight,
		Overview: overview,
		Detail:   detail,
		Summary: summaryInfo{
			Title:  title,
			Blocks: fmt.Sprintf("blocks: %d  revealed: %d  observed: %d", len(snap.Blocks), snap.Revealed(), observed),
			View:   fmt.Sprintf("viewport: rows %d..%d of %d  (%dx%d)", snap.ScrollY, snap.ScrollY+snap.Height, snap.ContentHeight, snap.Width, snap.Height),
			Sync:   fmt.Sprintf("syncs: %d  settled: %s  avg size: %.2f", opts.Stats.Syncs, settled, opts.Stats.AverageSize),
		},
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorRevealed = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorObserved = color.RGBA{0xff, 0xf3, 0xe0, 0xff}
	colorHidden   = color.RGBA{0xcf, 0xd8, 0xdc, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorViewport = color.RGBA{0x6b, 0x47, 0xd9, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func stateColor(s blockState) color.RGBA {
	switch s {
	case stateRevealed:
		return colorRevealed
	case stateObserved:
		return colorObserved
	default:
		return colorHidden
	}
}

func renderPNG(path string, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	drawSummaryBlock(dc, layout)
	drawLegend(dc, layout)
	drawColumn(dc, layout.Overview)
	drawColumn(dc, layout.Detail)

	return dc.SavePNG(path)
}

func drawColumn(dc *gg.Context, col column) {
	for _, b := range col.Bars {
		dc.SetColor(stateColor(b.State))
		dc.DrawRectangle(col.X, b.Y, col.W, b.H)
		dc.Fill()
		if !col.Labelled {
			continue
		}
		dc.SetColor(colorStroke)
		dc.SetLineWidth(0.6)
		dc.DrawRectangle(col.X, b.Y, col.W, b.H)
		dc.Stroke()
		if b.H >= detailRowPx {
			dc.SetColor(colorText)
			dc.DrawStringAnchored(truncate(b.ID, 56), col.X+8, b.Y+detailRowPx/2, 0, 0.5)
		}
	}
	dc.SetColor(colorViewport)
	dc.SetLineWidth(2)
	dc.DrawRectangle(col.X-4, col.ViewTop, col.W+8, col.ViewH)
	dc.Stroke()
}

func drawSummaryBlock(dc *gg.Context, layout layoutResult) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(layout.Summary.Blocks, 32, 64, 0, 0.5)
	dc.DrawStringAnchored(layout.Summary.View, 32, 84, 0, 0.5)
	dc.DrawStringAnchored(layout.Summary.Sync, 32, 104, 0, 0.5)
}

func drawLegend(dc *gg.Context, layout layoutResult) {
	boxW := 180.0
	boxH := 80.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	drawLegendRow(dc, x+12, y+36, colorRevealed, "Revealed")
	drawLegendRow(dc, x+12, y+52, colorObserved, "Hidden, observed")
	drawLegendRow(dc, x+12, y+68, colorHidden, "Hidden")
}

func drawLegendRow(dc *gg.Context, x, y float64, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(label, x+20, y, 0, 0.5)
}

func renderSVG(path string, layout layoutResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderSVGToWriter(file, layout)
}

func renderSVGToWriter(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, layout)
	drawLegendSVG(canvas, layout)
	drawColumnSVG(canvas, layout.Overview)
	drawColumnSVG(canvas, layout.Detail)

	canvas.End()
	return nil
}

func drawColumnSVG(canvas *svg.SVG, col column) {
	canvas.Group(fmt.Sprintf(`class="column" data-bars="%d"`, len(col.Bars)))
	for _, b := range col.Bars {
		style := fmt.Sprintf("fill:%s", css(stateColor(b.State)))
		if col.Labelled {
			style += fmt.Sprintf(";stroke:%s;stroke-width:0.6", css(colorStroke))
		}
		// Sub-pixel bars are kept at one pixel so every block stays visible.
		canvas.Rect(int(col.X), int(b.Y), int(col.W), max(int(b.H), 1), style)
		if col.Labelled && b.H >= detailRowPx {
			canvas.Text(int(col.X)+8, int(b.Y+detailRowPx/2)+4, truncate(b.ID, 56),
				fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorText)))
		}
	}
	canvas.Rect(int(col.X)-4, int(col.ViewTop), int(col.W)+8, int(col.ViewH),
		fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", css(colorViewport)))
	canvas.Gend()
}

func drawSummaryBlockSVG(canvas *svg.SVG, layout layoutResult) {
	canvas.Text(32, 44, layout.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 64, layout.Summary.Blocks, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 84, layout.Summary.View, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 104, layout.Summary.Sync, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
}

func drawLegendSVG(canvas *svg.SVG, layout layoutResult) {
	boxW := 180
	boxH := 80
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	drawLegendRowSVG(canvas, x+12, y+36, colorRevealed, "Revealed")
	drawLegendRowSVG(canvas, x+12, y+52, colorObserved, "Hidden, observed")
	drawLegendRowSVG(canvas, x+12, y+68, colorHidden, "Hidden")
}

func drawLegendRowSVG(canvas *svg.SVG, x, y int, c color.RGBA, label string) {
	canvas.Roundrect(x, y-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(c), css(colorStroke)))
	canvas.Text(x+20, y, label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
