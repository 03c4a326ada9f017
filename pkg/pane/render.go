package pane

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/virtlist/pkg/debug"
	"github.com/vanderheijden86/virtlist/pkg/model"
)

// Renderer turns an item into terminal lines for a given width. It must
// return at least one line.
type Renderer interface {
	Render(item model.Item, width int) []string
}

var (
	colorTitle = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	colorBody  = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	colorMuted = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
)

// PlainRenderer renders a bold title line followed by the word-wrapped body
// and a blank separator line.
type PlainRenderer struct {
	Title lipgloss.Style
	Body  lipgloss.Style
}

// NewPlainRenderer returns a PlainRenderer with the default palette.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{
		Title: lipgloss.NewStyle().Foreground(colorTitle).Bold(true),
		Body:  lipgloss.NewStyle().Foreground(colorBody),
	}
}

func (r *PlainRenderer) Render(item model.Item, width int) []string {
	if width < 1 {
		width = 1
	}
	lines := []string{r.Title.Render(truncate(item.DisplayTitle(), width))}
	if body := strings.TrimRight(item.Body, "\n "); body != "" {
		wrapped := r.Body.Width(width).Render(body)
		lines = append(lines, strings.Split(wrapped, "\n")...)
	}
	return append(lines, "")
}

// MarkdownRenderer renders the body as markdown through glamour. One
// TermRenderer is kept per wrap width.
type MarkdownRenderer struct {
	Style string
	Title lipgloss.Style

	fallback  *PlainRenderer
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdownRenderer returns a renderer using the named glamour style
// ("dark", "light", "notty", ... or "auto").
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "dark"
	}
	return &MarkdownRenderer{
		Style:     style,
		Title:     lipgloss.NewStyle().Foreground(colorTitle).Bold(true),
		fallback:  NewPlainRenderer(),
		renderers: make(map[int]*glamour.TermRenderer),
	}
}

func (r *MarkdownRenderer) termRenderer(width int) (*glamour.TermRenderer, error) {
	if tr, ok := r.renderers[width]; ok {
		return tr, nil
	}
	styleOpt := glamour.WithStandardStyle(r.Style)
	if r.Style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}
	r.renderers[width] = tr
	return tr, nil
}

func (r *MarkdownRenderer) Render(item model.Item, width int) []string {
	if width < 1 {
		width = 1
	}
	body := strings.TrimSpace(item.Body)
	if body == "" {
		return r.fallback.Render(item, width)
	}
	tr, err := r.termRenderer(width)
	if err != nil {
		debug.Log("pane: glamour renderer for width %d: %v", width, err)
		return r.fallback.Render(item, width)
	}
	out, err := tr.Render(body)
	if err != nil {
		debug.Log("pane: rendering %s as markdown: %v", item.ID, err)
		return r.fallback.Render(item, width)
	}
	lines := []string{r.Title.Render(truncate(item.DisplayTitle(), width))}
	lines = append(lines, strings.Split(strings.Trim(out, "\n"), "\n")...)
	return append(lines, "")
}

// truncate shortens s to maxWidth cells, adding an ellipsis when it cuts.
func truncate(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 1 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "…")
}
