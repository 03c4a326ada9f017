package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgSubtle    = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS BAR
// ══════════════════════════════════════════════════════════════════════════════

var (
	StatusBarStyle = lipgloss.NewStyle().
			Background(ColorBgSubtle).
			Foreground(ColorText)

	StatusSourceStyle = lipgloss.NewStyle().
				Background(ColorPrimary).
				Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
				Bold(true).
				Padding(0, 1)

	StatusMessageStyle = lipgloss.NewStyle().
				Background(ColorBgSubtle).
				Foreground(ColorInfo).
				Padding(0, 1)

	StatusErrorStyle = lipgloss.NewStyle().
				Background(ColorBgSubtle).
				Foreground(ColorDanger).
				Bold(true).
				Padding(0, 1)

	StatusStatsStyle = lipgloss.NewStyle().
				Background(ColorBgSubtle).
				Foreground(ColorMuted).
				Padding(0, 1)
)

// RenderSettleBadge shows whether the manager has converged.
func RenderSettleBadge(settled, oscillating bool) string {
	var label string
	var fg lipgloss.AdaptiveColor
	switch {
	case oscillating:
		label, fg = "⚠ unsettled", ColorDanger
	case settled:
		label, fg = "● settled", ColorSuccess
	default:
		label, fg = "◌ syncing", ColorWarning
	}
	return lipgloss.NewStyle().
		Background(ColorBgSubtle).
		Foreground(fg).
		Padding(0, 1).
		Render(label)
}

// RenderMiniBar renders a mini horizontal bar for a value between 0 and 1
func RenderMiniBar(value float64, width int) string {
	if width <= 0 {
		return ""
	}
	value = min(max(value, 0), 1)

	filled := min(int(value*float64(width)), width)

	var barColor lipgloss.AdaptiveColor
	switch {
	case value >= 0.75:
		barColor = ColorDanger
	case value >= 0.25:
		barColor = ColorWarning
	default:
		barColor = ColorSuccess
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Background(ColorBgSubtle).Foreground(barColor).Render(bar)
}

// RenderPosition renders the scroll position as a percentage.
func RenderPosition(scrollY, contentHeight, height int) string {
	span := contentHeight - height
	if span <= 0 {
		return "All"
	}
	switch {
	case scrollY <= 0:
		return "Top"
	case scrollY >= span:
		return "Bot"
	}
	return fmt.Sprintf("%d%%", scrollY*100/span)
}

// RenderDivider renders a horizontal divider line
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}
