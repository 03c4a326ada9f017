// Package ui provides the interactive terminal viewer: a scrollable pane of
// items whose off-screen blocks are kept as placeholders by the visibility
// manager.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/vanderheijden86/virtlist/internal/datasource"
	"github.com/vanderheijden86/virtlist/pkg/config"
	"github.com/vanderheijden86/virtlist/pkg/debug"
	"github.com/vanderheijden86/virtlist/pkg/export"
	"github.com/vanderheijden86/virtlist/pkg/metrics"
	"github.com/vanderheijden86/virtlist/pkg/model"
	"github.com/vanderheijden86/virtlist/pkg/pane"
	"github.com/vanderheijden86/virtlist/pkg/virtual"
	"github.com/vanderheijden86/virtlist/pkg/watcher"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// FileChangedMsg is sent when the item source changes on disk
type FileChangedMsg struct{}

// frameMsg drives the pane's frame loop.
type frameMsg time.Time

// WatchFileCmd returns a command that waits for source changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

func frameTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Options configures a Model.
type Options struct {
	Config       config.Config
	Items        []model.Item
	Source       string           // Source path; empty for generated items
	Title        string           // Shown in the status bar; defaults to the source name
	Watcher      *watcher.Watcher // Optional; must already be started
	SnapshotPath string           // Target of the snapshot key; defaults to the state dir
}

// Model is the Bubble Tea model of the viewer.
type Model struct {
	cfg     config.Config
	pane    *pane.Pane
	manager *virtual.Manager
	watcher *watcher.Watcher
	help    help.Model

	source       string
	title        string
	snapshotPath string

	width  int
	height int
	ready  bool

	statusMsg     string
	statusIsError bool
}

// NewViewport builds an empty pane of the given size and attaches a
// visibility manager configured from cfg.
func NewViewport(cfg config.Config, width, height int) (*pane.Pane, *virtual.Manager) {
	var renderer pane.Renderer = pane.NewPlainRenderer()
	if cfg.UI.Markdown {
		renderer = pane.NewMarkdownRenderer(cfg.UI.GlamourStyle)
	}
	p := pane.New(width, height,
		pane.WithRenderer(renderer),
		pane.WithPlaceholder(cfg.UI.Placeholder),
	)
	mgr := virtual.NewManager(p,
		virtual.WithBuffer(cfg.Virtual.Buffer),
		virtual.WithDefaultSize(cfg.Virtual.DefaultSize),
		virtual.WithMaxSettleTicks(cfg.Virtual.MaxSettleTicks),
		virtual.WithHaltOnOscillation(cfg.Virtual.HaltOnOscillation),
		virtual.WithLogger(debug.Log),
	)
	return p, mgr
}

// NewModel builds the pane and the visibility manager and loads the
// initial items.
func NewModel(opts Options) (Model, error) {
	cfg := opts.Config

	p, mgr := NewViewport(cfg, 80, 24)
	if _, err := p.SetItems(opts.Items); err != nil {
		mgr.Close()
		return Model{}, err
	}

	title := opts.Title
	if title == "" {
		title = filepath.Base(opts.Source)
	}
	if opts.Source == "" && opts.Title == "" {
		title = "fixture"
	}
	snapshotPath := opts.SnapshotPath
	if snapshotPath == "" {
		snapshotPath = export.DefaultOutputPath("svg")
	}

	return Model{
		cfg:          cfg,
		pane:         p,
		manager:      mgr,
		watcher:      opts.Watcher,
		help:         help.New(),
		source:       opts.Source,
		title:        title,
		snapshotPath: snapshotPath,
		statusMsg:    fmt.Sprintf("Loaded %d items", len(opts.Items)),
	}, nil
}

// Pane returns the viewer's pane.
func (m Model) Pane() *pane.Pane { return m.pane }

// Manager returns the visibility manager.
func (m Model) Manager() *virtual.Manager { return m.manager }

// Status returns the current status message and whether it is an error.
func (m Model) Status() (string, bool) { return m.statusMsg, m.statusIsError }

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{frameTickCmd(m.cfg.UI.FrameInterval)}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.layout()
		return m, nil

	case frameMsg:
		m.pane.RunFrame()
		return m, frameTickCmd(m.cfg.UI.FrameInterval)

	case FileChangedMsg:
		debug.Log("ui: source change detected path=%s", m.source)
		m.reload()
		if m.watcher != nil {
			return m, WatchFileCmd(m.watcher)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := max(m.pane.Height()-1, 1)

	switch {
	case key.Matches(msg, keys.Quit):
		m.manager.Close()
		return m, tea.Quit
	case key.Matches(msg, keys.Down):
		m.pane.ScrollBy(1)
	case key.Matches(msg, keys.Up):
		m.pane.ScrollBy(-1)
	case key.Matches(msg, keys.PageDown):
		m.pane.ScrollBy(page)
	case key.Matches(msg, keys.PageUp):
		m.pane.ScrollBy(-page)
	case key.Matches(msg, keys.Top):
		m.pane.ScrollToTop()
	case key.Matches(msg, keys.Bottom):
		m.pane.ScrollToBottom()
	case key.Matches(msg, keys.Copy):
		m.copyTopItem()
	case key.Matches(msg, keys.Reload):
		m.reload()
	case key.Matches(msg, keys.Snapshot):
		m.saveSnapshot()
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
	}
	return m, nil
}

// layout sizes the pane to the window minus the footer.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	footer := 1
	if m.help.ShowAll {
		footer += lipgloss.Height(m.help.View(keys))
	}
	m.pane.Resize(m.width, max(m.height-footer, 1))
}

func (m *Model) setStatus(isError bool, format string, args ...any) {
	m.statusMsg = fmt.Sprintf(format, args...)
	m.statusIsError = isError
}

func (m *Model) copyTopItem() {
	item, ok := m.pane.TopItem()
	if !ok {
		m.setStatus(true, "❌ Nothing to copy")
		return
	}
	text := item.Body
	if text == "" {
		text = item.DisplayTitle()
	}
	if err := writeClipboard(text); err != nil {
		m.setStatus(true, "❌ Clipboard error: %v", err)
		return
	}
	m.setStatus(false, "📋 Copied %s to clipboard", item.ID)
}

func (m *Model) reload() {
	if m.source == "" {
		m.setStatus(false, "Nothing to reload: items were generated")
		return
	}
	start := time.Now()
	items, _, err := datasource.Load(context.Background(), m.source)
	if err != nil {
		m.setStatus(true, "Reload error: %v", err)
		return
	}
	diff, err := m.pane.SetItems(items)
	if err != nil {
		m.setStatus(true, "Reload error: %v", err)
		return
	}
	metrics.SourceReloads.Inc()
	debug.LogIf(!diff.HasChanges(), "ui: reload of %s changed nothing", m.source)
	d := time.Since(start)
	debug.LogTiming("ui.reload", d)
	m.setStatus(false, "Reloaded %d items (%s) in %s", len(items), diff.Summary(), d.Round(time.Millisecond))
}

func (m *Model) saveSnapshot() {
	err := export.SaveLayoutSnapshot(export.LayoutSnapshotOptions{
		Path:     m.snapshotPath,
		Title:    m.title,
		Snapshot: m.pane.Snapshot(),
		Stats:    m.manager.Stats(),
	})
	if err != nil {
		m.setStatus(true, "Snapshot error: %v", err)
		return
	}
	m.setStatus(false, "Saved snapshot to %s", m.snapshotPath)
}

// oscillating reports whether the manager has gone the configured number of
// frames without settling.
func (m Model) oscillating(stats virtual.Stats) bool {
	limit := m.cfg.Virtual.MaxSettleTicks
	return limit > 0 && !stats.Settled && stats.UnsettledTicks >= limit
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.pane.View())
	b.WriteByte('\n')
	b.WriteString(m.statusBar())
	if m.help.ShowAll {
		b.WriteByte('\n')
		b.WriteString(m.help.View(keys))
	}
	return b.String()
}

func (m Model) statusBar() string {
	stats := m.manager.Stats()

	fill := 0.0
	if stats.Managed > 0 {
		fill = float64(stats.Revealed) / float64(stats.Managed)
	}
	right := StatusStatsStyle.Render(fmt.Sprintf("rev %d obs %d/%d avg %.1f",
		stats.Revealed, stats.Observed, stats.Managed, stats.AverageSize)) +
		RenderMiniBar(fill, 6) +
		RenderSettleBadge(stats.Settled, m.oscillating(stats)) +
		StatusStatsStyle.Render(RenderPosition(m.pane.ScrollY(), m.pane.ContentHeight(), m.pane.Height()))

	left := StatusSourceStyle.Render(m.title)
	if room := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2; m.statusMsg != "" && room > 0 {
		style := StatusMessageStyle
		if m.statusIsError {
			style = StatusErrorStyle
		}
		left += style.Render(ansi.Truncate(m.statusMsg, room, "…"))
	}

	// Key hints only when they fit.
	if !m.help.ShowAll {
		hints := StatusStatsStyle.Render(m.help.ShortHelpView(keys.ShortHelp()))
		if lipgloss.Width(left)+lipgloss.Width(hints)+lipgloss.Width(right) <= m.width {
			right = hints + right
		}
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	bar := left + StatusBarStyle.Render(strings.Repeat(" ", gap)) + right
	return lipgloss.NewStyle().MaxWidth(m.width).Render(bar)
}
