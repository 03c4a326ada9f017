package export

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/virtlist/pkg/pane"
	"github.com/vanderheijden86/virtlist/pkg/testutil"
	"github.com/vanderheijden86/virtlist/pkg/virtual"
)

// sampleSnapshot has 50 blocks of 3 rows, a 20 row viewport at row 30,
// blocks 8..22 revealed and 7..23 observed.
func sampleSnapshot() pane.Snapshot {
	snap := pane.Snapshot{Width: 80, Height: 20, ScrollY: 30, ContentHeight: 150}
	for i := 0; i < 50; i++ {
		snap.Blocks = append(snap.Blocks, pane.BlockSnapshot{
			ID:       "item-" + strconv.Itoa(i),
			Top:      3 * i,
			Height:   3,
			Locked:   i < 8 || i > 22,
			Observed: i >= 7 && i <= 23,
		})
	}
	return snap
}

func TestSaveLayoutSnapshot_SVGAndPNG(t *testing.T) {
	tmp := t.TempDir()
	cases := []struct {
		name string
		file string
	}{
		{"svg", "layout.svg"},
		{"png", "layout.png"},
		{"nested dir", filepath.Join("a", "b", "layout.svg")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(tmp, tc.file)
			err := SaveLayoutSnapshot(LayoutSnapshotOptions{
				Path:     out,
				Snapshot: sampleSnapshot(),
				Stats:    virtual.Stats{Syncs: 2, Settled: true},
			})
			if err != nil {
				t.Fatalf("SaveLayoutSnapshot error: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatalf("output file is empty")
			}
		})
	}
}

func TestSaveLayoutSnapshot_PNGHeader(t *testing.T) {
	out := filepath.Join(t.TempDir(), "layout.png")
	if err := SaveLayoutSnapshot(LayoutSnapshotOptions{Path: out, Snapshot: sampleSnapshot()}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Errorf("output is not a PNG: % x", data[:8])
	}
}

func TestSaveLayoutSnapshot_Errors(t *testing.T) {
	tmp := t.TempDir()

	err := SaveLayoutSnapshot(LayoutSnapshotOptions{Path: filepath.Join(tmp, "x.svg")})
	if !errors.Is(err, ErrNoBlocks) {
		t.Errorf("expected ErrNoBlocks, got %v", err)
	}

	err = SaveLayoutSnapshot(LayoutSnapshotOptions{
		Path:     filepath.Join(tmp, "x.txt"),
		Format:   "gif",
		Snapshot: sampleSnapshot(),
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}

	err = SaveLayoutSnapshot(LayoutSnapshotOptions{Format: "svg", Snapshot: sampleSnapshot()})
	if err == nil {
		t.Error("expected an error for a missing path")
	}
}

func TestSaveLayoutSnapshot_InfersSVGWithoutExtension(t *testing.T) {
	base := filepath.Join(t.TempDir(), "layout")
	if err := SaveLayoutSnapshot(LayoutSnapshotOptions{Path: base, Snapshot: sampleSnapshot()}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(base + ".svg"); err != nil {
		t.Errorf("expected %s.svg: %v", base, err)
	}
}

func TestRenderSVG_Structure(t *testing.T) {
	layout := buildLayout(LayoutSnapshotOptions{Title: "fixture", Snapshot: sampleSnapshot()})

	var buf bytes.Buffer
	if err := renderSVGToWriter(&buf, layout); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("invalid SVG XML: %v", err)
		}
	}

	// Overview draws every block; detail draws rows 20..60.
	if !strings.Contains(out, `data-bars="50"`) {
		t.Error("overview should contain 50 bars")
	}
	if !strings.Contains(out, `data-bars="14"`) {
		t.Error("detail should contain 14 bars")
	}
	for _, want := range []string{"fixture", "item-10", "revealed: 15", "observed: 17", css(colorRevealed), css(colorObserved), css(colorViewport)} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(out, ">item-40<") {
		t.Error("blocks outside the detail window should not be labelled")
	}
}

func TestBuildLayout_Scaling(t *testing.T) {
	snap := pane.Snapshot{Width: 80, Height: 20, ContentHeight: 3000}
	for i := 0; i < 1000; i++ {
		snap.Blocks = append(snap.Blocks, pane.BlockSnapshot{ID: "b", Top: 3 * i, Height: 3, Locked: true})
	}
	layout := buildLayout(LayoutSnapshotOptions{Snapshot: snap})

	last := layout.Overview.Bars[len(layout.Overview.Bars)-1]
	if bottom := last.Y + last.H - (padding + headerHeight); bottom > maxOverviewPx+1 {
		t.Errorf("overview should fit in %v px, got %v", maxOverviewPx, bottom)
	}
	if layout.Summary.Title != "Layout Snapshot" {
		t.Errorf("default title = %q", layout.Summary.Title)
	}
	for _, b := range layout.Overview.Bars {
		if b.H < 1 {
			t.Fatalf("bars must be at least 1px tall, got %v", b.H)
		}
	}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		block pane.BlockSnapshot
		want  blockState
	}{
		{pane.BlockSnapshot{Locked: false, Observed: true}, stateRevealed},
		{pane.BlockSnapshot{Locked: true, Observed: true}, stateObserved},
		{pane.BlockSnapshot{Locked: true}, stateHidden},
	}
	for _, tt := range tests {
		if got := stateOf(tt.block); got != tt.want {
			t.Errorf("stateOf(%+v) = %v, want %v", tt.block, got, tt.want)
		}
	}
}

func TestTruncateAndCSS(t *testing.T) {
	if got := truncate("abcdefgh", 5); got != "ab..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 2); got != "ab" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Errorf("truncate zero = %q", got)
	}
	if got := css(colorStroke); got != "#222222" {
		t.Errorf("css = %q", got)
	}
}

func TestBuildReport_SizeDistribution(t *testing.T) {
	snap := pane.Snapshot{
		Width: 40, Height: 10, ContentHeight: 112,
		Blocks: []pane.BlockSnapshot{
			{ID: "a", Top: 0, Height: 2},
			{ID: "b", Top: 2, Height: 4},
			{ID: "c", Top: 6, Height: 6},
			{ID: "d", Top: 12, Height: 100, Locked: true},
		},
	}
	r := BuildReport("fixture", snap, virtual.Stats{Managed: 4, Revealed: 3}, []Step{{Index: 0, Frames: 2}})

	if r.Items != 4 || r.Source != "fixture" || r.Viewport.ContentHeight != 112 {
		t.Errorf("unexpected header %+v", r)
	}
	sz := r.Sizes
	if sz.Count != 3 || sz.Min != 2 || sz.Max != 6 {
		t.Errorf("unexpected distribution %+v", sz)
	}
	if math.Abs(sz.Mean-4) > 1e-9 || math.Abs(sz.StdDev-2) > 1e-9 {
		t.Errorf("mean/stddev = %v/%v, want 4/2", sz.Mean, sz.StdDev)
	}

	empty := BuildReport("none", pane.Snapshot{}, virtual.Stats{}, nil)
	if empty.Sizes != (SizeDistribution{}) || empty.Steps == nil {
		t.Errorf("empty report should have zero sizes and a non-nil step list, got %+v", empty)
	}
}

func TestWriteReport_JSON(t *testing.T) {
	r := BuildReport("fixture", sampleSnapshot(), virtual.Stats{Syncs: 3, Settled: true}, []Step{
		{Index: 0, ScrollY: 0, TopItem: "item-0", Frames: 2, Revealed: 9, Observed: 10},
		{Index: 1, ScrollY: 20, TopItem: "item-6", Frames: 1, Revealed: 9, Observed: 10, Settled: true},
	})

	var buf bytes.Buffer
	if err := WriteReport(&buf, r); err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	for _, key := range []string{"generated_at", "source", "viewport", "stats", "steps", "sizes"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("report missing %q", key)
		}
	}
	steps, _ := decoded["steps"].([]any)
	if len(steps) != 2 {
		t.Errorf("expected 2 steps, got %v", decoded["steps"])
	}
	stats, _ := decoded["stats"].(map[string]any)
	if stats["syncs"] != float64(3) || stats["settled"] != true {
		t.Errorf("unexpected stats %v", stats)
	}
	var back Report
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("report does not decode into Report: %v", err)
	}
	testutil.AssertJSONEqual(t, r.Steps, back.Steps)
	testutil.AssertJSONEqual(t, r.Viewport, back.Viewport)
	testutil.AssertJSONEqual(t, r.Sizes, back.Sizes)
	testutil.AssertJSONEqual(t, r.Stats, back.Stats)
}

func TestWizardConfig_Normalize(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")

	tests := []struct {
		in   WizardConfig
		want WizardConfig
	}{
		{WizardConfig{Format: "svg"}, WizardConfig{Format: "svg", Path: "/tmp/state/vl/layout.svg"}},
		{WizardConfig{Format: "JSON"}, WizardConfig{Format: "json", Path: "/tmp/state/vl/report.json"}},
		{WizardConfig{Format: "png", Path: "out/shot.svg"}, WizardConfig{Format: "png", Path: "out/shot.png"}},
		{WizardConfig{Format: "png", Path: "out/shot"}, WizardConfig{Format: "png", Path: "out/shot.png"}},
		{WizardConfig{Format: "svg", Path: " x.SVG "}, WizardConfig{Format: "svg", Path: "x.SVG"}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestWizardConfig_Validate(t *testing.T) {
	if err := (WizardConfig{Format: "svg", Path: "a.svg"}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := (WizardConfig{Format: "gif", Path: "a.gif"}).Validate(); err == nil {
		t.Error("unknown format should be rejected")
	}
	if err := (WizardConfig{Format: "png"}).Validate(); err == nil {
		t.Error("empty path should be rejected")
	}
}

func TestWizardConfig_SaveLoad(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	got, err := LoadWizardConfig()
	if err != nil || got != nil {
		t.Fatalf("expected no saved config, got %+v, %v", got, err)
	}

	want := WizardConfig{Format: "png", Path: "/tmp/shot.png"}
	if err := SaveWizardConfig(want); err != nil {
		t.Fatal(err)
	}
	got, err = LoadWizardConfig()
	if err != nil || got == nil || *got != want {
		t.Fatalf("LoadWizardConfig = %+v, %v; want %+v", got, err, want)
	}

	// An invalid saved file is ignored.
	if err := os.WriteFile(WizardConfigPath(), []byte(`{"format":"gif","path":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if got, err := LoadWizardConfig(); err != nil || got != nil {
		t.Errorf("invalid saved config should be ignored, got %+v, %v", got, err)
	}
}

func TestExport(t *testing.T) {
	tmp := t.TempDir()
	snap := sampleSnapshot()

	for _, format := range []string{"svg", "png", "json"} {
		cfg := WizardConfig{Format: format, Path: filepath.Join(tmp, "out."+format)}
		if err := Export(cfg, "fixture", snap, virtual.Stats{}); err != nil {
			t.Fatalf("Export(%s): %v", format, err)
		}
		if info, err := os.Stat(cfg.Path); err != nil || info.Size() == 0 {
			t.Errorf("Export(%s) wrote nothing: %v", format, err)
		}
	}

	if err := Export(WizardConfig{Format: "bmp", Path: "x"}, "", snap, virtual.Stats{}); err == nil {
		t.Error("Export should reject an unknown format")
	}
}
