package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	json "github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/virtlist/pkg/metrics"
	"github.com/vanderheijden86/virtlist/pkg/pane"
	"github.com/vanderheijden86/virtlist/pkg/virtual"
)

// Step records the manager state after one simulated scroll position.
type Step struct {
	Index    int    `json:"index"`
	ScrollY  int    `json:"scroll_y"`
	TopItem  string `json:"top_item,omitempty"`
	Frames   int    `json:"frames"`
	Revealed int    `json:"revealed"`
	Observed int    `json:"observed"`
	Changes  int    `json:"changes"`
	Settled  bool   `json:"settled"`
}

// SizeDistribution summarises the heights of revealed blocks.
type SizeDistribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Viewport describes the pane the report was produced from.
type Viewport struct {
	Width         int `json:"width"`
	Height        int `json:"height"`
	ScrollY       int `json:"scroll_y"`
	ContentHeight int `json:"content_height"`
}

// Report is the JSON document produced by a headless run.
type Report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Source      string                 `json:"source"`
	Items       int                    `json:"items"`
	Viewport    Viewport               `json:"viewport"`
	Stats       virtual.Stats          `json:"stats"`
	Steps       []Step                 `json:"steps"`
	Sizes       SizeDistribution       `json:"sizes"`
	Timings     []metrics.TimingStats  `json:"timings,omitempty"`
	Counters    []metrics.CounterStats `json:"counters,omitempty"`
}

// BuildReport assembles a report from the final pane snapshot, manager stats
// and the recorded steps. Metrics are read from the global registries.
func BuildReport(source string, snap pane.Snapshot, stats virtual.Stats, steps []Step) Report {
	if steps == nil {
		steps = []Step{}
	}
	return Report{
		GeneratedAt: time.Now().UTC(),
		Source:      source,
		Items:       len(snap.Blocks),
		Viewport: Viewport{
			Width:         snap.Width,
			Height:        snap.Height,
			ScrollY:       snap.ScrollY,
			ContentHeight: snap.ContentHeight,
		},
		Stats:    stats,
		Steps:    steps,
		Sizes:    sizeDistribution(snap),
		Timings:  metrics.AllTimingStats(),
		Counters: metrics.AllCounterStats(),
	}
}

// sizeDistribution covers revealed blocks only; locked heights are guesses.
func sizeDistribution(snap pane.Snapshot) SizeDistribution {
	var heights []float64
	for _, b := range snap.Blocks {
		if !b.Locked {
			heights = append(heights, float64(b.Height))
		}
	}
	if len(heights) == 0 {
		return SizeDistribution{}
	}
	mean, std := stat.MeanStdDev(heights, nil)
	if len(heights) == 1 {
		std = 0
	}
	return SizeDistribution{
		Count:  len(heights),
		Mean:   mean,
		StdDev: std,
		Min:    slices.Min(heights),
		Max:    slices.Max(heights),
	}
}

// WriteReport writes r as indented JSON.
func WriteReport(w io.Writer, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// SaveReport writes r to path, creating parent directories.
func SaveReport(path string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteReport(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
