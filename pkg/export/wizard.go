package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/virtlist/pkg/config"
	"github.com/vanderheijden86/virtlist/pkg/pane"
	"github.com/vanderheijden86/virtlist/pkg/virtual"
)

// WizardConfig holds the choices made in the export wizard.
type WizardConfig struct {
	Format string `json:"format"` // "svg", "png" or "json"
	Path   string `json:"path"`
}

// DefaultWizardConfig returns the wizard defaults: an SVG in the state dir.
func DefaultWizardConfig() WizardConfig {
	return WizardConfig{
		Format: "svg",
		Path:   DefaultOutputPath("svg"),
	}
}

// DefaultOutputPath returns the default output file for a format.
func DefaultOutputPath(format string) string {
	name := "layout." + format
	if format == "json" {
		name = "report.json"
	}
	if dir := config.StateDir(); dir != "" {
		return filepath.Join(dir, name)
	}
	return name
}

// Normalize fills in a missing path and aligns the file extension with the
// chosen format.
func (c WizardConfig) Normalize() WizardConfig {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Path = config.ExpandHome(strings.TrimSpace(c.Path))
	if c.Path == "" {
		c.Path = DefaultOutputPath(c.Format)
		return c
	}
	want := "." + c.Format
	if ext := filepath.Ext(c.Path); !strings.EqualFold(ext, want) {
		c.Path = strings.TrimSuffix(c.Path, ext) + want
	}
	return c
}

// Validate checks the format and path.
func (c WizardConfig) Validate() error {
	switch c.Format {
	case "svg", "png", "json":
	default:
		return fmt.Errorf("unsupported format %q (want svg, png or json)", c.Format)
	}
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("output path is required")
	}
	return nil
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// RunWizard asks for an export format and output path, starting from the
// previous answers when they were saved. The answers are saved for next time.
func RunWizard() (WizardConfig, error) {
	cfg := DefaultWizardConfig()
	if saved, err := LoadWizardConfig(); err == nil && saved != nil {
		cfg = *saved
	}

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Export format").
				Options(
					huh.NewOption("Layout picture (SVG)", "svg"),
					huh.NewOption("Layout picture (PNG)", "png"),
					huh.NewOption("Convergence report (JSON)", "json"),
				).
				Value(&cfg.Format),
		),
	)
	if err := form.Run(); err != nil {
		return cfg, err
	}

	cfg = WizardConfig{Format: cfg.Format, Path: cfg.Path}.Normalize()
	path := cfg.Path
	form = newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output file").
				Value(&path).
				Placeholder(cfg.Path).
				Validate(func(s string) error {
					return WizardConfig{Format: cfg.Format, Path: s}.Normalize().Validate()
				}),
		),
	)
	if err := form.Run(); err != nil {
		return cfg, err
	}

	cfg = WizardConfig{Format: cfg.Format, Path: path}.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := SaveWizardConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save wizard settings: %v\n", err)
	}
	return cfg, nil
}

// WizardConfigPath returns the path to the saved wizard answers.
func WizardConfigPath() string {
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "export-wizard.json")
}

// LoadWizardConfig loads previously saved wizard answers. It returns nil
// without error when nothing was saved.
func LoadWizardConfig() (*WizardConfig, error) {
	path := WizardConfigPath()
	if path == "" {
		return nil, fmt.Errorf("could not determine state path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cfg WizardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Validate() != nil {
		return nil, nil
	}
	return &cfg, nil
}

// SaveWizardConfig saves wizard answers for future runs.
func SaveWizardConfig(cfg WizardConfig) error {
	path := WizardConfigPath()
	if path == "" {
		return fmt.Errorf("could not determine state path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Export writes the pane in the format chosen by cfg.
func Export(cfg WizardConfig, source string, snap pane.Snapshot, stats virtual.Stats) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Format == "json" {
		return SaveReport(cfg.Path, BuildReport(source, snap, stats, nil))
	}
	return SaveLayoutSnapshot(LayoutSnapshotOptions{
		Path:     cfg.Path,
		Format:   cfg.Format,
		Title:    source,
		Snapshot: snap,
		Stats:    stats,
	})
}
