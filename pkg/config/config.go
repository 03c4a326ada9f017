// Package config handles loading and saving vl configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/vl/config.yaml
//   - State:   ~/.local/state/vl/ (layout snapshots, reports)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// VirtualConfig tunes the visibility manager.
type VirtualConfig struct {
	Buffer            float64 `yaml:"buffer" validate:"gte=0,lte=4"`
	DefaultSize       float64 `yaml:"default_size" validate:"gt=0"`
	MaxSettleTicks    int     `yaml:"max_settle_ticks" validate:"gte=0"`
	HaltOnOscillation bool    `yaml:"halt_on_oscillation"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval" validate:"gte=1ms"`
	Markdown      bool          `yaml:"markdown"`
	GlamourStyle  string        `yaml:"glamour_style" validate:"oneof=auto dark light notty dracula pink ascii tokyo-night"`
	Placeholder   string        `yaml:"placeholder" validate:"required,max=8"`
}

// SourceConfig selects and watches the item source.
type SourceConfig struct {
	Path      string        `yaml:"path,omitempty"`
	Watch     bool          `yaml:"watch"`
	Debounce  time.Duration `yaml:"debounce" validate:"gte=0"`
	ForcePoll bool          `yaml:"force_poll"`
}

// Config is the top-level configuration for vl.
type Config struct {
	Virtual VirtualConfig `yaml:"virtual"`
	UI      UIConfig      `yaml:"ui"`
	Source  SourceConfig  `yaml:"source"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Virtual: VirtualConfig{
			Buffer:         0.2,
			DefaultSize:    3,
			MaxSettleTicks: 64,
		},
		UI: UIConfig{
			FrameInterval: 16 * time.Millisecond,
			GlamourStyle:  "dark",
			Placeholder:   "·",
		},
		Source: SourceConfig{
			Watch:    true,
			Debounce: 200 * time.Millisecond,
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field against its constraints and reports all
// violations in one error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", field, e.Tag(), e.Param(), e.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, e.Tag()))
		}
	}
	return fmt.Errorf("validating config: %s", strings.Join(msgs, "; "))
}

// ConfigDir returns the XDG config directory for vl.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "vl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vl")
}

// StateDir returns the XDG state directory for vl.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "vl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "vl")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Fields missing from the file
// keep their defaults. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Source.Path = expandHome(cfg.Source.Path)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ExpandHome resolves a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
