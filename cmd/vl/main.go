package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/virtlist/internal/datasource"
	"github.com/vanderheijden86/virtlist/pkg/config"
	"github.com/vanderheijden86/virtlist/pkg/debug"
	"github.com/vanderheijden86/virtlist/pkg/export"
	"github.com/vanderheijden86/virtlist/pkg/fixture"
	"github.com/vanderheijden86/virtlist/pkg/model"
	"github.com/vanderheijden86/virtlist/pkg/ui"
	"github.com/vanderheijden86/virtlist/pkg/version"
	"github.com/vanderheijden86/virtlist/pkg/watcher"
)

// settleLimit caps the frames run per position in headless modes.
const settleLimit = 1000

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	source       string
	configPath   string
	fixture      int
	seed         uint64
	markdown     bool
	simulate     bool
	width        int
	height       int
	snapshot     string
	exportWizard bool
	version      bool
	cpuProfile   string
	noWatch      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("vl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.source, "source", "", "Item source: a .jsonl file, a SQLite database, or a directory of .md files")
	fs.StringVar(&o.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/vl/config.yaml)")
	fs.IntVar(&o.fixture, "fixture", 0, "Show N generated items instead of a source")
	fs.Uint64Var(&o.seed, "seed", 42, "Seed for --fixture")
	fs.BoolVar(&o.markdown, "markdown", false, "Render item bodies as Markdown")
	fs.BoolVar(&o.simulate, "simulate", false, "Run headless: settle, page through the list, print a JSON report")
	fs.IntVar(&o.width, "width", 0, "Headless viewport width (default: terminal width or 80)")
	fs.IntVar(&o.height, "height", 0, "Headless viewport height (default: terminal height or 24)")
	fs.StringVar(&o.snapshot, "snapshot", "", "Write a layout snapshot (.svg or .png) and exit")
	fs.BoolVar(&o.exportWizard, "export-wizard", false, "Choose an export format and path interactively")
	fs.BoolVar(&o.version, "version", false, "Show version")
	fs.StringVar(&o.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.BoolVar(&o.noWatch, "no-watch", false, "Do not reload when the source changes")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: vl [options]")
		fmt.Fprintln(stderr, "\nA virtualized terminal list viewer.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		if o.source != "" {
			return o, fmt.Errorf("unexpected argument %q", fs.Arg(0))
		}
		o.source = fs.Arg(0)
	}
	if o.fixture < 0 || o.width < 0 || o.height < 0 {
		return o, errors.New("--fixture, --width and --height must not be negative")
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if o.version {
		fmt.Fprintf(stdout, "vl %s\n", version.Version)
		return 0
	}

	// CPU profiling support
	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	debug.Section("vl " + version.Version)

	cfg, err := loadConfig(o)
	if err != nil {
		if o.configPath != "" {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		// A broken user config should not block the viewer.
		fmt.Fprintf(stderr, "Warning: %v; using defaults\n", err)
		cfg = applyFlags(config.DefaultConfig(), o)
	}

	items, name, err := loadItems(o, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errNoSource) {
			return 2
		}
		return 1
	}

	if o.simulate || o.snapshot != "" || o.exportWizard {
		if err := runHeadless(o, cfg, items, name, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	var w *watcher.Watcher
	if cfg.Source.Watch && cfg.Source.Path != "" && o.fixture == 0 {
		w, err = watcher.NewWatcher(cfg.Source.Path,
			watcher.WithDebounceDuration(cfg.Source.Debounce),
			watcher.WithForcePoll(cfg.Source.ForcePoll),
			watcher.WithOnError(func(err error) { debug.Log("watcher: %v", err) }),
		)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			// Non-fatal: run without live reload
			fmt.Fprintf(stderr, "Warning: live reload disabled: %v\n", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	m, err := ui.NewModel(ui.Options{
		Config:  cfg,
		Items:   items,
		Source:  sourcePath(o, cfg),
		Title:   name,
		Watcher: w,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(stderr, "Error running viewer: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(o options) (config.Config, error) {
	var cfg config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.LoadFrom(config.ExpandHome(o.configPath))
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	return applyFlags(cfg, o), nil
}

func applyFlags(cfg config.Config, o options) config.Config {
	if o.source != "" {
		cfg.Source.Path = config.ExpandHome(o.source)
	}
	if o.markdown {
		cfg.UI.Markdown = true
	}
	if o.noWatch {
		cfg.Source.Watch = false
	}
	return cfg
}

var errNoSource = errors.New("no item source: pass --source PATH or --fixture N")

// loadItems returns the items to show and a display name for them.
func loadItems(o options, cfg config.Config) ([]model.Item, string, error) {
	if o.fixture > 0 {
		gen := fixture.New(fixture.GeneratorConfig{
			Seed:     o.seed,
			MaxBody:  6,
			Markdown: cfg.UI.Markdown,
		})
		return gen.Items(o.fixture), fmt.Sprintf("fixture(%d)", o.fixture), nil
	}
	if cfg.Source.Path == "" {
		return nil, "", errNoSource
	}
	items, src, err := datasource.Load(context.Background(), cfg.Source.Path)
	if err != nil {
		return nil, "", err
	}
	return items, filepath.Base(src.Path), nil
}

func sourcePath(o options, cfg config.Config) string {
	if o.fixture > 0 {
		return ""
	}
	return cfg.Source.Path
}

// headlessSize resolves the viewport size from flags, then the terminal.
func headlessSize(o options) (int, int) {
	w, h := 80, 24
	if tw, th, err := term.GetSize(int(os.Stdout.Fd())); err == nil && tw > 0 && th > 0 {
		w, h = tw, th
	}
	if o.width > 0 {
		w = o.width
	}
	if o.height > 0 {
		h = o.height
	}
	return w, h
}

func runHeadless(o options, cfg config.Config, items []model.Item, name string, stdout io.Writer) error {
	defer debug.LogEnterExit("headless")()
	width, height := headlessSize(o)
	p, mgr := ui.NewViewport(cfg, width, height)
	defer mgr.Close()
	if _, err := p.SetItems(items); err != nil {
		return err
	}

	var steps []export.Step
	if o.simulate {
		steps = ui.Simulate(p, mgr, settleLimit)
	} else {
		p.Settle(settleLimit)
	}

	if o.snapshot != "" {
		err := export.SaveLayoutSnapshot(export.LayoutSnapshotOptions{
			Path:     o.snapshot,
			Title:    name,
			Snapshot: p.Snapshot(),
			Stats:    mgr.Stats(),
		})
		if err != nil {
			return err
		}
	}

	if o.exportWizard {
		choice, err := export.RunWizard()
		if err != nil {
			return err
		}
		if choice.Format == "json" {
			if err := export.SaveReport(choice.Path, export.BuildReport(name, p.Snapshot(), mgr.Stats(), steps)); err != nil {
				return err
			}
		} else if err := export.Export(choice, name, p.Snapshot(), mgr.Stats()); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", choice.Path)
	}

	if o.simulate {
		return export.WriteReport(stdout, export.BuildReport(name, p.Snapshot(), mgr.Stats(), steps))
	}
	return nil
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set VL_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("VL_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
