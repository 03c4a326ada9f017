// Package watcher reports changes to an item source on disk. It uses
// fsnotify when it can and falls back to polling.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/virtlist/pkg/debug"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithOnChange sets the callback invoked when the source changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// stamp summarises a watched path for polling comparisons.
type stamp struct {
	mtime time.Time
	size  int64
	count int
}

func (s stamp) zero() bool { return s.mtime.IsZero() && s.count == 0 }

// Watcher monitors a file, or the Markdown files of a directory, for
// changes.
type Watcher struct {
	path             string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	forcePollEnv     bool

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	isDir       bool
	last        stamp

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher creates a new watcher for the given file or directory.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.useFallback = false
	w.forcePollEnv = envBool("VL_FORCE_POLL")
	forcePoll := w.forcePoll || w.forcePollEnv

	info, err := os.Stat(w.path)
	switch {
	case err == nil:
		w.isDir = info.IsDir()
	case os.IsPermission(err):
		return ErrPermission
	}
	// A missing file is fine; it may be created later.
	w.last, _ = w.stat()

	if !forcePoll {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			// Watch the directory itself, or the file's parent (more reliable
			// for atomic writes).
			dir := w.path
			if !w.isDir {
				dir = filepath.Dir(w.path)
			}
			if err := fsw.Add(dir); err != nil {
				fsw.Close()
				w.useFallback = true
			} else {
				w.fsWatcher = fsw
				go w.watchFsnotify()
			}
		} else {
			w.useFallback = true
		}
	} else {
		w.useFallback = true
	}

	if w.useFallback {
		debug.Log("watcher: polling %s every %v", w.path, w.pollInterval)
		go w.watchPolling()
	}

	w.started = true
	return nil
}

// Stop stops watching. The change channel is left open so a goroutine
// blocked on Changed is not woken spuriously.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives when the source changes.
// This is an alternative to using the OnChange callback.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the watched path.
func (w *Watcher) Path() string {
	return w.path
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// relevant reports whether an event on name concerns the watched source.
func (w *Watcher) relevant(name string) bool {
	if w.isDir {
		return filepath.Dir(name) == w.path && strings.EqualFold(filepath.Ext(name), ".md")
	}
	return filepath.Base(name) == filepath.Base(w.path)
}

// watchFsnotify monitors using fsnotify events.
func (w *Watcher) watchFsnotify() {
	// Capture channel references to avoid race with Stop() setting fsWatcher to nil
	w.mu.RLock()
	if w.fsWatcher == nil {
		w.mu.RUnlock()
		return
	}
	events := w.fsWatcher.Events
	errs := w.fsWatcher.Errors
	ctx := w.ctx
	w.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Remove != 0 && !w.isDir:
				w.onError(ErrFileRemoved)

			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// stat summarises the watched path: the file itself, or every Markdown file
// of the directory.
func (w *Watcher) stat() (stamp, error) {
	if !w.isDir {
		info, err := os.Stat(w.path)
		if err != nil {
			return stamp{}, err
		}
		return stamp{mtime: info.ModTime(), size: info.Size(), count: 1}, nil
	}

	entries, err := os.ReadDir(w.path)
	if err != nil {
		return stamp{}, err
	}
	var s stamp
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		s.count++
		s.size += info.Size()
		if info.ModTime().After(s.mtime) {
			s.mtime = info.ModTime()
		}
	}
	return s, nil
}

// watchPolling monitors using periodic stat checks.
func (w *Watcher) watchPolling() {
	w.mu.RLock()
	ctx := w.ctx
	interval := w.pollInterval
	w.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			cur, err := w.stat()
			if err != nil {
				if os.IsNotExist(err) {
					// Only report if the source existed before
					w.mu.Lock()
					hadFile := !w.last.zero()
					w.last = stamp{}
					w.mu.Unlock()
					if hadFile {
						w.onError(ErrFileRemoved)
					}
				} else if os.IsPermission(err) {
					w.onError(ErrPermission)
				} else {
					w.onError(err)
				}
				continue
			}

			w.mu.Lock()
			changed := cur.mtime.After(w.last.mtime) || cur.size != w.last.size || cur.count != w.last.count
			if changed {
				w.last = cur
			}
			w.mu.Unlock()

			if changed {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

// notifyChange invokes the onChange callback and signals the change channel.
func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	// Callbacks are not invoked after Stop.
	if !started {
		return
	}

	w.onChange()

	// Non-blocking send to change channel
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
