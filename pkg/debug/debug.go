// Package debug provides conditional debug logging for vl.
//
// Debug logging is enabled by setting the VL_DEBUG environment variable:
//
//	VL_DEBUG=1 vl --simulate          # log to stderr
//	VL_DEBUG=/tmp/vl.log vl           # append to a file (use this with the TUI)
//
// When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	import "github.com/vanderheijden86/virtlist/pkg/debug"
//
//	func myFunc() {
//	    debug.Log("processing %d items", count)
//	    // ...
//	    debug.LogTiming("myFunc", elapsed)
//	}
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

const prefix = "[VL_DEBUG] "

var (
	// enabled is true when VL_DEBUG env var is set
	enabled bool
	logger  *log.Logger
)

func init() {
	configure(os.Getenv("VL_DEBUG"))
}

// configure interprets the VL_DEBUG value: empty or "0" disables, "1"/"true"
// logs to stderr, anything else is treated as a file path.
func configure(v string) {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "0", "false", "off":
		enabled = false
		return
	case "1", "true", "yes", "on", "stderr":
		SetOutput(os.Stderr)
		return
	}
	f, err := os.OpenFile(v, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		SetOutput(os.Stderr)
		logger.Printf("cannot open debug log %s: %v", v, err)
		return
	}
	SetOutput(f)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput enables logging to w. A nil writer disables logging.
func SetOutput(w io.Writer) {
	if w == nil {
		enabled = false
		return
	}
	logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
	enabled = true
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	logger.Printf(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
// Usage:
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    // ...
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Section logs a section header for visual organization in debug output.
func Section(name string) {
	if !enabled {
		return
	}
	logger.Printf("=== %s ===", name)
}

// Assert logs a message and panics if the condition is false.
// Only active when debug is enabled.
func Assert(cond bool, msg string) {
	if !enabled {
		return
	}
	if !cond {
		logger.Printf("ASSERTION FAILED: %s", msg)
		panic(fmt.Sprintf("debug assertion failed: %s", msg))
	}
}
