// Package debug is the conditional debug log of marktree.
//
// Set MT_DEBUG to any non-empty value to turn it on:
//
//	MT_DEBUG=1 mt build
//
// Messages go to stderr with a [MT_DEBUG] prefix and microsecond
// timestamps. With MT_DEBUG unset every function returns immediately.
package debug

import (
	"io"
	"log"
	"os"
	"time"
)

const prefix = "[MT_DEBUG] "

var (
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("MT_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled reports whether debug logging is on.
func Enabled() bool {
	return enabled
}

// SetEnabled turns debug logging on or off. Turning it on without a logger
// writes to stderr.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output, mostly for tests.
func SetOutput(w io.Writer) {
	logger = log.New(w, prefix, 0)
}

// Log writes a printf-style message.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogIf writes a message when cond holds.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming records how long name took.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogEnterExit logs entry now and exit with the elapsed time when the
// returned func runs:
//
//	defer debug.LogEnterExit("site.Build")()
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

// Dump logs a value with its type.
func Dump(name string, v any) {
	if !enabled {
		return
	}
	logger.Printf("%s: %T = %+v", name, v, v)
}
