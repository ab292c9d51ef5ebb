package g3d

import (
	"log/slog"
	"strings"
	"sync/atomic"
)

// newNopLogger returns a logger whose handler reports every level as
// disabled, so callers skip message formatting.
func newNopLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// loggerPtr stores the package logger. Accessed atomically so SetLogger
// can race with context creation on other goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger sets the logger new contexts use when no WithLogger option
// is given. By default g3d produces no log output. Pass nil to restore
// the silent default.
//
// Log levels used by g3d:
//   - [slog.LevelDebug]: per-frame diagnostics (cache misses, pass timings)
//   - [slog.LevelInfo]: lifecycle events (backend selected, context created)
//   - [slog.LevelWarn]: skipped objects, release failures, context loss
//
// Example:
//
//	g3d.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by components and backends that accept a
// logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes l to v if it accepts a logger.
func propagateLogger(v any, l *slog.Logger) {
	if ls, ok := v.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// ParseLevel parses a log level name: debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(strings.TrimSpace(s)))
	return l, err
}
