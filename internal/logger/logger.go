// Package logger is the process-wide slog logger with printf helpers. The
// level is shared by every handler so it can change at runtime.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	level   slog.LevelVar
	current atomic.Pointer[slog.Logger]
	asJSON  atomic.Bool
)

func init() { install(os.Stdout) }

func install(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: &level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if asJSON.Load() {
		h = slog.NewJSONHandler(w, opts)
	}
	current.Store(slog.New(h))
}

// SetOutput redirects logging to w, stdout when nil.
func SetOutput(w io.Writer) { install(w) }

// SetFormat selects "json" or text output on w.
func SetFormat(format string, w io.Writer) {
	asJSON.Store(strings.EqualFold(strings.TrimSpace(format), "json"))
	install(w)
}

// SetLevel applies a textual level. Unknown names fall back to info and
// report false.
func SetLevel(name string) bool {
	lvl, ok := ParseLevel(name)
	level.Set(lvl)
	return ok
}

func Level() slog.Level { return level.Level() }

func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

func base() *slog.Logger { return current.Load() }

func Debugf(format string, v ...any) { base().Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { base().Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { base().Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { base().Error(fmt.Sprintf(format, v...)) }

// InfoBlock logs each non-blank line of a multi-line report on its own.
func InfoBlock(block string) {
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if line = strings.TrimRight(line, " \t\r"); line != "" {
			base().Info(line)
		}
	}
}
