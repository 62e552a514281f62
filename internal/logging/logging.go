// Package logging provides the runtime's structured logging, split the
// way oriys-nova's internal/logging package splits it: one process-wide
// operational logger for daemon/infrastructure events (engine
// construction failures, binding registration, CLI lifecycle), and a
// per-invocation logger that carries the invocation's state tag and
// exit code once known.
package logging

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	opLogger atomic.Pointer[slog.Logger]
	logLevel = new(slog.LevelVar)
)

func init() {
	logLevel.Set(slog.LevelInfo)
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	opLogger.Store(slog.New(handler))
}

// Op returns the operational logger for daemon/infrastructure events.
// This is distinct from Invocation, which scopes a logger to a single
// guest invocation.
func Op() *slog.Logger {
	return opLogger.Load()
}

// SetOutput redirects the operational logger; used by cmd/rwasmrun when
// --log-format/--log-file are set.
func SetOutput(handler slog.Handler) {
	opLogger.Store(slog.New(handler))
}

// SetLevel changes the level for the operational logger.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetLevelFromString sets the log level from a config/CLI string. Unknown
// values are ignored, leaving the previous level in effect.
func SetLevelFromString(level string) {
	switch level {
	case "debug", "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "info", "INFO":
		logLevel.Set(slog.LevelInfo)
	case "warn", "WARN", "warning", "WARNING":
		logLevel.Set(slog.LevelWarn)
	case "error", "ERROR":
		logLevel.Set(slog.LevelError)
	}
}

// Invocation returns a logger scoped to one guest invocation, pre-tagged
// with its opaque caller-intent state so every line it emits can be
// correlated back to the call that produced it.
func Invocation(state uint32, isShared bool) *slog.Logger {
	return Op().With(
		slog.Uint64("state", uint64(state)),
		slog.Bool("is_shared", isShared),
	)
}
