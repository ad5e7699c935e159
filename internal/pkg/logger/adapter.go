package logger

import (
	"io"
	"log/slog"

	"aave_pnl/internal/app/port"
)

// slogAdapter implements port.Logger on top of a slog.Logger.
// A nil inner logger means "use the package-level default".
type slogAdapter struct {
	inner *slog.Logger
}

// NewSlogAdapter returns a port.Logger backed by the global slog logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// NewNamed returns a port.Logger that tags every record with component=name.
func NewNamed(name string) port.Logger {
	ensureInitialized()
	return &slogAdapter{inner: globalLogger.With("component", name)}
}

// NewNop discards everything. Used by tests.
func NewNop() port.Logger {
	return &slogAdapter{inner: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (a *slogAdapter) Info(msg string, args ...any) {
	if a.inner == nil {
		Info(msg, args...)
		return
	}
	a.inner.Info(msg, args...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	if a.inner == nil {
		Debug(msg, args...)
		return
	}
	a.inner.Debug(msg, args...)
}

func (a *slogAdapter) Warn(msg string, args ...any) {
	if a.inner == nil {
		Warn(msg, args...)
		return
	}
	a.inner.Warn(msg, args...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	if a.inner == nil {
		Error(msg, args...)
		return
	}
	a.inner.Error(msg, args...)
}
