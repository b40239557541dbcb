package iresearch

import "log/slog"

// Logger returns a component-scoped logger, the same
// slog.Default().With("component", ...) idiom every subsystem uses to
// report recoverable I/O and format problems without panicking or
// aborting the caller (§7 "Internal reasons are logged").
func Logger(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
