// Package repllog carries the host-pluggable logging interface used by the
// migration and replication engines: a small Logger shim with a silent
// NullLogger and a default SlogLogger that wraps log/slog.
package repllog

import (
	"fmt"
	"log/slog"
)

// Logger is the interface every component that can log takes. Hosts may
// supply slog-backed, testing, or silent implementations.
type Logger interface {
	Print(v ...any)
	Printf(format string, v ...any)
	Println(v ...any)
}

// NullLogger discards everything. Useful in tests and for hosts that only
// want structured callbacks (the onStep callback of migrate.Runner.Apply).
type NullLogger struct{}

func (NullLogger) Print(v ...any)                 {}
func (NullLogger) Printf(format string, v ...any) {}
func (NullLogger) Println(v ...any)               {}

// SlogLogger adapts a *slog.Logger to the Logger interface at info level.
type SlogLogger struct {
	L *slog.Logger
}

func (s SlogLogger) Print(v ...any)   { s.L.Info(fmt.Sprint(v...)) }
func (s SlogLogger) Println(v ...any) { s.L.Info(fmt.Sprint(v...)) }
func (s SlogLogger) Printf(format string, v ...any) {
	s.L.Info(fmt.Sprintf(format, v...))
}

// Default returns a SlogLogger wrapping the process-wide slog default. Call
// util.InitSlog during startup to honor LOG_LEVEL before taking this.
func Default() Logger {
	return SlogLogger{L: slog.Default()}
}
