// Package observability carries structured events out of the kernel tracker
// and its adapters. Level values follow OpenTelemetry SeverityNumber ranges so
// events translate to OTel log records and slog levels without a lookup table.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level is an event severity in OTel SeverityNumber units.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps the level onto slog's four levels.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names an event. Emitting packages declare their own constants,
// e.g. "kernel.added" or "kernel.message.dropped".
type EventType string

// Event is one observable occurrence. KernelID is empty for events that are
// not scoped to a kernel.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	KernelID  string
	Data      map[string]any
}

// Observer receives events. Implementations must be safe for concurrent use
// and must not block; OnEvent is called while the emitter holds its locks.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}
