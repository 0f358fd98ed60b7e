package observability

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// SlogObserver writes events as slog records. The event type is the record
// message; source, kernel id, and Data entries become attributes, with Data
// keys emitted in sorted order.
type SlogObserver struct {
	logger *slog.Logger
}

func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	if !o.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(event.Data)+2)
	attrs = append(attrs, slog.String("source", event.Source))
	if event.KernelID != "" {
		attrs = append(attrs, slog.String("kernel_id", event.KernelID))
	}
	for _, key := range slices.Sorted(maps.Keys(event.Data)) {
		attrs = append(attrs, slog.Any(key, event.Data[key]))
	}

	o.logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
