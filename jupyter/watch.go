package jupyter

import (
	"context"
	"log/slog"
	"time"

	"github.com/tailored-agentic-units/kernelhub/kernel"
	"github.com/tailored-agentic-units/kernelhub/registry"
)

// StateReporter receives kernel states observed through the REST API.
type StateReporter interface {
	ReportState(kernelID string, state kernel.ExecutionState) error
}

// Watcher polls the server's kernel list and mirrors it into a registry:
// new kernels are inserted, vanished ones removed. When a reporter is set,
// restarting and dead states seen by the server are forwarded to it.
type Watcher struct {
	client   *Client
	kernels  *registry.Registry[string, *kernel.Kernel]
	reporter StateReporter
	interval time.Duration
	logger   *slog.Logger
}

func NewWatcher(client *Client, kernels *registry.Registry[string, *kernel.Kernel], reporter StateReporter, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		client:   client,
		kernels:  kernels,
		reporter: reporter,
		interval: interval,
		logger:   client.logger,
	}
}

// Run syncs once immediately and then on every interval until ctx is done.
// Failed polls are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.Sync(ctx); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "kernel sync failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sync performs one poll.
func (w *Watcher) Sync(ctx context.Context) error {
	models, err := w.client.ListKernels(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(models))
	for _, model := range models {
		seen[model.ID] = struct{}{}

		k, exists := w.kernels.Get(model.ID)
		if !exists {
			k = kernel.NewKernel(model.ID, model.Name)
			w.kernels.Insert(model.ID, k)
			w.logger.InfoContext(ctx, "kernel discovered",
				slog.String("kernel_id", model.ID),
				slog.String("name", model.Name),
			)
		}
		k.Touch(model.LastActivity)
		w.report(ctx, k, kernel.ExecutionState(model.ExecutionState))
	}

	for _, id := range w.kernels.Keys() {
		if _, ok := seen[id]; ok {
			continue
		}
		if w.kernels.Remove(id) {
			w.logger.InfoContext(ctx, "kernel removed", slog.String("kernel_id", id))
		}
	}
	return nil
}

func (w *Watcher) report(ctx context.Context, k *kernel.Kernel, state kernel.ExecutionState) {
	if w.reporter == nil || state == k.ExecutionState() {
		return
	}
	if state != kernel.StateRestarting && state != kernel.StateDead {
		return
	}
	if err := w.reporter.ReportState(k.ID, state); err != nil {
		w.logger.WarnContext(ctx, "state report failed",
			slog.String("kernel_id", k.ID),
			slog.String("error", err.Error()),
		)
	}
}
