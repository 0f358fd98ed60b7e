package kernel_test

import (
	"context"
	"testing"
	"time"

	"github.com/tailored-agentic-units/kernelhub/config"
	"github.com/tailored-agentic-units/kernelhub/kernel"
	"github.com/tailored-agentic-units/kernelhub/kernel/mock"
	"github.com/tailored-agentic-units/kernelhub/messaging"
	"github.com/tailored-agentic-units/kernelhub/observability"
)

// --- Test helpers ---

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func testConfig() config.TrackerConfig {
	cfg := config.DefaultTrackerConfig()
	cfg.SettleDelay = config.Duration(time.Millisecond)
	return cfg
}

func newManager(t *testing.T, cfg config.TrackerConfig, opts ...kernel.Option) (*kernel.Manager, *mock.Transport, *observability.CaptureObserver) {
	t.Helper()
	transport := mock.NewTransport()
	capture := &observability.CaptureObserver{}

	opts = append([]kernel.Option{
		kernel.WithTransport(transport),
		kernel.WithObserver(capture),
	}, opts...)

	m, err := kernel.New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, transport, capture
}

// addConnected inserts a kernel and waits until its channels are open and
// the kernel_info_request was sent.
func addConnected(t *testing.T, m *kernel.Manager, transport *mock.Transport, kernelID string) {
	t.Helper()
	m.Kernels().Insert(kernelID, kernel.NewKernel(kernelID, "python3"))
	waitFor(t, func() bool {
		state, _ := m.ConnectionState(kernelID)
		return state == kernel.Connected
	}, "kernel to connect")
	waitFor(t, func() bool {
		return len(transport.SentOfType(kernelID, messaging.TypeKernelInfoRequest)) == 1
	}, "kernel_info_request")
}

func receive[T any](t *testing.T, nextFn func(context.Context) (T, bool, error)) (T, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	value, ok, err := nextFn(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	return value, ok
}
