package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tailored-agentic-units/kernelhub/config"
	"github.com/tailored-agentic-units/kernelhub/future"
	"github.com/tailored-agentic-units/kernelhub/messaging"
	"github.com/tailored-agentic-units/kernelhub/observability"
	"github.com/tailored-agentic-units/kernelhub/pubsub"
	"github.com/tailored-agentic-units/kernelhub/registry"
)

// Option configures a Manager after config-driven initialization.
type Option func(*Manager)

// WithTransport sets the channel transport. Required.
func WithTransport(t Transport) Option {
	return func(m *Manager) { m.transport = t }
}

// WithProcessManager sets the process manager used by Restart. Without one,
// Restart only reconnects the channels.
func WithProcessManager(pm ProcessManager) Option {
	return func(m *Manager) { m.processes = pm }
}

// WithObserver overrides the observer named in the config.
func WithObserver(o observability.Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// connection is one attempt at attaching to a kernel's channels. Restart
// replaces the record, which is how in-flight connect goroutines notice they
// are stale.
type connection struct {
	state ConnectionState
	iopub Channel
	shell Channel
}

func (c *connection) channels() []Channel {
	var chs []Channel
	if c.iopub != nil {
		chs = append(chs, c.iopub)
	}
	if c.shell != nil {
		chs = append(chs, c.shell)
	}
	return chs
}

// tracked is the broadcast state owned by one registered kernel.
type tracked struct {
	kernel       *Kernel
	states       *pubsub.PubSub[ExecutionState]
	info         *future.Future[messaging.Content]
	executions   *pubsub.PubSub[string]
	executionIDs []string
	conn         *connection
}

// Manager tracks kernels inserted into its registry. A single mutex guards
// every table; transport callbacks, registry callbacks and public calls each
// run to completion under it.
type Manager struct {
	mu           sync.Mutex
	kernels      *registry.Registry[string, *Kernel]
	tracked      map[string]*tracked
	executions   map[string]*execution
	correlations correlations
	closed       bool

	added   *pubsub.PubSub[string]
	deleted *pubsub.PubSub[string]

	transport   Transport
	processes   ProcessManager
	observer    observability.Observer
	settleDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Manager from configuration. The returned Manager owns an
// empty registry; insert kernels through Kernels.
func New(ctx context.Context, cfg config.TrackerConfig, opts ...Option) (*Manager, error) {
	correlations, err := newCorrelations(cfg.CorrelationLimit)
	if err != nil {
		return nil, err
	}

	managerCtx, cancel := context.WithCancel(ctx)

	m := &Manager{
		tracked:      make(map[string]*tracked),
		executions:   make(map[string]*execution),
		correlations: correlations,
		added:        pubsub.New[string](),
		deleted:      pubsub.New[string](),
		settleDelay:  cfg.SettleDelay.Std(),
		ctx:          managerCtx,
		cancel:       cancel,
	}
	m.kernels = registry.New(m.onInserted, m.onRemoved)

	for _, opt := range opts {
		opt(m)
	}

	if m.transport == nil {
		cancel()
		return nil, fmt.Errorf("kernel manager requires a transport")
	}

	if m.observer == nil {
		observer, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		m.observer = observer
	}

	return m, nil
}

// Kernels returns the registry the Manager observes.
func (m *Manager) Kernels() *registry.Registry[string, *Kernel] {
	return m.kernels
}

// SubscribeKernelAdded streams the ids of kernels inserted after the call.
func (m *Manager) SubscribeKernelAdded() *pubsub.Subscription[string] {
	return m.added.Subscribe()
}

// SubscribeKernelDeleted streams the ids of kernels removed after the call.
func (m *Manager) SubscribeKernelDeleted() *pubsub.Subscription[string] {
	return m.deleted.Subscribe()
}

// SubscribeExecutionState streams the kernel's execution-state changes. The
// stream ends when the kernel is deleted.
func (m *Manager) SubscribeExecutionState(kernelID string) (*pubsub.Subscription[ExecutionState], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(kernelID)
	if err != nil {
		return nil, err
	}
	return t.states.Subscribe(), nil
}

// WatchExecutionState returns the current execution state and a
// subscription to every later change. No change can fall between the two.
func (m *Manager) WatchExecutionState(kernelID string) (ExecutionState, *pubsub.Subscription[ExecutionState], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(kernelID)
	if err != nil {
		return "", nil, err
	}
	current, _ := t.states.Last()
	return current, t.states.Subscribe(), nil
}

// LastExecutionState returns the most recently published execution state.
func (m *Manager) LastExecutionState(kernelID string) (ExecutionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(kernelID)
	if err != nil {
		return "", err
	}
	return t.states.Last()
}

// KernelInfo waits for the kernel's kernel_info_reply content.
func (m *Manager) KernelInfo(ctx context.Context, kernelID string) (messaging.Content, error) {
	m.mu.Lock()
	t, err := m.lookup(kernelID)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return t.info.Await(ctx)
}

// ConnectionState reports where the kernel's channel connection stands.
func (m *Manager) ConnectionState(kernelID string) (ConnectionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(kernelID)
	if err != nil {
		return Disconnected, err
	}
	if t.conn == nil {
		return Disconnected, nil
	}
	return t.conn.state, nil
}

// Close stops every broadcast channel, closes open kernel channels and waits
// for background connect and restart goroutines. The registry keeps its
// entries but is no longer observed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cancel()

	var open []Channel
	for id, t := range m.tracked {
		open = append(open, m.teardown(t, ErrManagerClosed)...)
		delete(m.tracked, id)
	}
	m.added.Stop()
	m.deleted.Stop()
	m.mu.Unlock()

	closeChannels(open)
	m.wg.Wait()
	return nil
}

// lookup must be called with m.mu held.
func (m *Manager) lookup(kernelID string) (*tracked, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	t, ok := m.tracked[kernelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKernelNotFound, kernelID)
	}
	return t, nil
}

// teardown stops the kernel's broadcast channels and settles its info
// future. It returns the open channel handles so the caller can close them
// after releasing m.mu. Must be called with m.mu held.
func (m *Manager) teardown(t *tracked, cause error) []Channel {
	t.states.Stop()
	t.info.Fail(cause)
	t.executions.Stop()
	for _, id := range t.executionIDs {
		if exec, ok := m.executions[id]; ok {
			exec.events.Stop()
		}
	}

	var open []Channel
	if t.conn != nil {
		open = t.conn.channels()
		t.conn.state = Disconnected
		t.conn = nil
	}
	return open
}

func (m *Manager) emit(eventType observability.EventType, level observability.Level, kernelID string, data map[string]any) {
	m.observer.OnEvent(m.ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "kernel.manager",
		KernelID:  kernelID,
		Data:      data,
	})
}

func closeChannels(chs []Channel) {
	for _, ch := range chs {
		_ = ch.Close()
	}
}
