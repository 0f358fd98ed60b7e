package kernel

import (
	"fmt"
	"time"

	"github.com/tailored-agentic-units/kernelhub/future"
	"github.com/tailored-agentic-units/kernelhub/messaging"
	"github.com/tailored-agentic-units/kernelhub/observability"
	"github.com/tailored-agentic-units/kernelhub/pubsub"
)

// RestartResult reports whether a restart was started.
type RestartResult struct {
	Accepted bool
}

// onInserted runs inside Registry.Insert. An overwrite keeps the existing
// broadcast state and connection; the new Kernel takes over the cached state.
func (m *Manager) onInserted(kernelID string, k *Kernel) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	if t, exists := m.tracked[kernelID]; exists {
		if last, err := t.states.Last(); err == nil {
			k.setState(last)
		}
		t.kernel = k
		return
	}

	_ = m.added.Publish(kernelID)

	k.setState(StateStarting)
	conn := &connection{state: Connecting}
	m.tracked[kernelID] = &tracked{
		kernel:     k,
		states:     pubsub.NewWithLast(StateStarting),
		info:       future.New[messaging.Content](),
		executions: pubsub.New[string](),
		conn:       conn,
	}

	m.emit(EventKernelAdded, observability.LevelInfo, kernelID, map[string]any{
		"name": k.Name,
	})

	m.startConnect(kernelID, conn, nil)
}

// onRemoved runs inside Registry.Remove. Broadcast state is torn down before
// the removal returns; channel handles are closed after m.mu is released.
func (m *Manager) onRemoved(kernelID string) {
	m.mu.Lock()
	t, exists := m.tracked[kernelID]
	if m.closed || !exists {
		m.mu.Unlock()
		return
	}

	_ = m.deleted.Publish(kernelID)
	delete(m.tracked, kernelID)
	open := m.teardown(t, ErrKernelDeleted)

	m.emit(EventKernelDeleted, observability.LevelInfo, kernelID, map[string]any{
		"executions": len(t.executionIDs),
	})
	m.mu.Unlock()

	closeChannels(open)
}

// ReportState records a state label reported by the process manager.
// Only restarting and dead are published; other labels arrive through iopub
// status messages and are cached without publishing.
func (m *Manager) ReportState(kernelID string, state ExecutionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(kernelID)
	if err != nil {
		return err
	}

	t.kernel.setState(state)
	if state == StateRestarting || state == StateDead {
		m.publishState(kernelID, t, state)
	}
	return nil
}

// Restart restarts the kernel process and reconnects its channels in the
// background. A kernel that is still starting or already restarting is left
// alone and the result is not accepted.
func (m *Manager) Restart(kernelID string) (RestartResult, error) {
	m.mu.Lock()

	t, err := m.lookup(kernelID)
	if err != nil {
		m.mu.Unlock()
		return RestartResult{}, err
	}

	if current, err := t.states.Last(); err == nil && (current == StateStarting || current == StateRestarting) {
		m.emit(EventRestartRefused, observability.LevelWarning, kernelID, map[string]any{
			"state": string(current),
		})
		m.mu.Unlock()
		return RestartResult{Accepted: false}, nil
	}

	m.publishState(kernelID, t, StateRestarting)

	var open []Channel
	if t.conn != nil {
		open = t.conn.channels()
		t.conn.state = Disconnected
	}
	conn := &connection{state: Connecting}
	t.conn = conn

	m.emit(EventRestartStart, observability.LevelInfo, kernelID, nil)

	m.startConnect(kernelID, conn, m.restartProcess)
	m.mu.Unlock()

	closeChannels(open)
	return RestartResult{Accepted: true}, nil
}

func (m *Manager) restartProcess(kernelID string) error {
	if m.processes == nil {
		return nil
	}
	if err := m.processes.RestartKernel(m.ctx, kernelID); err != nil {
		m.emit(EventRestartFailed, observability.LevelError, kernelID, map[string]any{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// startConnect runs before (when set) and then the connect sequence in a new
// goroutine. Must be called with m.mu held.
func (m *Manager) startConnect(kernelID string, conn *connection, before func(string) error) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		if before != nil {
			if err := before(kernelID); err != nil {
				m.markDisconnected(kernelID, conn)
				return
			}
		}
		m.connect(kernelID, conn)
	}()
}

// connect waits for the settle delay, opens iopub then shell, and requests
// kernel info. Each step first checks that conn is still the kernel's
// current connection record.
func (m *Manager) connect(kernelID string, conn *connection) {
	timer := time.NewTimer(m.settleDelay)
	select {
	case <-m.ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}

	if !m.isCurrent(kernelID, conn) {
		m.emit(EventConnectAborted, observability.LevelVerbose, kernelID, map[string]any{
			"stage": "settle",
		})
		return
	}

	m.emit(EventConnectStart, observability.LevelVerbose, kernelID, nil)

	iopub, err := m.open(kernelID, messaging.ChannelIOPub, m.iopubHandler(kernelID))
	if err != nil {
		m.connectFailed(kernelID, conn, err)
		return
	}

	shell, err := m.open(kernelID, messaging.ChannelShell, m.shellHandler(kernelID))
	if err != nil {
		_ = iopub.Close()
		m.connectFailed(kernelID, conn, err)
		return
	}

	m.mu.Lock()
	if m.closed || !m.currentLocked(kernelID, conn) {
		m.mu.Unlock()
		closeChannels([]Channel{iopub, shell})
		m.emit(EventConnectAborted, observability.LevelVerbose, kernelID, map[string]any{
			"stage": "open",
		})
		return
	}
	conn.iopub = iopub
	conn.shell = shell
	conn.state = Connected
	m.mu.Unlock()

	m.emit(EventConnected, observability.LevelInfo, kernelID, nil)

	request := messaging.NewMessage(messaging.TypeKernelInfoRequest, "").Build()
	if err := m.transport.Send(m.ctx, shell, request); err != nil {
		m.emit(EventSendFailed, observability.LevelError, kernelID, map[string]any{
			"msg_type": string(messaging.TypeKernelInfoRequest),
			"error":    err.Error(),
		})
	}
}

func (m *Manager) open(kernelID string, channel messaging.Channel, handler func(*messaging.Message)) (Channel, error) {
	ch, err := m.transport.Open(m.ctx, kernelID, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s channel: %w", channel, err)
	}
	if err := ch.OnReceive(handler); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to attach %s handler: %w", channel, err)
	}
	return ch, nil
}

func (m *Manager) connectFailed(kernelID string, conn *connection, err error) {
	m.emit(EventConnectFailed, observability.LevelError, kernelID, map[string]any{
		"error": err.Error(),
	})
	m.markDisconnected(kernelID, conn)
}

func (m *Manager) markDisconnected(kernelID string, conn *connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentLocked(kernelID, conn) {
		conn.state = Disconnected
	}
}

func (m *Manager) isCurrent(kernelID string, conn *connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.currentLocked(kernelID, conn)
}

func (m *Manager) currentLocked(kernelID string, conn *connection) bool {
	t, ok := m.tracked[kernelID]
	return ok && t.conn == conn
}

// publishState must be called with m.mu held.
func (m *Manager) publishState(kernelID string, t *tracked, state ExecutionState) {
	t.kernel.setState(state)
	_ = t.states.Publish(state)
	m.emit(EventStateChanged, observability.LevelVerbose, kernelID, map[string]any{
		"state": string(state),
	})
}
