package kernel

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/kernelhub/messaging"
	"github.com/tailored-agentic-units/kernelhub/observability"
	"github.com/tailored-agentic-units/kernelhub/pubsub"
)

// Submit sends code to the kernel as an execute_request and returns the id of
// the new execution. The execution and its correlation are recorded before
// the request is written, so replies that race the write are classified. The
// write itself runs without holding m.mu.
func (m *Manager) Submit(ctx context.Context, kernelID, code string) (string, error) {
	m.mu.Lock()
	t, err := m.lookup(kernelID)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	if t.conn == nil || t.conn.state != Connected {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrNotConnected, kernelID)
	}
	shell := t.conn.shell

	request := messaging.NewMessage(messaging.TypeExecuteRequest, "").
		Content(executeRequest(code)).
		Build()
	exec := newExecution(uuid.Must(uuid.NewV7()).String(), kernelID, code)
	m.executions[exec.id] = exec
	m.correlations.add(request.ID(), exec.id)
	m.mu.Unlock()

	if err := m.transport.Send(ctx, shell, request); err != nil {
		m.mu.Lock()
		delete(m.executions, exec.id)
		m.correlations.remove(request.ID())
		exec.events.Stop()
		m.emit(EventSendFailed, observability.LevelError, kernelID, map[string]any{
			"msg_type": string(messaging.TypeExecuteRequest),
			"error":    err.Error(),
		})
		m.mu.Unlock()
		return "", fmt.Errorf("failed to send execute request: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The kernel may have been deleted while the request was in flight.
	if current, ok := m.tracked[kernelID]; m.closed || !ok || current != t {
		exec.events.Stop()
	} else {
		t.executionIDs = append(t.executionIDs, exec.id)
		_ = t.executions.Publish(exec.id)
	}

	m.emit(EventExecutionSubmitted, observability.LevelInfo, kernelID, map[string]any{
		"execution_id": exec.id,
		"msg_id":       request.ID(),
		"correlations": m.correlations.len(),
	})

	return exec.id, nil
}

// Execution returns a snapshot of the execution. Executions outlive their
// kernel and stay readable after it is deleted.
func (m *Manager) Execution(executionID string) (ExecutionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exec, ok := m.executions[executionID]
	if !ok {
		return ExecutionSnapshot{}, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	return exec.snapshot(), nil
}

// Executions lists the ids of executions submitted to the kernel, oldest
// first.
func (m *Manager) Executions(kernelID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(kernelID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.executionIDs), nil
}

// SubscribeExecutionEvents streams status, output and input events of one
// execution. The stream ends when the owning kernel is deleted.
func (m *Manager) SubscribeExecutionEvents(executionID string) (*pubsub.Subscription[ExecutionEvent], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	exec, ok := m.executions[executionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	return exec.events.Subscribe(), nil
}

// WatchExecutionEvents returns a snapshot of the execution and a
// subscription to the events that follow it.
func (m *Manager) WatchExecutionEvents(executionID string) (ExecutionSnapshot, *pubsub.Subscription[ExecutionEvent], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ExecutionSnapshot{}, nil, ErrManagerClosed
	}
	exec, ok := m.executions[executionID]
	if !ok {
		return ExecutionSnapshot{}, nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	return exec.snapshot(), exec.events.Subscribe(), nil
}

// SubscribeExecutions streams the ids of executions submitted to the kernel
// after the call.
func (m *Manager) SubscribeExecutions(kernelID string) (*pubsub.Subscription[string], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(kernelID)
	if err != nil {
		return nil, err
	}
	return t.executions.Subscribe(), nil
}

func executeRequest(code string) messaging.Content {
	return messaging.Content{
		"code":             code,
		"silent":           false,
		"store_history":    true,
		"user_expressions": map[string]any{},
		"allow_stdin":      true,
		"stop_on_error":    true,
	}
}
