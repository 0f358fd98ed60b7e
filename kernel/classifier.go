package kernel

import (
	"github.com/tailored-agentic-units/kernelhub/messaging"
	"github.com/tailored-agentic-units/kernelhub/observability"
)

func (m *Manager) iopubHandler(kernelID string) func(*messaging.Message) {
	return func(msg *messaging.Message) { m.handleIOPub(kernelID, msg) }
}

func (m *Manager) shellHandler(kernelID string) func(*messaging.Message) {
	return func(msg *messaging.Message) { m.handleShell(kernelID, msg) }
}

// handleIOPub classifies a broadcast-channel message.
func (m *Manager) handleIOPub(kernelID string, msg *messaging.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tracked[kernelID]
	if !ok || m.closed {
		m.dropped(kernelID, msg, "kernel not tracked")
		return
	}

	switch msg.Type() {
	case messaging.TypeStatus:
		state := ExecutionState(msg.Content.String("execution_state"))
		if state == "" {
			m.dropped(kernelID, msg, "missing execution_state")
			return
		}
		m.publishState(kernelID, t, state)
		if state == StateIdle {
			if exec := m.executionFor(kernelID, msg); exec != nil {
				m.outputsDrained(exec)
			}
		}

	case messaging.TypeExecuteResult:
		exec := m.correlate(kernelID, msg)
		if exec == nil {
			return
		}
		count, _ := msg.Content.Int("execution_count")
		m.setStatus(exec, OK{
			ExecutionCount: count,
			Data:           msg.Content.Object("data"),
			Metadata:       msg.Content.Object("metadata"),
		})

	case messaging.TypeStream:
		exec := m.correlate(kernelID, msg)
		if exec == nil {
			return
		}
		exec.appendOutput(Stream{
			Name: msg.Content.String("name"),
			Text: msg.Content.String("text"),
		})

	case messaging.TypeDisplayData:
		exec := m.correlate(kernelID, msg)
		if exec == nil {
			return
		}
		exec.appendOutput(displayData(msg.Content))

	case messaging.TypeUpdateDisplayData:
		exec := m.correlate(kernelID, msg)
		if exec == nil {
			return
		}
		data := displayData(msg.Content)
		if data.DisplayID == "" || !exec.updateDisplay(data) {
			m.dropped(kernelID, msg, "unknown display id")
		}

	case messaging.TypeClearOutput:
		exec := m.correlate(kernelID, msg)
		if exec == nil {
			return
		}
		exec.clearOutputs(msg.Content.Bool("wait"))

	default:
		m.unhandled(kernelID, msg)
	}
}

// handleShell classifies a request/reply-channel message. The Jupyter
// transport also delivers stdin frames here.
func (m *Manager) handleShell(kernelID string, msg *messaging.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tracked[kernelID]
	if !ok || m.closed {
		m.dropped(kernelID, msg, "kernel not tracked")
		return
	}

	switch msg.Type() {
	case messaging.TypeKernelInfoReply:
		if t.info.Resolve(msg.Content) {
			m.emit(EventKernelInfo, observability.LevelVerbose, kernelID, map[string]any{
				"implementation": msg.Content.String("implementation"),
				"protocol":       msg.Content.String("protocol_version"),
			})
		}

	case messaging.TypeExecuteReply:
		exec := m.correlate(kernelID, msg)
		if exec == nil {
			return
		}
		exec.input = nil
		count, _ := msg.Content.Int("execution_count")

		switch msg.Content.String("status") {
		case "ok":
			if _, pending := exec.status.(Pending); pending {
				reply := OK{
					ExecutionCount: count,
					Data:           messaging.Content{},
					Metadata:       messaging.Content{},
				}
				if exec.drained {
					m.setStatus(exec, reply)
				} else {
					exec.heldReply = &reply
				}
			}
		case "error":
			m.setStatus(exec, Error{
				Message:        msg.Content.String("ename") + ": " + msg.Content.String("evalue"),
				Traceback:      msg.Content.Strings("traceback"),
				ExecutionCount: count,
			})
		case "aborted":
			m.setStatus(exec, Aborted{ExecutionCount: count})
		default:
			m.unhandled(kernelID, msg)
		}

	case messaging.TypeInputRequest:
		exec := m.correlate(kernelID, msg)
		if exec == nil {
			return
		}
		exec.requestInput(InputRequest{
			Prompt:   msg.Content.String("prompt"),
			Password: msg.Content.Bool("password"),
		})

	default:
		m.unhandled(kernelID, msg)
	}
}

// correlate resolves the execution that msg answers and records the kernel
// session on first contact. Unknown parents are reported and yield nil.
func (m *Manager) correlate(kernelID string, msg *messaging.Message) *execution {
	executionID, ok := m.correlations.lookup(msg.ParentID())
	if !ok {
		m.dropped(kernelID, msg, "unknown parent")
		return nil
	}

	exec, ok := m.executions[executionID]
	if !ok || exec.kernelID != kernelID {
		m.dropped(kernelID, msg, "execution not tracked")
		return nil
	}

	if exec.kernelSession == "" {
		exec.kernelSession = msg.Header.Session
	}
	return exec
}

// executionFor resolves msg's parent without reporting misses. Status
// messages also answer kernel_info and other untracked requests.
func (m *Manager) executionFor(kernelID string, msg *messaging.Message) *execution {
	executionID, ok := m.correlations.lookup(msg.ParentID())
	if !ok {
		return nil
	}
	exec, ok := m.executions[executionID]
	if !ok || exec.kernelID != kernelID {
		return nil
	}
	return exec
}

// outputsDrained marks that every iopub message of the execution's request has been
// seen and releases a held ok reply.
func (m *Manager) outputsDrained(exec *execution) {
	exec.drained = true
	if exec.heldReply == nil {
		return
	}
	reply := *exec.heldReply
	exec.heldReply = nil
	if _, pending := exec.status.(Pending); pending {
		m.setStatus(exec, reply)
	}
}

func (m *Manager) setStatus(exec *execution, status Status) {
	exec.setStatus(status)
	m.emit(EventExecutionStatus, observability.LevelVerbose, exec.kernelID, map[string]any{
		"execution_id": exec.id,
		"status":       status.StatusName(),
	})
}

func (m *Manager) dropped(kernelID string, msg *messaging.Message, reason string) {
	m.emit(EventMessageDropped, observability.LevelWarning, kernelID, map[string]any{
		"msg_type":  string(msg.Type()),
		"parent_id": msg.ParentID(),
		"reason":    reason,
	})
}

func (m *Manager) unhandled(kernelID string, msg *messaging.Message) {
	m.emit(EventMessageUnhandled, observability.LevelWarning, kernelID, map[string]any{
		"msg_type": string(msg.Type()),
		"channel":  string(msg.Channel),
	})
}

func displayData(content messaging.Content) Data {
	return Data{
		Data:      content.Object("data"),
		Metadata:  content.Object("metadata"),
		DisplayID: content.Object("transient").String("display_id"),
	}
}
