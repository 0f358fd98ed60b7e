package kernel

import "github.com/tailored-agentic-units/kernelhub/observability"

// Kernel lifecycle events.
const (
	EventKernelAdded    observability.EventType = "kernel.added"
	EventKernelDeleted  observability.EventType = "kernel.deleted"
	EventKernelInfo     observability.EventType = "kernel.info"
	EventStateChanged   observability.EventType = "kernel.state"
	EventConnectStart   observability.EventType = "kernel.connect.start"
	EventConnected      observability.EventType = "kernel.connected"
	EventConnectAborted observability.EventType = "kernel.connect.aborted"
	EventConnectFailed  observability.EventType = "kernel.connect.failed"
	EventRestartStart   observability.EventType = "kernel.restart.start"
	EventRestartRefused observability.EventType = "kernel.restart.refused"
	EventRestartFailed  observability.EventType = "kernel.restart.failed"
)

// Message routing and execution events.
const (
	EventMessageDropped     observability.EventType = "kernel.message.dropped"
	EventMessageUnhandled   observability.EventType = "kernel.message.unhandled"
	EventSendFailed         observability.EventType = "kernel.send.failed"
	EventExecutionSubmitted observability.EventType = "kernel.execution.submitted"
	EventExecutionStatus    observability.EventType = "kernel.execution.status"
)
