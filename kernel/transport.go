package kernel

import (
	"context"

	"github.com/tailored-agentic-units/kernelhub/messaging"
)

// Channel is an open kernel socket.
type Channel interface {
	// OnReceive attaches the handler for inbound messages. A channel accepts
	// exactly one handler and invokes it sequentially from a single reader.
	OnReceive(handler func(*messaging.Message)) error
	Close() error
}

// Transport opens kernel channels and sends requests on them.
type Transport interface {
	Open(ctx context.Context, kernelID string, channel messaging.Channel) (Channel, error)

	// Send writes msg on ch. The transport stamps the session and channel it
	// owns; the caller's msg_id is kept, so a reply can be correlated before
	// the write completes.
	Send(ctx context.Context, ch Channel, msg *messaging.Message) error
}

// ProcessManager restarts kernel processes.
type ProcessManager interface {
	RestartKernel(ctx context.Context, kernelID string) error
}
