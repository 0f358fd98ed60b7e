package messaging

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the messaging protocol version stamped on outgoing headers.
const ProtocolVersion = "5.3"

// Type is the logical message type carried in Header.MsgType.
type Type string

const (
	TypeStatus            Type = "status"
	TypeKernelInfoRequest Type = "kernel_info_request"
	TypeKernelInfoReply   Type = "kernel_info_reply"
	TypeExecuteRequest    Type = "execute_request"
	TypeExecuteReply      Type = "execute_reply"
	TypeExecuteInput      Type = "execute_input"
	TypeExecuteResult     Type = "execute_result"
	TypeStream            Type = "stream"
	TypeDisplayData       Type = "display_data"
	TypeUpdateDisplayData Type = "update_display_data"
	TypeClearOutput       Type = "clear_output"
	TypeError             Type = "error"
	TypeInputRequest      Type = "input_request"
	TypeInputReply        Type = "input_reply"
)

// Channel names the kernel socket a message travels on.
type Channel string

const (
	ChannelShell   Channel = "shell"
	ChannelIOPub   Channel = "iopub"
	ChannelStdin   Channel = "stdin"
	ChannelControl Channel = "control"
)

type Header struct {
	MsgID    string `json:"msg_id,omitempty"`
	MsgType  Type   `json:"msg_type,omitempty"`
	Session  string `json:"session,omitempty"`
	Username string `json:"username,omitempty"`
	Date     string `json:"date,omitempty"`
	Version  string `json:"version,omitempty"`
}

// Message is a fully deserialized kernel message.
type Message struct {
	Header       Header  `json:"header"`
	ParentHeader Header  `json:"parent_header"`
	Metadata     Content `json:"metadata"`
	Content      Content `json:"content"`
	Channel      Channel `json:"channel,omitempty"`
	Buffers      []any   `json:"buffers,omitempty"`
}

// ID returns the message's own id.
func (msg *Message) ID() string {
	return msg.Header.MsgID
}

func (msg *Message) Type() Type {
	return msg.Header.MsgType
}

// ParentID returns the id of the request this message answers, or "" when
// the message has no parent.
func (msg *Message) ParentID() string {
	return msg.ParentHeader.MsgID
}

func (msg *Message) Clone() *Message {
	clone := *msg
	clone.Metadata = maps.Clone(msg.Metadata)
	clone.Content = maps.Clone(msg.Content)
	return &clone
}

func (msg *Message) String() string {
	return fmt.Sprintf(
		"Message{ID: %s, Type: %s, Channel: %s, Parent: %s}",
		msg.Header.MsgID,
		msg.Header.MsgType,
		msg.Channel,
		msg.ParentHeader.MsgID,
	)
}

func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
