package messaging_test

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/tailored-agentic-units/kernelhub/messaging"
)

func TestNewMessage(t *testing.T) {
	msg := messaging.NewMessage(messaging.TypeExecuteRequest, "session-1").
		Channel(messaging.ChannelShell).
		Content(messaging.Content{"code": "1+1"}).
		Build()

	if msg.ID() == "" {
		t.Error("ID() is empty")
	}
	if msg.Type() != messaging.TypeExecuteRequest {
		t.Errorf("Type() = %q, want %q", msg.Type(), messaging.TypeExecuteRequest)
	}
	if msg.Header.Session != "session-1" {
		t.Errorf("Session = %q, want session-1", msg.Header.Session)
	}
	if msg.Header.Version != messaging.ProtocolVersion {
		t.Errorf("Version = %q, want %q", msg.Header.Version, messaging.ProtocolVersion)
	}
	if msg.ParentID() != "" {
		t.Errorf("ParentID() = %q, want empty", msg.ParentID())
	}
}

func TestNewReply(t *testing.T) {
	request := messaging.NewMessage(messaging.TypeKernelInfoRequest, "s").Build()
	reply := messaging.NewReply(request, messaging.TypeKernelInfoReply).Build()

	if reply.ParentID() != request.ID() {
		t.Errorf("ParentID() = %q, want %q", reply.ParentID(), request.ID())
	}
	if reply.ID() == request.ID() {
		t.Error("reply reused the request id")
	}
	if reply.Header.Session != "s" {
		t.Errorf("reply session = %q, want s", reply.Header.Session)
	}
}

func TestMessage_DecodeWire(t *testing.T) {
	raw := `{
		"header": {"msg_id": "m2", "msg_type": "execute_result", "session": "ks", "date": "2024-01-01T00:00:00.000000Z", "version": "5.3"},
		"parent_header": {"msg_id": "m1", "msg_type": "execute_request"},
		"metadata": {},
		"content": {"execution_count": 3, "data": {"text/plain": "2"}, "metadata": {}},
		"channel": "iopub"
	}`

	var msg messaging.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	if msg.Type() != messaging.TypeExecuteResult {
		t.Errorf("Type() = %q, want execute_result", msg.Type())
	}
	if msg.ParentID() != "m1" {
		t.Errorf("ParentID() = %q, want m1", msg.ParentID())
	}
	if msg.Channel != messaging.ChannelIOPub {
		t.Errorf("Channel = %q, want iopub", msg.Channel)
	}
	count, ok := msg.Content.Int("execution_count")
	if !ok || count != 3 {
		t.Errorf("Int(execution_count) = (%d, %v), want (3, true)", count, ok)
	}
	if got := msg.Content.Object("data").String("text/plain"); got != "2" {
		t.Errorf("data text/plain = %q, want 2", got)
	}
}

func TestContent_Accessors(t *testing.T) {
	c := messaging.Content{
		"name":      "stdout",
		"silent":    true,
		"count":     2.5,
		"traceback": []any{"line 1", 7, "line 2"},
	}

	if c.String("name") != "stdout" {
		t.Errorf("String(name) = %q", c.String("name"))
	}
	if !c.Bool("silent") {
		t.Error("Bool(silent) = false")
	}
	if _, ok := c.Int("count"); ok {
		t.Error("Int(count) accepted a fractional number")
	}
	if _, ok := c.Int("missing"); ok {
		t.Error("Int(missing) = ok")
	}
	if got := c.Strings("traceback"); !slices.Equal(got, []string{"line 1", "line 2"}) {
		t.Errorf("Strings(traceback) = %v", got)
	}
	if len(c.Object("missing")) != 0 {
		t.Error("Object(missing) is not empty")
	}
}

func TestMessage_Clone(t *testing.T) {
	msg := messaging.NewMessage(messaging.TypeStatus, "s").
		Content(messaging.Content{"execution_state": "busy"}).
		Build()

	clone := msg.Clone()
	clone.Content["execution_state"] = "idle"

	if msg.Content.String("execution_state") != "busy" {
		t.Error("Clone shares content with the original")
	}
}
