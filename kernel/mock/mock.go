// Package mock provides in-memory implementations of the kernel transport
// interfaces for tests.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/kernelhub/kernel"
	"github.com/tailored-agentic-units/kernelhub/messaging"
)

// Sent is a request recorded by Transport.Send.
type Sent struct {
	KernelID string
	Channel  messaging.Channel
	Type     messaging.Type
	Content  messaging.Content
	MsgID    string
}

// Channel implements kernel.Channel. Deliver invokes the attached handler
// synchronously on the caller's goroutine.
type Channel struct {
	KernelID string
	Name     messaging.Channel

	mu      sync.Mutex
	handler func(*messaging.Message)
	closed  bool
}

func (c *Channel) OnReceive(handler func(*messaging.Message)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler != nil {
		return errors.New("handler already attached")
	}
	c.handler = handler
	return nil
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Deliver stamps msg with the channel name and hands it to the handler.
func (c *Channel) Deliver(msg *messaging.Message) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		return
	}
	msg.Channel = c.Name
	handler(msg)
}

// Transport implements kernel.Transport and records every sent request.
type Transport struct {
	mu       sync.Mutex
	channels map[string]*Channel
	opened   int
	sent     []Sent
	openErr  error
	sendErr  error
	gate     <-chan struct{}
	inFlight int
}

func NewTransport() *Transport {
	return &Transport{channels: make(map[string]*Channel)}
}

func (t *Transport) Open(ctx context.Context, kernelID string, channel messaging.Channel) (kernel.Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openErr != nil {
		return nil, t.openErr
	}
	ch := &Channel{KernelID: kernelID, Name: channel}
	t.channels[key(kernelID, channel)] = ch
	t.opened++
	return ch, nil
}

// Send waits for the gate set by SetSendGate, if any, before recording msg.
func (t *Transport) Send(ctx context.Context, ch kernel.Channel, msg *messaging.Message) error {
	mc, ok := ch.(*Channel)
	if !ok {
		return fmt.Errorf("unexpected channel type %T", ch)
	}

	t.mu.Lock()
	gate := t.gate
	t.inFlight++
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight--
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.sendErr != nil {
		return t.sendErr
	}

	msg.Header.Session = "client-session"
	msg.Channel = mc.Name
	t.sent = append(t.sent, Sent{
		KernelID: mc.KernelID,
		Channel:  mc.Name,
		Type:     msg.Type(),
		Content:  msg.Content,
		MsgID:    msg.ID(),
	})
	return nil
}

// SetSendGate holds later Send calls until gate is closed. A nil gate
// lets sends through immediately.
func (t *Transport) SetSendGate(gate <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gate = gate
}

// InFlight returns the number of Send calls currently waiting on the gate
// or being recorded.
func (t *Transport) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

// SetOpenError makes later Open calls fail with err.
func (t *Transport) SetOpenError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openErr = err
}

// SetSendError makes later Send calls fail with err.
func (t *Transport) SetSendError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendErr = err
}

// Channel returns the most recently opened channel, or nil.
func (t *Transport) Channel(kernelID string, channel messaging.Channel) *Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channels[key(kernelID, channel)]
}

func (t *Transport) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened
}

// SentOfType returns the requests of msgType sent to the kernel, oldest
// first.
func (t *Transport) SentOfType(kernelID string, msgType messaging.Type) []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Sent
	for _, s := range t.sent {
		if s.KernelID == kernelID && s.Type == msgType {
			out = append(out, s)
		}
	}
	return out
}

// ProcessManager implements kernel.ProcessManager and records restarts.
type ProcessManager struct {
	mu       sync.Mutex
	restarts []string
	err      error
}

func NewProcessManager(err error) *ProcessManager {
	return &ProcessManager{err: err}
}

func (p *ProcessManager) RestartKernel(ctx context.Context, kernelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restarts = append(p.restarts, kernelID)
	return p.err
}

func (p *ProcessManager) Restarts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.restarts)
}

// Reply builds a message answering parentID on behalf of a kernel.
func Reply(msgType messaging.Type, parentID string, content messaging.Content) *messaging.Message {
	return messaging.NewMessage(msgType, "kernel-session").
		Parent(messaging.Header{MsgID: parentID}).
		Content(content).
		Build()
}

func key(kernelID string, channel messaging.Channel) string {
	return kernelID + "/" + string(channel)
}
