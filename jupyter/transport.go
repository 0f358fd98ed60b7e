package jupyter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/kernelhub/kernel"
	"github.com/tailored-agentic-units/kernelhub/messaging"
)

var (
	// ErrHandlerAttached is returned by a second OnReceive call.
	ErrHandlerAttached = errors.New("handler already attached")

	// ErrChannelClosed is returned by Send on a closed channel.
	ErrChannelClosed = errors.New("channel closed")
)

// Each Open dials its own websocket. The server multiplexes every kernel
// socket over it, so a channel keeps only the frames it was opened for.
// Shell channels also receive stdin frames, which carry input requests.
var accepted = map[messaging.Channel][]messaging.Channel{
	messaging.ChannelIOPub:   {messaging.ChannelIOPub},
	messaging.ChannelShell:   {messaging.ChannelShell, messaging.ChannelStdin},
	messaging.ChannelControl: {messaging.ChannelControl},
	messaging.ChannelStdin:   {messaging.ChannelStdin},
}

type wsChannel struct {
	conn     *websocket.Conn
	kernelID string
	channel  messaging.Channel
	session  string
	allowed  []messaging.Channel
	timeout  time.Duration
	logger   *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	handler func(*messaging.Message)
	closed  bool
}

// Open dials the kernel's channels websocket for one logical channel.
func (c *Client) Open(ctx context.Context, kernelID string, channel messaging.Channel) (kernel.Channel, error) {
	allowed, ok := accepted[channel]
	if !ok {
		return nil, fmt.Errorf("unknown channel %q", channel)
	}

	session := uuid.NewString()
	target := c.channelsURL(kernelID, session)

	header := http.Header{}
	c.authorize(header)

	conn, resp, err := c.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, &StatusError{
				Method:     http.MethodGet,
				Path:       "api/kernels/" + kernelID + "/channels",
				StatusCode: resp.StatusCode,
				Body:       resp.Status,
			}
		}
		return nil, fmt.Errorf("failed to dial %s channel for kernel %s: %w", channel, kernelID, err)
	}

	c.logger.DebugContext(ctx, "channel opened",
		slog.String("kernel_id", kernelID),
		slog.String("channel", string(channel)),
		slog.String("session", session),
	)

	return &wsChannel{
		conn:     conn,
		kernelID: kernelID,
		channel:  channel,
		session:  session,
		allowed:  allowed,
		timeout:  c.timeout,
		logger:   c.logger,
	}, nil
}

// Send writes msg on ch after stamping it with the channel's session and
// channel name. The msg_id set by the caller is kept.
func (c *Client) Send(ctx context.Context, ch kernel.Channel, msg *messaging.Message) error {
	wc, ok := ch.(*wsChannel)
	if !ok {
		return fmt.Errorf("channel %T was not opened by this client", ch)
	}

	msg.Header.Session = wc.session
	msg.Channel = wc.channel
	return wc.write(ctx, msg)
}

func (c *Client) channelsURL(kernelID, session string) string {
	u := *c.base.JoinPath("api", "kernels", kernelID, "channels")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"session_id": {session}}.Encode()
	return u.String()
}

func (w *wsChannel) OnReceive(handler func(*messaging.Message)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrChannelClosed
	}
	if w.handler != nil {
		return ErrHandlerAttached
	}
	w.handler = handler

	go w.readLoop()
	return nil
}

// Close closes the socket without waiting for the read loop.
func (w *wsChannel) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	return w.conn.Close()
}

func (w *wsChannel) write(ctx context.Context, msg *messaging.Message) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrChannelClosed
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	// Without a ctx deadline a stalled peer would block the write forever.
	var deadline time.Time
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	} else if w.timeout > 0 {
		deadline = time.Now().Add(w.timeout)
	}
	_ = w.conn.SetWriteDeadline(deadline)

	if err := w.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write %s on %s: %w", msg.Type(), w.channel, err)
	}
	return nil
}

func (w *wsChannel) readLoop() {
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			closed := w.closed
			w.mu.Unlock()
			if !closed {
				w.logger.Warn("channel read failed",
					slog.String("kernel_id", w.kernelID),
					slog.String("channel", string(w.channel)),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg messaging.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logger.Warn("invalid frame",
				slog.String("kernel_id", w.kernelID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !slices.Contains(w.allowed, msg.Channel) {
			continue
		}

		w.handler(&msg)
	}
}
