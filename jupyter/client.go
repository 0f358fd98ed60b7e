// Package jupyter connects the kernel tracker to a Jupyter Server.
//
// Client speaks the server's REST API for kernel process management and
// implements kernel.Transport over the /api/kernels/{id}/channels websocket
// and kernel.ProcessManager over the restart endpoint. Watcher keeps a
// kernel registry in sync with the server's kernel list.
package jupyter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/kernelhub/config"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jupyter %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// KernelModel is a kernel as described by the REST API.
type KernelModel struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LastActivity   time.Time `json:"last_activity"`
	ExecutionState string    `json:"execution_state"`
	Connections    int       `json:"connections"`
}

// Client talks to one Jupyter Server.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
	timeout time.Duration
	logger  *slog.Logger
}

func New(cfg config.JupyterConfig) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid jupyter url %q: %w", cfg.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid jupyter url %q: scheme must be http or https", cfg.URL)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.RequestTimeout.Std()
	return &Client{
		base:    base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout, Proxy: http.ProxyFromEnvironment},
		timeout: timeout,
		logger:  logger.With(slog.String("component", "jupyter")),
	}, nil
}

func (c *Client) ListKernels(ctx context.Context) ([]KernelModel, error) {
	var kernels []KernelModel
	if err := c.do(ctx, http.MethodGet, "api/kernels", nil, &kernels); err != nil {
		return nil, err
	}
	return kernels, nil
}

func (c *Client) GetKernel(ctx context.Context, kernelID string) (KernelModel, error) {
	var model KernelModel
	err := c.do(ctx, http.MethodGet, "api/kernels/"+url.PathEscape(kernelID), nil, &model)
	return model, err
}

// StartKernel starts a kernel from the named kernelspec. An empty name uses
// the server's default kernelspec.
func (c *Client) StartKernel(ctx context.Context, name string) (KernelModel, error) {
	body := map[string]string{}
	if name != "" {
		body["name"] = name
	}
	var model KernelModel
	err := c.do(ctx, http.MethodPost, "api/kernels", body, &model)
	return model, err
}

func (c *Client) ShutdownKernel(ctx context.Context, kernelID string) error {
	return c.do(ctx, http.MethodDelete, "api/kernels/"+url.PathEscape(kernelID), nil, nil)
}

// RestartKernel restarts the kernel process. It satisfies
// kernel.ProcessManager.
func (c *Client) RestartKernel(ctx context.Context, kernelID string) error {
	return c.do(ctx, http.MethodPost, "api/kernels/"+url.PathEscape(kernelID)+"/restart", nil, nil)
}

func (c *Client) InterruptKernel(ctx context.Context, kernelID string) error {
	return c.do(ctx, http.MethodPost, "api/kernels/"+url.PathEscape(kernelID)+"/interrupt", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jupyter %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	c.logger.DebugContext(ctx, "jupyter request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) authorize(header http.Header) {
	if c.token != "" {
		header.Set("Authorization", "token "+c.token)
	}
}
