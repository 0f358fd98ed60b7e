package api

import (
	"time"

	"github.com/tailored-agentic-units/kernelhub/kernel"
)

type KernelRequest struct {
	KernelID string `json:"kernel_id"`
}

type ExecutionRequest struct {
	ExecutionID string `json:"execution_id"`
}

// StartKernelRequest names the kernelspec to start. Empty uses the server's
// default.
type StartKernelRequest struct {
	Name string `json:"name"`
}

type SubmitRequest struct {
	KernelID string `json:"kernel_id"`
	Code     string `json:"code"`
}

type SubmitResponse struct {
	ExecutionID string `json:"execution_id"`
}

type RestartResponse struct {
	Accepted bool `json:"accepted"`
}

// KernelEvent is streamed by the kernel added and deleted subscriptions.
type KernelEvent struct {
	KernelID string `json:"kernel_id"`
}

type ExecutionState struct {
	KernelID string `json:"kernel_id"`
	State    string `json:"state"`
}

type KernelView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	State        string    `json:"state"`
	Connection   string    `json:"connection"`
	LastActivity time.Time `json:"last_activity"`
}

type KernelList struct {
	Kernels []KernelView `json:"kernels"`
}

type ExecutionList struct {
	ExecutionIDs []string `json:"execution_ids"`
}

// StatusView flattens kernel.Status. State is pending, ok, error or aborted.
type StatusView struct {
	State          string         `json:"state"`
	ExecutionCount int            `json:"execution_count,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Message        string         `json:"message,omitempty"`
	Traceback      []string       `json:"traceback,omitempty"`
}

// OutputView flattens kernel.Output. Kind is stream or data.
type OutputView struct {
	Kind      string         `json:"kind"`
	Name      string         `json:"name,omitempty"`
	Text      string         `json:"text,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	DisplayID string         `json:"display_id,omitempty"`
}

type InputView struct {
	Prompt   string `json:"prompt"`
	Password bool   `json:"password"`
}

type ExecutionView struct {
	ID            string       `json:"id"`
	KernelID      string       `json:"kernel_id"`
	Code          string       `json:"code"`
	KernelSession string       `json:"kernel_session,omitempty"`
	Status        StatusView   `json:"status"`
	Outputs       []OutputView `json:"outputs"`
	Input         *InputView   `json:"input,omitempty"`
	SubmittedAt   time.Time    `json:"submitted_at"`
}

// ExecutionEventView is one streamed execution event. Type is status,
// output, display_updated, cleared or input_request; the matching field is
// set.
type ExecutionEventView struct {
	Type   string      `json:"type"`
	Status *StatusView `json:"status,omitempty"`
	Output *OutputView `json:"output,omitempty"`
	Wait   bool        `json:"wait,omitempty"`
	Input  *InputView  `json:"input,omitempty"`
}

func statusView(status kernel.Status) StatusView {
	view := StatusView{State: status.StatusName()}
	switch s := status.(type) {
	case kernel.OK:
		view.ExecutionCount = s.ExecutionCount
		view.Data = s.Data
		view.Metadata = s.Metadata
	case kernel.Error:
		view.ExecutionCount = s.ExecutionCount
		view.Message = s.Message
		view.Traceback = s.Traceback
	case kernel.Aborted:
		view.ExecutionCount = s.ExecutionCount
	}
	return view
}

func outputView(output kernel.Output) OutputView {
	view := OutputView{Kind: output.OutputKind()}
	switch o := output.(type) {
	case kernel.Stream:
		view.Name = o.Name
		view.Text = o.Text
	case kernel.Data:
		view.Data = o.Data
		view.Metadata = o.Metadata
		view.DisplayID = o.DisplayID
	}
	return view
}

func executionView(snap kernel.ExecutionSnapshot) *ExecutionView {
	view := &ExecutionView{
		ID:            snap.ID,
		KernelID:      snap.KernelID,
		Code:          snap.Code,
		KernelSession: snap.KernelSession,
		Status:        statusView(snap.Status),
		Outputs:       make([]OutputView, 0, len(snap.Outputs)),
		SubmittedAt:   snap.SubmittedAt,
	}
	for _, output := range snap.Outputs {
		view.Outputs = append(view.Outputs, outputView(output))
	}
	if snap.Input != nil {
		view.Input = &InputView{Prompt: snap.Input.Prompt, Password: snap.Input.Password}
	}
	return view
}

func eventView(event kernel.ExecutionEvent) *ExecutionEventView {
	switch e := event.(type) {
	case kernel.Status:
		status := statusView(e)
		return &ExecutionEventView{Type: "status", Status: &status}
	case kernel.Output:
		output := outputView(e)
		return &ExecutionEventView{Type: "output", Output: &output}
	case kernel.DisplayUpdated:
		output := outputView(e.Data)
		return &ExecutionEventView{Type: "display_updated", Output: &output}
	case kernel.Cleared:
		return &ExecutionEventView{Type: "cleared", Wait: e.Wait}
	case kernel.InputRequest:
		return &ExecutionEventView{Type: "input_request", Input: &InputView{Prompt: e.Prompt, Password: e.Password}}
	default:
		return &ExecutionEventView{Type: "unknown"}
	}
}
