package kernel

import (
	"slices"
	"time"

	"github.com/tailored-agentic-units/kernelhub/messaging"
	"github.com/tailored-agentic-units/kernelhub/pubsub"
)

// ExecutionEvent is a value published on an execution's broadcast channel:
// a Status, an Output fragment, a DisplayUpdated, Cleared, or InputRequest.
type ExecutionEvent interface {
	executionEvent()
}

// Status is the outcome of an execution: Pending, OK, Error or Aborted.
type Status interface {
	ExecutionEvent
	StatusName() string
}

type Pending struct{}

type OK struct {
	ExecutionCount int
	Data           messaging.Content
	Metadata       messaging.Content
}

type Error struct {
	// Message is "ename: evalue".
	Message        string
	Traceback      []string
	ExecutionCount int
}

type Aborted struct {
	ExecutionCount int
}

func (Pending) StatusName() string { return "pending" }
func (OK) StatusName() string      { return "ok" }
func (Error) StatusName() string   { return "error" }
func (Aborted) StatusName() string { return "aborted" }

// Output is a display fragment: Stream or Data.
type Output interface {
	ExecutionEvent
	OutputKind() string
}

type Stream struct {
	Name string
	Text string
}

// Data is a rich display bundle keyed by MIME type. DisplayID is set when the
// kernel may later update the fragment in place.
type Data struct {
	Data      messaging.Content
	Metadata  messaging.Content
	DisplayID string
}

func (Stream) OutputKind() string { return "stream" }
func (Data) OutputKind() string   { return "data" }

// DisplayUpdated is published when fragments with Data.DisplayID were
// replaced.
type DisplayUpdated struct {
	Data Data
}

// Cleared is published when the execution's outputs were cleared. Wait means
// the kernel asked to clear only once new output arrives; the tracker clears
// immediately either way.
type Cleared struct {
	Wait bool
}

// InputRequest is a pending prompt for user input.
type InputRequest struct {
	Prompt   string
	Password bool
}

func (Pending) executionEvent()        {}
func (OK) executionEvent()             {}
func (Error) executionEvent()          {}
func (Aborted) executionEvent()        {}
func (Stream) executionEvent()         {}
func (Data) executionEvent()           {}
func (DisplayUpdated) executionEvent() {}
func (Cleared) executionEvent()        {}
func (InputRequest) executionEvent()   {}

// ExecutionSnapshot is a copy of an execution's state at one point in time.
type ExecutionSnapshot struct {
	ID            string
	KernelID      string
	Code          string
	KernelSession string
	Status        Status
	Outputs       []Output
	Input         *InputRequest
	SubmittedAt   time.Time
}

// execution is guarded by the Manager's mutex.
type execution struct {
	id            string
	kernelID      string
	code          string
	kernelSession string
	status        Status
	outputs       []Output
	input         *InputRequest
	submittedAt   time.Time

	// iopub and shell travel on separate sockets, so an ok execute_reply can
	// overtake the execute_result. The reply is held until the kernel reports
	// idle for the request, after which no further output for it arrives.
	heldReply *OK
	drained   bool

	events *pubsub.PubSub[ExecutionEvent]
}

func newExecution(id, kernelID, code string) *execution {
	return &execution{
		id:          id,
		kernelID:    kernelID,
		code:        code,
		status:      Pending{},
		submittedAt: time.Now(),
		events:      pubsub.NewWithLast[ExecutionEvent](Pending{}),
	}
}

func (e *execution) setStatus(status Status) {
	e.status = status
	e.publish(status)
}

func (e *execution) appendOutput(output Output) {
	e.outputs = append(e.outputs, output)
	e.publish(output)
}

// updateDisplay replaces every Data fragment sharing data's display id.
// Reports whether any fragment matched.
func (e *execution) updateDisplay(data Data) bool {
	updated := false
	for i, output := range e.outputs {
		if existing, ok := output.(Data); ok && existing.DisplayID == data.DisplayID {
			e.outputs[i] = data
			updated = true
		}
	}
	if updated {
		e.publish(DisplayUpdated{Data: data})
	}
	return updated
}

func (e *execution) clearOutputs(wait bool) {
	e.outputs = nil
	e.publish(Cleared{Wait: wait})
}

func (e *execution) requestInput(req InputRequest) {
	e.input = &req
	e.publish(req)
}

// Publishing on a stopped channel only happens after the owning kernel was
// deleted; the state change is still recorded.
func (e *execution) publish(event ExecutionEvent) {
	_ = e.events.Publish(event)
}

func (e *execution) snapshot() ExecutionSnapshot {
	snap := ExecutionSnapshot{
		ID:            e.id,
		KernelID:      e.kernelID,
		Code:          e.code,
		KernelSession: e.kernelSession,
		Status:        e.status,
		Outputs:       slices.Clone(e.outputs),
		SubmittedAt:   e.submittedAt,
	}
	if e.input != nil {
		req := *e.input
		snap.Input = &req
	}
	return snap
}
