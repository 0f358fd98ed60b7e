package api

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/tailored-agentic-units/kernelhub/jupyter"
	"github.com/tailored-agentic-units/kernelhub/kernel"
	"github.com/tailored-agentic-units/kernelhub/pubsub"
)

func errNoProcesses() error {
	return connect.NewError(connect.CodeUnimplemented, errors.New("kernel process management is not configured"))
}

// connectError maps tracker errors onto connect codes.
func connectError(err error) error {
	switch {
	case errors.Is(err, kernel.ErrKernelNotFound),
		errors.Is(err, kernel.ErrExecutionNotFound),
		errors.Is(err, pubsub.ErrNoValue),
		jupyter.IsNotFound(err):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, kernel.ErrNotConnected),
		errors.Is(err, kernel.ErrKernelDeleted):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, kernel.ErrManagerClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
