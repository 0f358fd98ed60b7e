// Package api exposes the kernel tracker as a Connect RPC service.
//
// The service is kernelhub.v1.KernelService. Requests and responses are
// JSON; protobuf well-known types (emptypb.Empty, structpb.Struct) are used
// where a request carries nothing or a response is free-form.
//
//	path, handler := api.NewHandler(manager, logger, api.WithProcesses(client))
//	mux.Handle(path, handler)
//
// Without WithProcesses, StartKernel, ShutdownKernel and InterruptKernel
// answer Unimplemented and GetKernel reads the registry only.
package api

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/kernelhub/jupyter"
	"github.com/tailored-agentic-units/kernelhub/kernel"
	"github.com/tailored-agentic-units/kernelhub/messaging"
	"github.com/tailored-agentic-units/kernelhub/pubsub"
	"github.com/tailored-agentic-units/kernelhub/registry"
)

const ServiceName = "kernelhub.v1.KernelService"

const (
	ListKernelsProcedure              = "/" + ServiceName + "/ListKernels"
	SubscribeKernelAddedProcedure     = "/" + ServiceName + "/SubscribeKernelAdded"
	SubscribeKernelDeletedProcedure   = "/" + ServiceName + "/SubscribeKernelDeleted"
	SubscribeExecutionStateProcedure  = "/" + ServiceName + "/SubscribeExecutionState"
	GetExecutionStateProcedure        = "/" + ServiceName + "/GetExecutionState"
	GetKernelInfoProcedure            = "/" + ServiceName + "/GetKernelInfo"
	SubmitExecutionProcedure          = "/" + ServiceName + "/SubmitExecution"
	GetExecutionProcedure             = "/" + ServiceName + "/GetExecution"
	ListExecutionsProcedure           = "/" + ServiceName + "/ListExecutions"
	SubscribeExecutionEventsProcedure = "/" + ServiceName + "/SubscribeExecutionEvents"
	RestartKernelProcedure            = "/" + ServiceName + "/RestartKernel"
	StartKernelProcedure              = "/" + ServiceName + "/StartKernel"
	GetKernelProcedure                = "/" + ServiceName + "/GetKernel"
	ShutdownKernelProcedure           = "/" + ServiceName + "/ShutdownKernel"
	InterruptKernelProcedure          = "/" + ServiceName + "/InterruptKernel"
)

// Manager is the part of *kernel.Manager the service uses.
type Manager interface {
	Kernels() *registry.Registry[string, *kernel.Kernel]
	ConnectionState(kernelID string) (kernel.ConnectionState, error)
	SubscribeKernelAdded() *pubsub.Subscription[string]
	SubscribeKernelDeleted() *pubsub.Subscription[string]
	WatchExecutionState(kernelID string) (kernel.ExecutionState, *pubsub.Subscription[kernel.ExecutionState], error)
	LastExecutionState(kernelID string) (kernel.ExecutionState, error)
	KernelInfo(ctx context.Context, kernelID string) (messaging.Content, error)
	Submit(ctx context.Context, kernelID, code string) (string, error)
	Execution(executionID string) (kernel.ExecutionSnapshot, error)
	Executions(kernelID string) ([]string, error)
	WatchExecutionEvents(executionID string) (kernel.ExecutionSnapshot, *pubsub.Subscription[kernel.ExecutionEvent], error)
	Restart(kernelID string) (kernel.RestartResult, error)
}

// Processes starts and stops kernel processes on the server. *jupyter.Client
// satisfies it.
type Processes interface {
	GetKernel(ctx context.Context, kernelID string) (jupyter.KernelModel, error)
	StartKernel(ctx context.Context, name string) (jupyter.KernelModel, error)
	ShutdownKernel(ctx context.Context, kernelID string) error
	InterruptKernel(ctx context.Context, kernelID string) error
}

// Option configures the service.
type Option func(*service)

// WithProcesses enables the process management procedures.
func WithProcesses(p Processes) Option {
	return func(s *service) { s.processes = p }
}

type service struct {
	manager   Manager
	processes Processes
	logger    *slog.Logger
}

// NewHandler returns the service's path prefix and HTTP handler.
func NewHandler(manager Manager, logger *slog.Logger, options ...Option) (string, http.Handler) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{manager: manager, logger: logger.With(slog.String("component", "api"))}
	for _, option := range options {
		option(s)
	}

	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(loggingInterceptor(s.logger)),
	}

	mux := http.NewServeMux()
	mux.Handle(ListKernelsProcedure, connect.NewUnaryHandler(ListKernelsProcedure, s.listKernels, opts...))
	mux.Handle(SubscribeKernelAddedProcedure, connect.NewServerStreamHandler(SubscribeKernelAddedProcedure, s.subscribeKernelAdded, opts...))
	mux.Handle(SubscribeKernelDeletedProcedure, connect.NewServerStreamHandler(SubscribeKernelDeletedProcedure, s.subscribeKernelDeleted, opts...))
	mux.Handle(SubscribeExecutionStateProcedure, connect.NewServerStreamHandler(SubscribeExecutionStateProcedure, s.subscribeExecutionState, opts...))
	mux.Handle(GetExecutionStateProcedure, connect.NewUnaryHandler(GetExecutionStateProcedure, s.getExecutionState, opts...))
	mux.Handle(GetKernelInfoProcedure, connect.NewUnaryHandler(GetKernelInfoProcedure, s.getKernelInfo, opts...))
	mux.Handle(SubmitExecutionProcedure, connect.NewUnaryHandler(SubmitExecutionProcedure, s.submitExecution, opts...))
	mux.Handle(GetExecutionProcedure, connect.NewUnaryHandler(GetExecutionProcedure, s.getExecution, opts...))
	mux.Handle(ListExecutionsProcedure, connect.NewUnaryHandler(ListExecutionsProcedure, s.listExecutions, opts...))
	mux.Handle(SubscribeExecutionEventsProcedure, connect.NewServerStreamHandler(SubscribeExecutionEventsProcedure, s.subscribeExecutionEvents, opts...))
	mux.Handle(RestartKernelProcedure, connect.NewUnaryHandler(RestartKernelProcedure, s.restartKernel, opts...))
	mux.Handle(StartKernelProcedure, connect.NewUnaryHandler(StartKernelProcedure, s.startKernel, opts...))
	mux.Handle(GetKernelProcedure, connect.NewUnaryHandler(GetKernelProcedure, s.getKernel, opts...))
	mux.Handle(ShutdownKernelProcedure, connect.NewUnaryHandler(ShutdownKernelProcedure, s.shutdownKernel, opts...))
	mux.Handle(InterruptKernelProcedure, connect.NewUnaryHandler(InterruptKernelProcedure, s.interruptKernel, opts...))

	return "/" + ServiceName + "/", mux
}

func (s *service) listKernels(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[KernelList], error) {
	list := &KernelList{Kernels: []KernelView{}}
	for id, k := range s.manager.Kernels().All() {
		view, err := s.kernelView(id, k)
		if err != nil {
			return nil, connectError(err)
		}
		list.Kernels = append(list.Kernels, view)
	}
	slices.SortFunc(list.Kernels, func(a, b KernelView) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return connect.NewResponse(list), nil
}

// kernelView tolerates a kernel removed between the registry read and the
// connection lookup and reports it as disconnected.
func (s *service) kernelView(id string, k *kernel.Kernel) (KernelView, error) {
	conn, err := s.manager.ConnectionState(id)
	if err != nil && !errors.Is(err, kernel.ErrKernelNotFound) {
		return KernelView{}, err
	}
	return KernelView{
		ID:           id,
		Name:         k.Name,
		State:        string(k.ExecutionState()),
		Connection:   conn.String(),
		LastActivity: k.LastActivity(),
	}, nil
}

func (s *service) subscribeKernelAdded(ctx context.Context, req *connect.Request[emptypb.Empty], stream *connect.ServerStream[KernelEvent]) error {
	return forward(ctx, s.manager.SubscribeKernelAdded(), stream, func(id string) *KernelEvent {
		return &KernelEvent{KernelID: id}
	})
}

func (s *service) subscribeKernelDeleted(ctx context.Context, req *connect.Request[emptypb.Empty], stream *connect.ServerStream[KernelEvent]) error {
	return forward(ctx, s.manager.SubscribeKernelDeleted(), stream, func(id string) *KernelEvent {
		return &KernelEvent{KernelID: id}
	})
}

// subscribeExecutionState sends the current state first, then every change
// until the kernel is deleted.
func (s *service) subscribeExecutionState(ctx context.Context, req *connect.Request[KernelRequest], stream *connect.ServerStream[ExecutionState]) error {
	kernelID := req.Msg.KernelID
	current, sub, err := s.manager.WatchExecutionState(kernelID)
	if err != nil {
		return connectError(err)
	}

	convert := func(state kernel.ExecutionState) *ExecutionState {
		return &ExecutionState{KernelID: kernelID, State: string(state)}
	}

	if err := stream.Send(convert(current)); err != nil {
		sub.Close()
		return err
	}
	return forward(ctx, sub, stream, convert)
}

func (s *service) getExecutionState(ctx context.Context, req *connect.Request[KernelRequest]) (*connect.Response[ExecutionState], error) {
	state, err := s.manager.LastExecutionState(req.Msg.KernelID)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&ExecutionState{KernelID: req.Msg.KernelID, State: string(state)}), nil
}

func (s *service) getKernelInfo(ctx context.Context, req *connect.Request[KernelRequest]) (*connect.Response[structpb.Struct], error) {
	info, err := s.manager.KernelInfo(ctx, req.Msg.KernelID)
	if err != nil {
		return nil, connectError(err)
	}
	result, err := structpb.NewStruct(info)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result), nil
}

func (s *service) submitExecution(ctx context.Context, req *connect.Request[SubmitRequest]) (*connect.Response[SubmitResponse], error) {
	if req.Msg.KernelID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("kernel_id is required"))
	}
	id, err := s.manager.Submit(ctx, req.Msg.KernelID, req.Msg.Code)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&SubmitResponse{ExecutionID: id}), nil
}

func (s *service) getExecution(ctx context.Context, req *connect.Request[ExecutionRequest]) (*connect.Response[ExecutionView], error) {
	snap, err := s.manager.Execution(req.Msg.ExecutionID)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(executionView(snap)), nil
}

func (s *service) listExecutions(ctx context.Context, req *connect.Request[KernelRequest]) (*connect.Response[ExecutionList], error) {
	ids, err := s.manager.Executions(req.Msg.KernelID)
	if err != nil {
		return nil, connectError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return connect.NewResponse(&ExecutionList{ExecutionIDs: ids}), nil
}

// subscribeExecutionEvents sends the current status first, then every event
// until the owning kernel is deleted.
func (s *service) subscribeExecutionEvents(ctx context.Context, req *connect.Request[ExecutionRequest], stream *connect.ServerStream[ExecutionEventView]) error {
	snap, sub, err := s.manager.WatchExecutionEvents(req.Msg.ExecutionID)
	if err != nil {
		return connectError(err)
	}

	if err := stream.Send(eventView(snap.Status)); err != nil {
		sub.Close()
		return err
	}
	return forward(ctx, sub, stream, eventView)
}

func (s *service) restartKernel(ctx context.Context, req *connect.Request[KernelRequest]) (*connect.Response[RestartResponse], error) {
	result, err := s.manager.Restart(req.Msg.KernelID)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&RestartResponse{Accepted: result.Accepted}), nil
}

// startKernel starts a kernel process and registers it right away instead of
// waiting for the next watcher poll.
func (s *service) startKernel(ctx context.Context, req *connect.Request[StartKernelRequest]) (*connect.Response[KernelView], error) {
	if s.processes == nil {
		return nil, errNoProcesses()
	}
	model, err := s.processes.StartKernel(ctx, req.Msg.Name)
	if err != nil {
		return nil, connectError(err)
	}

	k := s.track(model)
	view, err := s.kernelView(model.ID, k)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&view), nil
}

// getKernel refreshes one kernel from the server when process management is
// enabled. A kernel the server no longer knows is removed from the registry.
func (s *service) getKernel(ctx context.Context, req *connect.Request[KernelRequest]) (*connect.Response[KernelView], error) {
	kernelID := req.Msg.KernelID

	var k *kernel.Kernel
	if s.processes != nil {
		model, err := s.processes.GetKernel(ctx, kernelID)
		if err != nil {
			if jupyter.IsNotFound(err) {
				s.manager.Kernels().Remove(kernelID)
			}
			return nil, connectError(err)
		}
		k = s.track(model)
	} else {
		var ok bool
		if k, ok = s.manager.Kernels().Get(kernelID); !ok {
			return nil, connectError(fmt.Errorf("%w: %s", kernel.ErrKernelNotFound, kernelID))
		}
	}

	view, err := s.kernelView(kernelID, k)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&view), nil
}

// shutdownKernel stops the kernel process and removes it from the registry.
// A kernel already gone from the server is still removed locally.
func (s *service) shutdownKernel(ctx context.Context, req *connect.Request[KernelRequest]) (*connect.Response[emptypb.Empty], error) {
	if s.processes == nil {
		return nil, errNoProcesses()
	}
	kernelID := req.Msg.KernelID

	err := s.processes.ShutdownKernel(ctx, kernelID)
	if err != nil && !jupyter.IsNotFound(err) {
		return nil, connectError(err)
	}
	if removed := s.manager.Kernels().Remove(kernelID); !removed && err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func (s *service) interruptKernel(ctx context.Context, req *connect.Request[KernelRequest]) (*connect.Response[emptypb.Empty], error) {
	if s.processes == nil {
		return nil, errNoProcesses()
	}
	if err := s.processes.InterruptKernel(ctx, req.Msg.KernelID); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// track returns the registered kernel for model, inserting it when missing.
func (s *service) track(model jupyter.KernelModel) *kernel.Kernel {
	kernels := s.manager.Kernels()
	k, ok := kernels.Get(model.ID)
	if !ok {
		k = kernel.NewKernel(model.ID, model.Name)
		kernels.Insert(model.ID, k)
	}
	k.Touch(model.LastActivity)
	return k
}

// forward relays a subscription to a server stream until the subscription
// ends or the client goes away. The subscription is closed on return.
func forward[T, R any](ctx context.Context, sub *pubsub.Subscription[T], stream *connect.ServerStream[R], convert func(T) *R) error {
	for value := range sub.All(ctx) {
		if err := stream.Send(convert(value)); err != nil {
			return err
		}
	}
	return nil
}

func loggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				slog.String("procedure", req.Spec().Procedure),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("code", connect.CodeOf(err).String()))
				logger.WarnContext(ctx, "rpc failed", append(attrs, slog.String("error", err.Error()))...)
				return resp, err
			}
			logger.DebugContext(ctx, "rpc handled", attrs...)
			return resp, nil
		}
	}
}
