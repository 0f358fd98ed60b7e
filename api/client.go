package api

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a KernelService over the Connect protocol.
type Client struct {
	listKernels              *connect.Client[emptypb.Empty, KernelList]
	subscribeKernelAdded     *connect.Client[emptypb.Empty, KernelEvent]
	subscribeKernelDeleted   *connect.Client[emptypb.Empty, KernelEvent]
	subscribeExecutionState  *connect.Client[KernelRequest, ExecutionState]
	getExecutionState        *connect.Client[KernelRequest, ExecutionState]
	getKernelInfo            *connect.Client[KernelRequest, structpb.Struct]
	submitExecution          *connect.Client[SubmitRequest, SubmitResponse]
	getExecution             *connect.Client[ExecutionRequest, ExecutionView]
	listExecutions           *connect.Client[KernelRequest, ExecutionList]
	subscribeExecutionEvents *connect.Client[ExecutionRequest, ExecutionEventView]
	restartKernel            *connect.Client[KernelRequest, RestartResponse]
	startKernel              *connect.Client[StartKernelRequest, KernelView]
	getKernel                *connect.Client[KernelRequest, KernelView]
	shutdownKernel           *connect.Client[KernelRequest, emptypb.Empty]
	interruptKernel          *connect.Client[KernelRequest, emptypb.Empty]
}

// NewClient creates a Client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &Client{
		listKernels:              connect.NewClient[emptypb.Empty, KernelList](httpClient, baseURL+ListKernelsProcedure, opts...),
		subscribeKernelAdded:     connect.NewClient[emptypb.Empty, KernelEvent](httpClient, baseURL+SubscribeKernelAddedProcedure, opts...),
		subscribeKernelDeleted:   connect.NewClient[emptypb.Empty, KernelEvent](httpClient, baseURL+SubscribeKernelDeletedProcedure, opts...),
		subscribeExecutionState:  connect.NewClient[KernelRequest, ExecutionState](httpClient, baseURL+SubscribeExecutionStateProcedure, opts...),
		getExecutionState:        connect.NewClient[KernelRequest, ExecutionState](httpClient, baseURL+GetExecutionStateProcedure, opts...),
		getKernelInfo:            connect.NewClient[KernelRequest, structpb.Struct](httpClient, baseURL+GetKernelInfoProcedure, opts...),
		submitExecution:          connect.NewClient[SubmitRequest, SubmitResponse](httpClient, baseURL+SubmitExecutionProcedure, opts...),
		getExecution:             connect.NewClient[ExecutionRequest, ExecutionView](httpClient, baseURL+GetExecutionProcedure, opts...),
		listExecutions:           connect.NewClient[KernelRequest, ExecutionList](httpClient, baseURL+ListExecutionsProcedure, opts...),
		subscribeExecutionEvents: connect.NewClient[ExecutionRequest, ExecutionEventView](httpClient, baseURL+SubscribeExecutionEventsProcedure, opts...),
		restartKernel:            connect.NewClient[KernelRequest, RestartResponse](httpClient, baseURL+RestartKernelProcedure, opts...),
		startKernel:              connect.NewClient[StartKernelRequest, KernelView](httpClient, baseURL+StartKernelProcedure, opts...),
		getKernel:                connect.NewClient[KernelRequest, KernelView](httpClient, baseURL+GetKernelProcedure, opts...),
		shutdownKernel:           connect.NewClient[KernelRequest, emptypb.Empty](httpClient, baseURL+ShutdownKernelProcedure, opts...),
		interruptKernel:          connect.NewClient[KernelRequest, emptypb.Empty](httpClient, baseURL+InterruptKernelProcedure, opts...),
	}
}

func (c *Client) ListKernels(ctx context.Context) (*KernelList, error) {
	return unary(ctx, c.listKernels, &emptypb.Empty{})
}

func (c *Client) SubscribeKernelAdded(ctx context.Context) (*connect.ServerStreamForClient[KernelEvent], error) {
	return c.subscribeKernelAdded.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
}

func (c *Client) SubscribeKernelDeleted(ctx context.Context) (*connect.ServerStreamForClient[KernelEvent], error) {
	return c.subscribeKernelDeleted.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
}

func (c *Client) SubscribeExecutionState(ctx context.Context, kernelID string) (*connect.ServerStreamForClient[ExecutionState], error) {
	return c.subscribeExecutionState.CallServerStream(ctx, connect.NewRequest(&KernelRequest{KernelID: kernelID}))
}

func (c *Client) GetExecutionState(ctx context.Context, kernelID string) (*ExecutionState, error) {
	return unary(ctx, c.getExecutionState, &KernelRequest{KernelID: kernelID})
}

func (c *Client) GetKernelInfo(ctx context.Context, kernelID string) (*structpb.Struct, error) {
	return unary(ctx, c.getKernelInfo, &KernelRequest{KernelID: kernelID})
}

func (c *Client) SubmitExecution(ctx context.Context, kernelID, code string) (*SubmitResponse, error) {
	return unary(ctx, c.submitExecution, &SubmitRequest{KernelID: kernelID, Code: code})
}

func (c *Client) GetExecution(ctx context.Context, executionID string) (*ExecutionView, error) {
	return unary(ctx, c.getExecution, &ExecutionRequest{ExecutionID: executionID})
}

func (c *Client) ListExecutions(ctx context.Context, kernelID string) (*ExecutionList, error) {
	return unary(ctx, c.listExecutions, &KernelRequest{KernelID: kernelID})
}

func (c *Client) SubscribeExecutionEvents(ctx context.Context, executionID string) (*connect.ServerStreamForClient[ExecutionEventView], error) {
	return c.subscribeExecutionEvents.CallServerStream(ctx, connect.NewRequest(&ExecutionRequest{ExecutionID: executionID}))
}

func (c *Client) RestartKernel(ctx context.Context, kernelID string) (*RestartResponse, error) {
	return unary(ctx, c.restartKernel, &KernelRequest{KernelID: kernelID})
}

// StartKernel starts a kernel from the named kernelspec; empty uses the
// server's default.
func (c *Client) StartKernel(ctx context.Context, name string) (*KernelView, error) {
	return unary(ctx, c.startKernel, &StartKernelRequest{Name: name})
}

func (c *Client) GetKernel(ctx context.Context, kernelID string) (*KernelView, error) {
	return unary(ctx, c.getKernel, &KernelRequest{KernelID: kernelID})
}

func (c *Client) ShutdownKernel(ctx context.Context, kernelID string) error {
	_, err := unary(ctx, c.shutdownKernel, &KernelRequest{KernelID: kernelID})
	return err
}

func (c *Client) InterruptKernel(ctx context.Context, kernelID string) error {
	_, err := unary(ctx, c.interruptKernel, &KernelRequest{KernelID: kernelID})
	return err
}

func unary[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
