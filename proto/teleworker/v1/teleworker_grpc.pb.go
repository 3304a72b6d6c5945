// Code generated by a hand-authored stand-in for protoc-gen-go-grpc. See
// teleworker.pb.go for why: no protoc toolchain is available here. This
// file mirrors the shape protoc-gen-go-grpc emits for a unary+streaming
// service, including the generic ServerStreamingClient/ServerStreamingServer
// aliases current grpc-go versions use.
//
// source: teleworker.proto

package teleworkerv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	TeleWorker_StartJob_FullMethodName     = "/teleworker.v1.TeleWorker/StartJob"
	TeleWorker_GetJobStatus_FullMethodName = "/teleworker.v1.TeleWorker/GetJobStatus"
	TeleWorker_StopJob_FullMethodName      = "/teleworker.v1.TeleWorker/StopJob"
	TeleWorker_StreamOutput_FullMethodName = "/teleworker.v1.TeleWorker/StreamOutput"
)

// TeleWorkerClient is the client API for TeleWorker service.
type TeleWorkerClient interface {
	StartJob(ctx context.Context, in *StartJobRequest, opts ...grpc.CallOption) (*StartJobResponse, error)
	GetJobStatus(ctx context.Context, in *GetJobStatusRequest, opts ...grpc.CallOption) (*GetJobStatusResponse, error)
	StopJob(ctx context.Context, in *StopJobRequest, opts ...grpc.CallOption) (*StopJobResponse, error)
	StreamOutput(ctx context.Context, in *StreamOutputRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[StreamOutputResponse], error)
}

type teleWorkerClient struct {
	cc grpc.ClientConnInterface
}

// NewTeleWorkerClient creates a client stub for the TeleWorker service.
func NewTeleWorkerClient(cc grpc.ClientConnInterface) TeleWorkerClient {
	return &teleWorkerClient{cc}
}

func (c *teleWorkerClient) StartJob(ctx context.Context, in *StartJobRequest, opts ...grpc.CallOption) (*StartJobResponse, error) {
	out := new(StartJobResponse)
	if err := c.cc.Invoke(ctx, TeleWorker_StartJob_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *teleWorkerClient) GetJobStatus(ctx context.Context, in *GetJobStatusRequest, opts ...grpc.CallOption) (*GetJobStatusResponse, error) {
	out := new(GetJobStatusResponse)
	if err := c.cc.Invoke(ctx, TeleWorker_GetJobStatus_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *teleWorkerClient) StopJob(ctx context.Context, in *StopJobRequest, opts ...grpc.CallOption) (*StopJobResponse, error) {
	out := new(StopJobResponse)
	if err := c.cc.Invoke(ctx, TeleWorker_StopJob_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *teleWorkerClient) StreamOutput(ctx context.Context, in *StreamOutputRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[StreamOutputResponse], error) {
	stream, err := c.cc.NewStream(ctx, &TeleWorker_ServiceDesc.Streams[0], TeleWorker_StreamOutput_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[StreamOutputRequest, StreamOutputResponse]{ClientStream: stream}
	if err := x.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// TeleWorkerServer is the server API for TeleWorker service. All
// implementations must embed UnimplementedTeleWorkerServer for forward
// compatibility.
type TeleWorkerServer interface {
	StartJob(context.Context, *StartJobRequest) (*StartJobResponse, error)
	GetJobStatus(context.Context, *GetJobStatusRequest) (*GetJobStatusResponse, error)
	StopJob(context.Context, *StopJobRequest) (*StopJobResponse, error)
	StreamOutput(*StreamOutputRequest, grpc.ServerStreamingServer[StreamOutputResponse]) error
	mustEmbedUnimplementedTeleWorkerServer()
}

// UnimplementedTeleWorkerServer must be embedded to have forward compatible implementations.
type UnimplementedTeleWorkerServer struct{}

func (UnimplementedTeleWorkerServer) StartJob(context.Context, *StartJobRequest) (*StartJobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StartJob not implemented")
}
func (UnimplementedTeleWorkerServer) GetJobStatus(context.Context, *GetJobStatusRequest) (*GetJobStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetJobStatus not implemented")
}
func (UnimplementedTeleWorkerServer) StopJob(context.Context, *StopJobRequest) (*StopJobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StopJob not implemented")
}
func (UnimplementedTeleWorkerServer) StreamOutput(*StreamOutputRequest, grpc.ServerStreamingServer[StreamOutputResponse]) error {
	return status.Error(codes.Unimplemented, "method StreamOutput not implemented")
}
func (UnimplementedTeleWorkerServer) mustEmbedUnimplementedTeleWorkerServer() {}

// UnsafeTeleWorkerServer may be embedded to opt out of forward compatibility for this service.
type UnsafeTeleWorkerServer interface {
	mustEmbedUnimplementedTeleWorkerServer()
}

// RegisterTeleWorkerServer registers srv on s.
func RegisterTeleWorkerServer(s grpc.ServiceRegistrar, srv TeleWorkerServer) {
	s.RegisterService(&TeleWorker_ServiceDesc, srv)
}

func _TeleWorker_StartJob_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StartJobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TeleWorkerServer).StartJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TeleWorker_StartJob_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TeleWorkerServer).StartJob(ctx, req.(*StartJobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TeleWorker_GetJobStatus_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetJobStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TeleWorkerServer).GetJobStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TeleWorker_GetJobStatus_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TeleWorkerServer).GetJobStatus(ctx, req.(*GetJobStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TeleWorker_StopJob_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StopJobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TeleWorkerServer).StopJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TeleWorker_StopJob_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TeleWorkerServer).StopJob(ctx, req.(*StopJobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TeleWorker_StreamOutput_Handler(srv any, stream grpc.ServerStream) error {
	m := new(StreamOutputRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TeleWorkerServer).StreamOutput(m, &grpc.GenericServerStream[StreamOutputRequest, StreamOutputResponse]{ServerStream: stream})
}

// TeleWorker_ServiceDesc is the grpc.ServiceDesc for TeleWorker service,
// used by RegisterTeleWorkerServer and for calls implemented via the
// client API.
var TeleWorker_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "teleworker.v1.TeleWorker",
	HandlerType: (*TeleWorkerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartJob", Handler: _TeleWorker_StartJob_Handler},
		{MethodName: "GetJobStatus", Handler: _TeleWorker_GetJobStatus_Handler},
		{MethodName: "StopJob", Handler: _TeleWorker_StopJob_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamOutput",
			Handler:       _TeleWorker_StreamOutput_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "teleworker.proto",
}
