// Package rpc exposes a loaded inference pipeline over gRPC.
//
// The service has no .proto file: requests and responses are
// google.protobuf.Struct values and the service descriptor is written by hand.
//
//	service some.v1.Inference {
//	  // {"waveforms": [[float, ...], ...]} -> {"results": [[{channel: [float]}]], "instance_id": string}
//	  rpc Infer(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  // {} -> {"status": string, "error": string, "reloads": number, "instance": {...}}
//	  rpc Describe(google.protobuf.Empty) returns (google.protobuf.Struct);
//	}
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names.
const (
	ServiceName    = "some.v1.Inference"
	InferMethod    = "/" + ServiceName + "/Infer"
	DescribeMethod = "/" + ServiceName + "/Describe"
)

// DefaultGRPCPort is the port `some serve` listens on.
const DefaultGRPCPort = 50051

const maxMessageBytes = 256 << 20

// Message fields.
const (
	fieldWaveforms  = "waveforms"
	fieldResults    = "results"
	fieldInstanceID = "instance_id"
	fieldRequestID  = "request_id"
	fieldStatus     = "status"
	fieldError      = "error"
	fieldReloads    = "reloads"
	fieldInstance   = "instance"
)

// InferenceServer is the server API of some.v1.Inference.
type InferenceServer interface {
	Infer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Describe(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterInferenceServer registers srv with s.
func RegisterInferenceServer(s grpc.ServiceRegistrar, srv InferenceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InferenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Infer", Handler: inferHandler},
		{MethodName: "Describe", Handler: describeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "some/v1/inference.proto",
}

func inferHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InferenceServer).Infer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InferMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InferenceServer).Infer(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func describeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InferenceServer).Describe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DescribeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InferenceServer).Describe(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
