package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/service"
)

// Backend is what the server serves; *service.Manager implements it.
type Backend interface {
	Infer(waveforms [][]float32) ([][]pipeline.Result, *service.Instance, error)
	State() service.State
}

// Server implements InferenceServer over a Backend.
type Server struct {
	backend Backend
	grpc    *grpc.Server
}

// NewServer creates a gRPC server with the inference service registered.
func NewServer(backend Backend, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(requestLogger),
		grpc.MaxRecvMsgSize(maxMessageBytes),
		grpc.MaxSendMsgSize(maxMessageBytes),
	}, opts...)

	s := &Server{backend: backend, grpc: grpc.NewServer(opts...)}
	RegisterInferenceServer(s.grpc, s)
	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC server listening", "addr", lis.Addr().String(), "service", ServiceName)
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

// Infer implements InferenceServer.
func (s *Server) Infer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	waveforms, err := structToWaveforms(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	results, inst, err := s.backend.Infer(waveforms)
	if err != nil {
		return nil, toStatus(err)
	}

	out := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldResults:    resultsToValue(results),
		fieldInstanceID: structpb.NewStringValue(inst.ID),
	}}
	if id, ok := RequestID(ctx); ok {
		out.Fields[fieldRequestID] = structpb.NewStringValue(id)
	}
	return out, nil
}

// Describe implements InferenceServer.
func (s *Server) Describe(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return stateToStruct(s.backend.State()), nil
}

func toStatus(err error) error {
	var item *pipeline.ItemError
	switch {
	case errors.Is(err, service.ErrNotLoaded):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, pipeline.ErrNotImplemented):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.As(err, &item):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
