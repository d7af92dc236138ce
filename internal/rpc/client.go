package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ekisa-team/some/internal/pipeline"
)

// Client calls a remote some.v1.Inference service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to addr without transport security.
func Dial(addr string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageBytes),
			grpc.MaxCallSendMsgSize(maxMessageBytes),
		),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("rpc: dial %s: %w", addr, err)
	}
	return NewClient(conn), conn, nil
}

// Infer runs the remote pipeline and returns its results in input order.
func (c *Client) Infer(ctx context.Context, waveforms [][]float32) ([][]pipeline.Result, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, InferMethod, waveformsToStruct(waveforms), out); err != nil {
		return nil, err
	}

	v, ok := out.GetFields()[fieldResults]
	if !ok {
		return nil, fmt.Errorf("rpc: response has no %q field", fieldResults)
	}
	return valueToResults(v)
}

// Describe returns the remote manager state as a plain map.
func (c *Client) Describe(ctx context.Context) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DescribeMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
