package rpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDHeader carries a caller-chosen request id. One is generated when
// it is absent.
const RequestIDHeader = "x-request-id"

type requestIDKey struct{}

// RequestID returns the id requestLogger attached to ctx.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

func requestLogger(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDHeader); len(v) > 0 {
			id = v[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	ctx = context.WithValue(ctx, requestIDKey{}, id)

	start := time.Now()
	resp, err := handler(ctx, req)

	attrs := []any{
		"method", info.FullMethod,
		"request_id", id,
		"code", status.Code(err).String(),
		"took", time.Since(start).Round(time.Microsecond),
	}
	if err != nil {
		slog.Warn("gRPC request failed", append(attrs, "error", err)...)
	} else {
		slog.Info("gRPC request", attrs...)
	}
	return resp, err
}
