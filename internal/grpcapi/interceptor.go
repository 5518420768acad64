package grpcapi

import (
	"context"

	"github.com/oriys/mqi/internal/logging"
	"google.golang.org/grpc"
)

// loggingInterceptor logs every unary call's method and outcome, modeled on
// the teacher's internal/grpc.loggingInterceptor.
func loggingInterceptor(logger *logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		evt := logging.Event{Kind: "grpcapi", Name: info.FullMethod}
		if err != nil {
			evt.Error = err.Error()
		}
		logger.Log(evt)
		return resp, err
	}
}
