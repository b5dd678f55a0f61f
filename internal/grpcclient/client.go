// Package grpcclient queries the gRPC health service of a running agrisense
// instance. It backs the "healthcheck" command used by container health checks.
package grpcclient

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/example/agrisense/internal/logging"
)

// Dial returns a client connection to addr.
func Dial(ctx context.Context, addr string, logger *zap.Logger, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}, opts...)
	conn, err := grpc.DialContext(dialCtx, addr, opts...)
	if err != nil {
		wrapped := logging.NewOperationError("grpcclient.dial", "", err)
		logger.Error("failed to dial health service", zap.Error(wrapped), zap.String("addr", addr))
		return nil, wrapped
	}
	return conn, nil
}

// CheckHealth asks conn for the status of service and fails unless it is
// SERVING.
func CheckHealth(ctx context.Context, conn *grpc.ClientConn, service string, logger *zap.Logger) error {
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		wrapped := logging.NewOperationError("grpcclient.check_health", "", err)
		logger.Error("health check call failed", zap.Error(wrapped), zap.String("service", service))
		return wrapped
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service %q is %s", service, resp.GetStatus())
	}
	return nil
}
