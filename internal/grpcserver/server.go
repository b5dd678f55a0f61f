// Package grpcserver serves the standard gRPC health service and keeps its
// status in line with the service's dependencies.
package grpcserver

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall
// server status.
const ServiceName = "agrisense"

// Dependency is one backing service whose health is checked.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server wraps a grpc.Server exposing grpc.health.v1.Health.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	deps     []Dependency
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// New builds a Server that re-checks deps every interval.
func New(deps []Dependency, interval time.Duration, logger *zap.Logger) *Server {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		deps:     deps,
		interval: interval,
		timeout:  3 * time.Second,
		logger:   logger.Named("grpc_health"),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve accepts connections on lis and checks dependencies until ctx is
// cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.grpc.Serve(lis)
		if errors.Is(err, grpc.ErrServerStopped) {
			err = nil
		}
		errCh <- err
	}()
	s.logger.Info("gRPC health server listening", zap.String("addr", lis.Addr().String()))

	s.CheckAll(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			return err
		case <-ticker.C:
			s.CheckAll(ctx)
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			return <-errCh
		}
	}
}

// CheckAll runs every dependency check once and updates the reported status.
func (s *Server) CheckAll(ctx context.Context) bool {
	healthy := true
	for _, p := range s.deps {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := p.Check(checkCtx)
		cancel()
		if err != nil {
			healthy = false
			s.logger.Warn("dependency check failed", zap.String("dependency", p.Name), zap.Error(err))
		}
	}
	if healthy {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return healthy
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
