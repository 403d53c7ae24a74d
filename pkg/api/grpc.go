package api

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer serves the standard gRPC health protocol so that the
// service can be probed by grpc_health_probe and mesh sidecars.
type HealthServer struct {
	server       *grpc.Server
	healthServer *health.Server
	stopTimeout  time.Duration
}

// NewHealthServer creates a gRPC server with the health and reflection
// services registered. The overall status starts as SERVING.
func NewHealthServer(stopTimeout time.Duration) *HealthServer {
	s := grpc.NewServer(grpc.ConnectionTimeout(30 * time.Second))
	healthServer := health.NewServer()

	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(s)

	return &HealthServer{
		server:       s,
		healthServer: healthServer,
		stopTimeout:  stopTimeout,
	}
}

// Listen binds addr and serves in the background.
func (s *HealthServer) Listen(addr string) (net.Addr, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.Serve(listener)
	return listener.Addr(), nil
}

// Serve accepts connections on listener in the background.
func (s *HealthServer) Serve(listener net.Listener) {
	slog.Info("gRPC health server listening", "addr", listener.Addr().String())
	go func() {
		if err := s.server.Serve(listener); err != nil {
			slog.Error("gRPC server failed", "error", err)
		}
	}()
}

// Stop reports NOT_SERVING and gracefully stops the server, forcing it
// down once the stop timeout elapses.
func (s *HealthServer) Stop() {
	slog.Info("Stopping gRPC server")
	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		slog.Info("gRPC server stopped gracefully")
	case <-time.After(s.stopTimeout):
		slog.Warn("gRPC server forced to stop after timeout")
		s.server.Stop()
	}
}
