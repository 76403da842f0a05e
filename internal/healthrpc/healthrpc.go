// Package healthrpc serves the tracker's readiness over the standard gRPC
// health protocol. Reflection is registered so grpcurl and standard health
// checkers work without protos.
package healthrpc

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service is the name the tracker reports under. The empty name reports
// the same status for the whole server.
const Service = "controls.Tracker"

// Server is a gRPC server carrying only health and reflection.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// New returns a server that reports SERVING until told otherwise.
func New(logger *slog.Logger) *Server {
	srv := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	s := &Server{grpc: srv, health: h, logger: logger}
	s.SetServing(true)
	return s
}

// SetServing flips the reported status, e.g. when the store is lost.
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
	s.logger.Debug("grpc health status", slog.String("status", status.String()))
}

// Serve blocks until Stop is called or lis fails.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING so watchers see the shutdown, then
// drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
