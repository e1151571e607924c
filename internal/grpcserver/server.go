// Package grpcserver exposes the standard gRPC health service so load
// balancers can drain the process before it stops.
package grpcserver

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "throttlemeet.social"

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
}

// Start listens on addr and serves in a background goroutine. Status starts
// as SERVING.
func Start(addr string, logger zerolog.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return serve(lis, logger), nil
}

func serve(lis net.Listener, logger zerolog.Logger) *Server {
	s := &Server{
		grpc: grpc.NewServer(
			grpc.UnaryInterceptor(pkglog.UnaryServerInterceptor(logger)),
			grpc.StreamInterceptor(pkglog.StreamServerInterceptor(logger)),
		),
		health: health.NewServer(),
		lis:    lis,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info().Str("addr", lis.Addr().String()).Msg("grpc server listening")
		if err := s.grpc.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("grpc server error")
		}
	}()
	return s
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.lis.Addr().String()
}

// Drain reports NOT_SERVING so health checks fail while work winds down.
func (s *Server) Drain() {
	s.health.Shutdown()
}

// Stop drains and then stops the server, waiting for in-flight calls.
func (s *Server) Stop() {
	s.Drain()
	s.grpc.GracefulStop()
}
