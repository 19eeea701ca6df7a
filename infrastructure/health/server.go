package health

import (
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for the ledger
const ServiceName = "betledger"

// Checker reports whether a dependency is reachable
type Checker interface {
	Healthy(ctx context.Context) error
}

// Server exposes the standard gRPC health protocol, driven by periodic
// dependency checks
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	checker    Checker
	interval   time.Duration
}

// NewServer creates a health server polling checker every interval
func NewServer(checker Checker, interval time.Duration) *Server {
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		grpcServer: grpcServer,
		health:     hs,
		checker:    checker,
		interval:   interval,
	}
}

// Serve checks once, then serves on lis and polls until ctx is cancelled
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.check(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.check(ctx)
			}
		}
	}()

	log.WithField("addr", lis.Addr().String()).Info("gRPC health server listening")
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("gRPC health server failed: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops the server gracefully
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

func (s *Server) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.checker.Healthy(checkCtx); err != nil {
		log.WithError(err).Warn("Health check failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
