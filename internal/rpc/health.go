package rpc

import (
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the motion pipeline
const ServiceName = "motion.Pipeline"

// HealthServer exposes the standard gRPC health protocol for the detector
type HealthServer struct {
	addr   string
	server *grpc.Server
	health *health.Server
	lis    net.Listener
}

// NewHealthServer creates a health server that reports NOT_SERVING until
// SetServing is called
func NewHealthServer(host string, port int) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		addr:   fmt.Sprintf("%s:%d", host, port),
		server: srv,
		health: hs,
	}
}

// Listen binds the listener; Addr is valid afterwards
func (h *HealthServer) Listen() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	h.lis = lis
	return nil
}

// Addr returns the bound address
func (h *HealthServer) Addr() string {
	if h.lis != nil {
		return h.lis.Addr().String()
	}
	return h.addr
}

// Serve blocks serving gRPC until Stop
func (h *HealthServer) Serve() error {
	if h.lis == nil {
		if err := h.Listen(); err != nil {
			return err
		}
	}

	log.Info().Str("addr", h.Addr()).Msg("Starting gRPC health service")
	if err := h.server.Serve(h.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// SetServing updates the reported status of the pipeline and the server
func (h *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(ServiceName, status)
	h.health.SetServingStatus("", status)
}

// Stop marks everything NOT_SERVING and stops the server
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
	log.Info().Msg("gRPC health service stopped")
}
