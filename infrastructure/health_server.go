package infrastructure

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

// ServiceName is the health service name probes ask about
const ServiceName = "rewardledger.Engine"

// Pinger reports whether the store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer serves the standard gRPC health protocol. The engine is
// SERVING while the database answers pings.
type HealthServer struct {
	addr     string
	pinger   Pinger
	interval time.Duration
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

// NewHealthServer creates a health server that probes pinger every interval
func NewHealthServer(addr string, pinger Pinger, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &HealthServer{
		addr:     addr,
		pinger:   pinger,
		interval: interval,
		server:   srv,
		health:   hs,
	}
}

// Addr returns the bound address once Start has returned
func (h *HealthServer) Addr() string {
	if h.listener == nil {
		return h.addr
	}
	return h.listener.Addr().String()
}

// Start binds the listener and begins probing. The returned func stops both.
func (h *HealthServer) Start(ctx context.Context) (func(), error) {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	h.listener = lis

	h.probe(ctx)

	go func() {
		if err := h.server.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC health server stopped")
		}
	}()

	stopChan := make(chan struct{})
	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopChan:
				return
			case <-ticker.C:
				h.probe(ctx)
			}
		}
	}()

	log.WithField("addr", lis.Addr().String()).Info("gRPC health server started")
	return func() {
		close(stopChan)
		h.health.Shutdown()
		h.server.GracefulStop()
		log.Info("gRPC health server stopped")
	}, nil
}

func (h *HealthServer) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.Ping(pingCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		log.WithError(err).Warn("Database ping failed")
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}
