// Package grpc runs the gRPC health endpoint. The reported status follows
// the reachability of the database.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/daianaegermichels/financas/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	defaultProbeInterval = 10 * time.Second
	probeTimeout         = 2 * time.Second
)

// ServiceName is the health service name reported alongside the overall "" status.
const ServiceName = "financas"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type GRPCServer struct {
	address       string
	db            Pinger
	logger        logging.Logger
	health        *health.Server
	probeInterval time.Duration
}

func NewGRPCServer(a string, l logging.Logger, db Pinger) *GRPCServer {
	return &GRPCServer{
		address:       a,
		db:            db,
		logger:        l.With("module", "grpc_server"),
		health:        health.NewServer(),
		probeInterval: defaultProbeInterval,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen, s.newServer())
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)
	return srv
}

// serve returns once GracefulStop has let the running RPCs finish.
func (s *GRPCServer) serve(ctx context.Context, listen net.Listener, srv *grpc.Server) error {
	s.probe(ctx)

	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(s.probeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "Stopping gRPC server...")
				s.health.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				s.probe(ctx)
			}
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	<-stopped
	return nil
}

// probe pings the database and updates the serving status.
func (s *GRPCServer) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		if err := s.db.PingContext(pingCtx); err != nil {
			s.logger.Warn(ctx, "database ping failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
