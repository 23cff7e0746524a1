// Package grpc serves the dualcal.v1.Calendar service.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/logging"
	pb "github.com/dmitrijs2005/dualcal/internal/proto"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/services"
	"google.golang.org/grpc"
)

// Services bundles the business services the handlers call.
type Services struct {
	Accounts      *services.AccountService
	Roles         *services.RoleService
	Calendar      *services.CalendarService
	Exports       *services.ExportService
	Announcements *services.AnnouncementService
	Prayer        *services.PrayerService
}

type GRPCServer struct {
	address   string
	svc       Services
	logger    logging.Logger
	metrics   *metrics.Metrics
	jwtSecret []byte
	now       func() time.Time
}

func NewGRPCServer(a string, l logging.Logger, m *metrics.Metrics, svc Services, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		metrics:   m,
		svc:       svc,
		jwtSecret: []byte(secretKey),
		now:       time.Now,
	}
}

// NewServer returns a grpc.Server with the interceptors installed and the
// service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	pb.RegisterCalendarServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
