// Package grpc is the gRPC transport of the session service, with the
// request gate implemented as a unary interceptor.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/identity"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// SessionService is what the gRPC layer needs from services.SessionService.
type SessionService interface {
	Register(ctx context.Context, in services.RegisterInput) error
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	GetProfile(ctx context.Context, email string) (*models.Profile, error)
	Logout(ctx context.Context, token string) (services.LogoutResult, error)
	Authenticate(ctx context.Context, token string) (identity.Identity, error)
}

type GRPCServer struct {
	address  string
	sessions SessionService
	logger   logging.Logger
	metrics  *metrics.Metrics
	// public methods skip the gate.
	public map[string]struct{}
}

func NewGRPCServer(address string, sessions SessionService, l logging.Logger, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:  address,
		sessions: sessions,
		logger:   l.With("module", "grpc_server"),
		metrics:  m,
		public: map[string]struct{}{
			MethodRegister: {},
			MethodLogin:    {},
		},
	}
}

// newServer creates the grpc.Server with the gate installed.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.authInterceptor))
	srv.RegisterService(&SessionServiceDesc, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
