// Package httpapi is the gin-based HTTP transport: routes under /api/auth,
// the request gate middleware, access logging and the ops endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/identity"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// Route paths.
const (
	PathRegister = "/api/auth/register"
	PathLogin    = "/api/auth/login"
	PathProfile  = "/api/auth/profile"
	PathLogout   = "/api/auth/logout"
	PathHealthz  = "/healthz"
	PathReadyz   = "/readyz"
	PathMetrics  = "/metrics"
)

// SessionService is what the HTTP layer needs from services.SessionService.
type SessionService interface {
	Register(ctx context.Context, in services.RegisterInput) error
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	GetProfile(ctx context.Context, email string) (*models.Profile, error)
	Logout(ctx context.Context, token string) (services.LogoutResult, error)
	Authenticate(ctx context.Context, token string) (identity.Identity, error)
	Ready(ctx context.Context) error
}

type Server struct {
	address  string
	sessions SessionService
	logger   logging.Logger
	metrics  *metrics.Metrics
	engine   *gin.Engine
	// public routes skip the gate.
	public map[string]struct{}
}

// NewServer builds the router. m may be nil, in which case /metrics is not
// served.
func NewServer(address string, sessions SessionService, l logging.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		address:  address,
		sessions: sessions,
		logger:   l.With("module", "http_server"),
		metrics:  m,
		public: map[string]struct{}{
			PathRegister: {},
			PathLogin:    {},
			PathHealthz:  {},
			PathReadyz:   {},
			PathMetrics:  {},
		},
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger, s.gate)

	r.GET(PathHealthz, s.healthz)
	r.GET(PathReadyz, s.readyz)
	if m != nil {
		r.GET(PathMetrics, gin.WrapH(m.Handler()))
	}

	r.POST(PathRegister, s.register)
	r.POST(PathLogin, s.login)
	r.GET(PathProfile, s.profile)
	r.POST(PathLogout, s.logout)

	r.NoRoute(func(c *gin.Context) {
		writeMessage(c, http.StatusNotFound, "Not found")
	})

	s.engine = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
