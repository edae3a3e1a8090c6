// Package httpapi is the JSON HTTP surface of gophmail built on echo.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/dmitrijs2005/gophmail/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// TokenVerifier resolves a raw bearer token into an Identity.
// *auth.Verifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Identity, error)
}

// Accounts is the account surface used by the handlers.
// *services.UserService satisfies it.
type Accounts interface {
	Register(ctx context.Context, email, password, displayName string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, id string) (*models.User, error)
	UpdateDisplayName(ctx context.Context, id, name string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	SetActive(ctx context.Context, actorID, id string, active bool) (*models.User, error)
	SetRole(ctx context.Context, actorID, id string, role models.Role) (*models.User, error)
}

// Attachments issues presigned upload targets.
// *services.AttachmentService satisfies it.
type Attachments interface {
	UploadURL(ctx context.Context, userID, filename, contentType string) (*services.UploadTarget, error)
}

// Deps are the collaborators the HTTP server is built from.
type Deps struct {
	Verifier    TokenVerifier
	Accounts    Accounts
	Attachments Attachments
	// Health reports store reachability for /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	address string
	e       *echo.Echo
	deps    Deps
	logger  logging.Logger
}

func NewServer(address string, l logging.Logger, deps Deps) *Server {
	s := &Server{
		address: address,
		e:       echo.New(),
		deps:    deps,
		logger:  l.With("module", "http_server"),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.HTTPErrorHandler = s.httpErrorHandler

	s.e.Use(middleware.Recover())
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:     true,
		LogURI:        true,
		LogStatus:     true,
		LogLatency:    true,
		LogRemoteIP:   true,
		LogError:      true,
		HandleError:   true,
		LogValuesFunc: s.logRequest,
	}))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.e.GET("/healthz", s.handleHealthz)

	api := s.e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/refresh", s.handleRefresh)
	authGroup.POST("/logout", s.handleLogout)

	requireAuth := RequireAuth(s.deps.Verifier)

	me := authGroup.Group("/me", requireAuth, AnyUser())
	me.GET("", s.handleMe)
	me.PATCH("", s.handleUpdateMe)

	admin := api.Group("/admin", requireAuth, AdminOnly())
	admin.GET("/users", s.handleListUsers)
	admin.PATCH("/users/:id/status", s.handleSetStatus)
	admin.PATCH("/users/:id/role", s.handleSetRole)

	attachments := api.Group("/attachments", requireAuth, AnyUser())
	attachments.POST("/upload-url", s.handleUploadURL)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.e.Start(s.address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequest(c echo.Context, v middleware.RequestLoggerValues) error {
	args := []any{
		"method", v.Method,
		"uri", v.URI,
		"status", v.Status,
		"latency", v.Latency,
		"remote_ip", v.RemoteIP,
	}
	if id, ok := IdentityFrom(c); ok {
		args = append(args, "user_id", id.ID)
	}
	ctx := c.Request().Context()
	if v.Error != nil && v.Status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", append(args, "error", v.Error.Error())...)
		return nil
	}
	s.logger.Info(ctx, "request", args...)
	return nil
}

func (s *Server) handleHealthz(c echo.Context) error {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request().Context()); err != nil {
			s.logger.Warn(c.Request().Context(), "health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
