package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// TokenVerifier resolves a raw bearer token into an Identity.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Identity, error)
}

// DefaultMethodRoles gates the methods served by this package.
var DefaultMethodRoles = map[string][]models.Role{
	WhoAmIMethod: {models.RoleUser, models.RoleAdmin},
}

type GRPCServer struct {
	address     string
	logger      logging.Logger
	verifier    TokenVerifier
	methodRoles map[string][]models.Role
	srv         *grpc.Server
	health      *health.Server
}

// NewGRPCServer builds the server with auth interceptors, the standard
// health service and the identity service. methodRoles maps full method
// names to the roles allowed to call them; unlisted methods only require a
// valid token.
func NewGRPCServer(a string, l logging.Logger, v TokenVerifier, methodRoles map[string][]models.Role) *GRPCServer {
	s := &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		verifier:    v,
		methodRoles: methodRoles,
		health:      health.NewServer(),
	}

	s.srv = grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)

	healthpb.RegisterHealthServer(s.srv, s.health)
	s.srv.RegisterService(&AuthServiceDesc, identityService{})

	return s
}

// Registrar lets sibling packages mount more services behind the same
// interceptors.
func (s *GRPCServer) Registrar() grpc.ServiceRegistrar {
	return s.srv
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		s.srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := s.srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
