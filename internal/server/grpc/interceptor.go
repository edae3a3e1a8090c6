package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthServicePrefix = "/grpc.health.v1.Health/"

func isPublic(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, healthServicePrefix)
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if isPublic(info.FullMethod) {
		return handler(ctx, req)
	}

	ctx, err := s.authorize(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *GRPCServer) accessTokenStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if isPublic(info.FullMethod) {
		return handler(srv, ss)
	}

	ctx, err := s.authorize(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &identityStream{ServerStream: ss, ctx: ctx})
}

// authorize verifies the bearer token from the "authorization" metadata,
// applies the method's role table and returns ctx carrying the Identity.
func (s *GRPCServer) authorize(ctx context.Context, fullMethod string) (context.Context, error) {
	var raw string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationMDKey); len(values) > 0 {
			raw = common.BearerToken(values[0])
		}
	}

	id, err := s.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, s.toStatus(ctx, fullMethod, err)
	}

	if roles, ok := s.methodRoles[fullMethod]; ok && !id.HasRole(roles...) {
		return nil, s.toStatus(ctx, fullMethod, common.ErrInsufficientRole)
	}

	return auth.WithIdentity(ctx, id), nil
}

func (s *GRPCServer) toStatus(ctx context.Context, fullMethod string, err error) error {
	r, ok := auth.RejectionFor(err)
	if !ok {
		s.logger.Error(ctx, "token verification failed", "method", fullMethod, "error", err.Error())
		return status.Error(codes.Internal, "Internal server error")
	}

	auth.RecordRejection(r)
	if r.Forbidden {
		return status.Error(codes.PermissionDenied, r.Message)
	}
	return status.Error(codes.Unauthenticated, r.Message)
}

type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context {
	return s.ctx
}
