package grpc

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type stubVerifier struct {
	id    auth.Identity
	err   error
	raw   string
	calls int
}

func (s *stubVerifier) Verify(ctx context.Context, raw string) (auth.Identity, error) {
	s.calls++
	s.raw = raw
	if raw == "" {
		return auth.Identity{}, common.ErrMissingToken
	}
	return s.id, s.err
}

const adminMethod = "/gophmail.admin.v1.AdminService/ListUsers"

// helper to build server
func newTestServer(v TokenVerifier) *GRPCServer {
	roles := map[string][]models.Role{
		WhoAmIMethod: DefaultMethodRoles[WhoAmIMethod],
		adminMethod:  {models.RoleAdmin},
	}
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, v, roles)
}

func withToken(token string) context.Context {
	md := metadata.New(map[string]string{common.AuthorizationMDKey: "Bearer " + token})
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestInterceptor_HealthIsPublic(t *testing.T) {
	v := &stubVerifier{}
	s := newTestServer(v)

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Zero(t, v.calls)
}

func TestInterceptor_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		method  string
		verr    error
		id      auth.Identity
		code    codes.Code
		message string
	}{
		{name: "missing token", ctx: context.Background(), method: WhoAmIMethod, code: codes.Unauthenticated, message: "Access token required"},
		{name: "invalid", ctx: withToken("bad"), method: WhoAmIMethod, verr: common.ErrInvalidToken, code: codes.Unauthenticated, message: "Invalid token"},
		{name: "expired", ctx: withToken("old"), method: WhoAmIMethod, verr: common.ErrTokenExpired, code: codes.Unauthenticated, message: "Token expired"},
		{name: "deleted", ctx: withToken("t"), method: WhoAmIMethod, verr: common.ErrUserNotFound, code: codes.Unauthenticated, message: "User not found"},
		{name: "disabled", ctx: withToken("t"), method: WhoAmIMethod, verr: common.ErrAccountDisabled, code: codes.Unauthenticated, message: "Account is disabled"},
		{name: "store failure", ctx: withToken("t"), method: WhoAmIMethod, verr: errors.New("user lookup: db down"), code: codes.Internal, message: "Internal server error"},
		{name: "user on admin method", ctx: withToken("t"), method: adminMethod, id: auth.Identity{ID: "u1", Role: models.RoleUser}, code: codes.PermissionDenied, message: "Insufficient permissions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&stubVerifier{id: tt.id, err: tt.verr})
			info := &grpc.UnaryServerInfo{FullMethod: tt.method}

			_, err := s.accessTokenInterceptor(tt.ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				t.Fatal("handler should not be called")
				return nil, nil
			})

			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
			assert.Equal(t, tt.message, status.Convert(err).Message())
		})
	}
}

func TestInterceptor_ValidToken_SetsIdentity(t *testing.T) {
	want := auth.Identity{ID: "a1", Email: "root@b.com", Role: models.RoleAdmin}
	v := &stubVerifier{id: want}
	s := newTestServer(v)

	for _, method := range []string{adminMethod, WhoAmIMethod, "/other.Service/Unlisted"} {
		var got auth.Identity
		info := &grpc.UnaryServerInfo{FullMethod: method}
		resp, err := s.accessTokenInterceptor(withToken("tok"), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			got, _ = auth.IdentityFromContext(ctx)
			return "ok", nil
		})

		require.NoError(t, err, method)
		assert.Equal(t, "ok", resp)
		assert.Equal(t, want, got)
		assert.Equal(t, "tok", v.raw)
	}
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f fakeStream) Context() context.Context { return f.ctx }

func TestStreamInterceptor(t *testing.T) {
	want := auth.Identity{ID: "u1", Role: models.RoleUser}
	s := newTestServer(&stubVerifier{id: want})

	var got auth.Identity
	err := s.accessTokenStreamInterceptor(nil, fakeStream{ctx: withToken("tok")}, &grpc.StreamServerInfo{FullMethod: "/mail.v1.Mail/Watch"},
		func(srv interface{}, ss grpc.ServerStream) error {
			got, _ = auth.IdentityFromContext(ss.Context())
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	err = s.accessTokenStreamInterceptor(nil, fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: "/mail.v1.Mail/Watch"},
		func(srv interface{}, ss grpc.ServerStream) error { return io.EOF })
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = s.accessTokenStreamInterceptor(nil, fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch"},
		func(srv interface{}, ss grpc.ServerStream) error { return nil })
	assert.NoError(t, err)
}
