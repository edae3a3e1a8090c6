package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// WhoAmIMethod returns the caller's verified identity. Sibling services use
// it to resolve a user's bearer token without sharing the signing secret.
const WhoAmIMethod = "/gophmail.auth.v1.AuthService/WhoAmI"

// AuthServiceServer is the server API of gophmail.auth.v1.AuthService.
type AuthServiceServer interface {
	WhoAmI(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

type identityService struct{}

func (identityService) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "Authentication required")
	}
	return structpb.NewStruct(map[string]any{
		"id":    id.ID,
		"email": id.Email,
		"role":  string(id.Role),
	})
}

func whoAmIHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: WhoAmIMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServiceServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// AuthServiceDesc describes gophmail.auth.v1.AuthService.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: "gophmail.auth.v1.AuthService",
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "WhoAmI",
			Handler:    whoAmIHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophmail/auth/v1/auth.proto",
}
