package common

// AuthorizationHeader carries "Bearer <token>" on HTTP requests. gRPC uses the
// lower-cased form as metadata key.
const (
	AuthorizationHeader = "Authorization"
	AuthorizationMDKey  = "authorization"
	BearerScheme        = "Bearer"
)
