package httpapi

import (
	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/labstack/echo/v4"
)

// ContextKeyIdentity is the echo context key holding the caller's auth.Identity.
const ContextKeyIdentity = "identity"

// IdentityFrom returns the identity attached by RequireAuth, looking at the
// echo context first and the request context second.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	if id, ok := c.Get(ContextKeyIdentity).(auth.Identity); ok {
		return id, true
	}
	return auth.IdentityFromContext(c.Request().Context())
}

// RequireAuth verifies the bearer token and re-reads the account on every
// request. On success the Identity is attached to both the request context
// and the echo context.
func RequireAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			raw := common.BearerToken(req.Header.Get(common.AuthorizationHeader))

			id, err := v.Verify(req.Context(), raw)
			if err != nil {
				if r, ok := auth.RejectionFor(err); ok {
					auth.RecordRejection(r)
				}
				return err
			}

			c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), id)))
			c.Set(ContextKeyIdentity, id)
			return next(c)
		}
	}
}

// RequireRole lets the request through only when the caller's role is one of
// roles. It never touches the store.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	allowed := append([]models.Role(nil), roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				r, _ := auth.RejectionFor(common.ErrAuthRequired)
				auth.RecordRejection(r)
				return common.ErrAuthRequired
			}
			if !id.HasRole(allowed...) {
				r, _ := auth.RejectionFor(common.ErrInsufficientRole)
				auth.RecordRejection(r)
				return common.ErrInsufficientRole
			}
			return next(c)
		}
	}
}

func AdminOnly() echo.MiddlewareFunc {
	return RequireRole(models.RoleAdmin)
}

func AnyUser() echo.MiddlewareFunc {
	return RequireRole(models.RoleUser, models.RoleAdmin)
}
