package auth

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/server/models"
)

// Identity is the per-request principal built from the freshly read user
// record, never from the token's embedded claims.
type Identity struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func IdentityFromUser(u *models.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// HasRole reports whether the identity's role is one of roles.
func (i Identity) HasRole(roles ...models.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the verifier, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
