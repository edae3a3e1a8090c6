// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage, with PostgreSQL and SQLite
// implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string and returns its metadata.
	// Implementations return common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string and returns
	// common.ErrorNotFound when no row was removed, so concurrent rotations of
	// the same token cannot both succeed.
	Delete(ctx context.Context, token string) error

	// DeleteByUser revokes every refresh token owned by userID.
	DeleteByUser(ctx context.Context, userID string) error
}
