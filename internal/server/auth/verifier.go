package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/metrics"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
)

// UserLookup reads one user by id. users.Repository satisfies it, as does
// CachedUserLookup. Implementations return common.ErrorNotFound for an
// unknown id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Verifier turns a raw bearer token into an Identity, re-reading the user on
// every call so a disabled or missing account is refused immediately even
// while its tokens are still cryptographically valid.
type Verifier struct {
	tokens *TokenManager
	users  UserLookup
}

func NewVerifier(tokens *TokenManager, users UserLookup) *Verifier {
	return &Verifier{tokens: tokens, users: users}
}

// Verify returns the caller's Identity or one of common.ErrMissingToken,
// ErrInvalidToken, ErrTokenExpired, ErrUserNotFound, ErrAccountDisabled.
// Any other error is a store failure.
func (v *Verifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, common.ErrMissingToken
	}

	claims, err := v.tokens.ParseToken(raw)
	if err != nil {
		return Identity{}, err
	}

	user, err := v.users.GetUserByID(ctx, claims.SubjectID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return Identity{}, common.ErrUserNotFound
		}
		return Identity{}, fmt.Errorf("user lookup: %w", err)
	}

	if !user.IsActive {
		return Identity{}, common.ErrAccountDisabled
	}

	return IdentityFromUser(user), nil
}

// timedLookup records how long store reads take.
type timedLookup struct {
	next UserLookup
}

// InstrumentedLookup wraps a store-backed lookup with the
// user_lookup_duration_seconds{source="store"} histogram.
func InstrumentedLookup(next UserLookup) UserLookup {
	return timedLookup{next: next}
}

func (l timedLookup) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	start := time.Now()
	defer func() {
		metrics.UserLookupDuration.WithLabelValues(metrics.SourceStore).Observe(time.Since(start).Seconds())
	}()
	return l.next.GetUserByID(ctx, id)
}
