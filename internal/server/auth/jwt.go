// Package auth issues and verifies session tokens and re-checks the account
// behind every verified token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by a session token. The userId claim name is kept for
// compatibility with tokens issued before sub was added; sub holds the same
// value and is used as a fallback.
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// SubjectID returns the user id the token was issued for.
func (c *Claims) SubjectID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// TokenManager signs and parses HS256 session tokens with one shared secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager fails with common.ErrMissingSecret when secret is empty.
// The server treats that as fatal at startup.
func NewTokenManager(secret []byte, ttl time.Duration) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, common.ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: token lifetime must be positive", common.ErrorValidation)
	}
	return &TokenManager{secret: secret, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime given to every issued token.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// IssueToken signs a token for user and returns it with its expiry. The
// caller is responsible for having authenticated the user.
func (m *TokenManager) IssueToken(user *models.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseToken checks the signature (HS256 only) and the expiry of raw.
// An expired but otherwise genuine token yields common.ErrTokenExpired;
// every other failure, including a forged token that is also expired,
// yields common.ErrInvalidToken.
func (m *TokenManager) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.SubjectID() == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
