// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, issuing and rotating tokens,
// profile updates and admin account management.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/metrics"
	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	minPasswordLength     = 8
	maxDisplayNameLength  = 100
	refreshTokenByteCount = 32
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// UserCacheInvalidator drops a user from the verifier's cache after the
// service changes that user.
type UserCacheInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// UserService provides account operations on top of the repositories.
type UserService struct {
	repomanager     repomanager.RepositoryManager
	tokens          *auth.TokenManager
	refreshTokenTTL time.Duration
	cache           UserCacheInvalidator
	log             logging.Logger
	now             func() time.Time
}

// NewUserService constructs a UserService. tokens signs access tokens;
// refreshTokenTTL bounds the server-stored refresh tokens.
func NewUserService(m repomanager.RepositoryManager, tokens *auth.TokenManager, refreshTokenTTL time.Duration, log logging.Logger) *UserService {
	return &UserService{
		repomanager:     m,
		tokens:          tokens,
		refreshTokenTTL: refreshTokenTTL,
		log:             log,
		now:             time.Now,
	}
}

// SetCacheInvalidator wires the user state cache so admin and profile
// changes take effect on the next request.
func (s *UserService) SetCacheInvalidator(c UserCacheInvalidator) {
	s.cache = c
}

// Register creates a regular, active account and signs the user in.
func (s *UserService) Register(ctx context.Context, email, password, displayName string) (*models.User, *TokenPair, error) {
	user, err := s.newUser(email, password, displayName, models.RoleUser)
	if err != nil {
		return nil, nil, err
	}

	var pair *TokenPair
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if _, err := repos.Users().Create(ctx, user); err != nil {
			return err
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, repos, user)
		return genErr
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, pair, nil
}

// CreateUser adds an account without signing it in. Used by the operator CLI
// to bootstrap administrators.
func (s *UserService) CreateUser(ctx context.Context, email, password, displayName string, role models.Role) (*models.User, error) {
	user, err := s.newUser(email, password, displayName, role)
	if err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users().Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user created", "user_id", user.ID, "role", string(role))
	return user, nil
}

// Login checks the password and returns a fresh token pair. Unknown emails
// and wrong passwords are indistinguishable; a disabled account is reported
// only once the password has matched.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.repomanager.Users().GetUserByEmail(ctx, common.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.CompareDummy(password)
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, nil, common.ErrorUnauthorized
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, nil, fmt.Errorf("error reading user: %w", err)
	}

	ok, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !ok {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, nil, common.ErrorUnauthorized
	}

	if !user.IsActive {
		metrics.LoginAttemptsTotal.WithLabelValues("account_disabled").Inc()
		return nil, nil, common.ErrAccountDisabled
	}

	pair, err := s.generateTokenPair(ctx, s.repomanager, user)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return user, pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. The owner must still exist and be active.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrInvalidToken
	}

	token, err := s.repomanager.RefreshTokens().Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		if err := s.repomanager.RefreshTokens().Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "failed to delete expired refresh token", "error", err)
		}
		return nil, common.ErrRefreshTokenExpired
	}

	// The owner is locked before the token is consumed, in the same order
	// SetActive takes them, so a concurrent disable either lands first and is
	// seen here or waits and then revokes the token minted below.
	var pair *TokenPair
	if err := s.repomanager.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		user, err := repos.Users().LockUserByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("error reading user: %w", err)
		}
		if !user.IsActive {
			return common.ErrAccountDisabled
		}

		if err := repos.RefreshTokens().Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		pair, err = s.generateTokenPair(ctx, repos, user)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.repomanager.RefreshTokens().Delete(ctx, refreshToken)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Profile returns the stored account for id.
func (s *UserService) Profile(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users().GetUserByID(ctx, id)
}

// UserByEmail looks an account up by its (normalised) email.
func (s *UserService) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repomanager.Users().GetUserByEmail(ctx, common.NormalizeEmail(email))
}

// UpdateDisplayName changes the caller's display name and returns the
// updated profile.
func (s *UserService) UpdateDisplayName(ctx context.Context, id, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display name is longer than %d characters", common.ErrorValidation, maxDisplayNameLength)
	}

	if err := s.repomanager.Users().UpdateDisplayName(ctx, id, name); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	return s.Profile(ctx, id)
}

// ListUsers returns every account, oldest first.
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users().List(ctx)
}

// SetActive enables or disables an account on behalf of actorID. Disabling
// also revokes the account's refresh tokens; its access tokens stop working
// on the next request because the verifier re-reads the user. An admin
// cannot disable themself. An empty actorID denotes the operator CLI.
func (s *UserService) SetActive(ctx context.Context, actorID, id string, active bool) (*models.User, error) {
	if actorID != "" && actorID == id && !active {
		return nil, fmt.Errorf("%w: you cannot disable your own account", common.ErrorValidation)
	}

	err := s.repomanager.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if err := repos.Users().SetActive(ctx, id, active); err != nil {
			return err
		}
		if !active {
			return repos.RefreshTokens().DeleteByUser(ctx, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.log.Info(ctx, "user status changed", "user_id", id, "active", active, "actor_id", actorID)
	return s.Profile(ctx, id)
}

// SetRole changes an account's role on behalf of actorID. An admin cannot
// demote themself.
func (s *UserService) SetRole(ctx context.Context, actorID, id string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	if actorID != "" && actorID == id && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: you cannot change your own role", common.ErrorValidation)
	}

	if err := s.repomanager.Users().SetRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.log.Info(ctx, "user role changed", "user_id", id, "role", string(role), "actor_id", actorID)
	return s.Profile(ctx, id)
}

// --- helpers below ---

func (s *UserService) newUser(email, password, displayName string, role models.Role) (*models.User, error) {
	email = common.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLength)
	}
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display name is longer than %d characters", common.ErrorValidation, maxDisplayNameLength)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	return &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		DisplayName:  displayName,
	}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	return nil
}

func (s *UserService) generateTokenPair(ctx context.Context, repos repomanager.Repositories, user *models.User) (*TokenPair, error) {
	access, expiresAt, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}
	refresh, err := common.MakeRandHexString(refreshTokenByteCount)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}
	if err := repos.RefreshTokens().Create(ctx, user.ID, refresh, s.refreshTokenTTL); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()

	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn(ctx, "failed to invalidate cached user", "user_id", id, "error", err)
	}
}
