// Package users declares the Credential Store contract for user accounts and
// its PostgreSQL and SQLite implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/server/models"
)

// Repository persists user accounts. Emails are expected to be normalised by
// the caller; both backends additionally compare them case-insensitively.
// Lookups return common.ErrorNotFound when the user is absent and Create
// returns common.ErrorAlreadyExists on a duplicate email.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// LockUserByID reads a user like GetUserByID and, inside a transaction,
	// keeps the row share-locked until commit so a concurrent status change
	// either completes first or waits for the caller.
	LockUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetRole(ctx context.Context, id string, role models.Role) error
	UpdateDisplayName(ctx context.Context, id string, name string) error
}
