package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/users"
)

// Repositories vends repositories bound to one handle: the pool, or the
// transaction inside WithTx.
type Repositories interface {
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
}

// RepositoryManager is the Credential Store as seen by the services. The two
// backends (PostgreSQL and SQLite) share this contract and its semantics.
type RepositoryManager interface {
	Repositories

	// RunMigrations applies the embedded goose migrations for the backend.
	RunMigrations(ctx context.Context) error

	// WithTx runs fn in a transaction; repositories handed to fn are bound to
	// it. The transaction commits when fn returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	Ping(ctx context.Context) error
	Close() error
}
