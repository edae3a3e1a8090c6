package repomanager

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/gophmail/internal/dbx"
	"github.com/dmitrijs2005/gophmail/internal/server/migrations"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/users"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories for local
// development.
type SQLiteRepositoryManager struct {
	db *sqlx.DB
}

// OpenSQLite opens the database file at path (":memory:" for a private
// in-memory database) with foreign keys enabled. The pool is limited to one
// connection so writers never race for the file lock.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Set("_time_format", "sqlite")

	name := "file:" + path
	if path == ":memory:" {
		name = "file::memory:"
	}

	db, err := sqlx.Open("sqlite", name+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// NewSQLiteRepositoryManager constructs a SQLite-backed RepositoryManager.
func NewSQLiteRepositoryManager(db *sqlx.DB) *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{db: db}
}

type sqliteRepos struct {
	db sqlx.ExtContext
}

func (r sqliteRepos) Users() users.Repository {
	return users.NewSQLiteRepository(r.db)
}

func (r sqliteRepos) RefreshTokens() refreshtokens.Repository {
	return refreshtokens.NewSQLiteRepository(r.db)
}

func (m *SQLiteRepositoryManager) Users() users.Repository {
	return sqliteRepos{db: m.db}.Users()
}

func (m *SQLiteRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return sqliteRepos{db: m.db}.RefreshTokens()
}

func (m *SQLiteRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTxx(ctx, m.db, nil, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, sqliteRepos{db: tx})
	})
}

// RunMigrations applies the embedded SQLite migrations.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db.DB, "sqlite")
}

func (m *SQLiteRepositoryManager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *SQLiteRepositoryManager) Close() error {
	return m.db.Close()
}
