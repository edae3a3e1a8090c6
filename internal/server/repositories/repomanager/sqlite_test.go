package repomanager

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteManager(t *testing.T) *SQLiteRepositoryManager {
	t.Helper()

	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)

	m := NewSQLiteRepositoryManager(db)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.RunMigrations(context.Background()))
	return m
}

func TestSQLiteManager_WithTxCommits(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()

	err := m.WithTx(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := repos.Users().Create(ctx, &models.User{ID: "u1", Email: "a@b.com", Role: models.RoleUser, IsActive: true}); err != nil {
			return err
		}
		return repos.RefreshTokens().Create(ctx, "u1", "tok", time.Hour)
	})
	require.NoError(t, err)

	_, err = m.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	_, err = m.RefreshTokens().Find(ctx, "tok")
	require.NoError(t, err)
}

func TestSQLiteManager_WithTxRollsBack(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := repos.Users().Create(ctx, &models.User{ID: "u1", Email: "a@b.com", Role: models.RoleUser, IsActive: true}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = m.Users().GetUserByID(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteManager_ForeignKeysEnforced(t *testing.T) {
	m := newSQLiteManager(t)

	err := m.RefreshTokens().Create(context.Background(), "ghost", "tok", time.Hour)
	assert.Error(t, err)
}

func TestSQLiteManager_FileBackedAndIdempotentMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gophmail.db")
	ctx := context.Background()

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	m := NewSQLiteRepositoryManager(db)
	defer m.Close()

	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.Ping(ctx))
}
