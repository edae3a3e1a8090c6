package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, next UserLookup, ttl time.Duration) (*CachedUserLookup, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedUserLookup(next, client, ttl, logging.Nop{}), mr
}

func TestCachedUserLookup_HitAfterMiss(t *testing.T) {
	users := newFakeUsers(&models.User{ID: "u1", Email: "a@b.com", PasswordHash: "secret-hash", Role: models.RoleUser, IsActive: true})
	c, mr := newCache(t, users, 5*time.Second)
	ctx := context.Background()

	u, err := c.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Equal(t, 1, users.calls)

	raw, err := mr.Get(userCacheKeyPrefix + "u1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-hash")
	assert.Equal(t, 5*time.Second, mr.TTL(userCacheKeyPrefix+"u1"))

	u, err = c.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.Equal(t, 1, users.calls, "second read is served from redis")
}

func TestCachedUserLookup_ExpiresAndInvalidates(t *testing.T) {
	users := newFakeUsers(&models.User{ID: "u1", Email: "a@b.com", Role: models.RoleUser, IsActive: true})
	c, mr := newCache(t, users, 2*time.Second)
	ctx := context.Background()

	_, err := c.GetUserByID(ctx, "u1")
	require.NoError(t, err)

	users.users["u1"].IsActive = false

	u, err := c.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.IsActive, "stale within the TTL")

	mr.FastForward(3 * time.Second)
	u, err = c.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	users.users["u1"].IsActive = true
	require.NoError(t, c.Invalidate(ctx, "u1"))
	u, err = c.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.IsActive)
}

type lookupFunc func(ctx context.Context, id string) (*models.User, error)

func (f lookupFunc) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return f(ctx, id)
}

func TestCachedUserLookup_InvalidateDuringMissWins(t *testing.T) {
	users := newFakeUsers(&models.User{ID: "u1", Email: "a@b.com", Role: models.RoleUser, IsActive: true})
	var c *CachedUserLookup
	racing := lookupFunc(func(ctx context.Context, id string) (*models.User, error) {
		u, err := users.GetUserByID(ctx, id)
		// the account is disabled and invalidated after the read above
		users.users[id].IsActive = false
		require.NoError(t, c.Invalidate(ctx, id))
		return u, err
	})
	c, mr := newCache(t, racing, time.Minute)
	ctx := context.Background()

	u, err := c.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.IsActive, "this lookup saw the old row")
	assert.False(t, mr.Exists(userCacheKeyPrefix+"u1"), "the old row is not written back")

	u, err = c.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.Equal(t, 2, users.calls)
}

func TestCachedUserLookup_InvalidateBumpsGeneration(t *testing.T) {
	c, mr := newCache(t, newFakeUsers(testUser()), time.Minute)
	ctx := context.Background()

	_, err := c.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.True(t, mr.Exists(userCacheKeyPrefix+"u1"))

	require.NoError(t, c.Invalidate(ctx, "u1"))
	require.NoError(t, c.Invalidate(ctx, "u1"))

	gen, err := mr.Get(userGenKeyPrefix + "u1")
	require.NoError(t, err)
	assert.Equal(t, "2", gen)
	assert.Equal(t, userGenTTL, mr.TTL(userGenKeyPrefix+"u1"))
	assert.False(t, mr.Exists(userCacheKeyPrefix+"u1"))

	_, err = c.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(userCacheKeyPrefix+"u1"), "later misses cache again")
}

func TestCachedUserLookup_NotFoundIsNotCached(t *testing.T) {
	users := newFakeUsers()
	c, mr := newCache(t, users, time.Minute)

	_, err := c.GetUserByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.False(t, mr.Exists(userCacheKeyPrefix+"ghost"))
}

func TestCachedUserLookup_RedisDownFallsThrough(t *testing.T) {
	users := newFakeUsers(testUser())
	c, mr := newCache(t, users, time.Minute)
	mr.Close()

	u, err := c.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestCachedUserLookup_CorruptEntry(t *testing.T) {
	users := newFakeUsers(testUser())
	c, mr := newCache(t, users, time.Minute)
	require.NoError(t, mr.Set(userCacheKeyPrefix+"u1", "{broken"))

	u, err := c.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Equal(t, 1, users.calls)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = OpenRedis(context.Background(), "::not a url")
	assert.Error(t, err)
}
