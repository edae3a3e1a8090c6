package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/metrics"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	userCacheKeyPrefix = "gophmail:user:"
	userGenKeyPrefix   = "gophmail:user-gen:"

	// userGenTTL outlives any single lookup, so a fill never sees its
	// generation counter expire underneath it.
	userGenTTL = 24 * time.Hour
)

var errStaleFill = errors.New("user changed during lookup")

// OpenRedis parses url and checks the server answers.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// cachedUser is the subset of a user the verifier needs. Password hashes
// never leave the store.
type cachedUser struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	IsActive    bool        `json:"isActive"`
	DisplayName string      `json:"displayName"`
}

// CachedUserLookup keeps found users in Redis for a short TTL in front of
// another UserLookup. A cached record may be stale by up to the TTL, which
// bounds how long a disable made outside this service takes to bite;
// mutations made through the service call Invalidate.
//
// Invalidate bumps a per-user generation counter, and a miss only writes its
// record back if the counter has not moved since before the store read. A
// lookup that raced a mutation therefore cannot re-cache the old record.
type CachedUserLookup struct {
	next   UserLookup
	client *redis.Client
	ttl    time.Duration
	log    logging.Logger
}

func NewCachedUserLookup(next UserLookup, client *redis.Client, ttl time.Duration, log logging.Logger) *CachedUserLookup {
	return &CachedUserLookup{next: next, client: client, ttl: ttl, log: log}
}

func (c *CachedUserLookup) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	start := time.Now()
	raw, err := c.client.Get(ctx, userCacheKeyPrefix+id).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if jsonErr := json.Unmarshal(raw, &cu); jsonErr == nil {
			metrics.UserLookupDuration.WithLabelValues(metrics.SourceCache).Observe(time.Since(start).Seconds())
			return &models.User{
				ID:          cu.ID,
				Email:       cu.Email,
				Role:        cu.Role,
				IsActive:    cu.IsActive,
				DisplayName: cu.DisplayName,
			}, nil
		}
		c.log.Warn(ctx, "discarding unreadable cached user", "user_id", id)
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn(ctx, "user cache read failed", "user_id", id, "error", err)
	}

	gen, genErr := userGeneration(ctx, c.client, id)

	user, err := c.next.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		c.log.Warn(ctx, "user cache generation read failed", "user_id", id, "error", genErr)
		return user, nil
	}
	if err := c.fill(ctx, user, gen); err != nil && !errors.Is(err, errStaleFill) && !errors.Is(err, redis.TxFailedErr) {
		c.log.Warn(ctx, "user cache write failed", "user_id", id, "error", err)
	}

	return user, nil
}

// fill stores user unless its generation moved past gen.
func (c *CachedUserLookup) fill(ctx context.Context, user *models.User, gen int64) error {
	b, err := json.Marshal(cachedUser{
		ID:          user.ID,
		Email:       user.Email,
		Role:        user.Role,
		IsActive:    user.IsActive,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		return err
	}

	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := userGeneration(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userCacheKeyPrefix+user.ID, b, c.ttl)
			return nil
		})
		return err
	}, userGenKeyPrefix+user.ID)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func userGeneration(ctx context.Context, r stringGetter, id string) (int64, error) {
	gen, err := r.Get(ctx, userGenKeyPrefix+id).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Invalidate drops id from the cache and bumps its generation so lookups
// already in flight do not write their copy back.
func (c *CachedUserLookup) Invalidate(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, userGenKeyPrefix+id)
		pipe.Expire(ctx, userGenKeyPrefix+id, userGenTTL)
		pipe.Del(ctx, userCacheKeyPrefix+id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cached user: %w", err)
	}
	return nil
}
