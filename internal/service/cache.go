package service

import (
	"context"
	"errors"
	"time"

	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/repository/redisrepo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MIN_VERSION_TTL bounds how long an idle recipient's cache version survives.
const MIN_VERSION_TTL = time.Hour

// listCache caches raw per-recipient record lists. Entries are keyed by a
// per-recipient version that every mutation bumps, so a fill racing with a
// mutation lands under a version nobody reads again. Version keys expire
// after versionTTL, which always outlives the entries written under them.
type listCache struct {
	logger *zap.Logger
	rdb    *redis.Client
	ttl    time.Duration
}

func newListCache(logger *zap.Logger, rdb *redis.Client, ttl time.Duration) *listCache {
	return &listCache{
		logger: logger,
		rdb:    rdb,
		ttl:    ttl,
	}
}

func (c *listCache) versionTTL() time.Duration {
	return max(2*c.ttl, MIN_VERSION_TTL)
}

func (c *listCache) version(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	v, err := c.rdb.Get(ctx, redisrepo.UserNotificationsVersionKey(recipientID.String())).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// load returns the cached list or calls fill and caches its result.
// Redis failures are logged and never fail the call.
func (c *listCache) load(ctx context.Context, recipientID uuid.UUID, fill func() ([]*model.Notification, error)) ([]*model.Notification, error) {
	if c == nil || c.rdb == nil || c.ttl <= 0 {
		return fill()
	}

	version, err := c.version(ctx, recipientID)
	if err != nil {
		c.logger.Sugar().Errorf("failed to get user(%s)'s notifications cache version: %s", recipientID.String(), err.Error())
		return fill()
	}
	key := redisrepo.UserNotificationsKey(recipientID.String(), version)

	cached, err := redisrepo.Get[[]*model.Notification](c.rdb, ctx, key)
	if err == nil {
		return *cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Sugar().Errorf("failed to get user(%s)'s notifications from redis: %s", recipientID.String(), err.Error())
	}

	notifications, err := fill()
	if err != nil {
		return nil, err
	}

	if err := redisrepo.SetJSON(c.rdb, ctx, key, notifications, c.ttl); err != nil {
		c.logger.Sugar().Errorf("failed to set user(%s)'s notifications in redis cache: %s", recipientID.String(), err.Error())
	}
	// no-op while the recipient has no version key yet
	if err := c.rdb.Expire(ctx, redisrepo.UserNotificationsVersionKey(recipientID.String()), c.versionTTL()).Err(); err != nil {
		c.logger.Sugar().Errorf("failed to refresh user(%s)'s notifications cache version ttl: %s", recipientID.String(), err.Error())
	}

	return notifications, nil
}

func (c *listCache) invalidate(ctx context.Context, recipientIDs ...uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(recipientIDs))
	pipe := c.rdb.Pipeline()
	for _, id := range recipientIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		versionKey := redisrepo.UserNotificationsVersionKey(id.String())
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, c.versionTTL())
	}
	if len(seen) == 0 {
		return
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Sugar().Errorf("failed to invalidate notifications cache for %d user(s): %s", len(seen), err.Error())
	}
}
