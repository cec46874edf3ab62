package cache

import (
	"context"
	"encoding/json"
	"time"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to Redis. The returned client may be nil when Redis is
// unreachable; callers treat a nil client as a disabled cache.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without quota cache")
		return nil, err
	}
	return client, nil
}

// QuotaCache keeps recently fetched publishing limits so repeated limit
// checks within the TTL skip the Graph API round trip.
type QuotaCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQuotaCache(client *redis.Client) *QuotaCache {
	return &QuotaCache{client: client, ttl: 60 * time.Second}
}

func quotaKey(instagramUserID string) string {
	return "quota:" + instagramUserID
}

// Get returns the cached limit for the account, or nil on a miss. Cache
// errors are logged and treated as misses.
func (c *QuotaCache) Get(ctx context.Context, instagramUserID string) *model.PublishingLimit {
	if c == nil || c.client == nil {
		return nil
	}
	val, err := c.client.Get(ctx, quotaKey(instagramUserID)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.GetLogger().WithField("error", err).Warn("Quota cache read failed")
		}
		return nil
	}
	var limit model.PublishingLimit
	if err := json.Unmarshal([]byte(val), &limit); err != nil {
		return nil
	}
	return &limit
}

func (c *QuotaCache) Set(ctx context.Context, instagramUserID string, limit *model.PublishingLimit) {
	if c == nil || c.client == nil || limit == nil {
		return
	}
	data, err := json.Marshal(limit)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, quotaKey(instagramUserID), data, c.ttl).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Quota cache write failed")
	}
}

// Invalidate drops the cached limit after a publish consumes quota.
func (c *QuotaCache) Invalidate(ctx context.Context, instagramUserID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, quotaKey(instagramUserID)).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Quota cache invalidation failed")
	}
}
