package freshness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pandodao/sac-wallet/core"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sac:snapshot:"

func snapshotKey(userID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, userID)
}

// NewRedis shares snapshots between processes.
func NewRedis(client *redis.Client, logger *slog.Logger) core.FreshnessCache {
	return &redisCache{
		client: client,
		logger: logger.With("cache", "redis"),
	}
}

type redisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// Get treats any redis failure as a miss.
func (c *redisCache) Get(ctx context.Context, userID int64) (*core.Snapshot, bool) {
	raw, err := c.client.Get(ctx, snapshotKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("redis.Get", "user", userID, "err", err)
		}

		return nil, false
	}

	var snapshot core.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		c.logger.Error("json.Unmarshal", "user", userID, "err", err)
		return nil, false
	}

	return &snapshot, true
}

func (c *redisCache) Set(ctx context.Context, snapshot *core.Snapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, snapshotKey(snapshot.UserID), raw, ttl).Err()
}
