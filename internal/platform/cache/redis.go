package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

const snapshotKeyPrefix = "almoner:validator-snapshot:"

// SnapshotCache is the Redis-backed read-through cache for validator
// snapshots. A miss or any Redis failure falls back to the profile store;
// staleness is bounded by the TTL.
type SnapshotCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewSnapshotCache(addr string, password string, db int, logger *slog.Logger) (*SnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotCache{client: client, logger: logger}, nil
}

func (c *SnapshotCache) GetSnapshot(ctx context.Context, validatorID string) (entities.ValidatorSnapshot, bool, error) {
	raw, err := c.client.Get(ctx, snapshotKeyPrefix+validatorID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return entities.ValidatorSnapshot{}, false, nil
		}
		return entities.ValidatorSnapshot{}, false, err
	}

	var snapshot entities.ValidatorSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		c.logger.Warn("corrupt snapshot cache entry dropped",
			"event", "snapshot_cache_corrupt",
			"module", "internal/platform/cache",
			"layer", "platform",
			"validator_id", validatorID,
		)
		_ = c.client.Del(ctx, snapshotKeyPrefix+validatorID).Err()
		return entities.ValidatorSnapshot{}, false, nil
	}
	return snapshot, true, nil
}

func (c *SnapshotCache) PutSnapshot(ctx context.Context, snapshot entities.ValidatorSnapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return c.client.Set(ctx, snapshotKeyPrefix+snapshot.ValidatorID, raw, ttl).Err()
}

func (c *SnapshotCache) Close() error {
	return c.client.Close()
}

var _ ports.SnapshotCache = (*SnapshotCache)(nil)
