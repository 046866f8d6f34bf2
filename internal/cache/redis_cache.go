package cache

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"barledger/backend/internal/domain"
)

// RedisOfflineCache keeps the fallback snapshot in Redis. It survives
// process restarts as long as the Redis instance does; entries carry no
// TTL since a stale snapshot still beats an empty ledger.
type RedisOfflineCache struct {
	client *redis.Client
}

func NewRedisOfflineCache(addr string, password string, db int) *RedisOfflineCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisOfflineCache{client: client}
}

func (c *RedisOfflineCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisOfflineCache) Close() error {
	return c.client.Close()
}

func (c *RedisOfflineCache) LoadSales(ctx context.Context) ([]domain.Sale, bool, error) {
	val, err := c.client.Get(ctx, salesKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var sales []domain.Sale
	if err := json.Unmarshal([]byte(val), &sales); err != nil {
		return nil, false, err
	}
	return sales, true, nil
}

func (c *RedisOfflineCache) SaveSales(ctx context.Context, sales []domain.Sale) error {
	payload, err := json.Marshal(sales)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, salesKey, payload, 0).Err()
}

func (c *RedisOfflineCache) LoadTargets(ctx context.Context) (domain.TargetConfig, bool, error) {
	val, err := c.client.Get(ctx, targetsKey).Result()
	if err == redis.Nil {
		return domain.TargetConfig{}, false, nil
	}
	if err != nil {
		return domain.TargetConfig{}, false, err
	}

	var targets domain.TargetConfig
	if err := json.Unmarshal([]byte(val), &targets); err != nil {
		return domain.TargetConfig{}, false, err
	}
	return targets, true, nil
}

func (c *RedisOfflineCache) SaveTargets(ctx context.Context, targets domain.TargetConfig) error {
	payload, err := json.Marshal(targets)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, targetsKey, payload, 0).Err()
}
