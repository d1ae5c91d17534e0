package tariff

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "meter:settings:"

// RedisStore keeps the tariff as a JSON string at meter:settings:fareSettings.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redis *redis.Client) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Load(ctx context.Context) (Tariff, bool, error) {
	raw, err := s.redis.Get(ctx, redisKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Tariff{}, false, nil
	}
	if err != nil {
		return Tariff{}, false, fmt.Errorf("redis get %s: %w", redisKey(), err)
	}
	t, err := decode(raw)
	if err != nil {
		return Tariff{}, false, err
	}
	return t, true, nil
}

func (s *RedisStore) Save(ctx context.Context, t Tariff) error {
	raw, err := encode(t)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, redisKey(), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", redisKey(), err)
	}
	return nil
}

func redisKey() string {
	return redisKeyPrefix + SettingsKey
}
