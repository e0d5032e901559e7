package redis_utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"portfolio/src/config"

	"github.com/redis/go-redis/v9"
)

// RedisHandler encapsulates the Redis client used for shared price caching
// and rate limiting. Everything that uses it must keep working without it,
// redis being optional in configuration.
type RedisHandler struct {
	client *redis.Client
}

// NewRedisHandler initializes a new Redis handler and verifies connectivity.
func NewRedisHandler(cfg config.RedisConfig) (*RedisHandler, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisHandler{client: client}, nil
}

// Set stores a key-value pair in Redis with an expiration.
func (r *RedisHandler) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize value: %w", err)
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves and deserializes the value of a key into result. The second
// return is false when the key does not exist.
func (r *RedisHandler) Get(ctx context.Context, key string, result interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to get key: %w", err)
	}

	if err := json.Unmarshal([]byte(data), result); err != nil {
		return false, fmt.Errorf("failed to deserialize value: %w", err)
	}
	return true, nil
}

// Allow implements a sliding-window rate limit: at most limit events per
// window for the given key. Returns true when the event is allowed.
func (r *RedisHandler) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixNano()
	redisKey := "rl:" + key

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(now-window.Nanoseconds(), 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now), Member: strconv.FormatInt(now, 10)})
	card := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window+5*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return card.Val() <= int64(limit), nil
}

// Close closes the Redis client connection.
func (r *RedisHandler) Close() error {
	return r.client.Close()
}
