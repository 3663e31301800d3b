// Package cache keeps per-league, per-day schedule snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hitrivals/schedule/internal/metrics"
	"hitrivals/schedule/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultScheduleTTL applies when SetSchedule is called with a zero ttl
const DefaultScheduleTTL = 10 * time.Minute

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisCache stores schedule snapshots as JSON
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("db", cfg.DB).
		Msg("Successfully connected to Redis")

	return &RedisCache{client: client}, nil
}

// ScheduleKey returns the key holding league's games for date's calendar day
func ScheduleKey(league models.League, date time.Time) string {
	return fmt.Sprintf("schedule:%s:%s", league, date.Format("2006-01-02"))
}

// SetSchedule stores games for league and date
func (c *RedisCache) SetSchedule(ctx context.Context, league models.League, date time.Time, games []models.Game, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultScheduleTTL
	}
	if games == nil {
		games = []models.Game{}
	}

	data, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("marshaling schedule: %w", err)
	}

	key := ScheduleKey(league, date)
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.RecordError("cache", "set")
		return fmt.Errorf("failed to cache schedule %s: %w", key, err)
	}

	log.Debug().
		Str("key", key).
		Int("games", len(games)).
		Dur("ttl", ttl).
		Msg("Schedule cached")
	return nil
}

// GetSchedule returns the cached games for league and date. The bool is
// false on a miss.
func (c *RedisCache) GetSchedule(ctx context.Context, league models.League, date time.Time) ([]models.Game, bool, error) {
	key := ScheduleKey(league, date)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordError("cache", "get")
		return nil, false, fmt.Errorf("failed to read schedule %s: %w", key, err)
	}

	var games []models.Game
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, false, fmt.Errorf("unmarshaling schedule: %w", err)
	}

	metrics.RecordCacheHit()
	return games, true, nil
}

// InvalidateSchedule drops the snapshot for league and date
func (c *RedisCache) InvalidateSchedule(ctx context.Context, league models.League, date time.Time) error {
	return c.client.Del(ctx, ScheduleKey(league, date)).Err()
}

// Health pings Redis
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
