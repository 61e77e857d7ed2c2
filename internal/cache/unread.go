package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	unreadKeyPrefix  = "waveline:notifications:unread:"
	defaultUnreadTTL = 5 * time.Minute
	defaultTimeout   = 5 * time.Second
)

// ErrMiss reports that no cached value exists for the requested identity.
var ErrMiss = errors.New("cache: miss")

// UnreadCounter caches per-identity unread notification counts. The database
// stays authoritative; implementations only shortcut the COUNT query between
// mutations.
type UnreadCounter interface {
	Get(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, count int64) error
	Invalidate(ctx context.Context, userID string) error
}

// Config holds the Redis connection parameters for the unread-count cache.
type Config struct {
	Address  string
	Username string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisUnreadCounter is the Redis-backed UnreadCounter.
type RedisUnreadCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisUnreadCounter connects to Redis and verifies the connection with a
// ping before returning the counter.
func NewRedisUnreadCounter(cfg Config) (*RedisUnreadCounter, error) {
	if cfg.Address == "" {
		return nil, errors.New("cache: redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultTimeout,
		ReadTimeout:  defaultTimeout,
		WriteTimeout: defaultTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultUnreadTTL
	}

	return &RedisUnreadCounter{client: client, ttl: ttl}, nil
}

func (c *RedisUnreadCounter) Get(ctx context.Context, userID string) (int64, error) {
	value, err := c.client.Get(ctx, unreadKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrMiss
	}
	if err != nil {
		return 0, fmt.Errorf("cache: get unread count: %w", err)
	}

	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ErrMiss
	}
	return count, nil
}

func (c *RedisUnreadCounter) Set(ctx context.Context, userID string, count int64) error {
	if err := c.client.Set(ctx, unreadKeyPrefix+userID, count, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set unread count: %w", err)
	}
	return nil
}

func (c *RedisUnreadCounter) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, unreadKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("cache: invalidate unread count: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *RedisUnreadCounter) Close() error {
	return c.client.Close()
}

// NoopUnreadCounter satisfies UnreadCounter without caching anything. Used
// when no Redis endpoint is configured.
type NoopUnreadCounter struct{}

func (NoopUnreadCounter) Get(context.Context, string) (int64, error) { return 0, ErrMiss }
func (NoopUnreadCounter) Set(context.Context, string, int64) error   { return nil }
func (NoopUnreadCounter) Invalidate(context.Context, string) error   { return nil }
