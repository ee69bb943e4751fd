package redis

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

type settings struct {
	poolSize      int
	minIdleConns  int
	maxIdleTime   time.Duration
	maxActiveTime time.Duration
	retryAttempts uint64
	retryInterval time.Duration
	readTimeout   time.Duration
	writeTimeout  time.Duration
	dialTimeout   time.Duration
}

// Option configures a Redis connection.
type Option func(*settings)

// WithPoolSize sets the maximum number of connections in the pool.
// Default: 10
func WithPoolSize(n int) Option {
	return func(s *settings) { s.poolSize = n }
}

// WithMinIdleConns sets the minimum number of idle connections kept open.
// Default: 5
func WithMinIdleConns(n int) Option {
	return func(s *settings) { s.minIdleConns = n }
}

// WithMaxIdleTime sets how long a connection may sit idle before being closed.
// Default: 10 minutes
func WithMaxIdleTime(d time.Duration) Option {
	return func(s *settings) { s.maxIdleTime = d }
}

// WithMaxActiveTime sets the maximum lifetime of a connection.
// Default: 30 minutes
func WithMaxActiveTime(d time.Duration) Option {
	return func(s *settings) { s.maxActiveTime = d }
}

// WithRetry configures connection retry behavior during startup.
// Default: 3 attempts, 5 second base interval with exponential backoff.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(s *settings) {
		if attempts > 0 {
			s.retryAttempts = uint64(attempts)
		}
		if interval > 0 {
			s.retryInterval = interval
		}
	}
}

// WithReadTimeout sets the timeout for read operations.
// Default: 3 seconds
func WithReadTimeout(d time.Duration) Option {
	return func(s *settings) { s.readTimeout = d }
}

// WithWriteTimeout sets the timeout for write operations.
// Default: 3 seconds
func WithWriteTimeout(d time.Duration) Option {
	return func(s *settings) { s.writeTimeout = d }
}

// WithDialTimeout sets the timeout for establishing new connections.
// Default: 5 seconds
func WithDialTimeout(d time.Duration) Option {
	return func(s *settings) { s.dialTimeout = d }
}

// Open creates a Redis client with sensible defaults. Both redis:// and
// rediss:// (TLS) URL schemes are supported. The initial ping retries with
// exponential backoff so a service can start while Redis is still coming up.
//
// Example:
//
//	client, err := redis.Open(ctx, "redis://localhost:6379/0",
//	    redis.WithPoolSize(20),
//	    redis.WithRetry(5, 3*time.Second),
//	)
func Open(ctx context.Context, url string, opts ...Option) (redis.UniversalClient, error) {
	if url == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrFailedToParseURL
	}

	cfg := settings{
		poolSize:      10,
		minIdleConns:  5,
		maxIdleTime:   10 * time.Minute,
		maxActiveTime: 30 * time.Minute,
		retryAttempts: 3,
		retryInterval: 5 * time.Second,
		readTimeout:   3 * time.Second,
		writeTimeout:  3 * time.Second,
		dialTimeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	parsed, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}
	parsed.PoolSize = cfg.poolSize
	parsed.MinIdleConns = cfg.minIdleConns
	parsed.ConnMaxIdleTime = cfg.maxIdleTime
	parsed.ConnMaxLifetime = cfg.maxActiveTime
	parsed.ReadTimeout = cfg.readTimeout
	parsed.WriteTimeout = cfg.writeTimeout
	parsed.DialTimeout = cfg.dialTimeout

	var client redis.UniversalClient
	backoff := retry.WithMaxRetries(cfg.retryAttempts-1, retry.NewExponential(cfg.retryInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		c := redis.NewClient(parsed)
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return client, nil
}

// MustOpen creates a Redis client or exits on failure.
// Use for simple applications where startup failure is fatal.
func MustOpen(ctx context.Context, url string, opts ...Option) redis.UniversalClient {
	client, err := Open(ctx, url, opts...)
	if err != nil {
		slog.Error("failed to open redis connection", "error", err)
		os.Exit(1)
	}
	return client
}
