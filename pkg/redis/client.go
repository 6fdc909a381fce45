package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/quantara/execution/pkg/errors"
	"github.com/quantara/execution/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type client struct {
	logger  logger.Interface
	config  *Config
	cmdable redis.Cmdable
}

// NewClient creates a new Redis client with the provided logger and configuration.
func NewClient(logger logger.Interface, config *Config) Client {
	return &client{
		logger: logger,
		config: config,
	}
}

// Connect validates the configuration, opens the connection pool and pings it.
func (c *client) Connect(ctx context.Context) error {
	if c.config == nil {
		return errors.NewTracer(string(errors.RedisConfigError)).
			Wrap(fmt.Errorf("redis config is nil"))
	}
	if len(c.config.Addrs) == 0 {
		return errors.NewTracer(string(errors.RedisConfigError)).
			Wrap(fmt.Errorf("redis addresses are empty"))
	}
	if c.config.ConnectTimeout <= 0 || c.config.PoolSize <= 0 || c.config.PoolTimeout <= 0 {
		return errors.NewTracer(string(errors.RedisConfigError)).
			Wrap(fmt.Errorf("invalid redis pool settings"))
	}

	switch c.config.Mode {
	case Standalone:
		c.cmdable = redis.NewClient(&redis.Options{
			Addr:            c.config.Addrs[0],
			Username:        c.config.Username,
			Password:        c.config.Password,
			DB:              c.config.DB,
			MaxRetries:      c.config.MaxRetries,
			MinRetryBackoff: c.config.MinRetryBackoff,
			MaxRetryBackoff: c.config.MaxRetryBackoff,
			DialTimeout:     c.config.ConnectTimeout,
			ReadTimeout:     c.config.ConnectTimeout,
			WriteTimeout:    c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			MinIdleConns:    c.config.MinIdleConns,
			MaxIdleConns:    c.config.MaxIdleConns,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			PoolTimeout:     c.config.PoolTimeout,
		})
	case Cluster:
		c.cmdable = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           c.config.Addrs,
			Username:        c.config.Username,
			Password:        c.config.Password,
			MaxRetries:      c.config.MaxRetries,
			MinRetryBackoff: c.config.MinRetryBackoff,
			MaxRetryBackoff: c.config.MaxRetryBackoff,
			DialTimeout:     c.config.ConnectTimeout,
			ReadTimeout:     c.config.ConnectTimeout,
			WriteTimeout:    c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			MinIdleConns:    c.config.MinIdleConns,
			MaxIdleConns:    c.config.MaxIdleConns,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			PoolTimeout:     c.config.PoolTimeout,
		})
	default:
		return errors.NewTracer(string(errors.RedisConfigError)).
			Wrap(fmt.Errorf("unsupported redis mode %q", c.config.Mode))
	}

	return c.cmdable.Ping(ctx).Err()
}

// Disconnect closes the underlying connection pool.
func (c *client) Disconnect(ctx context.Context) error {
	switch conn := c.cmdable.(type) {
	case *redis.Client:
		return conn.Close()
	case *redis.ClusterClient:
		return conn.Close()
	default:
		return errors.NewTracer(string(errors.RedisDisconnectionError)).
			Wrap(fmt.Errorf("client is not connected"))
	}
}

func (c *client) Ping(ctx context.Context) error {
	if err := c.cmdable.Ping(ctx).Err(); err != nil {
		return errors.NewTracer(string(errors.RedisPingError)).Wrap(err)
	}
	return nil
}

// Get returns the value at key, or an empty string when the key is missing.
func (c *client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.cmdable.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.NewTracer(string(errors.RedisGetError)).Wrap(err)
	}
	return val, nil
}

func (c *client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := c.cmdable.Set(ctx, key, value, expiration).Err(); err != nil {
		return errors.NewTracer(string(errors.RedisSetError)).Wrap(err)
	}
	return nil
}

func (c *client) Del(ctx context.Context, keys ...string) (int64, error) {
	deleted, err := c.cmdable.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.NewTracer(string(errors.RedisDelError)).Wrap(err)
	}
	return deleted, nil
}

func (c *client) ZAdd(ctx context.Context, key string, members ...redis.Z) (int64, error) {
	added, err := c.cmdable.ZAdd(ctx, key, members...).Result()
	if err != nil {
		return 0, errors.NewTracer(string(errors.RedisZAddError)).Wrap(err)
	}
	return added, nil
}

func (c *client) ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) ([]string, error) {
	values, err := c.cmdable.ZRangeByScore(ctx, key, opt).Result()
	if err != nil {
		return nil, errors.NewTracer(string(errors.RedisZRangeError)).Wrap(err)
	}
	return values, nil
}

func (c *client) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error) {
	removed, err := c.cmdable.ZRemRangeByRank(ctx, key, start, stop).Result()
	if err != nil {
		return 0, errors.NewTracer(string(errors.RedisDelError)).Wrap(err)
	}
	return removed, nil
}
