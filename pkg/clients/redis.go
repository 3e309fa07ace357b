package clients

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/food-rating/internal/cfg"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const redisClientName = "food-rating"

// RedisClient — подключение к кэшу результатов сравнения.
type RedisClient struct {
	Client *r.Client
	addr   string
}

func NewRedisClient(cfg *cfg.RedisCfg) (*RedisClient, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &RedisClient{
		Client: r.NewClient(opts),
		addr:   cfg.Addr,
	}, nil
}

// redisOptions учитывает дедлайны контекста: запись в кэш ограничена коротким таймаутом.
func redisOptions(cfg *cfg.RedisCfg) (*r.Options, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, fmt.Errorf("%w: REDIS_ADDR is empty", e.ErrIncorrectEnvVariable)
	}
	if cfg.DB < 0 {
		return nil, fmt.Errorf("%w: REDIS_DB_ID must be non-negative, got %d", e.ErrIncorrectEnvVariable, cfg.DB)
	}

	return &r.Options{
		Addr:                  cfg.Addr,
		ClientName:            redisClientName,
		Username:              cfg.User,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		MaxRetries:            cfg.MaxRetries,
		DialTimeout:           cfg.DialTimeout,
		ReadTimeout:           cfg.Timeout,
		WriteTimeout:          cfg.Timeout,
		ContextTimeoutEnabled: true,
	}, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("redis %s: %w", c.addr, err))
	}

	return nil
}

func (c *RedisClient) Close() error {
	return c.Client.Close()
}
