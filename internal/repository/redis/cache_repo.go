package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/food-rating/internal/cfg"
	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/internal/repository/redis/converter"
	"github.com/DRSN-tech/food-rating/pkg/clients"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ComparisonConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ComparisonConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetComparison возвращает закэшированное сравнение или (nil, nil) при промахе.
// Повреждённые записи удаляются и считаются промахом.
func (c *CacheRepo) GetComparison(ctx context.Context, fingerprint string) (*domain.Comparison, error) {
	key := comparisonKey(fingerprint)

	val, err := c.client.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, nil // cache miss
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.ComparisonRedisModel
	if err := json.Unmarshal(val, &model); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		c.evict(ctx, key)
		return nil, nil
	}

	if model.Fingerprint != fingerprint {
		c.logger.Warnf("Cache fingerprint mismatch: key=%s, model=%s", fingerprint, model.Fingerprint)
		c.evict(ctx, key)
		return nil, nil
	}

	comparison, err := c.conv.ToDomain(&model)
	if err != nil {
		c.logger.Warnf("Invalid cached comparison: %v", e.Wrap(whereami.WhereAmI(), err))
		c.evict(ctx, key)
		return nil, nil
	}

	return comparison, nil
}

// SetComparison кэширует сравнение с TTL из конфигурации.
func (c *CacheRepo) SetComparison(ctx context.Context, comparison *domain.Comparison) error {
	data, err := json.Marshal(c.conv.ToRedisModel(comparison))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, comparisonKey(comparison.Fingerprint), data, c.cfg.ComparisonTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *CacheRepo) evict(ctx context.Context, key string) {
	if err := c.client.Client.Del(ctx, key).Err(); err != nil {
		c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// comparisonKey возвращает Redis-ключ для отпечатка входных данных.
func comparisonKey(fingerprint string) string {
	return fmt.Sprintf("comparison:%s", fingerprint)
}
