package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-svc/config"
	"marketplace-svc/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	productTTL = 5 * time.Minute
	eventTTL   = 72 * time.Hour
)

func InitRedis(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", cfg.Addr()))
	return rdb, nil
}

// Cache is a best-effort layer over Redis. Every method tolerates a nil
// receiver and Redis being down; the database stays authoritative.
type Cache struct {
	rdb    redis.Cmdable
	logger *zap.Logger
}

func New(rdb redis.Cmdable, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

func productKey(id string) string { return fmt.Sprintf("product:%s", id) }

func eventKey(id string) string { return fmt.Sprintf("webhook_event:%s", id) }

func (c *Cache) GetProduct(ctx context.Context, id string) (models.Product, bool) {
	if c == nil {
		return models.Product{}, false
	}
	data, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		c.logMiss("product", id, err)
		return models.Product{}, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("Discarding corrupt cached product", zap.String("product_id", id), zap.Error(err))
		return models.Product{}, false
	}
	return p, true
}

func (c *Cache) SetProduct(ctx context.Context, p models.Product) {
	if c == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, productKey(p.ID), data, productTTL).Err(); err != nil {
		c.logger.Warn("Failed to cache product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (c *Cache) DeleteProduct(ctx context.Context, id string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, productKey(id)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate cached product", zap.String("product_id", id), zap.Error(err))
	}
}

// EventSeen reports whether a webhook event id was already processed
// successfully. A Redis failure reads as "not seen".
func (c *Cache) EventSeen(ctx context.Context, eventID string) bool {
	if c == nil || eventID == "" {
		return false
	}
	n, err := c.rdb.Exists(ctx, eventKey(eventID)).Result()
	if err != nil {
		c.logMiss("event", eventID, err)
		return false
	}
	return n > 0
}

func (c *Cache) MarkEventSeen(ctx context.Context, eventID string) {
	if c == nil || eventID == "" {
		return
	}
	if err := c.rdb.Set(ctx, eventKey(eventID), 1, eventTTL).Err(); err != nil {
		c.logger.Warn("Failed to record webhook event", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (c *Cache) logMiss(kind, id string, err error) {
	if errors.Is(err, redis.Nil) {
		return
	}
	c.logger.Warn("Cache lookup failed", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
}
