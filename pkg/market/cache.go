package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/shoshosho1210/coinrader/pkg/observability"
	"github.com/shoshosho1210/coinrader/pkg/storage"
)

// Source is the market data surface the snapshot builder consumes. Client
// implements it against the live API; Cache wraps any Source with a
// two-level cache.
type Source interface {
	Trending(ctx context.Context) ([]TrendingCoin, error)
	Markets(ctx context.Context) ([]Market, error)
	BTCDominance(ctx context.Context) (float64, error)
	BTCDailyCloses(ctx context.Context, days int) ([]float64, error)
}

// Cache layers an in-process expirable LRU over Redis in front of a
// Source. The poster runs on a schedule, so the cache mostly shields the
// upstream API from backfill reruns and from replicas racing the same
// minute; a cache failure falls through to the source.
type Cache struct {
	source  Source
	redis   *storage.RedisClient
	local   *lru.LRU[string, []byte]
	config  storage.Config
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewCache wraps source with caching. redis may be nil to run L1-only.
func NewCache(source Source, redis *storage.RedisClient, config storage.Config, logger *observability.Logger, metrics *observability.Metrics) *Cache {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	maxEntries := config.CacheMaxEntries
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &Cache{
		source:  source,
		redis:   redis,
		local:   lru.NewLRU[string, []byte](maxEntries, nil, config.TTLFor("markets")),
		config:  config,
		logger:  logger.WithField("component", "market_cache"),
		metrics: metrics,
	}
}

// Trending implements Source.
func (c *Cache) Trending(ctx context.Context) ([]TrendingCoin, error) {
	var coins []TrendingCoin
	err := c.through(ctx, "trending", "market:trending", &coins, func(ctx context.Context) (interface{}, error) {
		return c.source.Trending(ctx)
	})
	return coins, err
}

// Markets implements Source.
func (c *Cache) Markets(ctx context.Context) ([]Market, error) {
	var markets []Market
	err := c.through(ctx, "markets", "market:markets", &markets, func(ctx context.Context) (interface{}, error) {
		return c.source.Markets(ctx)
	})
	return markets, err
}

// BTCDominance implements Source.
func (c *Cache) BTCDominance(ctx context.Context) (float64, error) {
	var dom float64
	err := c.through(ctx, "global", "market:btc_dominance", &dom, func(ctx context.Context) (interface{}, error) {
		return c.source.BTCDominance(ctx)
	})
	return dom, err
}

// BTCDailyCloses implements Source.
func (c *Cache) BTCDailyCloses(ctx context.Context, days int) ([]float64, error) {
	var closes []float64
	key := fmt.Sprintf("market:btc_closes:%d", days)
	err := c.through(ctx, "btc_chart", key, &closes, func(ctx context.Context) (interface{}, error) {
		return c.source.BTCDailyCloses(ctx, days)
	})
	return closes, err
}

// through resolves one lookup: L1, then Redis, then the source, writing
// back on the way out. kind selects the TTL and labels the metrics.
func (c *Cache) through(ctx context.Context, kind, key string, dest interface{}, fetch func(context.Context) (interface{}, error)) error {
	if data, ok := c.local.Get(key); ok {
		if err := json.Unmarshal(data, dest); err == nil {
			c.recordHit("market_l1")
			return nil
		}
		c.local.Remove(key)
	}
	c.recordMiss("market_l1")

	if c.redis != nil {
		found, err := c.redis.GetJSON(ctx, key, dest)
		if err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Redis cache read failed")
		} else if found {
			c.recordHit("market_l2")
			if data, err := json.Marshal(dest); err == nil {
				c.local.Add(key, data)
			}
			return nil
		}
		c.recordMiss("market_l2")
	}

	value, err := fetch(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s for cache: %w", kind, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", kind, err)
	}

	c.local.Add(key, data)
	if c.redis != nil {
		if err := c.redis.SetJSON(ctx, key, value, c.ttlFor(kind)); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Redis cache write failed")
		}
	}
	return nil
}

func (c *Cache) ttlFor(kind string) time.Duration {
	return c.config.TTLFor(kind)
}

func (c *Cache) recordHit(cacheType string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(cacheType).Inc()
	}
}

func (c *Cache) recordMiss(cacheType string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}
