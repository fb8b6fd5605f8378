package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/agroyield-backend/internal/data/store"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/observability"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

const keyPrefix = "agroyield:dim"

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// DimensionCache stores dimension name -> id mappings in Redis, one key per
// backend, kind and name.
type DimensionCache struct {
	log     *logger.Logger
	rdb     *goredis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

var _ store.DimensionCache = (*DimensionCache)(nil)

func NewDimensionCache(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (*DimensionCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewDimensionCacheFromClient(log, rdb, cfg.TTL, metrics), nil
}

// NewDimensionCacheFromClient wraps an existing client. ttl <= 0 keeps keys
// until evicted.
func NewDimensionCacheFromClient(log *logger.Logger, rdb *goredis.Client, ttl time.Duration, metrics *observability.Metrics) *DimensionCache {
	return &DimensionCache{
		log:     log.With("service", "RedisDimensionCache"),
		rdb:     rdb,
		ttl:     ttl,
		metrics: metrics,
	}
}

func Key(backend string, kind crops.DimensionKind, name string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, backend, kind, name)
}

func (c *DimensionCache) Get(ctx context.Context, backend string, kind crops.DimensionKind, name string) (string, bool, error) {
	if c == nil || c.rdb == nil {
		return "", false, fmt.Errorf("redis dimension cache not initialized")
	}
	id, err := c.rdb.Get(ctx, Key(backend, kind, name)).Result()
	if errors.Is(err, goredis.Nil) {
		c.metrics.ObserveDimensionCache(backend, string(kind), false)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	c.metrics.ObserveDimensionCache(backend, string(kind), true)
	return id, true, nil
}

func (c *DimensionCache) Set(ctx context.Context, backend string, kind crops.DimensionKind, name, id string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis dimension cache not initialized")
	}
	return c.rdb.Set(ctx, Key(backend, kind, name), id, c.ttl).Err()
}

// Client is the underlying connection, for health checks and collectors.
func (c *DimensionCache) Client() *goredis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

func (c *DimensionCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
