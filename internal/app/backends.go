package app

import (
	"context"
	"fmt"

	clientsredis "github.com/yungbote/agroyield-backend/internal/clients/redis"
	"github.com/yungbote/agroyield-backend/internal/data/aggregates"
	"github.com/yungbote/agroyield-backend/internal/data/db"
	"github.com/yungbote/agroyield-backend/internal/data/store"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/observability"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
	"github.com/yungbote/agroyield-backend/internal/services"
)

type BackendBootstrapErrorCode string

const (
	BackendBootstrapErrorConnectFailed BackendBootstrapErrorCode = "connect_failed"
	BackendBootstrapErrorMigrateFailed BackendBootstrapErrorCode = "migrate_failed"
	BackendBootstrapErrorUnknown       BackendBootstrapErrorCode = "unknown_backend"
)

type BackendBootstrapError struct {
	Code    BackendBootstrapErrorCode
	Backend string
	Cause   error
}

func (e *BackendBootstrapError) Error() string {
	if e == nil {
		return "backend bootstrap failed"
	}
	return fmt.Sprintf("backend bootstrap failed (code=%s backend=%q): %v", e.Code, e.Backend, e.Cause)
}

func (e *BackendBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Closer releases a storage handle.
type Closer func(context.Context) error

// BackendDeps are the shared collaborators every backend service is built with.
type BackendDeps struct {
	Log     *logger.Logger
	Cfg     Config
	Metrics *observability.Metrics
	Cache   *clientsredis.DimensionCache
}

// OpenStore connects the named backend and prepares its schema.
func OpenStore(ctx context.Context, deps BackendDeps, backend string) (store.Store, Closer, error) {
	log, cfg := deps.Log, deps.Cfg
	switch backend {
	case store.BackendPostgres:
		pg, err := db.NewPostgresService(log, db.RelationalConfig{
			Driver:       cfg.Postgres.Driver,
			DSN:          cfg.PostgresDSN(),
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Postgres.MaxIdleConns,
		})
		if err != nil {
			return nil, nil, &BackendBootstrapError{Code: BackendBootstrapErrorConnectFailed, Backend: backend, Cause: err}
		}
		if err := db.AutoMigrateAll(pg.DB()); err != nil {
			_ = pg.Close()
			return nil, nil, &BackendBootstrapError{Code: BackendBootstrapErrorMigrateFailed, Backend: backend, Cause: err}
		}
		deps.Metrics.RegisterDBStats(log, backend, pg.DB())
		closer := func(context.Context) error { return pg.Close() }
		return store.NewRelationalStore(backend, pg.DB(), log), closer, nil

	case store.BackendMongo:
		mg, err := db.NewMongoService(ctx, log, db.MongoConfig{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, &BackendBootstrapError{Code: BackendBootstrapErrorConnectFailed, Backend: backend, Cause: err}
		}
		if err := db.EnsureMongoIndexes(ctx, mg.Database()); err != nil {
			_ = mg.Close(ctx)
			return nil, nil, &BackendBootstrapError{Code: BackendBootstrapErrorMigrateFailed, Backend: backend, Cause: err}
		}
		return store.NewDocumentStore(backend, mg.Client(), mg.Database(), log, cfg.Mongo.Transactions), mg.Close, nil

	case store.BackendMemory:
		return store.NewMemoryStore(backend, crops.Flavor(cfg.MemoryFlavor)), func(context.Context) error { return nil }, nil

	default:
		return nil, nil, &BackendBootstrapError{Code: BackendBootstrapErrorUnknown, Backend: backend, Cause: fmt.Errorf("no such backend")}
	}
}

// NewBackendService opens backend and wires its aggregate and service.
func NewBackendService(ctx context.Context, deps BackendDeps, backend string) (services.RecordService, Closer, error) {
	s, closer, err := OpenStore(ctx, deps, backend)
	if err != nil {
		return nil, nil, err
	}
	s = store.WithDimensionCache(s, dimensionCacheFor(backend, deps.Cache), deps.Log)
	agg := aggregates.NewRecordAggregate(aggregates.RecordAggregateDeps{
		Base: aggregates.BaseDeps{
			Store: s,
			Log:   deps.Log,
			Hooks: aggregates.NewObservabilityHooks(deps.Metrics),
		},
		YieldCheck: crops.ParseYieldCheckMode(deps.Cfg.YieldCheck),
	})
	return services.NewRecordService(deps.Log, s, agg), closer, nil
}

// dimensionCacheFor picks the cache placed in front of backend's dimension
// lookups. Memory ids are regenerated on every start, so the memory backend
// is never cached.
func dimensionCacheFor(backend string, cache *clientsredis.DimensionCache) store.DimensionCache {
	if cache == nil || backend == store.BackendMemory {
		return nil
	}
	return cache
}

// OpenDimensionCache connects Redis when REDIS_ADDR is set. A failed
// connection is logged and the service runs uncached.
func OpenDimensionCache(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) *clientsredis.DimensionCache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	cache, err := clientsredis.NewDimensionCache(ctx, log, clientsredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	}, metrics)
	if err != nil {
		log.Warn("dimension cache disabled", "error", err, "redis_url", "redis://"+cfg.Redis.Addr)
		return nil
	}
	return cache
}
