package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	clientsredis "github.com/yungbote/agroyield-backend/internal/clients/redis"
	apphttp "github.com/yungbote/agroyield-backend/internal/http"
	"github.com/yungbote/agroyield-backend/internal/observability"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
	"github.com/yungbote/agroyield-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Metrics  *observability.Metrics
	Registry *services.Registry
	Server   *apphttp.Server

	cache   *clientsredis.DimensionCache
	closers []Closer
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg, Registry: services.NewRegistry()}
	a.closers = append(a.closers, observability.InitOTel(ctx, log, cfg.OtelConfig()))

	if cfg.MetricsEnabled {
		a.Metrics = observability.Init(log)
	}
	a.cache = OpenDimensionCache(ctx, log, cfg, a.Metrics)
	if a.cache != nil {
		a.closers = append(a.closers, func(context.Context) error { return a.cache.Close() })
	}

	deps := BackendDeps{Log: log, Cfg: cfg, Metrics: a.Metrics, Cache: a.cache}
	for _, backend := range cfg.Backends {
		svc, closer, err := NewBackendService(ctx, deps, backend)
		if err != nil {
			a.Close(context.Background())
			return nil, err
		}
		a.closers = append(a.closers, closer)
		if err := a.Registry.Register(svc); err != nil {
			a.Close(context.Background())
			return nil, err
		}
		log.Info("backend ready", "backend", backend, "flavor", svc.Flavor())
	}

	a.Server = apphttp.NewServer(apphttp.RouterConfig{
		Log:         log,
		Registry:    a.Registry,
		Metrics:     a.Metrics,
		CORSOrigins: cfg.CORSOrigins,
		ServiceName: cfg.Otel.ServiceName,
	}, cfg.Addr())
	return a, nil
}

// Run serves HTTP and background collectors until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	if a.cache != nil {
		a.Metrics.StartRedisCollector(gctx, a.Log, a.cache.Client(), 0)
	}
	g.Go(func() error {
		return a.Server.Run(gctx, a.Cfg.ShutdownTimeout)
	})
	return g.Wait()
}

// Close releases storage handles in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	a.Log.Sync()
}
