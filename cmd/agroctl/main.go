package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/agroyield-backend/internal/app"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
	"github.com/yungbote/agroyield-backend/internal/platform/shutdown"
	"github.com/yungbote/agroyield-backend/internal/services"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUnhealthy = 2
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agroctl",
		Short:         "Operate the crop yield backends: bulk import, verify, predict",
		SilenceUsage: true,
	}
	root.AddCommand(newImportCmd(), newVerifyCmd(), newPredictCmd())
	return root
}

// session is one opened backend service plus what it takes to release it.
type session struct {
	log     *logger.Logger
	service services.RecordService
	close   func()
}

func openSession(ctx context.Context, backend string) (*session, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cache := app.OpenDimensionCache(ctx, log, cfg, nil)
	svc, closer, err := app.NewBackendService(ctx, app.BackendDeps{Log: log, Cfg: cfg, Cache: cache}, backend)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}
	return &session{
		log:     log,
		service: svc,
		close: func() {
			if err := closer(context.Background()); err != nil {
				log.Warn("close backend failed", "backend", backend, "error", err)
			}
			if cache != nil {
				_ = cache.Close()
			}
			log.Sync()
		},
	}, nil
}
