package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/agroyield-backend/internal/app"
	"github.com/yungbote/agroyield-backend/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init app: %v\n", err)
		os.Exit(1)
	}

	a.Log.Info("server listening", "addr", a.Cfg.Addr(), "backends", a.Registry.Backends())
	runErr := a.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Close(closeCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "server: %v\n", runErr)
		os.Exit(1)
	}
}
