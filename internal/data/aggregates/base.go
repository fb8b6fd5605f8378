package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/agroyield-backend/internal/data/store"
	domainagg "github.com/yungbote/agroyield-backend/internal/domain/aggregates"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

type BaseDeps struct {
	Store  store.Store
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	Now    func() time.Time
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewStoreTxRunner(d.Store)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

func (d BaseDeps) flavor() crops.Flavor {
	if d.Store == nil {
		return crops.FlavorRelational
	}
	return d.Store.Flavor()
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(ctx context.Context, tx store.Tx) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)
	observe(deps, op, mapped, time.Since(start))
	return mapped
}

// rejectWrite reports a write refused before any storage access.
func rejectWrite(deps BaseDeps, op string, err error) error {
	deps = deps.withDefaults()
	mapped := MapError(op, err)
	observe(deps, op, mapped, 0)
	return mapped
}

func observe(deps BaseDeps, op string, mapped error, dur time.Duration) {
	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		switch domainagg.CodeOf(mapped) {
		case domainagg.CodeConflict:
			deps.Hooks.IncConflict(op)
		case domainagg.CodeStorageUnavailable:
			deps.Hooks.IncStorageUnavailable(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, dur)
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
