package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/agroyield-backend/internal/data/aggregates"
	"github.com/yungbote/agroyield-backend/internal/data/store"
)

// InjectedTxRunner wraps a store's transactions with failure injection.
// FailCommit is returned from inside the store transaction after the body
// succeeds, so the store rolls the body's writes back.
type InjectedTxRunner struct {
	Store store.Store

	mu sync.Mutex

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	err := r.Store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if failBeforeBody != nil {
			return failBeforeBody
		}
		if fn != nil {
			if err := fn(ctx, tx); err != nil {
				return err
			}
		}
		return failCommit
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		return err
	}
	r.CommitCalls++
	return nil
}
