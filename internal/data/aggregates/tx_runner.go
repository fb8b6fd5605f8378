package aggregates

import (
	"context"

	"github.com/yungbote/agroyield-backend/internal/data/store"
	domainagg "github.com/yungbote/agroyield-backend/internal/domain/aggregates"
)

// TxRunner provides a shared transaction boundary primitive for aggregate writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error
}

type storeTxRunner struct {
	store store.Store
}

// NewStoreTxRunner returns a runner backed by the store's own transactions.
func NewStoreTxRunner(s store.Store) TxRunner {
	return &storeTxRunner{store: s}
}

func (r *storeTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.store == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil store", nil)
	}
	return r.store.InTx(ctx, fn)
}
