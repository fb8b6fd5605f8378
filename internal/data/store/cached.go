package store

import (
	"context"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

// DimensionCache maps dimension names to ids. Implementations may be lossy;
// a miss or an error falls through to the store.
type DimensionCache interface {
	Get(ctx context.Context, backend string, kind crops.DimensionKind, name string) (string, bool, error)
	Set(ctx context.Context, backend string, kind crops.DimensionKind, name, id string) error
}

type cachedStore struct {
	Store
	cache DimensionCache
	log   *logger.Logger
}

// WithDimensionCache puts cache in front of the store's lookup resolver.
// Only ids of rows that existed before the current transaction are cached,
// so a rolled-back insert never leaks into the cache.
func WithDimensionCache(s Store, cache DimensionCache, baseLog *logger.Logger) Store {
	if cache == nil {
		return s
	}
	return &cachedStore{Store: s, cache: cache, log: baseLog.With("store", s.Name(), "component", "DimensionCache")}
}

func (s *cachedStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.Store.InTx(ctx, func(txCtx context.Context, tx Tx) error {
		return fn(txCtx, &cachedTx{Tx: tx, store: s})
	})
}

type cachedTx struct {
	Tx
	store *cachedStore
}

func (t *cachedTx) ResolveDimension(ctx context.Context, kind crops.DimensionKind, name string, policy crops.ResolvePolicy) (string, bool, error) {
	backend := t.store.Name()
	id, ok, err := t.store.cache.Get(ctx, backend, kind, name)
	if err != nil {
		t.store.log.Warn("dimension cache read failed", "kind", kind, "error", err)
	} else if ok {
		return id, false, nil
	}
	id, created, err := t.Tx.ResolveDimension(ctx, kind, name, policy)
	if err != nil {
		return "", false, err
	}
	if !created {
		if err := t.store.cache.Set(ctx, backend, kind, name, id); err != nil {
			t.store.log.Warn("dimension cache write failed", "kind", kind, "error", err)
		}
	}
	return id, created, nil
}
