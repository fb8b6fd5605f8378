package services

import (
	"context"

	"github.com/yungbote/agroyield-backend/internal/data/aggregates"
	"github.com/yungbote/agroyield-backend/internal/data/store"
	domainagg "github.com/yungbote/agroyield-backend/internal/domain/aggregates"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/observability"
	"github.com/yungbote/agroyield-backend/internal/platform/ctxutil"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

// RecordService is the per-backend entry point used by handlers and the CLI.
// Every returned error is an *aggregates.Error.
type RecordService interface {
	Backend() string
	Flavor() crops.Flavor

	Create(ctx context.Context, in crops.CreateInput) (*crops.RecordView, error)
	Get(ctx context.Context, id string) (*crops.RecordView, error)
	Latest(ctx context.Context) (*crops.RecordView, error)
	List(ctx context.Context, f crops.RecordFilter) ([]crops.RecordView, error)
	Update(ctx context.Context, id string, in crops.UpdateInput) (*crops.RecordView, error)
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, in crops.CreateInput) (domainagg.UpsertResult, error)
	Verify(ctx context.Context) (*crops.VerifyReport, error)
	Ping(ctx context.Context) error
}

type recordService struct {
	log   *logger.Logger
	store store.Store
	agg   domainagg.RecordAggregate
}

func NewRecordService(log *logger.Logger, s store.Store, agg domainagg.RecordAggregate) RecordService {
	return &recordService{
		log:   log.With("service", "RecordService", "backend", s.Name()),
		store: s,
		agg:   agg,
	}
}

func (rs *recordService) Backend() string      { return rs.store.Name() }
func (rs *recordService) Flavor() crops.Flavor { return rs.store.Flavor() }

func (rs *recordService) Create(ctx context.Context, in crops.CreateInput) (*crops.RecordView, error) {
	ctx, span := observability.StartSpan(ctx, "record.create", "backend", rs.Backend())
	defer span.End()
	view, err := rs.agg.Create(ctx, in)
	if err != nil {
		rs.logFailure(ctx, "create", err)
		return nil, err
	}
	return view, nil
}

func (rs *recordService) Get(ctx context.Context, id string) (*crops.RecordView, error) {
	const op = "record.get"
	ctx, span := observability.StartSpan(ctx, op, "backend", rs.Backend())
	defer span.End()
	view, err := rs.store.Get(ctx, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if view == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "Record not found", nil)
	}
	return view, nil
}

func (rs *recordService) Latest(ctx context.Context) (*crops.RecordView, error) {
	const op = "record.latest"
	ctx, span := observability.StartSpan(ctx, op, "backend", rs.Backend())
	defer span.End()
	view, err := rs.store.Latest(ctx)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if view == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "No records found", nil)
	}
	return view, nil
}

func (rs *recordService) List(ctx context.Context, f crops.RecordFilter) ([]crops.RecordView, error) {
	const op = "record.list"
	if err := crops.ValidateFilter(&f); err != nil {
		return nil, aggregates.MapError(op, err)
	}
	ctx, span := observability.StartSpan(ctx, op, "backend", rs.Backend())
	defer span.End()
	views, err := rs.store.List(ctx, f)
	if err != nil {
		rs.logFailure(ctx, "list", err)
		return nil, aggregates.MapError(op, err)
	}
	if views == nil {
		views = []crops.RecordView{}
	}
	return views, nil
}

func (rs *recordService) Update(ctx context.Context, id string, in crops.UpdateInput) (*crops.RecordView, error) {
	ctx, span := observability.StartSpan(ctx, "record.update", "backend", rs.Backend(), "record_id", id)
	defer span.End()
	view, err := rs.agg.Update(ctx, id, in)
	if err != nil {
		rs.logFailure(ctx, "update", err)
		return nil, err
	}
	return view, nil
}

func (rs *recordService) Delete(ctx context.Context, id string) error {
	ctx, span := observability.StartSpan(ctx, "record.delete", "backend", rs.Backend(), "record_id", id)
	defer span.End()
	if err := rs.agg.Delete(ctx, id); err != nil {
		rs.logFailure(ctx, "delete", err)
		return err
	}
	return nil
}

func (rs *recordService) Upsert(ctx context.Context, in crops.CreateInput) (domainagg.UpsertResult, error) {
	return rs.agg.Upsert(ctx, in)
}

func (rs *recordService) Verify(ctx context.Context) (*crops.VerifyReport, error) {
	const op = "record.verify"
	rep, err := rs.store.Verify(ctx)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return rep, nil
}

func (rs *recordService) Ping(ctx context.Context) error {
	if err := rs.store.Ping(ctx); err != nil {
		return aggregates.MapError("store.ping", err)
	}
	return nil
}

// logFailure logs server-side failures; client errors are left to the
// request log.
func (rs *recordService) logFailure(ctx context.Context, op string, err error) {
	switch domainagg.CodeOf(err) {
	case domainagg.CodeStorageUnavailable, domainagg.CodeInternal:
		kv := append([]interface{}{"op", op, "error", err}, ctxutil.LogFields(ctx)...)
		rs.log.Error("record operation failed", kv...)
	}
}
