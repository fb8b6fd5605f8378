package aggregates

import (
	"context"
	"fmt"

	"github.com/yungbote/agroyield-backend/internal/data/store"
	domainagg "github.com/yungbote/agroyield-backend/internal/domain/aggregates"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
)

const (
	msgCreateConflict = "Record already exists for this state, crop, season, and year combination"
	msgUpdateConflict = "Update would create a duplicate record"
	msgNotFound       = "Record not found"
)

type RecordAggregateDeps struct {
	Base       BaseDeps
	YieldCheck crops.YieldCheckMode
}

type recordAggregate struct {
	deps       BaseDeps
	yieldCheck crops.YieldCheckMode
}

func NewRecordAggregate(deps RecordAggregateDeps) domainagg.RecordAggregate {
	base := deps.Base.withDefaults()
	base.Log = base.Log.With("aggregate", "RecordAggregate", "backend", storeName(base.Store))
	mode := deps.YieldCheck
	if mode == "" {
		mode = crops.YieldCheckOff
	}
	return &recordAggregate{deps: base, yieldCheck: mode}
}

func storeName(s store.Store) string {
	if s == nil {
		return ""
	}
	return s.Name()
}

func (a *recordAggregate) Create(ctx context.Context, in crops.CreateInput) (*crops.RecordView, error) {
	const op = "record.create"
	in = normalizeCreate(in)
	flavor := a.deps.flavor()
	if err := crops.ValidateCreate(in, flavor); err != nil {
		return nil, rejectWrite(a.deps, op, err)
	}
	if err := a.checkYield(op, in.Measurements); err != nil {
		return nil, rejectWrite(a.deps, op, err)
	}

	var view *crops.RecordView
	err := executeWrite(ctx, a.deps, op, func(ctx context.Context, tx store.Tx) error {
		key, err := resolveKey(ctx, tx, in, crops.ResolveCreate)
		if err != nil {
			return err
		}
		existing, err := tx.FindByKey(ctx, key, "")
		if err != nil {
			return err
		}
		if existing != nil {
			return ConflictError(msgCreateConflict)
		}
		rec := &crops.Record{
			StateID:      key.StateID,
			CropID:       key.CropID,
			SeasonID:     key.SeasonID,
			Year:         key.Year,
			Measurements: in.Measurements,
		}
		if err := tx.InsertRecord(ctx, rec); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, crops.NewAuditEntry(crops.AuditInsert, rec.ID, rec.Snapshot(), a.deps.Now())); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		view, err = tx.View(ctx, rec.ID)
		return err
	})
	if err != nil {
		return nil, withMessage(err, domainagg.CodeConflict, msgCreateConflict)
	}
	a.deps.Log.Debug("record created", "record_id", view.ID)
	return view, nil
}

func (a *recordAggregate) Update(ctx context.Context, id string, in crops.UpdateInput) (*crops.RecordView, error) {
	const op = "record.update"
	in = normalizeUpdate(in)
	if err := crops.ValidateUpdate(in); err != nil {
		return nil, rejectWrite(a.deps, op, err)
	}
	policy := a.deps.flavor().UpdateDimensionPolicy()

	var view *crops.RecordView
	err := executeWrite(ctx, a.deps, op, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return NotFoundError(msgNotFound)
		}

		next := *cur
		dims := []struct {
			kind crops.DimensionKind
			val  crops.Optional[string]
			dst  *string
		}{
			{crops.DimensionState, in.State, &next.StateID},
			{crops.DimensionCrop, in.Crop, &next.CropID},
			{crops.DimensionSeason, in.Season, &next.SeasonID},
		}
		for _, d := range dims {
			if !d.val.Set {
				continue
			}
			dimID, _, err := tx.ResolveDimension(ctx, d.kind, d.val.Value, policy)
			if err != nil {
				return err
			}
			*d.dst = dimID
		}
		if in.Year.Set {
			next.Year = in.Year.Value
		}
		applyMeasurements(&next.Measurements, in)
		if err := a.checkYield(op, next.Measurements); err != nil {
			return err
		}

		if next.Key() != cur.Key() {
			clash, err := tx.FindByKey(ctx, next.Key(), cur.ID)
			if err != nil {
				return err
			}
			if clash != nil {
				return ConflictError(msgUpdateConflict)
			}
		}

		changes := crops.Diff(*cur, next)
		if len(changes) > 0 {
			if err := tx.UpdateRecord(ctx, cur.ID, changes); err != nil {
				return err
			}
		}
		if err := tx.AppendAudit(ctx, crops.NewAuditEntry(crops.AuditUpdate, cur.ID, map[string]any(changes), a.deps.Now())); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		view, err = tx.View(ctx, cur.ID)
		return err
	})
	if err != nil {
		return nil, withMessage(err, domainagg.CodeConflict, msgUpdateConflict)
	}
	return view, nil
}

func (a *recordAggregate) Delete(ctx context.Context, id string) error {
	const op = "record.delete"
	return executeWrite(ctx, a.deps, op, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return NotFoundError(msgNotFound)
		}
		deleted, err := tx.DeleteRecord(ctx, cur.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return NotFoundError(msgNotFound)
		}
		if err := tx.AppendAudit(ctx, crops.NewAuditEntry(crops.AuditDelete, cur.ID, cur.Snapshot(), a.deps.Now())); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		return nil
	})
}

func (a *recordAggregate) Upsert(ctx context.Context, in crops.CreateInput) (domainagg.UpsertResult, error) {
	const op = "record.upsert"
	in = normalizeCreate(in)
	if err := crops.ValidateImport(in); err != nil {
		return domainagg.UpsertResult{}, rejectWrite(a.deps, op, err)
	}
	if err := a.checkYield(op, in.Measurements); err != nil {
		return domainagg.UpsertResult{}, rejectWrite(a.deps, op, err)
	}

	var res domainagg.UpsertResult
	err := executeWrite(ctx, a.deps, op, func(ctx context.Context, tx store.Tx) error {
		key, err := resolveKey(ctx, tx, in, crops.ResolveCreate)
		if err != nil {
			return err
		}
		existing, err := tx.FindByKey(ctx, key, "")
		if err != nil {
			return err
		}
		if existing == nil {
			rec := &crops.Record{
				StateID:      key.StateID,
				CropID:       key.CropID,
				SeasonID:     key.SeasonID,
				Year:         key.Year,
				Measurements: in.Measurements,
			}
			if err := tx.InsertRecord(ctx, rec); err != nil {
				return err
			}
			if err := tx.AppendAudit(ctx, crops.NewAuditEntry(crops.AuditInsert, rec.ID, rec.Snapshot(), a.deps.Now())); err != nil {
				return fmt.Errorf("append audit: %w", err)
			}
			res = domainagg.UpsertResult{RecordID: rec.ID, Outcome: domainagg.UpsertCreated}
			return nil
		}

		next := *existing
		next.Measurements = mergeMeasurements(existing.Measurements, in.Measurements)
		changes := crops.Diff(*existing, next)
		if len(changes) == 0 {
			res = domainagg.UpsertResult{RecordID: existing.ID, Outcome: domainagg.UpsertUnchanged}
			return nil
		}
		if err := tx.UpdateRecord(ctx, existing.ID, changes); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, crops.NewAuditEntry(crops.AuditUpdate, existing.ID, map[string]any(changes), a.deps.Now())); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		res = domainagg.UpsertResult{RecordID: existing.ID, Outcome: domainagg.UpsertUpdated}
		return nil
	})
	if err != nil {
		return domainagg.UpsertResult{}, withMessage(err, domainagg.CodeConflict, msgCreateConflict)
	}
	return res, nil
}

func (a *recordAggregate) checkYield(op string, m crops.Measurements) error {
	if a.yieldCheck == crops.YieldCheckOff {
		return nil
	}
	dev, ok := crops.YieldDeviation(m)
	if !ok || dev <= crops.YieldTolerance {
		return nil
	}
	if a.yieldCheck == crops.YieldCheckReject {
		return ValidationError(fmt.Sprintf("yield deviates from production/area by %.1f%%", dev*100))
	}
	a.deps.Log.Warn("yield inconsistent with production/area", "op", op, "deviation", dev)
	return nil
}

func resolveKey(ctx context.Context, tx store.Tx, in crops.CreateInput, policy crops.ResolvePolicy) (crops.NaturalKey, error) {
	key := crops.NaturalKey{Year: in.Year}
	dims := []struct {
		kind crops.DimensionKind
		name string
		dst  *string
	}{
		{crops.DimensionState, in.State, &key.StateID},
		{crops.DimensionCrop, in.Crop, &key.CropID},
		{crops.DimensionSeason, in.Season, &key.SeasonID},
	}
	for _, d := range dims {
		id, _, err := tx.ResolveDimension(ctx, d.kind, d.name, policy)
		if err != nil {
			return crops.NaturalKey{}, err
		}
		*d.dst = id
	}
	return key, nil
}

func normalizeCreate(in crops.CreateInput) crops.CreateInput {
	in.State = crops.NormalizeName(in.State)
	in.Crop = crops.NormalizeName(in.Crop)
	in.Season = crops.NormalizeName(in.Season)
	return in
}

func normalizeUpdate(in crops.UpdateInput) crops.UpdateInput {
	in.State.Value = crops.NormalizeName(in.State.Value)
	in.Crop.Value = crops.NormalizeName(in.Crop.Value)
	in.Season.Value = crops.NormalizeName(in.Season.Value)
	return in
}

func applyMeasurements(m *crops.Measurements, in crops.UpdateInput) {
	supplied := map[string]crops.Optional[float64]{
		crops.FieldArea:           in.Area,
		crops.FieldProduction:     in.Production,
		crops.FieldAnnualRainfall: in.AnnualRainfall,
		crops.FieldFertilizer:     in.Fertilizer,
		crops.FieldPesticide:      in.Pesticide,
		crops.FieldYield:          in.Yield,
	}
	fields := m.Fields()
	for name, o := range supplied {
		if o.Set {
			*fields[name] = o.Ptr()
		}
	}
}

// mergeMeasurements overlays the present values of in onto cur.
func mergeMeasurements(cur, in crops.Measurements) crops.Measurements {
	out := cur
	outF := out.Fields()
	for name, p := range in.Fields() {
		if *p != nil {
			v := **p
			*outF[name] = &v
		}
	}
	return out
}
