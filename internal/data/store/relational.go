package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/agroyield-backend/internal/data/repos/cropyield"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/dbctx"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

// relationalColumns maps change-set fields to crop_yield_records columns.
var relationalColumns = map[string]string{
	crops.FieldYear: "crop_year",
}

type RelationalStore struct {
	name    string
	db      *gorm.DB
	log     *logger.Logger
	dims    cropyield.DimensionRepo
	records cropyield.RecordRepo
	audit   cropyield.AuditLogRepo
}

// NewRelationalStore serves the relational flavor from db. name is the
// backend name used in routes, normally BackendPostgres.
func NewRelationalStore(name string, db *gorm.DB, baseLog *logger.Logger) *RelationalStore {
	log := baseLog.With("store", name)
	return &RelationalStore{
		name:    name,
		db:      db,
		log:     log,
		dims:    cropyield.NewDimensionRepo(db, log),
		records: cropyield.NewRecordRepo(db, log),
		audit:   cropyield.NewAuditLogRepo(db, log),
	}
}

func (s *RelationalStore) Name() string         { return s.name }
func (s *RelationalStore) Flavor() crops.Flavor { return crops.FlavorRelational }

func (s *RelationalStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &relationalTx{store: s, tx: tx})
	})
}

func (s *RelationalStore) Get(ctx context.Context, id string) (*crops.RecordView, error) {
	uid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	row, err := s.records.GetView(dbctx.Context{Ctx: ctx}, uid)
	if err != nil || row == nil {
		return nil, err
	}
	v := viewFromRow(row)
	return &v, nil
}

func (s *RelationalStore) Latest(ctx context.Context) (*crops.RecordView, error) {
	row, err := s.records.LatestView(dbctx.Context{Ctx: ctx})
	if err != nil || row == nil {
		return nil, err
	}
	v := viewFromRow(row)
	return &v, nil
}

func (s *RelationalStore) List(ctx context.Context, f crops.RecordFilter) ([]crops.RecordView, error) {
	rows, err := s.records.ListViews(dbctx.Context{Ctx: ctx}, f)
	if err != nil {
		return nil, err
	}
	out := make([]crops.RecordView, 0, len(rows))
	for _, row := range rows {
		out = append(out, viewFromRow(row))
	}
	return out, nil
}

func (s *RelationalStore) Verify(ctx context.Context) (*crops.VerifyReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	rep := crops.NewVerifyReport(s.name)
	for _, kind := range crops.DimensionKinds {
		n, err := s.dims.Count(dbc, kind)
		if err != nil {
			return nil, err
		}
		rep.Counts[kind.Collection()] = n
		dangling, err := s.records.CountDangling(dbc, kind)
		if err != nil {
			return nil, err
		}
		rep.Dangling[kind.IDField()] = dangling
	}
	n, err := s.records.Count(dbc)
	if err != nil {
		return nil, err
	}
	rep.Counts[crops.RecordCollection] = n
	if n, err = s.audit.Count(dbc); err != nil {
		return nil, err
	}
	rep.Counts[crops.AuditCollection] = n

	dups, err := s.records.DuplicateKeys(dbc)
	if err != nil {
		return nil, err
	}
	for _, d := range dups {
		rep.DuplicateKeys = append(rep.DuplicateKeys, crops.DuplicateKey{
			StateID:  d.StateID.String(),
			CropID:   d.CropID.String(),
			SeasonID: d.SeasonID.String(),
			Year:     d.CropYear,
			Count:    d.N,
		})
	}
	return rep, nil
}

func (s *RelationalStore) AuditTrail(ctx context.Context, recordID string) ([]crops.AuditEntry, error) {
	rows, err := s.audit.ListByRecord(dbctx.Context{Ctx: ctx}, recordID)
	if err != nil {
		return nil, err
	}
	out := make([]crops.AuditEntry, 0, len(rows))
	for _, row := range rows {
		var changes map[string]any
		if len(row.Changes) > 0 {
			if err := json.Unmarshal(row.Changes, &changes); err != nil {
				return nil, fmt.Errorf("decode audit changes: %w", err)
			}
		}
		out = append(out, crops.AuditEntry{
			ID:         row.AuditID.String(),
			Operation:  crops.AuditOperation(row.Operation),
			Collection: row.Target,
			TargetID:   row.RecordID,
			Changes:    changes,
			Timestamp:  row.ChangedAt.UTC(),
		})
	}
	return out, nil
}

func (s *RelationalStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type relationalTx struct {
	store *RelationalStore
	tx    *gorm.DB
}

func (t *relationalTx) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: t.tx}
}

func (t *relationalTx) ResolveDimension(ctx context.Context, kind crops.DimensionKind, name string, policy crops.ResolvePolicy) (string, bool, error) {
	dbc := t.dbc(ctx)
	id, err := t.store.dims.GetIDByName(dbc, kind, name)
	if err != nil {
		return "", false, err
	}
	if id != uuid.Nil {
		return id.String(), false, nil
	}
	if policy == crops.ResolveRequire {
		return "", false, &DimensionNotFoundError{Kind: kind, Name: name}
	}
	created, err := t.store.dims.InsertIfAbsent(dbc, kind, name)
	if err != nil {
		return "", false, err
	}
	if id, err = t.store.dims.GetIDByName(dbc, kind, name); err != nil {
		return "", false, err
	}
	if id == uuid.Nil {
		return "", false, fmt.Errorf("%s %q vanished after insert", kind, name)
	}
	return id.String(), created, nil
}

func (t *relationalTx) GetRecord(ctx context.Context, id string) (*crops.Record, error) {
	uid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	row, err := t.store.records.GetByID(t.dbc(ctx), uid)
	if err != nil || row == nil {
		return nil, err
	}
	rec := recordFromRow(row)
	return &rec, nil
}

func (t *relationalTx) FindByKey(ctx context.Context, key crops.NaturalKey, excludeID string) (*crops.Record, error) {
	ids, err := parseUUIDs(key.StateID, key.CropID, key.SeasonID)
	if err != nil {
		return nil, err
	}
	exclude := uuid.Nil
	if excludeID != "" {
		if exclude, err = parseUUID(excludeID); err != nil {
			return nil, err
		}
	}
	row, err := t.store.records.FindByKey(t.dbc(ctx), ids[0], ids[1], ids[2], key.Year, exclude)
	if err != nil || row == nil {
		return nil, err
	}
	rec := recordFromRow(row)
	return &rec, nil
}

func (t *relationalTx) InsertRecord(ctx context.Context, rec *crops.Record) error {
	ids, err := parseUUIDs(rec.StateID, rec.CropID, rec.SeasonID)
	if err != nil {
		return err
	}
	row := &crops.CropYieldRecord{
		StateID:        ids[0],
		CropID:         ids[1],
		SeasonID:       ids[2],
		CropYear:       rec.Year,
		Area:           rec.Area,
		Production:     rec.Production,
		AnnualRainfall: rec.AnnualRainfall,
		Fertilizer:     rec.Fertilizer,
		Pesticide:      rec.Pesticide,
		Yield:          rec.Yield,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.ID != "" {
		if row.RecordID, err = parseUUID(rec.ID); err != nil {
			return err
		}
	}
	if err := t.store.records.Create(t.dbc(ctx), row); err != nil {
		return err
	}
	rec.ID = row.RecordID.String()
	rec.CreatedAt = row.CreatedAt
	return nil
}

func (t *relationalTx) UpdateRecord(ctx context.Context, id string, changes crops.Changes) error {
	uid, err := parseUUID(id)
	if err != nil {
		return err
	}
	updates := make(map[string]any, len(changes))
	for field, val := range changes {
		col := field
		if mapped, ok := relationalColumns[field]; ok {
			col = mapped
		}
		switch field {
		case crops.FieldStateID, crops.FieldCropID, crops.FieldSeasonID:
			ref, err := parseUUID(val.(string))
			if err != nil {
				return err
			}
			updates[col] = ref
		default:
			updates[col] = val
		}
	}
	n, err := t.store.records.UpdateFields(t.dbc(ctx), uid, updates)
	if err != nil {
		return err
	}
	if n == 0 && len(updates) > 0 {
		return fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
	}
	return nil
}

func (t *relationalTx) DeleteRecord(ctx context.Context, id string) (bool, error) {
	uid, err := parseUUID(id)
	if err != nil {
		return false, err
	}
	n, err := t.store.records.DeleteByID(t.dbc(ctx), uid)
	return n > 0, err
}

func (t *relationalTx) AppendAudit(ctx context.Context, entry crops.AuditEntry) error {
	payload, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("encode audit changes: %w", err)
	}
	return t.store.audit.Create(t.dbc(ctx), &crops.AuditLog{
		AuditID:   uuid.New(),
		Operation: string(entry.Operation),
		Target:    entry.Collection,
		RecordID:  entry.TargetID,
		Changes:   datatypes.JSON(payload),
		ChangedAt: entry.Timestamp,
	})
}

func (t *relationalTx) View(ctx context.Context, id string) (*crops.RecordView, error) {
	uid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	row, err := t.store.records.GetView(t.dbc(ctx), uid)
	if err != nil || row == nil {
		return nil, err
	}
	v := viewFromRow(row)
	return &v, nil
}

func parseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrMalformedID, raw)
	}
	return id, nil
}

func parseUUIDs(raw ...string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := parseUUID(r)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func recordFromRow(row *crops.CropYieldRecord) crops.Record {
	return crops.Record{
		ID:       row.RecordID.String(),
		StateID:  row.StateID.String(),
		CropID:   row.CropID.String(),
		SeasonID: row.SeasonID.String(),
		Year:     row.CropYear,
		Measurements: crops.Measurements{
			Area:           row.Area,
			Production:     row.Production,
			AnnualRainfall: row.AnnualRainfall,
			Fertilizer:     row.Fertilizer,
			Pesticide:      row.Pesticide,
			Yield:          row.Yield,
		},
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func viewFromRow(row *cropyield.RecordViewRow) crops.RecordView {
	return crops.RecordView{
		Record: crops.Record{
			ID:       row.RecordID.String(),
			StateID:  row.StateID.String(),
			CropID:   row.CropID.String(),
			SeasonID: row.SeasonID.String(),
			Year:     row.CropYear,
			Measurements: crops.Measurements{
				Area:           row.Area,
				Production:     row.Production,
				AnnualRainfall: row.AnnualRainfall,
				Fertilizer:     row.Fertilizer,
				Pesticide:      row.Pesticide,
				Yield:          row.Yield,
			},
			CreatedAt: row.CreatedAt.UTC(),
		},
		StateName:  row.StateName,
		CropName:   row.CropName,
		SeasonName: row.SeasonName,
	}
}
