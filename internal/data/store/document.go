package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yungbote/agroyield-backend/internal/data/repos/documents"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

type DocumentStore struct {
	name    string
	client  *mongo.Client
	db      *mongo.Database
	log     *logger.Logger
	useTx   bool
	dims    documents.DimensionRepo
	records documents.RecordRepo
	audit   documents.AuditLogRepo
}

// NewDocumentStore serves the document flavor from db. With useTx the record
// write and its audit entry share a session transaction, which needs a
// replica set or mongos; without it they are applied in sequence.
func NewDocumentStore(name string, client *mongo.Client, db *mongo.Database, baseLog *logger.Logger, useTx bool) *DocumentStore {
	log := baseLog.With("store", name)
	return &DocumentStore{
		name:    name,
		client:  client,
		db:      db,
		log:     log,
		useTx:   useTx,
		dims:    documents.NewDimensionRepo(db, log),
		records: documents.NewRecordRepo(db, log),
		audit:   documents.NewAuditLogRepo(db, log),
	}
}

func (s *DocumentStore) Name() string         { return s.name }
func (s *DocumentStore) Flavor() crops.Flavor { return crops.FlavorDocument }

func (s *DocumentStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &documentTx{store: s}
	if !s.useTx {
		return fn(ctx, tx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, tx)
	})
	return err
}

func (s *DocumentStore) Get(ctx context.Context, id string) (*crops.RecordView, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.records.Get(ctx, oid)
	if err != nil || doc == nil {
		return nil, err
	}
	v := viewFromDoc(doc)
	return &v, nil
}

func (s *DocumentStore) Latest(ctx context.Context) (*crops.RecordView, error) {
	doc, err := s.records.Latest(ctx)
	if err != nil || doc == nil {
		return nil, err
	}
	v := viewFromDoc(doc)
	return &v, nil
}

func (s *DocumentStore) List(ctx context.Context, f crops.RecordFilter) ([]crops.RecordView, error) {
	q := documents.RecordQuery{Year: f.Year, Limit: f.Limit, Offset: f.Offset}
	var err error
	if f.State != "" {
		if q.StateIDs, err = s.matching(ctx, crops.DimensionState, f.State); err != nil {
			return nil, err
		}
	}
	if f.Crop != "" {
		if q.CropIDs, err = s.matching(ctx, crops.DimensionCrop, f.Crop); err != nil {
			return nil, err
		}
	}
	if f.Season != "" {
		if q.SeasonIDs, err = s.matching(ctx, crops.DimensionSeason, f.Season); err != nil {
			return nil, err
		}
	}
	docs, err := s.records.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]crops.RecordView, 0, len(docs))
	for _, d := range docs {
		out = append(out, viewFromDoc(d))
	}
	return out, nil
}

// matching never returns nil so an unmatched name filter selects nothing.
func (s *DocumentStore) matching(ctx context.Context, kind crops.DimensionKind, substr string) ([]string, error) {
	ids, err := s.dims.IDsMatching(ctx, kind, substr)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *DocumentStore) Verify(ctx context.Context) (*crops.VerifyReport, error) {
	rep := crops.NewVerifyReport(s.name)
	known := map[crops.DimensionKind]map[string]struct{}{}
	for _, kind := range crops.DimensionKinds {
		ids, err := s.dims.AllIDs(ctx, kind)
		if err != nil {
			return nil, err
		}
		known[kind] = ids
		rep.Counts[kind.Collection()] = int64(len(ids))
		rep.Dangling[kind.IDField()] = 0
	}
	n, err := s.records.Count(ctx)
	if err != nil {
		return nil, err
	}
	rep.Counts[crops.RecordCollection] = n
	if n, err = s.audit.Count(ctx); err != nil {
		return nil, err
	}
	rep.Counts[crops.AuditCollection] = n

	err = s.records.References(ctx, func(stateID, cropID, seasonID string) {
		refs := map[crops.DimensionKind]string{
			crops.DimensionState:  stateID,
			crops.DimensionCrop:   cropID,
			crops.DimensionSeason: seasonID,
		}
		for kind, id := range refs {
			if _, ok := known[kind][id]; !ok {
				rep.Dangling[kind.IDField()]++
			}
		}
	})
	if err != nil {
		return nil, err
	}

	dups, err := s.records.DuplicateKeys(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range dups {
		rep.DuplicateKeys = append(rep.DuplicateKeys, crops.DuplicateKey{
			StateID: d.StateID, CropID: d.CropID, SeasonID: d.SeasonID, Year: d.Year, Count: d.Count,
		})
	}
	return rep, nil
}

func (s *DocumentStore) AuditTrail(ctx context.Context, recordID string) ([]crops.AuditEntry, error) {
	docs, err := s.audit.ListByDocument(ctx, recordID)
	if err != nil {
		return nil, err
	}
	out := make([]crops.AuditEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, crops.AuditEntry{
			ID:         d.ID.Hex(),
			Operation:  crops.AuditOperation(d.Operation),
			Collection: d.Collection,
			TargetID:   d.DocumentID,
			Changes:    map[string]any(d.Changes),
			Timestamp:  d.Timestamp.UTC(),
		})
	}
	return out, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

type documentTx struct {
	store *DocumentStore
}

func (t *documentTx) ResolveDimension(ctx context.Context, kind crops.DimensionKind, name string, policy crops.ResolvePolicy) (string, bool, error) {
	if policy == crops.ResolveRequire {
		id, err := t.store.dims.GetIDByName(ctx, kind, name)
		if err != nil {
			return "", false, err
		}
		if id == "" {
			return "", false, &DimensionNotFoundError{Kind: kind, Name: name}
		}
		return id, false, nil
	}
	return t.store.dims.Upsert(ctx, kind, name)
}

func (t *documentTx) GetRecord(ctx context.Context, id string) (*crops.Record, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	doc, err := t.store.records.Get(ctx, oid)
	if err != nil || doc == nil {
		return nil, err
	}
	rec := recordFromDoc(doc)
	return &rec, nil
}

func (t *documentTx) FindByKey(ctx context.Context, key crops.NaturalKey, excludeID string) (*crops.Record, error) {
	exclude := primitive.NilObjectID
	if excludeID != "" {
		var err error
		if exclude, err = parseObjectID(excludeID); err != nil {
			return nil, err
		}
	}
	doc, err := t.store.records.FindByKey(ctx, key, exclude)
	if err != nil || doc == nil {
		return nil, err
	}
	rec := recordFromDoc(doc)
	return &rec, nil
}

func (t *documentTx) InsertRecord(ctx context.Context, rec *crops.Record) error {
	doc := &documents.RecordDoc{
		StateID:        rec.StateID,
		CropID:         rec.CropID,
		SeasonID:       rec.SeasonID,
		Year:           rec.Year,
		Area:           rec.Area,
		Production:     rec.Production,
		AnnualRainfall: rec.AnnualRainfall,
		Fertilizer:     rec.Fertilizer,
		Pesticide:      rec.Pesticide,
		Yield:          rec.Yield,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.ID != "" {
		oid, err := parseObjectID(rec.ID)
		if err != nil {
			return err
		}
		doc.ID = oid
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	oid, err := t.store.records.Insert(ctx, doc)
	if err != nil {
		return err
	}
	rec.ID = oid.Hex()
	rec.CreatedAt = doc.CreatedAt
	return nil
}

func (t *documentTx) UpdateRecord(ctx context.Context, id string, changes crops.Changes) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	fields := bson.M{}
	for field, val := range changes {
		fields[field] = val
	}
	n, err := t.store.records.Set(ctx, oid, fields)
	if err != nil {
		return err
	}
	if n == 0 && len(fields) > 0 {
		return fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
	}
	return nil
}

func (t *documentTx) DeleteRecord(ctx context.Context, id string) (bool, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return false, err
	}
	n, err := t.store.records.Delete(ctx, oid)
	return n > 0, err
}

func (t *documentTx) AppendAudit(ctx context.Context, entry crops.AuditEntry) error {
	return t.store.audit.Insert(ctx, &documents.AuditDoc{
		Operation:  string(entry.Operation),
		Collection: entry.Collection,
		DocumentID: entry.TargetID,
		Changes:    bson.M(entry.Changes),
		Timestamp:  entry.Timestamp,
	})
}

func (t *documentTx) View(ctx context.Context, id string) (*crops.RecordView, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	doc, err := t.store.records.Get(ctx, oid)
	if err != nil || doc == nil {
		return nil, err
	}
	v := viewFromDoc(doc)
	return &v, nil
}

func parseObjectID(raw string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrMalformedID, raw)
	}
	return oid, nil
}

func recordFromDoc(d *documents.RecordDoc) crops.Record {
	return crops.Record{
		ID:       d.ID.Hex(),
		StateID:  d.StateID,
		CropID:   d.CropID,
		SeasonID: d.SeasonID,
		Year:     d.Year,
		Measurements: crops.Measurements{
			Area:           d.Area,
			Production:     d.Production,
			AnnualRainfall: d.AnnualRainfall,
			Fertilizer:     d.Fertilizer,
			Pesticide:      d.Pesticide,
			Yield:          d.Yield,
		},
		CreatedAt: d.Created(),
	}
}

// viewFromDoc leaves dimension names empty; the document flavor projects ids.
func viewFromDoc(d *documents.RecordDoc) crops.RecordView {
	return crops.RecordView{Record: recordFromDoc(d)}
}
