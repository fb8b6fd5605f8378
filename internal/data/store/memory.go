package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
)

type memoryState struct {
	dimIDs   map[crops.DimensionKind]map[string]string
	dimNames map[crops.DimensionKind]map[string]string
	records  map[string]crops.Record
	audit    []crops.AuditEntry
}

func newMemoryState() *memoryState {
	st := &memoryState{
		dimIDs:   map[crops.DimensionKind]map[string]string{},
		dimNames: map[crops.DimensionKind]map[string]string{},
		records:  map[string]crops.Record{},
	}
	for _, kind := range crops.DimensionKinds {
		st.dimIDs[kind] = map[string]string{}
		st.dimNames[kind] = map[string]string{}
	}
	return st
}

func (st *memoryState) clone() *memoryState {
	out := newMemoryState()
	for kind, m := range st.dimIDs {
		for k, v := range m {
			out.dimIDs[kind][k] = v
		}
	}
	for kind, m := range st.dimNames {
		for k, v := range m {
			out.dimNames[kind][k] = v
		}
	}
	for k, v := range st.records {
		out.records[k] = v
	}
	out.audit = append([]crops.AuditEntry(nil), st.audit...)
	return out
}

// MemoryStore keeps everything in process. Transactions run one at a time
// against a copy that replaces the live state only on success.
type MemoryStore struct {
	name   string
	flavor crops.Flavor

	mu       sync.Mutex
	state    *memoryState
	lastTime time.Time

	// FailAudit, when set, makes every audit append fail.
	FailAudit error
}

func NewMemoryStore(name string, flavor crops.Flavor) *MemoryStore {
	if flavor == "" {
		flavor = crops.FlavorRelational
	}
	return &MemoryStore{name: name, flavor: flavor, state: newMemoryState()}
}

func (s *MemoryStore) Name() string         { return s.name }
func (s *MemoryStore) Flavor() crops.Flavor { return s.flavor }

// now is strictly increasing so creation order is total.
func (s *MemoryStore) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Nanosecond)
	}
	s.lastTime = t
	return t
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(ctx, &memoryTx{store: s, st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*crops.RecordView, error) {
	if _, err := parseUUID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.records[id]
	if !ok {
		return nil, nil
	}
	v := s.state.view(rec)
	return &v, nil
}

func (s *MemoryStore) sorted() []crops.Record {
	out := make([]crops.Record, 0, len(s.state.records))
	for _, r := range s.state.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *MemoryStore) Latest(ctx context.Context) (*crops.RecordView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted()
	if len(all) == 0 {
		return nil, nil
	}
	v := s.state.view(all[0])
	return &v, nil
}

func (s *MemoryStore) List(ctx context.Context, f crops.RecordFilter) ([]crops.RecordView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []crops.RecordView
	skipped := 0
	for _, rec := range s.sorted() {
		v := s.state.view(rec)
		if !containsFold(v.StateName, f.State) || !containsFold(v.CropName, f.Crop) || !containsFold(v.SeasonName, f.Season) {
			continue
		}
		if f.Year != nil && v.Year != *f.Year {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

func containsFold(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (s *MemoryStore) Verify(ctx context.Context) (*crops.VerifyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep := crops.NewVerifyReport(s.name)
	for _, kind := range crops.DimensionKinds {
		rep.Counts[kind.Collection()] = int64(len(s.state.dimIDs[kind]))
		rep.Dangling[kind.IDField()] = 0
	}
	rep.Counts[crops.RecordCollection] = int64(len(s.state.records))
	rep.Counts[crops.AuditCollection] = int64(len(s.state.audit))
	seen := map[crops.NaturalKey]int64{}
	for _, rec := range s.state.records {
		refs := map[crops.DimensionKind]string{
			crops.DimensionState:  rec.StateID,
			crops.DimensionCrop:   rec.CropID,
			crops.DimensionSeason: rec.SeasonID,
		}
		for kind, id := range refs {
			if _, ok := s.state.dimNames[kind][id]; !ok {
				rep.Dangling[kind.IDField()]++
			}
		}
		seen[rec.Key()]++
	}
	for key, n := range seen {
		if n > 1 {
			rep.DuplicateKeys = append(rep.DuplicateKeys, crops.DuplicateKey{
				StateID: key.StateID, CropID: key.CropID, SeasonID: key.SeasonID, Year: key.Year, Count: n,
			})
		}
	}
	return rep, nil
}

func (s *MemoryStore) AuditTrail(ctx context.Context, recordID string) ([]crops.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []crops.AuditEntry
	for _, e := range s.state.audit {
		if recordID == "" || e.TargetID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

// DimensionCount is the number of rows of one dimension kind.
func (s *MemoryStore) DimensionCount(kind crops.DimensionKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.dimIDs[kind])
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (st *memoryState) view(rec crops.Record) crops.RecordView {
	return crops.RecordView{
		Record:     rec,
		StateName:  st.dimNames[crops.DimensionState][rec.StateID],
		CropName:   st.dimNames[crops.DimensionCrop][rec.CropID],
		SeasonName: st.dimNames[crops.DimensionSeason][rec.SeasonID],
	}
}

type memoryTx struct {
	store *MemoryStore
	st    *memoryState
}

func (t *memoryTx) ResolveDimension(_ context.Context, kind crops.DimensionKind, name string, policy crops.ResolvePolicy) (string, bool, error) {
	if !kind.Valid() {
		return "", false, fmt.Errorf("unknown dimension kind %q", kind)
	}
	if id, ok := t.st.dimIDs[kind][name]; ok {
		return id, false, nil
	}
	if policy == crops.ResolveRequire {
		return "", false, &DimensionNotFoundError{Kind: kind, Name: name}
	}
	id := uuid.NewString()
	t.st.dimIDs[kind][name] = id
	t.st.dimNames[kind][id] = name
	return id, true, nil
}

func (t *memoryTx) GetRecord(_ context.Context, id string) (*crops.Record, error) {
	if _, err := parseUUID(id); err != nil {
		return nil, err
	}
	rec, ok := t.st.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (t *memoryTx) FindByKey(_ context.Context, key crops.NaturalKey, excludeID string) (*crops.Record, error) {
	for id, rec := range t.st.records {
		if id != excludeID && rec.Key() == key {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) InsertRecord(ctx context.Context, rec *crops.Record) error {
	if existing, _ := t.FindByKey(ctx, rec.Key(), ""); existing != nil {
		return ErrDuplicateKey
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t.store.now()
	}
	t.st.records[rec.ID] = *rec
	return nil
}

func (t *memoryTx) UpdateRecord(ctx context.Context, id string, changes crops.Changes) error {
	rec, ok := t.st.records[id]
	if !ok {
		return fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
	}
	next := changes.ApplyTo(rec)
	if existing, _ := t.FindByKey(ctx, next.Key(), id); existing != nil {
		return ErrDuplicateKey
	}
	t.st.records[id] = next
	return nil
}

func (t *memoryTx) DeleteRecord(_ context.Context, id string) (bool, error) {
	if _, ok := t.st.records[id]; !ok {
		return false, nil
	}
	delete(t.st.records, id)
	return true, nil
}

func (t *memoryTx) AppendAudit(_ context.Context, entry crops.AuditEntry) error {
	if t.store.FailAudit != nil {
		return t.store.FailAudit
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	t.st.audit = append(t.st.audit, entry)
	return nil
}

func (t *memoryTx) View(_ context.Context, id string) (*crops.RecordView, error) {
	rec, ok := t.st.records[id]
	if !ok {
		return nil, nil
	}
	v := t.st.view(rec)
	return &v, nil
}
