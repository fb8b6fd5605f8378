package aggregates_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/yungbote/agroyield-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/agroyield-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/agroyield-backend/internal/data/repos/testutil"
	"github.com/yungbote/agroyield-backend/internal/data/store"
	domainagg "github.com/yungbote/agroyield-backend/internal/domain/aggregates"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

func f64(v float64) *float64 { return &v }

func fullInput(state string, year int) crops.CreateInput {
	return crops.CreateInput{
		State:  state,
		Crop:   "Rice",
		Season: "Kharif",
		Year:   year,
		Measurements: crops.Measurements{
			Area:           f64(100),
			Production:     f64(250),
			AnnualRainfall: f64(2051.4),
			Fertilizer:     f64(9594.6),
			Pesticide:      f64(31.2),
			Yield:          f64(2.5),
		},
	}
}

// relationalStores returns the relational-flavored backends that need no
// external services.
func relationalStores(t *testing.T) map[string]store.Store {
	t.Helper()
	return map[string]store.Store{
		"memory": store.NewMemoryStore(store.BackendMemory, crops.FlavorRelational),
		"sqlite": store.NewRelationalStore(store.BackendPostgres, testutil.SQLite(t), logger.Nop()),
	}
}

func newAggregate(s store.Store, hooks aggregates.Hooks) domainagg.RecordAggregate {
	return aggregates.NewRecordAggregate(aggregates.RecordAggregateDeps{
		Base: aggregates.BaseDeps{Store: s, Hooks: hooks},
	})
}

func auditOps(t *testing.T, s store.Store, id string) []crops.AuditOperation {
	t.Helper()
	trail, err := s.AuditTrail(context.Background(), id)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	out := make([]crops.AuditOperation, 0, len(trail))
	for _, e := range trail {
		out = append(out, e.Operation)
	}
	return out
}

func TestRecordCreateWritesRecordAndAudit(t *testing.T) {
	for name, s := range relationalStores(t) {
		t.Run(name, func(t *testing.T) {
			agg := newAggregate(s, nil)
			view, err := agg.Create(context.Background(), fullInput("  Assam ", 2019))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if view.ID == "" || view.StateName != "Assam" || view.CropName != "Rice" || view.SeasonName != "Kharif" {
				t.Fatalf("unexpected view: %+v", view)
			}
			if view.Year != 2019 || view.Yield == nil || *view.Yield != 2.5 {
				t.Fatalf("unexpected fields: %+v", view.Record)
			}
			if view.CreatedAt.IsZero() {
				t.Fatalf("created_at not assigned")
			}
			ops := auditOps(t, s, view.ID)
			if len(ops) != 1 || ops[0] != crops.AuditInsert {
				t.Fatalf("audit ops: want=[INSERT] got=%v", ops)
			}
		})
	}
}

func TestRecordCreateDuplicateIsConflict(t *testing.T) {
	for name, s := range relationalStores(t) {
		t.Run(name, func(t *testing.T) {
			hooks := &aggtestutil.HooksRecorder{}
			agg := newAggregate(s, hooks)
			ctx := context.Background()
			if _, err := agg.Create(ctx, fullInput("Assam", 2019)); err != nil {
				t.Fatalf("Create: %v", err)
			}
			_, err := agg.Create(ctx, fullInput("Assam", 2019))
			if !domainagg.IsCode(err, domainagg.CodeConflict) {
				t.Fatalf("want conflict, got %v", err)
			}
			if got := domainagg.MessageOf(err); got != "Record already exists for this state, crop, season, and year combination" {
				t.Fatalf("message: got %q", got)
			}
			if len(hooks.Conflicts) != 1 {
				t.Fatalf("conflict hook: want=1 got=%d", len(hooks.Conflicts))
			}
			list, err := s.List(ctx, crops.RecordFilter{Limit: 10})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 1 {
				t.Fatalf("records: want=1 got=%d", len(list))
			}
		})
	}
}

func TestRecordCreateValidation(t *testing.T) {
	s := store.NewMemoryStore(store.BackendMemory, crops.FlavorRelational)
	hooks := &aggtestutil.HooksRecorder{}
	agg := newAggregate(s, hooks)

	in := fullInput("Assam", 1989)
	if _, err := agg.Create(context.Background(), in); !domainagg.IsCode(err, domainagg.CodeInvalid) {
		t.Fatalf("year 1989: want invalid, got %v", err)
	}
	in = fullInput("Assam", 2019)
	in.Area = f64(-1)
	if _, err := agg.Create(context.Background(), in); !domainagg.IsCode(err, domainagg.CodeInvalid) {
		t.Fatalf("negative area: want invalid, got %v", err)
	}
	in = fullInput("Assam", 2019)
	in.Pesticide = nil
	if _, err := agg.Create(context.Background(), in); !domainagg.IsCode(err, domainagg.CodeInvalid) {
		t.Fatalf("missing pesticide: want invalid, got %v", err)
	}
	if got := s.DimensionCount(crops.DimensionState); got != 0 {
		t.Fatalf("rejected creates must not resolve dimensions, states=%d", got)
	}
	for _, st := range hooks.Statuses() {
		if st != string(domainagg.CodeInvalid) {
			t.Fatalf("status: want=invalid got=%s", st)
		}
	}
}

func TestRecordCreateDocumentFlavorAllowsMissingMeasurements(t *testing.T) {
	s := store.NewMemoryStore(store.BackendMongo, crops.FlavorDocument)
	agg := newAggregate(s, nil)
	view, err := agg.Create(context.Background(), crops.CreateInput{
		State: "Assam", Crop: "Rice", Season: "Kharif", Year: 2020,
		Measurements: crops.Measurements{Yield: f64(1.2)},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Area != nil || view.Yield == nil {
		t.Fatalf("unexpected measurements: %+v", view.Measurements)
	}
}

func TestRecordCreateRollsBackWhenAuditFails(t *testing.T) {
	s := store.NewMemoryStore(store.BackendMemory, crops.FlavorRelational)
	s.FailAudit = errors.New("audit store down")
	agg := newAggregate(s, nil)

	_, err := agg.Create(context.Background(), fullInput("Assam", 2019))
	if err == nil {
		t.Fatalf("expected error when audit fails")
	}
	list, err := s.List(context.Background(), crops.RecordFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("record must roll back with its audit entry, got %d", len(list))
	}
	if got := s.DimensionCount(crops.DimensionState); got != 0 {
		t.Fatalf("dimension insert must roll back too, states=%d", got)
	}
}

func TestRecordCreateCommitFailureIsRolledBack(t *testing.T) {
	s := store.NewMemoryStore(store.BackendMemory, crops.FlavorRelational)
	runner := &aggtestutil.InjectedTxRunner{Store: s, FailCommit: errors.New("connection refused")}
	hooks := &aggtestutil.HooksRecorder{}
	agg := aggregates.NewRecordAggregate(aggregates.RecordAggregateDeps{
		Base: aggregates.BaseDeps{Store: s, Runner: runner, Hooks: hooks},
	})
	_, err := agg.Create(context.Background(), fullInput("Assam", 2019))
	if !domainagg.IsCode(err, domainagg.CodeStorageUnavailable) {
		t.Fatalf("want storage_unavailable, got %v", err)
	}
	if runner.RollbackCalls != 1 {
		t.Fatalf("rollback calls: want=1 got=%d", runner.RollbackCalls)
	}
	if len(hooks.Unavailable) != 1 {
		t.Fatalf("unavailable hook: want=1 got=%d", len(hooks.Unavailable))
	}
	if got, _ := s.Latest(context.Background()); got != nil {
		t.Fatalf("record survived rollback: %+v", got)
	}
}

func TestRecordUpdatePartial(t *testing.T) {
	for name, s := range relationalStores(t) {
		t.Run(name, func(t *testing.T) {
			agg := newAggregate(s, nil)
			ctx := context.Background()
			created, err := agg.Create(ctx, fullInput("Assam", 2019))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			updated, err := agg.Update(ctx, created.ID, crops.UpdateInput{Yield: crops.Some(3.1)})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if *updated.Yield != 3.1 || *updated.Area != 100 || updated.Year != 2019 || updated.StateName != "Assam" {
				t.Fatalf("unexpected update result: %+v", updated)
			}
			if !updated.CreatedAt.Equal(created.CreatedAt) {
				t.Fatalf("created_at changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
			}
			trail, err := s.AuditTrail(ctx, created.ID)
			if err != nil {
				t.Fatalf("AuditTrail: %v", err)
			}
			if len(trail) != 2 || trail[1].Operation != crops.AuditUpdate {
				t.Fatalf("unexpected trail: %+v", trail)
			}
			if len(trail[1].Changes) != 1 {
				t.Fatalf("update audit should hold only changed fields: %+v", trail[1].Changes)
			}
		})
	}
}

func TestRecordUpdateErrors(t *testing.T) {
	for name, s := range relationalStores(t) {
		t.Run(name, func(t *testing.T) {
			agg := newAggregate(s, nil)
			ctx := context.Background()
			a, err := agg.Create(ctx, fullInput("Assam", 2019))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, err := agg.Create(ctx, fullInput("Assam", 2020)); err != nil {
				t.Fatalf("Create: %v", err)
			}

			mem, _ := s.(*store.MemoryStore)
			var statesBefore int
			if mem != nil {
				statesBefore = mem.DimensionCount(crops.DimensionState)
			}
			if _, err := agg.Update(ctx, a.ID, crops.UpdateInput{}); !domainagg.IsCode(err, domainagg.CodeInvalid) {
				t.Fatalf("empty update: want invalid, got %v", err)
			}
			if mem != nil {
				if got := mem.DimensionCount(crops.DimensionState); got != statesBefore {
					t.Fatalf("empty update resolved dimensions: states %d -> %d", statesBefore, got)
				}
			}
			if _, err := agg.Update(ctx, "not-an-id", crops.UpdateInput{Yield: crops.Some(1.0)}); !domainagg.IsCode(err, domainagg.CodeInvalid) {
				t.Fatalf("malformed id: want invalid, got %v", err)
			}
			missing := "00000000-0000-0000-0000-000000000001"
			if _, err := agg.Update(ctx, missing, crops.UpdateInput{Yield: crops.Some(1.0)}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
				t.Fatalf("missing id: want not_found, got %v", err)
			}
			_, err = agg.Update(ctx, a.ID, crops.UpdateInput{Year: crops.Some(2020)})
			if !domainagg.IsCode(err, domainagg.CodeConflict) {
				t.Fatalf("key collision: want conflict, got %v", err)
			}
			if got := domainagg.MessageOf(err); got != "Update would create a duplicate record" {
				t.Fatalf("message: got %q", got)
			}
			// Relational updates refuse unknown dimension names.
			if _, err := agg.Update(ctx, a.ID, crops.UpdateInput{State: crops.Some("Atlantis")}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
				t.Fatalf("unknown state: want not_found, got %v", err)
			}
			if ops := auditOps(t, s, a.ID); len(ops) != 1 {
				t.Fatalf("failed updates must not audit: %v", ops)
			}

			// Rewriting the key with its current values is not a collision.
			same, err := agg.Update(ctx, a.ID, crops.UpdateInput{Year: crops.Some(2019), State: crops.Some("Assam")})
			if err != nil {
				t.Fatalf("unchanged key update: %v", err)
			}
			if same.ID != a.ID || same.Year != 2019 || same.StateName != "Assam" {
				t.Fatalf("unchanged key update result: %+v", same)
			}
		})
	}
}

func TestRecordUpdateDocumentFlavorCreatesDimensions(t *testing.T) {
	s := store.NewMemoryStore(store.BackendMongo, crops.FlavorDocument)
	agg := newAggregate(s, nil)
	ctx := context.Background()
	created, err := agg.Create(ctx, fullInput("Assam", 2019))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := agg.Update(ctx, created.ID, crops.UpdateInput{State: crops.Some("Goa")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.StateID == created.StateID {
		t.Fatalf("state id not changed")
	}
	if got := s.DimensionCount(crops.DimensionState); got != 2 {
		t.Fatalf("states: want=2 got=%d", got)
	}
}

func TestRecordDelete(t *testing.T) {
	for name, s := range relationalStores(t) {
		t.Run(name, func(t *testing.T) {
			agg := newAggregate(s, nil)
			ctx := context.Background()
			created, err := agg.Create(ctx, fullInput("Assam", 2019))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := agg.Delete(ctx, created.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := agg.Delete(ctx, created.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
				t.Fatalf("second delete: want not_found, got %v", err)
			}
			if got, _ := s.Get(ctx, created.ID); got != nil {
				t.Fatalf("record still readable after delete")
			}
			trail, err := s.AuditTrail(ctx, created.ID)
			if err != nil {
				t.Fatalf("AuditTrail: %v", err)
			}
			if len(trail) != 2 || trail[1].Operation != crops.AuditDelete {
				t.Fatalf("unexpected trail: %+v", trail)
			}
			if trail[1].Changes["year"] == nil {
				t.Fatalf("delete audit should carry the pre-deletion snapshot: %+v", trail[1].Changes)
			}
			if err := agg.Delete(ctx, "bogus"); !domainagg.IsCode(err, domainagg.CodeInvalid) {
				t.Fatalf("malformed delete: want invalid, got %v", err)
			}
		})
	}
}

func TestRecordUpsertOutcomes(t *testing.T) {
	for name, s := range relationalStores(t) {
		t.Run(name, func(t *testing.T) {
			agg := newAggregate(s, nil)
			ctx := context.Background()
			first, err := agg.Upsert(ctx, fullInput("Assam", 2019))
			if err != nil || first.Outcome != domainagg.UpsertCreated {
				t.Fatalf("first upsert: %+v %v", first, err)
			}
			second, err := agg.Upsert(ctx, fullInput("Assam", 2019))
			if err != nil || second.Outcome != domainagg.UpsertUnchanged || second.RecordID != first.RecordID {
				t.Fatalf("second upsert: %+v %v", second, err)
			}
			in := fullInput("Assam", 2019)
			in.Yield = f64(2.6)
			third, err := agg.Upsert(ctx, in)
			if err != nil || third.Outcome != domainagg.UpsertUpdated {
				t.Fatalf("third upsert: %+v %v", third, err)
			}
			ops := auditOps(t, s, first.RecordID)
			if len(ops) != 2 || ops[0] != crops.AuditInsert || ops[1] != crops.AuditUpdate {
				t.Fatalf("audit ops: %v", ops)
			}
		})
	}
}

func TestRecordUpsertStoresBlankMeasurementsAsNull(t *testing.T) {
	for name, s := range relationalStores(t) {
		t.Run(name, func(t *testing.T) {
			agg := newAggregate(s, nil)
			ctx := context.Background()
			in := fullInput("Assam", 2019)
			in.Production = nil
			in.Pesticide = nil
			res, err := agg.Upsert(ctx, in)
			if err != nil || res.Outcome != domainagg.UpsertCreated {
				t.Fatalf("upsert: %+v %v", res, err)
			}
			got, err := s.Get(ctx, res.RecordID)
			if err != nil || got == nil {
				t.Fatalf("Get: %+v %v", got, err)
			}
			if got.Production != nil || got.Pesticide != nil || got.Area == nil || *got.Area != 100 {
				t.Fatalf("measurements: %+v", got.Measurements)
			}

			in.Area = f64(-5)
			if _, err := agg.Upsert(ctx, in); !domainagg.IsCode(err, domainagg.CodeInvalid) {
				t.Fatalf("negative area: want invalid, got %v", err)
			}
			// The API create path keeps requiring every measurement.
			in = fullInput("Assam", 2020)
			in.Production = nil
			if _, err := agg.Create(ctx, in); !domainagg.IsCode(err, domainagg.CodeInvalid) {
				t.Fatalf("create without production: want invalid, got %v", err)
			}
		})
	}
}

func TestRecordYieldCheck(t *testing.T) {
	in := fullInput("Assam", 2019)
	in.Yield = f64(9) // production/area is 2.5

	s := store.NewMemoryStore(store.BackendMemory, crops.FlavorRelational)
	reject := aggregates.NewRecordAggregate(aggregates.RecordAggregateDeps{
		Base:       aggregates.BaseDeps{Store: s},
		YieldCheck: crops.YieldCheckReject,
	})
	if _, err := reject.Create(context.Background(), in); !domainagg.IsCode(err, domainagg.CodeInvalid) {
		t.Fatalf("reject mode: want invalid, got %v", err)
	}

	warn := aggregates.NewRecordAggregate(aggregates.RecordAggregateDeps{
		Base:       aggregates.BaseDeps{Store: s},
		YieldCheck: crops.YieldCheckWarn,
	})
	if _, err := warn.Create(context.Background(), in); err != nil {
		t.Fatalf("warn mode should accept: %v", err)
	}
}

func TestRecordConcurrentCreatesOneWinner(t *testing.T) {
	for name, s := range relationalStores(t) {
		t.Run(name, func(t *testing.T) {
			agg := newAggregate(s, nil)
			const n = 8
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = agg.Create(context.Background(), fullInput("Assam", 2019))
				}(i)
			}
			wg.Wait()

			ok, conflicts := 0, 0
			for _, err := range errs {
				switch {
				case err == nil:
					ok++
				case domainagg.IsCode(err, domainagg.CodeConflict):
					conflicts++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if ok != 1 || conflicts != n-1 {
				t.Fatalf("want 1 success and %d conflicts, got %d/%d", n-1, ok, conflicts)
			}
		})
	}
}
