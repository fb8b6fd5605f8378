package cropyield

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/agroyield-backend/internal/data/repos/testutil"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/dbctx"
)

func mustDimension(t *testing.T, repo DimensionRepo, dbc dbctx.Context, kind crops.DimensionKind, name string) uuid.UUID {
	t.Helper()
	if _, err := repo.InsertIfAbsent(dbc, kind, name); err != nil {
		t.Fatalf("InsertIfAbsent(%s,%s): %v", kind, name, err)
	}
	id, err := repo.GetIDByName(dbc, kind, name)
	if err != nil || id == uuid.Nil {
		t.Fatalf("GetIDByName(%s,%s): id=%v err=%v", kind, name, id, err)
	}
	return id
}

func f64(v float64) *float64 { return &v }

func TestDimensionRepoInsertIfAbsentIsIdempotent(t *testing.T) {
	db := testutil.SQLite(t)
	repo := NewDimensionRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	created, err := repo.InsertIfAbsent(dbc, crops.DimensionState, "Assam")
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	created, err = repo.InsertIfAbsent(dbc, crops.DimensionState, "Assam")
	if err != nil || created {
		t.Fatalf("second insert: want created=false got created=%v err=%v", created, err)
	}
	n, err := repo.Count(dbc, crops.DimensionState)
	if err != nil || n != 1 {
		t.Fatalf("count: want=1 got=%d err=%v", n, err)
	}
	missing, err := repo.GetIDByName(dbc, crops.DimensionState, "assam")
	if err != nil || missing != uuid.Nil {
		t.Fatalf("case-sensitive lookup: want nil id got=%v err=%v", missing, err)
	}
}

func TestRecordRepoListFiltersAndOrder(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	dims := NewDimensionRepo(db, log)
	records := NewRecordRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background()}

	assam := mustDimension(t, dims, dbc, crops.DimensionState, "Assam")
	kerala := mustDimension(t, dims, dbc, crops.DimensionState, "Kerala")
	rice := mustDimension(t, dims, dbc, crops.DimensionCrop, "Rice")
	kharif := mustDimension(t, dims, dbc, crops.DimensionSeason, "Kharif")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []*crops.CropYieldRecord{
		{StateID: assam, CropID: rice, SeasonID: kharif, CropYear: 2000, Yield: f64(1), CreatedAt: base},
		{StateID: assam, CropID: rice, SeasonID: kharif, CropYear: 2001, Yield: f64(2), CreatedAt: base.Add(time.Minute)},
		{StateID: kerala, CropID: rice, SeasonID: kharif, CropYear: 2001, Yield: f64(3), CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, row := range rows {
		if err := records.Create(dbc, row); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := records.ListViews(dbc, crops.RecordFilter{State: "assam", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("state filter: want=2 got=%d", len(got))
	}
	if got[0].CropYear != 2001 || got[0].StateName != "Assam" {
		t.Fatalf("order: want newest first, got=%+v", got[0])
	}

	year := 2001
	got, err = records.ListViews(dbc, crops.RecordFilter{Year: &year, Limit: 1, Offset: 1})
	if err != nil || len(got) != 1 || got[0].StateName != "Assam" {
		t.Fatalf("paged year filter: got=%+v err=%v", got, err)
	}

	got, err = records.ListViews(dbc, crops.RecordFilter{State: "%", Limit: 10})
	if err != nil || len(got) != 0 {
		t.Fatalf("escaped wildcard: want=0 got=%d err=%v", len(got), err)
	}

	latest, err := records.LatestView(dbc)
	if err != nil || latest == nil || latest.StateName != "Kerala" {
		t.Fatalf("latest: got=%+v err=%v", latest, err)
	}
}

func TestRecordRepoNaturalKeyIsUnique(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	dims := NewDimensionRepo(db, log)
	records := NewRecordRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background()}

	s := mustDimension(t, dims, dbc, crops.DimensionState, "Assam")
	c := mustDimension(t, dims, dbc, crops.DimensionCrop, "Rice")
	x := mustDimension(t, dims, dbc, crops.DimensionSeason, "Kharif")

	first := &crops.CropYieldRecord{StateID: s, CropID: c, SeasonID: x, CropYear: 2020}
	if err := records.Create(dbc, first); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if err := records.Create(dbc, &crops.CropYieldRecord{StateID: s, CropID: c, SeasonID: x, CropYear: 2020}); err == nil {
		t.Fatalf("duplicate natural key: want unique violation")
	}

	found, err := records.FindByKey(dbc, s, c, x, 2020, uuid.Nil)
	if err != nil || found == nil || found.RecordID != first.RecordID {
		t.Fatalf("find by key: got=%+v err=%v", found, err)
	}
	found, err = records.FindByKey(dbc, s, c, x, 2020, first.RecordID)
	if err != nil || found != nil {
		t.Fatalf("find by key excluding self: got=%+v err=%v", found, err)
	}

	dups, err := records.DuplicateKeys(dbc)
	if err != nil || len(dups) != 0 {
		t.Fatalf("duplicates: got=%v err=%v", dups, err)
	}
	dangling, err := records.CountDangling(dbc, crops.DimensionState)
	if err != nil || dangling != 0 {
		t.Fatalf("dangling: got=%d err=%v", dangling, err)
	}
}

func TestRecordRepoUpdateAndDelete(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	dims := NewDimensionRepo(db, log)
	records := NewRecordRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background()}

	row := &crops.CropYieldRecord{
		StateID:  mustDimension(t, dims, dbc, crops.DimensionState, "Assam"),
		CropID:   mustDimension(t, dims, dbc, crops.DimensionCrop, "Rice"),
		SeasonID: mustDimension(t, dims, dbc, crops.DimensionSeason, "Kharif"),
		CropYear: 2010,
		Area:     f64(10),
	}
	if err := records.Create(dbc, row); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := records.UpdateFields(dbc, row.RecordID, map[string]any{"area": 12.5, "crop_year": 2011})
	if err != nil || n != 1 {
		t.Fatalf("update: rows=%d err=%v", n, err)
	}
	got, err := records.GetByID(dbc, row.RecordID)
	if err != nil || got == nil || got.CropYear != 2011 || *got.Area != 12.5 {
		t.Fatalf("after update: got=%+v err=%v", got, err)
	}
	n, err = records.DeleteByID(dbc, row.RecordID)
	if err != nil || n != 1 {
		t.Fatalf("delete: rows=%d err=%v", n, err)
	}
	n, err = records.DeleteByID(dbc, row.RecordID)
	if err != nil || n != 0 {
		t.Fatalf("second delete: rows=%d err=%v", n, err)
	}
	got, err = records.GetByID(dbc, row.RecordID)
	if err != nil || got != nil {
		t.Fatalf("get deleted: got=%+v err=%v", got, err)
	}
}
