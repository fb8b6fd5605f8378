package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/agroyield-backend/internal/data/aggregates"
	"github.com/yungbote/agroyield-backend/internal/data/store"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/observability"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
	"github.com/yungbote/agroyield-backend/internal/services"
)

const header = "State,Crop,Season,Crop_Year,Area,Production,Annual_Rainfall,Fertilizer,Pesticide,Yield\n"

func newTarget(flavor crops.Flavor) services.RecordService {
	s := store.NewMemoryStore(store.BackendMemory, flavor)
	agg := aggregates.NewRecordAggregate(aggregates.RecordAggregateDeps{Base: aggregates.BaseDeps{Store: s}})
	return services.NewRecordService(logger.Nop(), s, agg)
}

func runCSV(t *testing.T, im *Importer, src string) Summary {
	t.Helper()
	r, err := NewCSVReader(strings.NewReader(src))
	require.NoError(t, err)
	sum, err := im.Run(context.Background(), r)
	require.NoError(t, err)
	return sum
}

func TestImporterCountsOutcomes(t *testing.T) {
	target := newTarget(crops.FlavorRelational)
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	im, err := New(Deps{Target: target, Metrics: metrics, Workers: 3, ProgressEvery: 2})
	require.NoError(t, err)

	src := header +
		"Assam,Rice,Kharif,2000,10,20,1500,5,1,2\n" +
		"Assam,Wheat,Rabi,2000,10,30,1500,5,1,3\n" +
		"Assam,Rice,Kharif,2000,10,20,1500,5,1,2\n" +
		"Assam,Rice,Kharif,2000,10,25,1500,5,1,2.5\n" +
		",Rice,Kharif,2001,10,20,1500,5,1,2\n" +
		"Assam,Rice,Kharif,2002,-10,20,1500,5,1,2\n" +
		"Assam,Rice,Kharif,2003,10,,1500,5,1,2\n"
	sum := runCSV(t, im, src)

	assert.Equal(t, int64(7), sum.Read)
	assert.Equal(t, int64(3), sum.Created)
	assert.Equal(t, int64(1), sum.Unchanged)
	assert.Equal(t, int64(1), sum.Updated)
	assert.Equal(t, int64(1), sum.Skipped)
	assert.Equal(t, int64(1), sum.Failed)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "line 7")

	list, err := target.List(context.Background(), crops.RecordFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 3)
	var blank *crops.RecordView
	for i := range list {
		if list[i].Year == 2003 {
			blank = &list[i]
		}
	}
	require.NotNil(t, blank, "row with a blank measurement should be stored")
	assert.Nil(t, blank.Production)
	require.NotNil(t, blank.Yield)
	assert.InDelta(t, 2.0, *blank.Yield, 1e-9)

	series, err := promtest.GatherAndCount(reg, "agro_import_rows_total")
	require.NoError(t, err)
	assert.Equal(t, 5, series)
}

func TestImporterRerunIsUnchanged(t *testing.T) {
	target := newTarget(crops.FlavorDocument)
	im, err := New(Deps{Target: target, Workers: 2})
	require.NoError(t, err)

	src := header +
		"Bihar,Maize,Kharif,2010,5,10,1100,,,\n" +
		"Bihar,Maize,Rabi,2010,5,12,1100,,,\n"
	first := runCSV(t, im, src)
	assert.Equal(t, int64(2), first.Created)

	second := runCSV(t, im, src)
	assert.Equal(t, int64(0), second.Created)
	assert.Equal(t, int64(2), second.Unchanged)
}

func TestImporterCapsLoggedErrors(t *testing.T) {
	im, err := New(Deps{Target: newTarget(crops.FlavorRelational)})
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < 8; i++ {
		b.WriteString("Goa,Rice,Kharif,1800,1,1,1,1,1,1\n")
	}
	sum := runCSV(t, im, b.String())
	assert.Equal(t, int64(8), sum.Failed)
	assert.Len(t, sum.Errors, maxLoggedErrors)
}

func TestImporterCancelled(t *testing.T) {
	im, err := New(Deps{Target: newTarget(crops.FlavorRelational), Workers: 2})
	require.NoError(t, err)
	r, err := NewCSVReader(strings.NewReader(header + "Goa,Rice,Kharif,2000,1,1,1,1,1,1\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = im.Run(ctx, r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShardForIsStable(t *testing.T) {
	in := crops.CreateInput{State: "Assam", Crop: "Rice", Season: "Kharif", Year: 2000}
	first := ShardFor(in, 8)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ShardFor(in, 8))
	}
	assert.Equal(t, 0, ShardFor(in, 1))
}

func TestNewRequiresTarget(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}
