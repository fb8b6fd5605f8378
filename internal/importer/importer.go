package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	domainagg "github.com/yungbote/agroyield-backend/internal/domain/aggregates"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/observability"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

const (
	DefaultWorkers       = 4
	DefaultProgressEvery = 1000
	maxLoggedErrors      = 5
)

// Upserter is the slice of services.RecordService the importer needs.
type Upserter interface {
	Backend() string
	Upsert(ctx context.Context, in crops.CreateInput) (domainagg.UpsertResult, error)
}

type Deps struct {
	Log           *logger.Logger
	Target        Upserter
	Metrics       *observability.Metrics
	Workers       int
	ProgressEvery int
}

// Summary counts what happened to every row read.
type Summary struct {
	Backend   string        `json:"backend"`
	Read      int64         `json:"read"`
	Created   int64         `json:"created"`
	Updated   int64         `json:"updated"`
	Unchanged int64         `json:"unchanged"`
	Failed    int64         `json:"failed"`
	Skipped   int64         `json:"skipped"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

type Importer struct {
	log           *logger.Logger
	target        Upserter
	metrics       *observability.Metrics
	workers       int
	progressEvery int64
}

func New(deps Deps) (*Importer, error) {
	if deps.Target == nil {
		return nil, errors.New("importer: target is required")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Workers <= 0 {
		deps.Workers = DefaultWorkers
	}
	if deps.ProgressEvery <= 0 {
		deps.ProgressEvery = DefaultProgressEvery
	}
	return &Importer{
		log:           deps.Log.With("service", "Importer", "backend", deps.Target.Backend()),
		target:        deps.Target,
		metrics:       deps.Metrics,
		workers:       deps.Workers,
		progressEvery: int64(deps.ProgressEvery),
	}, nil
}

// ShardFor routes rows with the same natural key to the same worker so that
// duplicates inside one file are applied in file order.
func ShardFor(in crops.CreateInput, shards int) int {
	if shards <= 1 {
		return 0
	}
	h := xxhash.New()
	_, _ = h.WriteString(in.State)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(in.Crop)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(in.Season)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.Itoa(in.Year))
	return int(h.Sum64() % uint64(shards))
}

type tally struct {
	read, created, updated, unchanged, failed, skipped, done atomic.Int64

	mu     sync.Mutex
	errors []string
}

func (t *tally) recordError(msg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.errors) >= maxLoggedErrors {
		return false
	}
	t.errors = append(t.errors, msg)
	return true
}

// Run drains rows into the target. Row level failures are counted, not
// returned; only reader errors and context cancellation abort the run.
func (im *Importer) Run(ctx context.Context, rows RowReader) (Summary, error) {
	start := time.Now()
	t := &tally{}

	g, gctx := errgroup.WithContext(ctx)
	shards := make([]chan Row, im.workers)
	for i := range shards {
		shards[i] = make(chan Row, 64)
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range shards {
				close(ch)
			}
		}()
		for {
			row, err := rows.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read rows: %w", err)
			}
			t.read.Add(1)
			if row.Err != nil {
				im.rowDone(t, row, row.Err)
				continue
			}
			select {
			case shards[ShardFor(row.Input, im.workers)] <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for i := range shards {
		ch := shards[i]
		g.Go(func() error {
			for row := range ch {
				if gctx.Err() != nil {
					continue
				}
				res, err := im.target.Upsert(gctx, row.Input)
				if err == nil {
					switch res.Outcome {
					case domainagg.UpsertCreated:
						t.created.Add(1)
					case domainagg.UpsertUpdated:
						t.updated.Add(1)
					default:
						t.unchanged.Add(1)
					}
				}
				im.rowDone(t, row, err)
			}
			return gctx.Err()
		})
	}

	err := g.Wait()
	sum := Summary{
		Backend:   im.target.Backend(),
		Read:      t.read.Load(),
		Created:   t.created.Load(),
		Updated:   t.updated.Load(),
		Unchanged: t.unchanged.Load(),
		Failed:    t.failed.Load(),
		Skipped:   t.skipped.Load(),
		Errors:    t.errors,
		Duration:  time.Since(start),
	}
	im.report(sum)
	im.log.Info("import finished",
		"read", sum.Read,
		"created", sum.Created,
		"updated", sum.Updated,
		"unchanged", sum.Unchanged,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"duration", sum.Duration.String(),
	)
	return sum, err
}

func (im *Importer) rowDone(t *tally, row Row, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrSkipRow):
		t.skipped.Add(1)
	default:
		t.failed.Add(1)
		msg := fmt.Sprintf("line %d: %s", row.Line, describe(err))
		if t.recordError(msg) {
			im.log.Warn("import row failed", "line", row.Line, "error", describe(err))
		}
	}
	if n := t.done.Add(1); n%im.progressEvery == 0 {
		im.log.Info("import progress",
			"processed", n,
			"created", t.created.Load(),
			"updated", t.updated.Load(),
			"failed", t.failed.Load(),
		)
	}
}

func (im *Importer) report(s Summary) {
	if im.metrics == nil {
		return
	}
	im.metrics.AddImportRows(s.Backend, "created", int(s.Created))
	im.metrics.AddImportRows(s.Backend, "updated", int(s.Updated))
	im.metrics.AddImportRows(s.Backend, "unchanged", int(s.Unchanged))
	im.metrics.AddImportRows(s.Backend, "failed", int(s.Failed))
	im.metrics.AddImportRows(s.Backend, "skipped", int(s.Skipped))
}

func describe(err error) string {
	var de *domainagg.Error
	if errors.As(err, &de) {
		return string(de.Code) + ": " + de.Message
	}
	return err.Error()
}
