package aggregates

import (
	"context"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
)

// RecordAggregate owns fact-record writes.
//
// Failures are *aggregates.Error with codes:
// CodeInvalid, CodeNotFound, CodeConflict, CodeStorageUnavailable, CodeInternal.
type RecordAggregate interface {
	// Create inserts a record named by dimension values and returns its view.
	Create(ctx context.Context, in crops.CreateInput) (*crops.RecordView, error)

	// Update applies only the supplied fields of in to record id.
	Update(ctx context.Context, id string, in crops.UpdateInput) (*crops.RecordView, error)

	// Delete removes record id, auditing the pre-deletion state.
	Delete(ctx context.Context, id string) error

	// Upsert creates the record for in's natural key, updates its differing
	// fields, or leaves it untouched when nothing changed. Measurements are
	// optional here on every flavor.
	Upsert(ctx context.Context, in crops.CreateInput) (UpsertResult, error)
}

// UpsertOutcome is what Upsert did with a row.
type UpsertOutcome string

const (
	UpsertCreated   UpsertOutcome = "created"
	UpsertUpdated   UpsertOutcome = "updated"
	UpsertUnchanged UpsertOutcome = "unchanged"
)

type UpsertResult struct {
	RecordID string
	Outcome  UpsertOutcome
}
