// Package store adapts each storage engine to one unit-of-work contract so
// the record protocol is written once and driven by every backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
)

// Backend names, as used in routes and configuration.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongodb"
	BackendMemory   = "memory"
)

var (
	// ErrMalformedID is returned for ids that cannot name a record in the backend.
	ErrMalformedID = errors.New("malformed record id")
	// ErrRecordNotFound is returned by writes that target a missing record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateKey is the memory backend's unique-constraint violation.
	ErrDuplicateKey = errors.New("duplicate key")
)

// DimensionNotFoundError is returned by a ResolveRequire lookup of an unknown name.
type DimensionNotFoundError struct {
	Kind crops.DimensionKind
	Name string
}

func (e *DimensionNotFoundError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.Name)
}

// Tx is the set of operations available inside one unit of work. The ctx
// passed to each method must be the one InTx handed to the callback.
type Tx interface {
	// ResolveDimension returns the id for name and whether this call inserted it.
	ResolveDimension(ctx context.Context, kind crops.DimensionKind, name string, policy crops.ResolvePolicy) (id string, created bool, err error)
	// GetRecord returns nil, nil when id does not exist.
	GetRecord(ctx context.Context, id string) (*crops.Record, error)
	// FindByKey returns a record holding key other than excludeID, or nil.
	FindByKey(ctx context.Context, key crops.NaturalKey, excludeID string) (*crops.Record, error)
	// InsertRecord stores rec, assigning ID and CreatedAt when empty.
	InsertRecord(ctx context.Context, rec *crops.Record) error
	UpdateRecord(ctx context.Context, id string, changes crops.Changes) error
	// DeleteRecord reports whether a record was removed.
	DeleteRecord(ctx context.Context, id string) (bool, error)
	AppendAudit(ctx context.Context, entry crops.AuditEntry) error
	View(ctx context.Context, id string) (*crops.RecordView, error)
}

// Store is one configured backend.
type Store interface {
	Name() string
	Flavor() crops.Flavor

	// InTx runs fn atomically. A non-nil error from fn rolls everything back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Get returns nil, nil when id does not exist.
	Get(ctx context.Context, id string) (*crops.RecordView, error)
	// Latest returns nil, nil when there are no records.
	Latest(ctx context.Context) (*crops.RecordView, error)
	List(ctx context.Context, f crops.RecordFilter) ([]crops.RecordView, error)
	Verify(ctx context.Context) (*crops.VerifyReport, error)
	AuditTrail(ctx context.Context, recordID string) ([]crops.AuditEntry, error)
	Ping(ctx context.Context) error
}
