package crops

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditOperation string

const (
	AuditInsert AuditOperation = "INSERT"
	AuditUpdate AuditOperation = "UPDATE"
	AuditDelete AuditOperation = "DELETE"

	AuditCollection = "audit_log"
)

// AuditEntry is one append-only trail item.
type AuditEntry struct {
	ID         string
	Operation  AuditOperation
	Collection string
	TargetID   string
	Changes    map[string]any
	Timestamp  time.Time
}

// NewAuditEntry stamps an entry for a crop_yield_records mutation.
func NewAuditEntry(op AuditOperation, targetID string, changes map[string]any, now time.Time) AuditEntry {
	return AuditEntry{
		Operation:  op,
		Collection: RecordCollection,
		TargetID:   targetID,
		Changes:    changes,
		Timestamp:  now.UTC(),
	}
}

// AuditLog is the relational audit row.
type AuditLog struct {
	AuditID   uuid.UUID      `gorm:"type:uuid;column:audit_id;primaryKey"`
	Operation string         `gorm:"column:operation;not null;index"`
	Target    string         `gorm:"column:table_name;not null"`
	RecordID  string         `gorm:"column:record_id;not null;index"`
	Changes   datatypes.JSON `gorm:"column:changes"`
	ChangedAt time.Time      `gorm:"column:changed_at;not null;index"`
}

func (AuditLog) TableName() string { return AuditCollection }
