package documents

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordDoc is a crop_yield_records document. Dimension ids are stored as
// ObjectID hex strings.
type RecordDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	StateID        string             `bson:"state_id"`
	CropID         string             `bson:"crop_id"`
	SeasonID       string             `bson:"season_id"`
	Year           int                `bson:"year"`
	Area           *float64           `bson:"area"`
	Production     *float64           `bson:"production"`
	AnnualRainfall *float64           `bson:"annual_rainfall"`
	Fertilizer     *float64           `bson:"fertilizer"`
	Pesticide      *float64           `bson:"pesticide"`
	Yield          *float64           `bson:"yield"`
	CreatedAt      time.Time          `bson:"created_at,omitempty"`
}

// Created falls back to the ObjectID timestamp for documents written
// without created_at.
func (d *RecordDoc) Created() time.Time {
	if !d.CreatedAt.IsZero() {
		return d.CreatedAt.UTC()
	}
	return d.ID.Timestamp().UTC()
}

// AuditDoc is an audit_log document.
type AuditDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Operation  string             `bson:"operation"`
	Collection string             `bson:"collection"`
	DocumentID string             `bson:"document_id"`
	Changes    bson.M             `bson:"changes"`
	Timestamp  time.Time          `bson:"timestamp"`
}

// DuplicateKey is a natural key shared by several documents.
type DuplicateKey struct {
	StateID  string
	CropID   string
	SeasonID string
	Year     int
	Count    int64
}
