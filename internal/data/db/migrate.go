package db

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
)

// Reference targets for the record foreign keys. The key field is named ID so
// gorm reads StateID/CropID/SeasonID on the record as belongs-to keys.
type stateRef struct {
	ID uuid.UUID `gorm:"type:uuid;column:state_id;primaryKey"`
}

func (stateRef) TableName() string { return "states" }

type cropRef struct {
	ID uuid.UUID `gorm:"type:uuid;column:crop_id;primaryKey"`
}

func (cropRef) TableName() string { return "crops" }

type seasonRef struct {
	ID uuid.UUID `gorm:"type:uuid;column:season_id;primaryKey"`
}

func (seasonRef) TableName() string { return "seasons" }

// recordSchema is the migration shape of crop_yield_records: the domain row
// plus RESTRICT foreign keys into each dimension table.
type recordSchema struct {
	crops.CropYieldRecord
	State  stateRef  `gorm:"foreignKey:StateID;references:ID;constraint:OnDelete:RESTRICT"`
	Crop   cropRef   `gorm:"foreignKey:CropID;references:ID;constraint:OnDelete:RESTRICT"`
	Season seasonRef `gorm:"foreignKey:SeasonID;references:ID;constraint:OnDelete:RESTRICT"`
}

func (recordSchema) TableName() string { return crops.RecordCollection }

// AutoMigrateAll creates the dimension, record and audit tables along with
// the name and natural-key unique indexes and the record foreign keys.
// Existing record tables get the missing constraints added.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&crops.State{},
		&crops.Crop{},
		&crops.Season{},
		&recordSchema{},
		&crops.AuditLog{},
	)
}
