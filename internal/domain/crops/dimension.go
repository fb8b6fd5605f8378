package crops

import (
	"strings"

	"github.com/google/uuid"
)

// DimensionKind names one of the three lookup tables a fact record points at.
type DimensionKind string

const (
	DimensionState  DimensionKind = "state"
	DimensionCrop   DimensionKind = "crop"
	DimensionSeason DimensionKind = "season"
)

var DimensionKinds = []DimensionKind{DimensionState, DimensionCrop, DimensionSeason}

func (k DimensionKind) Valid() bool {
	switch k {
	case DimensionState, DimensionCrop, DimensionSeason:
		return true
	default:
		return false
	}
}

// Collection is the table/collection name shared by every backend.
func (k DimensionKind) Collection() string { return string(k) + "s" }

// NameField is the column/field holding the dimension's natural key.
func (k DimensionKind) NameField() string { return string(k) + "_name" }

// IDField is the column/field holding the dimension's surrogate key.
func (k DimensionKind) IDField() string { return string(k) + "_id" }

// ResolvePolicy controls what the lookup resolver does with an unknown name.
type ResolvePolicy int

const (
	// ResolveCreate inserts a new dimension row for unknown names.
	ResolveCreate ResolvePolicy = iota
	// ResolveRequire fails with not_found for unknown names.
	ResolveRequire
)

// NormalizeName trims surrounding whitespace. Matching stays case sensitive.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

type State struct {
	StateID   uuid.UUID `gorm:"type:uuid;column:state_id;primaryKey" json:"state_id"`
	StateName string    `gorm:"column:state_name;not null;uniqueIndex:idx_states_name" json:"state_name"`
}

func (State) TableName() string { return "states" }

type Crop struct {
	CropID   uuid.UUID `gorm:"type:uuid;column:crop_id;primaryKey" json:"crop_id"`
	CropName string    `gorm:"column:crop_name;not null;uniqueIndex:idx_crops_name" json:"crop_name"`
}

func (Crop) TableName() string { return "crops" }

type Season struct {
	SeasonID   uuid.UUID `gorm:"type:uuid;column:season_id;primaryKey" json:"season_id"`
	SeasonName string    `gorm:"column:season_name;not null;uniqueIndex:idx_seasons_name" json:"season_name"`
}

func (Season) TableName() string { return "seasons" }
