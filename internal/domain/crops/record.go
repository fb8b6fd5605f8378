package crops

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinYear = 1990
	MaxYear = 2030

	DefaultListLimit = 10
	MaxListLimit     = 100

	RecordCollection = "crop_yield_records"
)

// Flavor selects the request schema, dimension policy and response shape a
// backend exposes.
type Flavor string

const (
	// FlavorRelational joins dimension names into responses and requires every
	// measurement on create.
	FlavorRelational Flavor = "relational"
	// FlavorDocument echoes dimension ids and tolerates absent measurements.
	FlavorDocument Flavor = "document"
)

// RequiresMeasurements reports whether create must supply all measurements.
func (f Flavor) RequiresMeasurements() bool { return f == FlavorRelational }

// UpdateDimensionPolicy is how update treats dimension names it has not seen.
func (f Flavor) UpdateDimensionPolicy() ResolvePolicy {
	if f == FlavorRelational {
		return ResolveRequire
	}
	return ResolveCreate
}

// Measurements are the agronomic quantities of a record. Nil means absent.
type Measurements struct {
	Area           *float64 `json:"area"`
	Production     *float64 `json:"production"`
	AnnualRainfall *float64 `json:"annual_rainfall"`
	Fertilizer     *float64 `json:"fertilizer"`
	Pesticide      *float64 `json:"pesticide"`
	Yield          *float64 `json:"yield"`
}

// Field names used in change sets and audit payloads.
const (
	FieldStateID        = "state_id"
	FieldCropID         = "crop_id"
	FieldSeasonID       = "season_id"
	FieldYear           = "year"
	FieldArea           = "area"
	FieldProduction     = "production"
	FieldAnnualRainfall = "annual_rainfall"
	FieldFertilizer     = "fertilizer"
	FieldPesticide      = "pesticide"
	FieldYield          = "yield"
)

// Fields returns the measurement pointers keyed by field name.
func (m *Measurements) Fields() map[string]**float64 {
	return map[string]**float64{
		FieldArea:           &m.Area,
		FieldProduction:     &m.Production,
		FieldAnnualRainfall: &m.AnnualRainfall,
		FieldFertilizer:     &m.Fertilizer,
		FieldPesticide:      &m.Pesticide,
		FieldYield:          &m.Yield,
	}
}

// MeasurementFields lists measurement names in a stable order.
var MeasurementFields = []string{
	FieldArea, FieldProduction, FieldAnnualRainfall, FieldFertilizer, FieldPesticide, FieldYield,
}

// NaturalKey identifies a fact record independent of its surrogate id.
type NaturalKey struct {
	StateID  string
	CropID   string
	SeasonID string
	Year     int
}

// Record is the storage-neutral fact record.
type Record struct {
	ID        string
	StateID   string
	CropID    string
	SeasonID  string
	Year      int
	Measurements
	CreatedAt time.Time
}

func (r Record) Key() NaturalKey {
	return NaturalKey{StateID: r.StateID, CropID: r.CropID, SeasonID: r.SeasonID, Year: r.Year}
}

// Snapshot renders the full record as an audit payload.
func (r Record) Snapshot() map[string]any {
	out := map[string]any{
		"id":          r.ID,
		FieldStateID:  r.StateID,
		FieldCropID:   r.CropID,
		FieldSeasonID: r.SeasonID,
		FieldYear:     r.Year,
		"created_at":  r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	m := r.Measurements
	for name, p := range m.Fields() {
		if *p != nil {
			out[name] = **p
		} else {
			out[name] = nil
		}
	}
	return out
}

// RecordView is a record joined with its dimension names.
type RecordView struct {
	Record
	StateName  string
	CropName   string
	SeasonName string
}

// RecordFilter narrows list queries. Name filters are case-insensitive
// substrings; Year is exact.
type RecordFilter struct {
	State  string
	Crop   string
	Season string
	Year   *int
	Limit  int
	Offset int
}

// CreateInput is a fully specified new record named by dimension values.
type CreateInput struct {
	State  string
	Crop   string
	Season string
	Year   int
	Measurements
}

// UpdateInput carries only the fields a caller supplied.
type UpdateInput struct {
	State          Optional[string]
	Crop           Optional[string]
	Season         Optional[string]
	Year           Optional[int]
	Area           Optional[float64]
	Production     Optional[float64]
	AnnualRainfall Optional[float64]
	Fertilizer     Optional[float64]
	Pesticide      Optional[float64]
	Yield          Optional[float64]
}

// Empty reports whether no field was supplied.
func (in UpdateInput) Empty() bool {
	return !in.State.Set && !in.Crop.Set && !in.Season.Set && !in.Year.Set &&
		!in.Area.Set && !in.Production.Set && !in.AnnualRainfall.Set &&
		!in.Fertilizer.Set && !in.Pesticide.Set && !in.Yield.Set
}

func (in UpdateInput) measurements() map[string]Optional[float64] {
	return map[string]Optional[float64]{
		FieldArea:           in.Area,
		FieldProduction:     in.Production,
		FieldAnnualRainfall: in.AnnualRainfall,
		FieldFertilizer:     in.Fertilizer,
		FieldPesticide:      in.Pesticide,
		FieldYield:          in.Yield,
	}
}

// Changes is a set of field assignments keyed by Field* names.
type Changes map[string]any

// ApplyTo returns a copy of rec with the changes applied.
func (c Changes) ApplyTo(rec Record) Record {
	out := rec
	for field, val := range c {
		switch field {
		case FieldStateID:
			out.StateID = val.(string)
		case FieldCropID:
			out.CropID = val.(string)
		case FieldSeasonID:
			out.SeasonID = val.(string)
		case FieldYear:
			out.Year = val.(int)
		default:
			if p, ok := out.Measurements.Fields()[field]; ok {
				v := val.(float64)
				*p = &v
			}
		}
	}
	return out
}

// Diff returns the assignments that turn cur into next. Only fields that
// differ are included.
func Diff(cur, next Record) Changes {
	out := Changes{}
	if cur.StateID != next.StateID {
		out[FieldStateID] = next.StateID
	}
	if cur.CropID != next.CropID {
		out[FieldCropID] = next.CropID
	}
	if cur.SeasonID != next.SeasonID {
		out[FieldSeasonID] = next.SeasonID
	}
	if cur.Year != next.Year {
		out[FieldYear] = next.Year
	}
	curM := cur.Measurements
	nextM := next.Measurements
	curF := curM.Fields()
	for name, np := range nextM.Fields() {
		if *np == nil {
			continue
		}
		cp := *curF[name]
		if cp == nil || *cp != **np {
			out[name] = **np
		}
	}
	return out
}

// CropYieldRecord is the relational row for a fact record.
type CropYieldRecord struct {
	RecordID       uuid.UUID `gorm:"type:uuid;column:record_id;primaryKey"`
	StateID        uuid.UUID `gorm:"type:uuid;column:state_id;not null;uniqueIndex:idx_crop_yield_natural_key,priority:1"`
	CropID         uuid.UUID `gorm:"type:uuid;column:crop_id;not null;uniqueIndex:idx_crop_yield_natural_key,priority:2"`
	SeasonID       uuid.UUID `gorm:"type:uuid;column:season_id;not null;uniqueIndex:idx_crop_yield_natural_key,priority:3"`
	CropYear       int       `gorm:"column:crop_year;not null;uniqueIndex:idx_crop_yield_natural_key,priority:4;index"`
	Area           *float64  `gorm:"column:area"`
	Production     *float64  `gorm:"column:production"`
	AnnualRainfall *float64  `gorm:"column:annual_rainfall"`
	Fertilizer     *float64  `gorm:"column:fertilizer"`
	Pesticide      *float64  `gorm:"column:pesticide"`
	Yield          *float64  `gorm:"column:yield"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index"`
}

func (CropYieldRecord) TableName() string { return RecordCollection }
