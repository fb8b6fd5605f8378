package crops

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError collects every problem found in one input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "invalid input"
	}
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// ErrNoUpdateFields is the message for an update that supplies nothing.
const ErrNoUpdateFields = "no fields provided for update"

// ValidateCreate checks a create request against the flavor's schema.
func ValidateCreate(in CreateInput, flavor Flavor) error {
	return validateCreate(in, flavor.RequiresMeasurements())
}

// ValidateImport checks a bulk-loaded row. Blank measurements are stored as
// NULL on every flavor; supplied ones are still range-checked.
func ValidateImport(in CreateInput) error {
	return validateCreate(in, false)
}

func validateCreate(in CreateInput, requireMeasurements bool) error {
	v := &ValidationError{}
	checkName(v, DimensionState, in.State)
	checkName(v, DimensionCrop, in.Crop)
	checkName(v, DimensionSeason, in.Season)
	checkYear(v, in.Year)
	m := in.Measurements
	fields := m.Fields()
	for _, name := range MeasurementFields {
		p := *fields[name]
		if p == nil {
			if requireMeasurements {
				v.add("%s is required", name)
			}
			continue
		}
		checkMeasurement(v, name, *p)
	}
	return v.orNil()
}

// ValidateUpdate checks supplied fields only. An update with no fields is
// rejected before any storage access.
func ValidateUpdate(in UpdateInput) error {
	if in.Empty() {
		return &ValidationError{Problems: []string{ErrNoUpdateFields}}
	}
	v := &ValidationError{}
	if in.State.Set {
		checkName(v, DimensionState, in.State.Value)
	}
	if in.Crop.Set {
		checkName(v, DimensionCrop, in.Crop.Value)
	}
	if in.Season.Set {
		checkName(v, DimensionSeason, in.Season.Value)
	}
	if in.Year.Set {
		checkYear(v, in.Year.Value)
	}
	for _, name := range MeasurementFields {
		if o := in.measurements()[name]; o.Set {
			checkMeasurement(v, name, o.Value)
		}
	}
	return v.orNil()
}

// ValidateFilter bounds-checks paging. Callers fill in DefaultListLimit when
// no limit was supplied; an explicit zero is rejected.
func ValidateFilter(f *RecordFilter) error {
	v := &ValidationError{}
	if f.Limit < 1 || f.Limit > MaxListLimit {
		v.add("limit must be between 1 and %d", MaxListLimit)
	}
	if f.Offset < 0 {
		v.add("offset must be >= 0")
	}
	if f.Year != nil {
		checkYear(v, *f.Year)
	}
	f.State = strings.TrimSpace(f.State)
	f.Crop = strings.TrimSpace(f.Crop)
	f.Season = strings.TrimSpace(f.Season)
	return v.orNil()
}

func checkName(v *ValidationError, kind DimensionKind, name string) {
	if NormalizeName(name) == "" {
		v.add("%s must not be blank", kind.NameField())
	}
}

func checkYear(v *ValidationError, year int) {
	if year < MinYear || year > MaxYear {
		v.add("year must be between %d and %d", MinYear, MaxYear)
	}
}

func checkMeasurement(v *ValidationError, name string, val float64) {
	switch {
	case math.IsNaN(val) || math.IsInf(val, 0):
		v.add("%s must be a finite number", name)
	case val < 0:
		v.add("%s must be >= 0", name)
	}
}

// YieldTolerance is the accepted relative gap between yield and production/area.
const YieldTolerance = 0.05

// YieldDeviation returns |yield - production/area| / (production/area). ok is
// false when the ratio is undefined or yield is absent.
func YieldDeviation(m Measurements) (dev float64, ok bool) {
	if m.Yield == nil || m.Area == nil || m.Production == nil {
		return 0, false
	}
	if *m.Area <= 0 || *m.Production <= 0 {
		return 0, false
	}
	expected := *m.Production / *m.Area
	return math.Abs(*m.Yield-expected) / expected, true
}

// YieldCheckMode selects what happens when yield disagrees with production/area.
type YieldCheckMode string

const (
	YieldCheckOff    YieldCheckMode = "off"
	YieldCheckWarn   YieldCheckMode = "warn"
	YieldCheckReject YieldCheckMode = "reject"
)

func ParseYieldCheckMode(raw string) YieldCheckMode {
	switch YieldCheckMode(strings.ToLower(strings.TrimSpace(raw))) {
	case YieldCheckWarn:
		return YieldCheckWarn
	case YieldCheckReject:
		return YieldCheckReject
	default:
		return YieldCheckOff
	}
}
