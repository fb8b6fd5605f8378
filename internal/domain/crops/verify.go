package crops

// DuplicateKey is a natural key held by more than one record.
type DuplicateKey struct {
	StateID  string `json:"state_id"`
	CropID   string `json:"crop_id"`
	SeasonID string `json:"season_id"`
	Year     int    `json:"year"`
	Count    int64  `json:"count"`
}

// VerifyReport summarizes the integrity of one backend after an import.
type VerifyReport struct {
	Backend       string           `json:"backend"`
	Counts        map[string]int64 `json:"counts"`
	Dangling      map[string]int64 `json:"dangling_references"`
	DuplicateKeys []DuplicateKey   `json:"duplicate_keys"`
}

func NewVerifyReport(backend string) *VerifyReport {
	return &VerifyReport{
		Backend:  backend,
		Counts:   map[string]int64{},
		Dangling: map[string]int64{},
	}
}

// Healthy is true when no record points at a missing dimension and every
// natural key is unique.
func (r *VerifyReport) Healthy() bool {
	for _, n := range r.Dangling {
		if n > 0 {
			return false
		}
	}
	return len(r.DuplicateKeys) == 0
}
