package crops

import "time"

// RelationalRecordResponse joins dimension names into the record.
type RelationalRecordResponse struct {
	RecordID       string    `json:"record_id"`
	StateName      string    `json:"state_name"`
	CropName       string    `json:"crop_name"`
	SeasonName     string    `json:"season_name"`
	CropYear       int       `json:"crop_year"`
	Area           *float64  `json:"area"`
	Production     *float64  `json:"production"`
	AnnualRainfall *float64  `json:"annual_rainfall"`
	Fertilizer     *float64  `json:"fertilizer"`
	Pesticide      *float64  `json:"pesticide"`
	YieldValue     *float64  `json:"yield_value"`
	CreatedAt      time.Time `json:"created_at"`
}

// DocumentRecordResponse echoes dimension ids without a join.
type DocumentRecordResponse struct {
	ID             string    `json:"id"`
	StateID        string    `json:"state_id"`
	CropID         string    `json:"crop_id"`
	SeasonID       string    `json:"season_id"`
	Year           int       `json:"year"`
	Area           *float64  `json:"area"`
	Production     *float64  `json:"production"`
	AnnualRainfall *float64  `json:"annual_rainfall"`
	Fertilizer     *float64  `json:"fertilizer"`
	Pesticide      *float64  `json:"pesticide"`
	YieldValue     *float64  `json:"yield_value"`
	CreatedAt      time.Time `json:"created_at"`
}

// Project renders a view in the response shape of the given flavor.
func Project(flavor Flavor, v RecordView) any {
	if flavor == FlavorDocument {
		return DocumentRecordResponse{
			ID:             v.ID,
			StateID:        v.StateID,
			CropID:         v.CropID,
			SeasonID:       v.SeasonID,
			Year:           v.Year,
			Area:           v.Area,
			Production:     v.Production,
			AnnualRainfall: v.AnnualRainfall,
			Fertilizer:     v.Fertilizer,
			Pesticide:      v.Pesticide,
			YieldValue:     v.Yield,
			CreatedAt:      v.CreatedAt.UTC(),
		}
	}
	return RelationalRecordResponse{
		RecordID:       v.ID,
		StateName:      v.StateName,
		CropName:       v.CropName,
		SeasonName:     v.SeasonName,
		CropYear:       v.Year,
		Area:           v.Area,
		Production:     v.Production,
		AnnualRainfall: v.AnnualRainfall,
		Fertilizer:     v.Fertilizer,
		Pesticide:      v.Pesticide,
		YieldValue:     v.Yield,
		CreatedAt:      v.CreatedAt.UTC(),
	}
}

func ProjectAll(flavor Flavor, views []RecordView) []any {
	out := make([]any, 0, len(views))
	for _, v := range views {
		out = append(out, Project(flavor, v))
	}
	return out
}
