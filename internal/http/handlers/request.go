package handlers

import (
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
)

// recordRequest accepts the create and update bodies of both flavors. The
// relational flavor reads the year from crop_year, the document flavor from
// year; the other key is ignored. "yield" and "yield_value" are synonyms.
type recordRequest struct {
	StateName      crops.Optional[string]  `json:"state_name"`
	CropName       crops.Optional[string]  `json:"crop_name"`
	SeasonName     crops.Optional[string]  `json:"season_name"`
	CropYear       crops.Optional[int]     `json:"crop_year"`
	Year           crops.Optional[int]     `json:"year"`
	Area           crops.Optional[float64] `json:"area"`
	Production     crops.Optional[float64] `json:"production"`
	AnnualRainfall crops.Optional[float64] `json:"annual_rainfall"`
	Fertilizer     crops.Optional[float64] `json:"fertilizer"`
	Pesticide      crops.Optional[float64] `json:"pesticide"`
	Yield          crops.Optional[float64] `json:"yield"`
	YieldValue     crops.Optional[float64] `json:"yield_value"`
}

func (r recordRequest) year(flavor crops.Flavor) crops.Optional[int] {
	if flavor == crops.FlavorDocument {
		return r.Year
	}
	return r.CropYear
}

func (r recordRequest) yield() crops.Optional[float64] {
	if r.Yield.Set {
		return r.Yield
	}
	return r.YieldValue
}

func (r recordRequest) toCreate(flavor crops.Flavor) crops.CreateInput {
	return crops.CreateInput{
		State:  r.StateName.Value,
		Crop:   r.CropName.Value,
		Season: r.SeasonName.Value,
		Year:   r.year(flavor).Value,
		Measurements: crops.Measurements{
			Area:           r.Area.Ptr(),
			Production:     r.Production.Ptr(),
			AnnualRainfall: r.AnnualRainfall.Ptr(),
			Fertilizer:     r.Fertilizer.Ptr(),
			Pesticide:      r.Pesticide.Ptr(),
			Yield:          r.yield().Ptr(),
		},
	}
}

func (r recordRequest) toUpdate(flavor crops.Flavor) crops.UpdateInput {
	return crops.UpdateInput{
		State:          r.StateName,
		Crop:           r.CropName,
		Season:         r.SeasonName,
		Year:           r.year(flavor),
		Area:           r.Area,
		Production:     r.Production,
		AnnualRainfall: r.AnnualRainfall,
		Fertilizer:     r.Fertilizer,
		Pesticide:      r.Pesticide,
		Yield:          r.yield(),
	}
}
