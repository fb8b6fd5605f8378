package crops

import "strings"

// featureEpsilon keeps per-area ratios finite when area is zero.
const featureEpsilon = 1e-6

// FeatureInput is a latest-record snapshot in the shape the model expects.
type FeatureInput struct {
	Crop           string
	Season         string
	State          string
	CropYear       int
	Area           float64
	Production     float64
	AnnualRainfall float64
	Fertilizer     float64
	Pesticide      float64
}

// Features is the engineered vector fed to the yield model. Keys match the
// model's training columns.
type Features struct {
	CropYear          int     `json:"Crop_Year"`
	Area              float64 `json:"Area"`
	Production        float64 `json:"Production"`
	AnnualRainfall    float64 `json:"Annual_Rainfall"`
	Fertilizer        float64 `json:"Fertilizer"`
	Pesticide         float64 `json:"Pesticide"`
	FertilizerPerArea float64 `json:"Fertilizer_per_Area"`
	PesticidePerArea  float64 `json:"Pesticide_per_Area"`
	ProductionPerArea float64 `json:"Production_per_Area"`
	Decade            int     `json:"Decade"`
	Crop              string  `json:"Crop"`
	Season            string  `json:"Season"`
	State             string  `json:"State"`
	RainfallCategory  string  `json:"Rainfall_Category"`
	AreaCategory      string  `json:"Area_Category"`
}

func DeriveFeatures(in FeatureInput) Features {
	return Features{
		CropYear:          in.CropYear,
		Area:              in.Area,
		Production:        in.Production,
		AnnualRainfall:    in.AnnualRainfall,
		Fertilizer:        in.Fertilizer,
		Pesticide:         in.Pesticide,
		FertilizerPerArea: in.Fertilizer / (in.Area + featureEpsilon),
		PesticidePerArea:  in.Pesticide / (in.Area + featureEpsilon),
		ProductionPerArea: in.Production / (in.Area + featureEpsilon),
		Decade:            (in.CropYear / 10) * 10,
		Crop:              strings.TrimSpace(in.Crop),
		Season:            strings.TrimSpace(in.Season),
		State:             strings.TrimSpace(in.State),
		RainfallCategory:  RainfallCategory(in.AnnualRainfall),
		AreaCategory:      AreaCategory(in.Area),
	}
}

// RainfallCategory buckets annual rainfall (mm) into left-closed bins.
// Negative values have no category.
func RainfallCategory(mm float64) string {
	switch {
	case mm < 0 || mm != mm:
		return ""
	case mm < 1000:
		return "Low"
	case mm < 1500:
		return "Medium"
	case mm < 2000:
		return "High"
	default:
		return "Very High"
	}
}

// AreaCategory buckets cultivated area (hectares) into left-closed bins.
func AreaCategory(ha float64) string {
	switch {
	case ha < 0 || ha != ha:
		return ""
	case ha < 10000:
		return "Small"
	case ha < 50000:
		return "Medium"
	case ha < 100000:
		return "Large"
	default:
		return "Very Large"
	}
}
