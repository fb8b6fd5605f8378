package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/observability"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

// LatestRecord accepts both record response shapes. Document responses carry
// dimension ids where relational ones carry names.
type LatestRecord struct {
	RecordID       string   `json:"record_id"`
	ID             string   `json:"id"`
	StateName      string   `json:"state_name"`
	CropName       string   `json:"crop_name"`
	SeasonName     string   `json:"season_name"`
	StateID        string   `json:"state_id"`
	CropID         string   `json:"crop_id"`
	SeasonID       string   `json:"season_id"`
	CropYear       *int     `json:"crop_year"`
	Year           *int     `json:"year"`
	Area           *float64 `json:"area"`
	Production     *float64 `json:"production"`
	AnnualRainfall *float64 `json:"annual_rainfall"`
	Fertilizer     *float64 `json:"fertilizer"`
	Pesticide      *float64 `json:"pesticide"`
}

// FeatureInput maps the record onto the model's input columns.
func (r LatestRecord) FeatureInput() (crops.FeatureInput, error) {
	year := r.CropYear
	if year == nil {
		year = r.Year
	}
	if year == nil {
		return crops.FeatureInput{}, errors.New("latest record has no year")
	}
	return crops.FeatureInput{
		Crop:           firstNonEmpty(r.CropName, r.CropID),
		Season:         firstNonEmpty(r.SeasonName, r.SeasonID),
		State:          firstNonEmpty(r.StateName, r.StateID),
		CropYear:       *year,
		Area:           deref(r.Area),
		Production:     deref(r.Production),
		AnnualRainfall: deref(r.AnnualRainfall),
		Fertilizer:     deref(r.Fertilizer),
		Pesticide:      deref(r.Pesticide),
	}, nil
}

type Deps struct {
	Log        *logger.Logger
	HTTPClient *http.Client
}

// Feeder pulls the newest record from a running API and hands its engineered
// features to a prediction endpoint.
type Feeder struct {
	log    *logger.Logger
	client *client
}

func NewFeeder(deps Deps) *Feeder {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &Feeder{
		log:    deps.Log.With("service", "PredictionFeeder"),
		client: newClient(deps.HTTPClient),
	}
}

// Result is what one feed produced. Prediction is the model's raw JSON reply
// and is empty when no model URL was given.
type Result struct {
	Record     LatestRecord    `json:"record"`
	Features   crops.Features  `json:"features"`
	Prediction json.RawMessage `json:"prediction,omitempty"`
}

// LatestURL builds the latest-record endpoint for a backend on a base URL.
func LatestURL(baseURL, backend string) string {
	return strings.TrimRight(baseURL, "/") + "/api/" + backend + "/records/latest"
}

func (f *Feeder) Fetch(ctx context.Context, latestURL string) (LatestRecord, error) {
	raw, err := f.client.do(ctx, http.MethodGet, latestURL, nil)
	if err != nil {
		return LatestRecord{}, fmt.Errorf("fetch latest record: %w", err)
	}
	var rec LatestRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return LatestRecord{}, fmt.Errorf("decode latest record: %w", err)
	}
	return rec, nil
}

// Run fetches, derives features and, when modelURL is set, posts them.
func (f *Feeder) Run(ctx context.Context, latestURL, modelURL string) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "predict.feed")
	defer span.End()

	rec, err := f.Fetch(ctx, latestURL)
	if err != nil {
		return nil, err
	}
	in, err := rec.FeatureInput()
	if err != nil {
		return nil, err
	}
	res := &Result{Record: rec, Features: crops.DeriveFeatures(in)}
	f.log.Info("features derived",
		"crop", res.Features.Crop,
		"state", res.Features.State,
		"crop_year", res.Features.CropYear,
	)
	if strings.TrimSpace(modelURL) == "" {
		return res, nil
	}

	raw, err := f.client.do(ctx, http.MethodPost, modelURL, res.Features)
	if err != nil {
		return nil, fmt.Errorf("model request: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("model returned non-JSON body: %q", string(raw))
	}
	res.Prediction = json.RawMessage(raw)
	return res, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
