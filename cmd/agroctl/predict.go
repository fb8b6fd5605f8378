package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/agroyield-backend/internal/platform/logger"
	"github.com/yungbote/agroyield-backend/internal/predict"
)

type predictOptions struct {
	url      string
	backend  string
	modelURL string
	timeout  time.Duration
}

func newPredictCmd() *cobra.Command {
	var opts predictOptions

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Feed the latest record's engineered features to a yield model",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := predict.NewFeeder(predict.Deps{
				Log:        logger.Nop(),
				HTTPClient: &http.Client{Timeout: opts.timeout},
			})
			res, err := f.Run(cmd.Context(), predict.LatestURL(opts.url, opts.backend), opts.modelURL)
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "http://127.0.0.1:8000", "Base URL of a running API")
	cmd.Flags().StringVar(&opts.backend, "backend", "mongodb", "Backend whose latest record is used")
	cmd.Flags().StringVar(&opts.modelURL, "model-url", "", "Prediction endpoint; features are only printed when empty")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "HTTP timeout")
	return cmd
}
