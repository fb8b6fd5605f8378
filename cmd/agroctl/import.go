package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/agroyield-backend/internal/importer"
)

type importOptions struct {
	backend string
	file    string
	workers int
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert crop yield rows from a CSV or XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.backend, "backend", "postgres", "Backend: postgres, mongodb or memory")
	cmd.Flags().StringVar(&opts.file, "file", "", "Input file, .csv or .xlsx (required)")
	cmd.Flags().IntVar(&opts.workers, "workers", importer.DefaultWorkers, "Concurrent upsert workers")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	ctx := cmd.Context()
	rows, err := importer.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.file, err)
	}
	defer rows.Close()

	sess, err := openSession(ctx, opts.backend)
	if err != nil {
		return err
	}
	defer sess.close()

	im, err := importer.New(importer.Deps{
		Log:     sess.log,
		Target:  sess.service,
		Workers: opts.workers,
	})
	if err != nil {
		return err
	}
	sum, err := im.Run(ctx, rows)
	if encErr := writeJSON(cmd, sum); encErr != nil && err == nil {
		err = encErr
	}
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return withCode(exitUnhealthy, fmt.Errorf("%d rows failed", sum.Failed))
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
