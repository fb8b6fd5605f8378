package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report collection counts, dangling dimension ids and duplicate keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, backend)
			if err != nil {
				return err
			}
			defer sess.close()

			report, err := sess.service.Verify(ctx)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd, report); err != nil {
				return err
			}
			if !report.Healthy() {
				return withCode(exitUnhealthy, fmt.Errorf("backend %s failed verification", backend))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "postgres", "Backend: postgres, mongodb or memory")
	return cmd
}
