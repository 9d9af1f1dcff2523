package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	attendance "axiapac.com/backoffice/attendance/core"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func importCmd(flags *globalFlags) *cobra.Command {
	var (
		s3Key  string
		tenant string
	)

	cmd := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Load clock device punches from a CSV export",
		Long: `Load clock device punches from a CSV export.

The file has a header row and the columns id,user_id,timestamp,location with
RFC3339 timestamps. Punches are dated in attendance.timezone. Punches already
stored are skipped, so a file can be imported more than once.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (s3Key == "") {
				return fmt.Errorf("pass either FILE or --s3-key")
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			var src io.Reader
			if s3Key != "" {
				store, err := connectArchive(cmd, a)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := store.ReadFile(ctx, s3Key, &buf); err != nil {
					return err
				}
				src = &buf
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				src = f
			}

			punches, err := attendance.ParsePunchCSV(src, a.cfg.Attendance.Location)
			if err != nil {
				return err
			}

			var result *attendance.ImportResult
			err = a.dm.Exec(ctx, tenant, func(db *gorm.DB) error {
				var err error
				result, err = a.service().Import(ctx, db, punches)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d punches imported into %d attendances, %d duplicates\n",
				displayTenant(tenant), result.Imported, result.Attendances, result.Duplicates)
			for _, issue := range result.Skipped {
				fmt.Fprintf(out, "line %d skipped: %s\n", issue.Line, issue.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&s3Key, "s3-key", "", "Read the file from the export bucket instead of disk")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant schema (multi-tenant deployments)")
	return cmd
}
