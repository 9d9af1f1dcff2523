package main

import (
	"fmt"
	"os"
	"path/filepath"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/attendance/export"
	"axiapac.com/backoffice/infrastructure/filesystem"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func exportCmd(flags *globalFlags) *cobra.Command {
	var (
		groupBy string
		start   string
		end     string
		userID  uint
		areaID  uint
		tenant  string
		out     string
		archive bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the attendance report of one tenant as a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := attendance.ReportFilter{StartDate: start, EndDate: end}
			if userID > 0 {
				filter.UserID = &userID
			}
			if areaID > 0 {
				filter.AreaID = &areaID
			}
			pt := attendance.ParsePeriodType(groupBy)

			var buckets []attendance.PeriodBucket
			err = a.dm.Exec(ctx, tenant, func(db *gorm.DB) error {
				var err error
				buckets, filter, err = a.service().Report(ctx, db, filter, pt)
				return err
			})
			if err != nil {
				return err
			}

			buf, err := export.Render(buckets)
			if err != nil {
				return err
			}
			name := export.FileName(pt, filter.StartDate, filter.EndDate)
			if out == "" {
				out = name
			} else if info, err := os.Stat(out); err == nil && info.IsDir() {
				out = filepath.Join(out, name)
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows written to %s\n", len(buckets), out)

			if archive {
				store, err := connectArchive(cmd, a)
				if err != nil {
					return err
				}
				key := store.Key(tenant, name)
				if err := store.WriteFile(ctx, key, export.ContentType, buf.Bytes()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archived as %s\n", key)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&groupBy, "group-by", "day", "Period: day, week or month")
	cmd.Flags().StringVar(&start, "start", "", "First date, YYYY-MM-DD (defaults to the start of this month)")
	cmd.Flags().StringVar(&end, "end", "", "Last date, YYYY-MM-DD (defaults to the end of this month)")
	cmd.Flags().UintVar(&userID, "user-id", 0, "Only this user")
	cmd.Flags().UintVar(&areaID, "area-id", 0, "Only users of this area")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant schema (multi-tenant deployments)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file or directory")
	cmd.Flags().BoolVar(&archive, "archive", false, "Also upload the file to the export bucket")

	cmd.AddCommand(exportListCmd(flags), exportFetchCmd(flags))
	return cmd
}

func connectArchive(cmd *cobra.Command, a *app) (*filesystem.Archive, error) {
	if a.cfg.Export.S3Bucket == "" {
		return nil, fmt.Errorf("export.s3_bucket is not set")
	}
	return filesystem.ConnectArchive(cmd.Context(), a.cfg.Export.S3Bucket, a.cfg.Export.S3Prefix)
}

func exportListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			store, err := connectArchive(cmd, &app{cfg: cfg, logger: logger})
			if err != nil {
				return err
			}
			keys, err := store.ListFiles(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func exportFetchCmd(flags *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "fetch KEY",
		Short: "Download an archived export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			store, err := connectArchive(cmd, &app{cfg: cfg, logger: logger})
			if err != nil {
				return err
			}

			key := args[0]
			if out == "" {
				out = filepath.Base(key)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := store.ReadFile(cmd.Context(), key, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s written to %s\n", key, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to the key's base name)")
	return cmd
}
