package main

import (
	"fmt"

	"axiapac.com/backoffice/utils"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func recalculateCmd(flags *globalFlags) *cobra.Command {
	var (
		start  string
		end    string
		tenant string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Recompute attendance totals from their time records",
		Long: `Recompute attendance totals from their time records.

Without --force only rows reporting zero minutes while owning records are
recomputed. The range defaults to yesterday.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if start == "" {
				start = a.clock.Now().AddDate(0, 0, -1).Format(utils.DateLayout)
			}
			if end == "" {
				end = start
			}
			if _, err := utils.ParseDate(start); err != nil {
				return err
			}
			if _, err := utils.ParseDate(end); err != nil {
				return err
			}

			tenants, err := a.tenants(ctx, tenant)
			if err != nil {
				return err
			}
			service := a.service()
			for _, t := range tenants {
				var count int
				err := a.dm.Exec(ctx, t, func(db *gorm.DB) error {
					var err error
					count, err = service.Recalculate(ctx, db, start, end, force)
					return err
				})
				if err != nil {
					return fmt.Errorf("tenant %q: %w", t, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d attendances recomputed (%s..%s)\n", displayTenant(t), count, start, end)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First date, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last date, YYYY-MM-DD (defaults to --start)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Only visit this tenant schema")
	cmd.Flags().BoolVar(&force, "force", false, "Recompute every row in range, not only stale ones")
	return cmd
}

func displayTenant(t string) string {
	if t == "" {
		return "default"
	}
	return t
}
