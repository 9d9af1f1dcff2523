package main

import (
	"fmt"

	"axiapac.com/backoffice/core"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func migrateCmd(flags *globalFlags) *cobra.Command {
	var (
		tenant string
		seed   bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema of every tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			tenants, err := a.tenants(ctx, tenant)
			if err != nil {
				return err
			}
			for _, t := range tenants {
				err := a.dm.Exec(ctx, t, func(db *gorm.DB) error {
					if err := core.Migrate(db); err != nil {
						return err
					}
					if seed {
						return core.SeedRoles(db)
					}
					return nil
				})
				if err != nil {
					return fmt.Errorf("tenant %q: %w", t, err)
				}
				a.logger.Info("schema migrated", "tenant", t, "seeded", seed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Only migrate this tenant schema")
	cmd.Flags().BoolVar(&seed, "seed", true, "Create the default roles and permissions")
	return cmd
}
