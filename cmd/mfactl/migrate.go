package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mfakit/core/config"
	"github.com/dmitrymomot/mfakit/integration/database/pg"
	"github.com/dmitrymomot/mfakit/integration/mfastore/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations (PG_* settings)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg pg.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}

			pool, err := pg.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return pg.Migrate(cmd.Context(), pool, postgres.Migrations, cfg, a.log)
		},
	}
}
