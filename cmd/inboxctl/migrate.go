package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/guest-inbox/internal/persistence"
)

func (c *cli) migrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to POSTGRES_DSN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg == nil || c.cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required for migrate")
			}
			if dir == "" {
				dir = c.cfg.Postgres.MigrationsDir
			}

			pg, err := persistence.NewPostgres(cmd.Context(), c.cfg.Postgres, c.logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			if err := persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), dir, c.logger); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "migrations from %s applied\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
	return cmd
}
