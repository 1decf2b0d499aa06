package cli

import (
	"errors"
	"fmt"
	"os"

	"braidsbar/queue-service/internal/config"
	"braidsbar/queue-service/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				names, err := migrations.Names()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
			if cfg.DatabaseURL == "" {
				return errors.New("DB_DSN is required to run migrations")
			}
			pool, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()
			if err := migrations.Apply(cmd.Context(), pool); err != nil {
				logger.Error().Err(err).Msg("migration failed")
				return err
			}
			logger.Info().Msg("migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print migration names without applying them")
	return cmd
}
