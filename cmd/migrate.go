package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"praxis-recording/config"
	"praxis-recording/migrations"
)

func migrate(cfg *config.Config) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := config.SetupLogger(cfg)
			if err := migrations.Up(cfg.DB); err != nil {
				return err
			}
			zerolog.Ctx(ctx).Info().Msg("migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := config.SetupLogger(cfg)
			if err := migrations.Down(cfg.DB, steps); err != nil {
				return err
			}
			zerolog.Ctx(ctx).Info().Int("steps", steps).Msg("migrations rolled back")
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(down)

	return migrateCmd
}
