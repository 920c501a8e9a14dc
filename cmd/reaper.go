package cmd

import (
	"context"
	"errors"
	"github.com/spf13/cobra"
	"os/signal"
	"praxis-recording/config"
	"praxis-recording/repository"
	"praxis-recording/service"
	"syscall"
)

func reaper(cfg *config.Config) *cobra.Command {
	var once bool
	reaperCmd := &cobra.Command{
		Use:   "reaper",
		Short: "pause recordings whose heartbeat went stale",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(config.SetupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			db, err := config.NewGorm(cfg)
			if err != nil {
				return err
			}

			r := service.NewReaper(repository.NewRepo(db), cfg.Recording.HeartbeatStaleAfter, cfg.Recording.ReaperInterval, nil)
			if once {
				_, err := r.Sweep(ctx)
				return err
			}

			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	reaperCmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return reaperCmd
}
