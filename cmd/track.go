package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/onionwatch/onionwatch/internal/collector"
	"github.com/onionwatch/onionwatch/internal/sweeper"
	"github.com/onionwatch/onionwatch/internal/verifier"
)

func newTrackCmd() *cobra.Command {
	var cleanOldDays int

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Collect candidate addresses, verify liveness, and optionally expire stale links.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := appFromContext(ctx)
			if err != nil {
				return err
			}

			store, err := app.openLinkStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			fetch, err := app.probeFetcher()
			if err != nil {
				return err
			}

			addresses := collector.New(fetch, app.cfg.Sources, app.logger).Collect(ctx)

			v := verifier.New(store, fetch, app.clock, app.hub,
				verifier.Config{Workers: app.cfg.Verifier.Workers}, app.logger)
			stats := v.Run(ctx, addresses)
			app.logger.Info("verification complete",
				zap.Int64("processed", stats.Processed),
				zap.Int64("alive", stats.Alive),
				zap.Int64("dead", stats.Dead),
			)

			if cleanOldDays > 0 {
				deleted, err := sweeper.New(store, app.clock, app.logger).Sweep(ctx, cleanOldDays)
				if err != nil {
					return err
				}
				app.logger.Info("stale links removed", zap.Int64("deleted", deleted))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&cleanOldDays, "clean-old", 0,
		"delete dead links not seen alive within this many days (0 disables)")

	return cmd
}
