package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/onionwatch/onionwatch/internal/scanner"
)

func newFilterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filter",
		Short: "Scan every alive address for configured keywords and record the matches.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := appFromContext(ctx)
			if err != nil {
				return err
			}

			links, err := app.openLinkStore(ctx)
			if err != nil {
				return err
			}
			defer links.Close()

			matches, err := app.openFilterStore(ctx)
			if err != nil {
				return err
			}
			defer matches.Close()

			fetch, err := app.filterFetcher()
			if err != nil {
				return err
			}

			s := scanner.New(links, matches, fetch, app.clock, app.hub, scanner.Config{
				Keywords:       app.cfg.Keywords,
				ScamPatterns:   app.cfg.ScamPatterns,
				MaxAttempts:    app.cfg.Filter.MaxAttempts,
				RetryBaseDelay: time.Duration(app.cfg.Filter.RetryBaseSeconds) * time.Second,
				RetryDelayStep: time.Duration(app.cfg.Filter.RetryStepSeconds) * time.Second,
				SnippetBefore:  app.cfg.Filter.SnippetBeforeSize,
				SnippetAfter:   app.cfg.Filter.SnippetAfterSize,
			}, app.logger)

			return s.Run(ctx)
		},
	}
}
