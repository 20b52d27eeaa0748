// Package cmd wires the command-line interface for the tracker service.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

type appKeyType struct{}

var appKey appKeyType

// appFromContext retrieves the application built by PersistentPreRunE.
func appFromContext(ctx context.Context) (*application, error) {
	app, ok := ctx.Value(appKey).(*application)
	if !ok || app == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return app, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onionwatch",
		Short: "Tracks the liveness of hidden-service links and filters their content.",
		Long: `onionwatch maintains a database of .onion addresses scraped from link
directories. It verifies which addresses respond, expires links that have been
dead too long, and scans the surviving pages for configured keywords.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(cfgFile)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app, ok := cmd.Context().Value(appKey).(*application); ok && app != nil {
				app.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is onionwatch.yaml in the working directory)")

	cmd.AddCommand(newTrackCmd())
	cmd.AddCommand(newFilterCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
