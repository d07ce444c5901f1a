package main

import (
	"fmt"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/noobskies/socialflow-sub001/repository"
	"github.com/spf13/cobra"
)

func newSweepCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired OAuth states",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), root, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.manager.SweepExpiredStates(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired state(s)\n", n)
			return nil
		},
	}
}

func newMigrateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the account and state tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := oauth.LoadConfig(root.configPath)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return oauth.InvalidConfiguration(oauth.DatabaseURLEnv, "not configured")
			}

			db, err := repository.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
