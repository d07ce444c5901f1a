package main

import (
	"fmt"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/spf13/cobra"
)

type refreshOptions struct {
	within      time.Duration
	concurrency int
	userID      string
	platform    string
}

func newRefreshCommand(root *rootOptions) *cobra.Command {
	opts := &refreshOptions{}

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh tokens that are about to expire",
		Long: `Refresh every connected account whose access token expires within the
given window. With --user and --platform only that account is refreshed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := newApp(ctx, root, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()

			if opts.userID != "" || opts.platform != "" {
				if opts.userID == "" || opts.platform == "" {
					return fmt.Errorf("--user and --platform must be used together")
				}
				platform, err := oauth.ParsePlatform(opts.platform)
				if err != nil {
					return err
				}
				o, err := app.manager.Orchestrator(platform)
				if err != nil {
					return err
				}
				account, err := o.RefreshAccount(ctx, opts.userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "refreshed %s account %s, expires %s\n", platform.DisplayName(), account.ID, formatExpiry(account.TokenExpiry))
				return nil
			}

			report, err := app.manager.RefreshExpiring(ctx, opts.within, opts.concurrency)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "attempted=%d refreshed=%d skipped=%d\n", report.Attempted, report.Refreshed, report.Skipped)
			for _, res := range report.Failed() {
				fmt.Fprintf(out, "  failed %s %s: %v\n", res.Platform, res.AccountID, res.Err)
			}
			if failed := len(report.Failed()); failed > 0 {
				return fmt.Errorf("%d refresh(es) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&opts.within, "within", 15*time.Minute, "refresh tokens expiring within this window")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "parallel refreshes")
	cmd.Flags().StringVar(&opts.userID, "user", "", "refresh a single user's account")
	cmd.Flags().StringVar(&opts.platform, "platform", "", "platform of the single account, e.g. twitter")
	return cmd
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
