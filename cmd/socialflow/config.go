package main

import (
	"fmt"

	"github.com/goliatone/go-print"
	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/spf13/cobra"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := oauth.LoadConfig(root.configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, print.MaybePrettyJSON(cfg.Redacted()))

			if validate {
				if err := cfg.Validate(); err != nil {
					return err
				}
				fmt.Fprintln(out, "configuration is valid")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "fail when required settings are missing")
	return cmd
}
