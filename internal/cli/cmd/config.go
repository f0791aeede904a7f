package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"funlight/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Print the effective settings as YAML",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Load().WriteYAML(cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "path",
		Short:         "Print the config file location",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.File())
			return nil
		},
	})
	return cmd
}
