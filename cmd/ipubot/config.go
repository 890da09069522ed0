package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/ipubot/internal/constants"
)

func newConfigCmd(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Validate ipubot configuration.`,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate configuration file",
		Long:  `Load the configuration file, apply defaults and report every problem found.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if len(args) > 0 {
				path = args[0]
			}

			if _, err := loadConfig(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), constants.MsgConfigValid)
			return nil
		},
	})

	return configCmd
}
