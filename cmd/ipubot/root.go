package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/ipubot/internal/config"
	"github.com/aatumaykin/ipubot/internal/constants"
	"github.com/aatumaykin/ipubot/internal/messages"
	"github.com/aatumaykin/ipubot/internal/version"
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "ipubot",
		Short: "ipubot - periodic event reminders and a chat point ledger",
		Long: `ipubot announces upcoming occurrences of cron-scheduled events
and answers chat commands that manage events and a per-user point ledger.`,
		Version:      version.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", constants.DefaultConfigPath, "Path to configuration file")

	root.AddCommand(
		newServeCmd(&configPath),
		newEventsCmd(&configPath),
		newConfigCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the optional .env file, then loads and validates path.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", constants.DefaultEnvPath, err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.New(messages.FormatConfigLoadError(err))
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.New(messages.FormatValidationErrors(errs))
	}
	return cfg, nil
}
