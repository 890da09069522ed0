package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/ipubot/internal/app"
	"github.com/aatumaykin/ipubot/internal/logger"
	"github.com/aatumaykin/ipubot/internal/version"
)

func newServeCmd(configPath *string) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start ipubot (main command)",
		Long: `Start ipubot with the given configuration.
This opens storage, starts the reminder loop, the command handler and the
Telegram connector, and shuts them down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			log, err := logger.New(logger.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cfg.Logging.Output,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger.SetDefault(log)

			fmt.Fprintln(cmd.OutOrStdout(), version.FormatStartupMessage())
			log.Info("Starting ipubot",
				logger.Field{Key: "version", Value: version.Version},
				logger.Field{Key: "git_commit", Value: version.GitCommit},
				logger.Field{Key: "config", Value: *configPath},
				logger.Field{Key: "storage", Value: cfg.Storage.Driver},
				logger.Field{Key: "delivery", Value: cfg.Delivery.Kind},
				logger.Field{Key: "telegram", Value: cfg.Telegram.Enabled})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return app.New(cfg, log).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
	return cmd
}
