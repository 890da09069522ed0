package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/ipubot/internal/config"
	"github.com/aatumaykin/ipubot/internal/constants"
	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/logger"
	"github.com/aatumaykin/ipubot/internal/messages"
	"github.com/aatumaykin/ipubot/internal/storage"
)

func newEventsCmd(configPath *string) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Manage periodic events",
	}

	var count int
	var timezone string
	previewCmd := &cobra.Command{
		Use:   "preview <schedule>",
		Short: "Show the next occurrences of a schedule expression",
		Long: `Show the next occurrences of a schedule expression without storing it.
The expression may be passed as one quoted argument or as separate fields.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := config.ReminderConfig{Timezone: timezone}.Location()
			if err != nil {
				return err
			}
			times, err := cron.NewExpander(loc).PreviewUpcoming(strings.Join(args, " "), time.Now(), count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, constants.MsgNextOccurrences, len(times))
			fmt.Fprintln(out, messages.FormatTimes(times))
			return nil
		},
	}
	previewCmd.Flags().IntVarP(&count, "count", "n", constants.DefaultPreviewCount, "Number of occurrences to show")
	previewCmd.Flags().StringVar(&timezone, "timezone", "Local", "IANA zone the expression is evaluated in")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all periodic events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEventStore(cmd.Context(), *configPath, func(_ *cron.Expander, store events.Store) error {
				defs, err := store.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), messages.FormatDefinitions(defs))
				return nil
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <name> <schedule>",
		Short: "Register a periodic event",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveEvent(cmd, *configPath, args, false)
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update <name> <schedule>",
		Short: "Change the schedule of a periodic event",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveEvent(cmd, *configPath, args, true)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a periodic event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEventStore(cmd.Context(), *configPath, func(_ *cron.Expander, store events.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return describeStoreError(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), constants.MsgEventRemoved, args[0])
				return nil
			})
		},
	}

	eventsCmd.AddCommand(previewCmd, listCmd, addCmd, updateCmd, deleteCmd)
	return eventsCmd
}

func saveEvent(cmd *cobra.Command, configPath string, args []string, update bool) error {
	def := events.Definition{Name: args[0], Schedule: strings.Join(args[1:], " ")}

	return withEventStore(cmd.Context(), configPath, func(expander *cron.Expander, store events.Store) error {
		ctx := cmd.Context()

		var err error
		if update {
			err = store.Update(ctx, def)
		} else {
			err = store.Insert(ctx, def)
		}
		if err != nil {
			return describeStoreError(def.Name, err)
		}

		next, err := expander.PreviewUpcoming(def.Schedule, time.Now(), constants.DefaultPreviewCount)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, constants.MsgEventSaved, def.Name)
		fmt.Fprintf(out, constants.MsgNextOccurrences, len(next))
		fmt.Fprintln(out, messages.FormatTimes(next))
		return nil
	})
}

// withEventStore opens the configured backend for the duration of fn.
func withEventStore(ctx context.Context, configPath string, fn func(*cron.Expander, events.Store) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	loc, err := cfg.Reminder.Location()
	if err != nil {
		return err
	}

	backend, err := storage.Open(ctx, cfg.Storage, logger.Nop())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backend.Close()

	expander := cron.NewExpander(loc)
	return fn(expander, events.NewValidatingStore(backend, expander))
}

func describeStoreError(name string, err error) error {
	switch {
	case errors.Is(err, events.ErrDuplicateName):
		return fmt.Errorf(constants.MsgEventExists, name)
	case errors.Is(err, events.ErrNotFound):
		return fmt.Errorf(constants.MsgEventNotFound, name)
	default:
		return err
	}
}
