// Package messages renders user-facing text for chat replies, reminders and the CLI.
package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/ipubot/internal/constants"
	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/ledger"
)

// FormatHelp renders the help reply.
func FormatHelp(version string) string {
	return fmt.Sprintf(constants.MsgHelpHeader, version) + constants.MsgHelpBody
}

// FormatReminder renders the notification for one occurrence. The text
// names the event and the full date and time of the occurrence.
func FormatReminder(occ cron.Occurrence) string {
	return fmt.Sprintf(constants.MsgReminder, occ.EventName, occ.Timestamp.Format(constants.ReminderTimeLayout))
}

// FormatUsers renders the ledger listing, or "not found" when it is empty.
func FormatUsers(users []ledger.User) string {
	if len(users) == 0 {
		return constants.MsgNotFound
	}
	lines := make([]string, 0, len(users))
	for _, u := range users {
		lines = append(lines, fmt.Sprintf(constants.MsgUserPoints, u.Name, u.Count))
	}
	return strings.Join(lines, "\n")
}

// FormatTimes renders one "- <time>" line per instant.
func FormatTimes(times []time.Time) string {
	lines := make([]string, 0, len(times))
	for _, ts := range times {
		lines = append(lines, fmt.Sprintf(constants.MsgOccurrenceItem, ts.Format(constants.ListingTimeLayout)))
	}
	return strings.Join(lines, "\n")
}

// FormatEventSaved renders the add_event and update_event replies.
func FormatEventSaved(name string, updated bool, next []time.Time) string {
	header := constants.MsgEventAdded
	if updated {
		header = constants.MsgEventUpdated
	}
	return fmt.Sprintf(header, name) + FormatTimes(next)
}

// FormatUpcoming renders the merged occurrence listing.
func FormatUpcoming(occs []cron.Occurrence) string {
	if len(occs) == 0 {
		return constants.MsgNoUpcoming
	}
	lines := make([]string, 0, len(occs))
	for _, occ := range occs {
		lines = append(lines, fmt.Sprintf(constants.MsgUpcomingItem, occ.Timestamp.Format(constants.ListingTimeLayout), occ.EventName))
	}
	return strings.Join(lines, "\n")
}

// FormatDefinitions renders the CLI event listing.
func FormatDefinitions(defs []events.Definition) string {
	if len(defs) == 0 {
		return constants.MsgEventsNotFound + "\n"
	}
	b := &strings.Builder{}
	b.WriteString(constants.MsgEventsListHeader)
	for _, def := range defs {
		fmt.Fprintf(b, constants.MsgEventsListItem, def.Name, def.Schedule)
	}
	fmt.Fprintf(b, constants.MsgEventsTotal, len(defs))
	return b.String()
}
