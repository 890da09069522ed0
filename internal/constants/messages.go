package constants

// Chat replies
const (
	// MsgHelpHeader is the first line of the help reply.
	MsgHelpHeader = "ipubot ver %s\n"

	// MsgHelpBody lists the available commands.
	MsgHelpBody = "- `!all`: show points\n" +
		"- `!reset`: reset points\n" +
		"- `+<num>`: report a delay of {num} minutes\n" +
		"- `!add_event <event> <cron>`: register periodic event {event}\n" +
		"- `!update_event <event> <cron>`: change the schedule of {event}\n" +
		"- `!delete_event <event>`: remove {event}\n" +
		"- `!events`: show upcoming events\n"

	// MsgUserPoints is one line of the ledger listing: name, count.
	MsgUserPoints = "%s 📃 %d"

	// MsgNotFound is the reply when a listing is empty.
	MsgNotFound = "not found"

	// MsgReset is the reply after the ledger was cleared.
	MsgReset = "reset"

	// MsgPointsAdded is the reply after a delay was reported.
	MsgPointsAdded = "📃 +%d"

	// MsgInvalidUsage is the reply when a command misses arguments.
	MsgInvalidUsage = "invalid"

	// MsgEventAdded is the header of the add_event reply.
	MsgEventAdded = "✨ %s registered\n"

	// MsgEventUpdated is the header of the update_event reply.
	MsgEventUpdated = "✨ %s updated\n"

	// MsgEventDeleted is the delete_event reply.
	MsgEventDeleted = "🗑 %s deleted"

	// MsgEventExists is the reply when add_event hits an existing name.
	MsgEventExists = "❌ %s already exists"

	// MsgEventNotFound is the reply when update_event or delete_event misses.
	MsgEventNotFound = "❌ %s not found"

	// MsgInvalidSchedule is the reply for an unparsable schedule expression.
	MsgInvalidSchedule = "❌ invalid schedule %q: %v"

	// MsgCommandFailed is the reply when a store or internal error occurs.
	MsgCommandFailed = "❌ Failed to process the command. Please try again later."

	// MsgOccurrenceItem is one line of an occurrence listing.
	MsgOccurrenceItem = "- %s"

	// MsgUpcomingItem is one line of the merged events listing: time, event.
	MsgUpcomingItem = "- %s %s"

	// MsgNoUpcoming is the reply when no event occurs in the future.
	MsgNoUpcoming = "no upcoming events"
)

// Reminder messages
const (
	// MsgReminder announces an upcoming occurrence: event, time.
	MsgReminder = "✔ Event **%s** (%s~) is coming up"

	// ReminderTimeLayout formats the occurrence time in reminders.
	ReminderTimeLayout = "2006-01-02 (Mon) 15:04"

	// ListingTimeLayout formats occurrences in chat replies and the CLI.
	ListingTimeLayout = "01/02(Mon) 15:04"
)

// Config messages
const (
	// MsgConfigLoadError is the error message when configuration loading fails.
	MsgConfigLoadError = "❌ Failed to load configuration: %v\n"

	// MsgConfigValidationError is the message when configuration validation fails.
	MsgConfigValidationError = "❌ Configuration validation failed:\n"

	// MsgConfigValid is the message when configuration is successfully loaded and validated.
	MsgConfigValid = "✅ Configuration is valid"

	// MsgConfigValidatePrefix is the prefix for configuration validation errors.
	MsgConfigValidatePrefix = "  - %v\n"

	// MsgErrorFormat is the prefix for formatting error messages.
	MsgErrorFormat = "Error: %v"
)

// CLI messages
const (
	// MsgEventsListHeader is the header of "ipubot events list".
	MsgEventsListHeader = "Periodic events:\n-----------------\n"

	// MsgEventsListItem is one definition: name, schedule.
	MsgEventsListItem = "%-20s %s\n"

	// MsgEventsTotal is the footer of "ipubot events list".
	MsgEventsTotal = "Total: %d event(s)\n"

	// MsgEventsNotFound is printed when the store holds no events.
	MsgEventsNotFound = "No periodic events found."

	// MsgEventSaved is printed after add or update.
	MsgEventSaved = "✅ Event '%s' saved\n"

	// MsgEventRemoved is printed after delete.
	MsgEventRemoved = "✅ Event '%s' removed\n"

	// MsgNextOccurrences introduces a preview listing.
	MsgNextOccurrences = "Next %d occurrence(s):\n"
)

// Startup messages
const (
	// MsgUnauthorized answers users outside the whitelist.
	MsgUnauthorized = "Sorry, you are not authorized to use this bot."

	// MsgTelegramStartup is logged when the Telegram connector starts.
	MsgTelegramStartup = "📱 Initializing Telegram connector"

	// MsgStartup is the banner printed by serve.
	MsgStartup = "📅 ipubot started\nVersion: %s\nBuild: %s"
)
