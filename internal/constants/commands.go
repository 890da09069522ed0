package constants

// Chat command names. Users type them with a "!" or "/" prefix.
const (
	CommandHelp        = "help"
	CommandAll         = "all"
	CommandReset       = "reset"
	CommandAddEvent    = "add_event"
	CommandUpdateEvent = "update_event"
	CommandDeleteEvent = "delete_event"
	CommandEvents      = "events"
)

// CommandDelay is the metrics label for "+<minutes>" messages, which carry no command name.
const CommandDelay = "delay"

// CommandPrefixes lists the accepted command prefixes.
var CommandPrefixes = []string{"!", "/"}

// CommandDescriptions is the bot menu registered with Telegram.
var CommandDescriptions = map[string]string{
	CommandHelp:        "Show usage",
	CommandAll:         "List everyone's points",
	CommandReset:       "Clear the point ledger",
	CommandAddEvent:    "Register a periodic event: <name> <cron>",
	CommandUpdateEvent: "Change an event schedule: <name> <cron>",
	CommandDeleteEvent: "Remove an event: <name>",
	CommandEvents:      "Show upcoming occurrences",
}

// CommandOrder is the display order of the bot menu.
var CommandOrder = []string{
	CommandHelp,
	CommandAll,
	CommandReset,
	CommandAddEvent,
	CommandUpdateEvent,
	CommandDeleteEvent,
	CommandEvents,
}
