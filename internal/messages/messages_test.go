package messages

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/ledger"
)

var nine = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

func TestFormatReminder(t *testing.T) {
	got := FormatReminder(cron.Occurrence{EventName: "standup", Timestamp: nine})
	assert.Equal(t, "✔ Event **standup** (2026-10-19 (Mon) 09:00~) is coming up", got)
}

func TestFormatUsers(t *testing.T) {
	assert.Equal(t, "not found", FormatUsers(nil))
	assert.Equal(t, "alice 📃 3\nbob 📃 0", FormatUsers([]ledger.User{
		{ID: "1", Name: "alice", Count: 3},
		{ID: "2", Name: "bob", Count: 0},
	}))
}

func TestFormatEventSaved(t *testing.T) {
	next := []time.Time{nine, nine.Add(24 * time.Hour)}

	added := FormatEventSaved("standup", false, next)
	assert.Equal(t, "✨ standup registered\n- 10/19(Mon) 09:00\n- 10/20(Tue) 09:00", added)

	updated := FormatEventSaved("standup", true, next[:1])
	assert.True(t, strings.HasPrefix(updated, "✨ standup updated\n"))
}

func TestFormatUpcoming(t *testing.T) {
	assert.Equal(t, "no upcoming events", FormatUpcoming(nil))
	assert.Equal(t, "- 10/19(Mon) 09:00 quarter\n- 10/19(Mon) 09:00 standup", FormatUpcoming([]cron.Occurrence{
		{EventName: "quarter", Timestamp: nine},
		{EventName: "standup", Timestamp: nine},
	}))
}

func TestFormatHelp(t *testing.T) {
	help := FormatHelp("1.2.3")
	assert.True(t, strings.HasPrefix(help, "ipubot ver 1.2.3\n"))
	assert.Contains(t, help, "!add_event")
}

func TestFormatDefinitions(t *testing.T) {
	assert.Equal(t, "No periodic events found.\n", FormatDefinitions(nil))

	out := FormatDefinitions([]events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}})
	assert.Contains(t, out, "standup")
	assert.Contains(t, out, "0 0 9 * * MON-FRI")
	assert.Contains(t, out, "Total: 1 event(s)")
}

func TestFormatValidationErrors(t *testing.T) {
	assert.Empty(t, FormatValidationErrors(nil))

	out := FormatValidationErrors([]error{errors.New("first"), errors.New("second")})
	assert.Contains(t, out, "1. first")
	assert.Contains(t, out, "2. second")
	assert.Equal(t, "Error: boom", FormatError(errors.New("boom")))
	assert.Equal(t, "❌ Failed to load configuration: gone", FormatConfigLoadError(errors.New("gone")))
}
