package reminder

import (
	"time"

	"github.com/aatumaykin/ipubot/internal/cron"
)

// Window decides which occurrences are due.
type Window struct {
	Lookahead time.Duration
	Tolerance time.Duration
}

// Horizon is the last instant the merge has to reach for a tick at now.
func (w Window) Horizon(now time.Time) time.Time {
	return now.Add(w.Lookahead)
}

// Span is how far ahead of a tick an occurrence can be announced. A tick
// interval longer than Span leaves gaps in which occurrences are never due.
func (w Window) Span() time.Duration {
	return min(w.Lookahead, w.Tolerance)
}

// Contains reports whether ts is within Tolerance of now.
func (w Window) Contains(ts, now time.Time) bool {
	d := ts.Sub(now)
	if d < 0 {
		d = -d
	}
	return d <= w.Tolerance
}

// Filter returns the occurrences within Tolerance of now, in input order.
func (w Window) Filter(occs []cron.Occurrence, now time.Time) []cron.Occurrence {
	var due []cron.Occurrence
	for _, occ := range occs {
		if w.Contains(occ.Timestamp, now) {
			due = append(due, occ)
		}
	}
	return due
}

// Retention is how long a notification record stays reachable by later ticks.
func (w Window) Retention() time.Duration {
	return w.Lookahead + w.Tolerance
}
