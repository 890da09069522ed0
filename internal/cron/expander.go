// Package cron expands schedule expressions into occurrence instants and
// merges the occurrences of many periodic events into one ordered stream.
//
// Expressions are parsed with robfig/cron/v3 and may carry an optional
// leading seconds field ("0 0 9 * * MON-FRI") or a descriptor ("@daily").
package cron

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/robfig/cron/v3"
)

// InvalidScheduleError reports a malformed schedule expression.
type InvalidScheduleError struct {
	Event      string // set when the expression belongs to a stored event
	Expression string
	Err        error
}

func (e *InvalidScheduleError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("invalid schedule %q for event %q: %v", e.Expression, e.Event, e.Err)
	}
	return fmt.Sprintf("invalid schedule %q: %v", e.Expression, e.Err)
}

func (e *InvalidScheduleError) Unwrap() error {
	return e.Err
}

// IsInvalidSchedule reports whether err is or wraps an InvalidScheduleError.
func IsInvalidSchedule(err error) bool {
	var target *InvalidScheduleError
	return errors.As(err, &target)
}

// Expander parses schedule expressions and expands them in a fixed location.
// It is safe for concurrent use.
type Expander struct {
	parser cron.Parser
	loc    *time.Location
}

// NewExpander returns an Expander computing occurrences in loc.
// A nil loc means time.Local.
func NewExpander(loc *time.Location) *Expander {
	if loc == nil {
		loc = time.Local
	}
	return &Expander{
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		loc:    loc,
	}
}

// Location returns the location occurrences are computed in.
func (x *Expander) Location() *time.Location {
	return x.loc
}

// Expression is a parsed schedule.
type Expression struct {
	source   string
	schedule cron.Schedule
	loc      *time.Location
}

// Parse parses expr. Failures are *InvalidScheduleError.
func (x *Expander) Parse(expr string) (*Expression, error) {
	schedule, err := x.parser.Parse(expr)
	if err != nil {
		return nil, &InvalidScheduleError{Expression: expr, Err: err}
	}
	return &Expression{source: expr, schedule: schedule, loc: x.loc}, nil
}

// Validate reports whether expr parses.
func (x *Expander) Validate(expr string) error {
	_, err := x.Parse(expr)
	return err
}

// Occurrences parses expr and returns its occurrences after ref.
func (x *Expander) Occurrences(expr string, ref time.Time) (iter.Seq[time.Time], error) {
	e, err := x.Parse(expr)
	if err != nil {
		return nil, err
	}
	return e.After(ref), nil
}

// PreviewUpcoming returns the first count occurrences of expr after from.
func (x *Expander) PreviewUpcoming(expr string, from time.Time, count int) ([]time.Time, error) {
	e, err := x.Parse(expr)
	if err != nil {
		return nil, err
	}
	return e.Take(from, count), nil
}

// String returns the expression as written.
func (e *Expression) String() string {
	return e.source
}

// Next returns the first occurrence strictly after t. ok is false when the
// schedule never fires again (for example "0 0 30 2 *").
func (e *Expression) Next(t time.Time) (next time.Time, ok bool) {
	next = e.schedule.Next(t.In(e.loc))
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

// After yields the occurrences strictly after ref in ascending order.
// The sequence is unbounded: callers must stop consuming it.
func (e *Expression) After(ref time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		t := ref
		for {
			next, ok := e.Next(t)
			if !ok || !yield(next) {
				return
			}
			t = next
		}
	}
}

// Take returns at most n occurrences after ref.
func (e *Expression) Take(ref time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for t := range e.After(ref) {
		out = append(out, t)
		if len(out) == n {
			break
		}
	}
	return out
}

// Until returns every occurrence in (ref, to].
func (e *Expression) Until(ref, to time.Time) []time.Time {
	var out []time.Time
	for t := range e.After(ref) {
		if t.After(to) {
			break
		}
		out = append(out, t)
	}
	return out
}
