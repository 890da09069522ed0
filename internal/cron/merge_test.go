package cron

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceTopK expands every event to k occurrences, sorts globally and keeps k.
func referenceTopK(t *testing.T, x *Expander, defs []events.Definition, ref time.Time, k int) []Occurrence {
	t.Helper()
	var all []Occurrence
	for _, def := range defs {
		expr, err := x.Parse(def.Schedule)
		if err != nil {
			continue
		}
		for _, ts := range expr.Take(ref, k) {
			all = append(all, Occurrence{EventName: def.Name, Timestamp: ts})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Before(all[j]) })
	if len(all) > k {
		all = all[:k]
	}
	return all
}

func TestMerge_TopKMatchesReference(t *testing.T) {
	x := NewExpander(time.UTC)

	sets := map[string][]events.Definition{
		"empty": nil,
		"single": {
			{Name: "standup", Schedule: "0 0 9 * * MON-FRI"},
		},
		"interleaved": {
			{Name: "standup", Schedule: "0 0 9 * * MON-FRI"},
			{Name: "lunch", Schedule: "0 12 * * *"},
			{Name: "retro", Schedule: "0 16 * * FRI"},
			{Name: "pulse", Schedule: "*/20 * * * *"},
		},
		"identical schedules": {
			{Name: "b", Schedule: "*/15 * * * *"},
			{Name: "a", Schedule: "*/15 * * * *"},
			{Name: "c", Schedule: "0,15,30,45 * * * *"},
		},
		"sparse and dense": {
			{Name: "yearly", Schedule: "@yearly"},
			{Name: "minutely", Schedule: "* * * * *"},
		},
	}

	for name, defs := range sets {
		for _, k := range []int{0, 1, 3, 10, 25} {
			t.Run(fmt.Sprintf("%s/k=%d", name, k), func(t *testing.T) {
				got, invalid := x.TopK(defs, monday0859, k)
				assert.Empty(t, invalid)

				want := referenceTopK(t, x, defs, monday0859, k)
				if len(want) == 0 {
					assert.Empty(t, got)
					return
				}
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestMerge_TieBreakByEventName(t *testing.T) {
	x := NewExpander(time.UTC)
	defs := []events.Definition{
		{Name: "zeta", Schedule: "0 0 9 * * *"},
		{Name: "alpha", Schedule: "0 0 9 * * *"},
		{Name: "mid", Schedule: "0 0 9 * * *"},
	}

	got, _ := x.TopK(defs, monday0859, 4)
	require.Len(t, got, 4)

	nine := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, Occurrence{EventName: "alpha", Timestamp: nine}, got[0])
	assert.Equal(t, Occurrence{EventName: "mid", Timestamp: nine}, got[1])
	assert.Equal(t, Occurrence{EventName: "zeta", Timestamp: nine}, got[2])
	assert.Equal(t, Occurrence{EventName: "alpha", Timestamp: nine.Add(24 * time.Hour)}, got[3])
}

func TestMerge_Until(t *testing.T) {
	x := NewExpander(time.UTC)
	defs := []events.Definition{
		{Name: "standup", Schedule: "0 0 9 * * MON-FRI"},
		{Name: "quarter", Schedule: "*/15 * * * *"},
	}

	to := monday0859.Add(600 * time.Second)
	got, invalid := x.Until(defs, monday0859, to)
	assert.Empty(t, invalid)

	nine := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, []Occurrence{
		{EventName: "quarter", Timestamp: nine},
		{EventName: "standup", Timestamp: nine},
	}, got)

	for _, occ := range got {
		assert.False(t, occ.Timestamp.After(to))
	}
}

func TestMerge_UntilIsInclusive(t *testing.T) {
	x := NewExpander(time.UTC)
	defs := []events.Definition{{Name: "tick", Schedule: "*/5 * * * *"}}

	ref := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	got, _ := x.Until(defs, ref, ref.Add(10*time.Minute))
	require.Len(t, got, 2)
	assert.Equal(t, ref.Add(10*time.Minute), got[1].Timestamp)
}

func TestMerge_SkipsInvalidDefinitions(t *testing.T) {
	x := NewExpander(time.UTC)
	defs := []events.Definition{
		{Name: "broken", Schedule: "99 * * * *"},
		{Name: "standup", Schedule: "0 0 9 * * MON-FRI"},
	}

	got, invalid := x.TopK(defs, monday0859, 1)
	require.Len(t, invalid, 1)
	assert.Equal(t, "broken", invalid[0].Event)
	assert.Equal(t, "99 * * * *", invalid[0].Expression)
	assert.Contains(t, invalid[0].Error(), `event "broken"`)

	require.Len(t, got, 1)
	assert.Equal(t, "standup", got[0].EventName)
}

func TestMerge_ExhaustedScheduleDropsOut(t *testing.T) {
	x := NewExpander(time.UTC)
	defs := []events.Definition{
		{Name: "never", Schedule: "0 0 30 2 *"},
		{Name: "daily", Schedule: "@daily"},
	}

	got, invalid := x.TopK(defs, monday0859, 3)
	assert.Empty(t, invalid)
	require.Len(t, got, 3)
	for _, occ := range got {
		assert.Equal(t, "daily", occ.EventName)
	}
}

func TestStream_PeekDoesNotConsume(t *testing.T) {
	x := NewExpander(time.UTC)
	s := x.Merge([]events.Definition{{Name: "hourly", Schedule: "@hourly"}}, monday0859)

	peeked, ok := s.Peek()
	require.True(t, ok)
	next, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, peeked, next)

	after, ok := s.Peek()
	require.True(t, ok)
	assert.True(t, after.Timestamp.After(next.Timestamp))
}

func TestStream_Empty(t *testing.T) {
	s := NewExpander(time.UTC).Merge(nil, monday0859)

	_, ok := s.Next()
	assert.False(t, ok)
	assert.Empty(t, s.Take(5))
	assert.Empty(t, s.Until(monday0859.Add(time.Hour)))
}

func TestOccurrence_Before(t *testing.T) {
	ts := monday0859
	a := Occurrence{EventName: "a", Timestamp: ts}
	b := Occurrence{EventName: "b", Timestamp: ts}
	later := Occurrence{EventName: "a", Timestamp: ts.Add(time.Second)}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, b.Before(later))
	assert.False(t, a.Before(a))
}
