package cron

import (
	"container/heap"
	"time"

	"github.com/aatumaykin/ipubot/internal/events"
)

// Occurrence is one firing of a periodic event.
type Occurrence struct {
	EventName string
	Timestamp time.Time
}

// Before orders occurrences by timestamp, then by event name.
func (o Occurrence) Before(other Occurrence) bool {
	if !o.Timestamp.Equal(other.Timestamp) {
		return o.Timestamp.Before(other.Timestamp)
	}
	return o.EventName < other.EventName
}

// Stream merges the ascending occurrence sequences of several events.
// Each event is expanded only as far as the consumer reads.
type Stream struct {
	heap    cursorHeap
	invalid []*InvalidScheduleError
}

// Merge builds a Stream over defs starting strictly after ref. Definitions
// whose schedule does not parse are left out and reported by Invalid.
func (x *Expander) Merge(defs []events.Definition, ref time.Time) *Stream {
	s := &Stream{heap: make(cursorHeap, 0, len(defs))}
	for _, def := range defs {
		expr, err := x.Parse(def.Schedule)
		if err != nil {
			ise := err.(*InvalidScheduleError)
			ise.Event = def.Name
			s.invalid = append(s.invalid, ise)
			continue
		}
		c := &cursor{name: def.Name, expr: expr}
		if c.advance(ref) {
			s.heap = append(s.heap, c)
		}
	}
	heap.Init(&s.heap)
	return s
}

// TopK returns the first k merged occurrences after ref.
func (x *Expander) TopK(defs []events.Definition, ref time.Time, k int) ([]Occurrence, []*InvalidScheduleError) {
	s := x.Merge(defs, ref)
	return s.Take(k), s.Invalid()
}

// Until returns every merged occurrence in (ref, to].
func (x *Expander) Until(defs []events.Definition, ref, to time.Time) ([]Occurrence, []*InvalidScheduleError) {
	s := x.Merge(defs, ref)
	return s.Until(to), s.Invalid()
}

// Invalid lists the definitions skipped because their schedule did not parse.
func (s *Stream) Invalid() []*InvalidScheduleError {
	return s.invalid
}

// Peek returns the next occurrence without consuming it.
func (s *Stream) Peek() (Occurrence, bool) {
	if len(s.heap) == 0 {
		return Occurrence{}, false
	}
	top := s.heap[0]
	return Occurrence{EventName: top.name, Timestamp: top.next}, true
}

// Next consumes and returns the next occurrence.
func (s *Stream) Next() (Occurrence, bool) {
	occ, ok := s.Peek()
	if !ok {
		return occ, false
	}
	top := s.heap[0]
	if top.advance(top.next) {
		heap.Fix(&s.heap, 0)
	} else {
		heap.Pop(&s.heap)
	}
	return occ, true
}

// Take consumes at most k occurrences.
func (s *Stream) Take(k int) []Occurrence {
	if k <= 0 {
		return nil
	}
	out := make([]Occurrence, 0, k)
	for len(out) < k {
		occ, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, occ)
	}
	return out
}

// Until consumes every occurrence with a timestamp at or before to.
func (s *Stream) Until(to time.Time) []Occurrence {
	var out []Occurrence
	for {
		occ, ok := s.Peek()
		if !ok || occ.Timestamp.After(to) {
			return out
		}
		s.Next()
		out = append(out, occ)
	}
}

type cursor struct {
	name string
	expr *Expression
	next time.Time
}

func (c *cursor) advance(after time.Time) bool {
	next, ok := c.expr.Next(after)
	if !ok {
		return false
	}
	c.next = next
	return true
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	return Occurrence{EventName: h[i].name, Timestamp: h[i].next}.Before(
		Occurrence{EventName: h[j].name, Timestamp: h[j].next})
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) { *h = append(*h, x.(*cursor)) }

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}
