package reminder

import (
	"context"
	"time"

	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/delivery"
	"github.com/aatumaykin/ipubot/internal/logger"
	"github.com/aatumaykin/ipubot/internal/messages"
	"github.com/aatumaykin/ipubot/internal/metrics"
)

// Result is the outcome of dispatching one occurrence.
type Result string

const (
	ResultSent      Result = metrics.NotificationSent
	ResultFailed    Result = metrics.NotificationFailed
	ResultDuplicate Result = metrics.NotificationDuplicate
)

type recordKey struct {
	event string
	at    int64 // unix nanoseconds
}

func keyOf(occ cron.Occurrence) recordKey {
	return recordKey{event: occ.EventName, at: occ.Timestamp.UnixNano()}
}

// Dispatcher sends reminders and remembers which occurrences were handled.
// It is owned by a single Loop and is not safe for concurrent use.
type Dispatcher struct {
	sink      delivery.Sink
	format    func(cron.Occurrence) string
	retention time.Duration
	records   map[recordKey]time.Time
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewDispatcher returns a Dispatcher that forgets records once they are
// older than retention.
func NewDispatcher(sink delivery.Sink, retention time.Duration, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		sink:      sink,
		format:    messages.FormatReminder,
		retention: retention,
		records:   make(map[recordKey]time.Time),
		logger:    log,
		metrics:   m,
	}
}

// Dispatch sends occ unless it was handled before. The record is kept even
// when the send fails, so a failed reminder is not repeated.
func (d *Dispatcher) Dispatch(ctx context.Context, occ cron.Occurrence) Result {
	key := keyOf(occ)
	fields := []logger.Field{
		{Key: "event", Value: occ.EventName},
		{Key: "occurrence", Value: occ.Timestamp},
	}

	if _, seen := d.records[key]; seen {
		d.logger.DebugCtx(ctx, "reminder already sent", fields...)
		d.metrics.RecordNotification(metrics.NotificationDuplicate)
		return ResultDuplicate
	}
	d.records[key] = occ.Timestamp
	d.metrics.SetDedupRecords(len(d.records))

	if err := d.sink.Send(ctx, d.format(occ)); err != nil {
		d.logger.ErrorCtx(ctx, "reminder delivery failed", err, fields...)
		d.metrics.RecordNotification(metrics.NotificationFailed)
		return ResultFailed
	}

	d.logger.InfoCtx(ctx, "reminder sent", fields...)
	d.metrics.RecordNotification(metrics.NotificationSent)
	return ResultSent
}

// Seen reports whether occ has a record.
func (d *Dispatcher) Seen(occ cron.Occurrence) bool {
	_, ok := d.records[keyOf(occ)]
	return ok
}

// Prune drops records whose occurrence is older than now-retention and
// returns how many were removed.
func (d *Dispatcher) Prune(now time.Time) int {
	cutoff := now.Add(-d.retention)
	removed := 0
	for key, ts := range d.records {
		if ts.Before(cutoff) {
			delete(d.records, key)
			removed++
		}
	}
	d.metrics.SetDedupRecords(len(d.records))
	return removed
}

// Len returns the number of records held.
func (d *Dispatcher) Len() int {
	return len(d.records)
}
