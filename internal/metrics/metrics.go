// Package metrics exposes Prometheus collectors for the reminder engine and
// the command path. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Tick outcomes.
const (
	TickOK         = "ok"
	TickStoreError = "store_error"
	TickPanic      = "panic"
)

// Notification results.
const (
	NotificationSent      = "sent"
	NotificationFailed    = "failed"
	NotificationDuplicate = "duplicate"
)

// Metrics groups the collectors.
type Metrics struct {
	ticksTotal         *prometheus.CounterVec
	tickDuration       *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	invalidSchedules   prometheus.Counter
	dedupRecords       prometheus.Gauge
	eventsDefined      prometheus.Gauge
	commandsTotal      *prometheus.CounterVec
	commandDuration    *prometheus.HistogramVec
}

// InitPrometheusMetrics creates the collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil).
func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ticksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminder_ticks_total",
				Help:      "Total number of scheduler ticks",
			},
			[]string{"outcome"},
		),
		tickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reminder_tick_duration_seconds",
				Help:      "Duration of scheduler ticks",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminder_notifications_total",
				Help:      "Total number of due occurrences by dispatch result",
			},
			[]string{"result"},
		),
		invalidSchedules: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminder_invalid_schedules_total",
				Help:      "Total number of events skipped because their schedule did not parse",
			},
		),
		dedupRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reminder_dedup_records",
				Help:      "Number of notification records held for deduplication",
			},
		),
		eventsDefined: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reminder_events",
				Help:      "Number of event definitions read by the last tick",
			},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of chat commands handled",
			},
			[]string{"command", "status"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Duration of chat command handling",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"command"},
		),
	}

	reg.MustRegister(
		m.ticksTotal,
		m.tickDuration,
		m.notificationsTotal,
		m.invalidSchedules,
		m.dedupRecords,
		m.eventsDefined,
		m.commandsTotal,
		m.commandDuration,
	)

	return m
}

// RecordTick records one scheduler pass.
func (m *Metrics) RecordTick(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ticksTotal.WithLabelValues(outcome).Inc()
	m.tickDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordNotification counts one dispatch result.
func (m *Metrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(result).Inc()
}

// RecordInvalidSchedule counts one skipped event.
func (m *Metrics) RecordInvalidSchedule() {
	if m == nil {
		return
	}
	m.invalidSchedules.Inc()
}

// SetDedupRecords reports the size of the dedup set.
func (m *Metrics) SetDedupRecords(n int) {
	if m == nil {
		return
	}
	m.dedupRecords.Set(float64(n))
}

// SetEvents reports the number of definitions seen by a tick.
func (m *Metrics) SetEvents(n int) {
	if m == nil {
		return
	}
	m.eventsDefined.Set(float64(n))
}

// RecordCommand records one handled chat command.
func (m *Metrics) RecordCommand(command, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}
