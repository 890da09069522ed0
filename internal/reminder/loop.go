package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/delivery"
	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/logger"
	"github.com/aatumaykin/ipubot/internal/metrics"
)

var (
	// ErrAlreadyStarted is returned by Start on a running loop.
	ErrAlreadyStarted = errors.New("reminder loop already started")

	// ErrIntervalTooWide is returned by NewLoop when ticks are spaced further
	// apart than the notification window, so some occurrences would never be
	// announced.
	ErrIntervalTooWide = errors.New("reminder interval wider than the notification window")
)

// Clock supplies the current instant.
type Clock func() time.Time

// Config holds the loop parameters.
type Config struct {
	Interval        time.Duration
	Lookahead       time.Duration
	Tolerance       time.Duration
	FireImmediately bool
}

// TickReport summarizes one pass.
type TickReport struct {
	ID        string
	Now       time.Time
	Events    int
	Due       int
	Sent      int
	Failed    int
	Duplicate int
	Invalid   int
	Pruned    int
}

// State is a snapshot of the loop for diagnostics.
type State struct {
	Running  bool
	Ticks    int64
	LastTick time.Time
	Records  int
}

// Loop periodically notifies about due event occurrences.
type Loop struct {
	cfg        Config
	store      events.Reader
	expander   *cron.Expander
	window     Window
	dispatcher *Dispatcher
	clock      Clock
	logger     *logger.Logger
	metrics    *metrics.Metrics

	mu       sync.Mutex // guards lifecycle fields below
	cancel   context.CancelFunc
	done     chan struct{}
	running  bool
	ticks    int64
	lastTick time.Time
	records  int

	tickMu sync.Mutex // serializes ticks
}

// Option customizes a Loop.
type Option func(*Loop)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithFormatter replaces the reminder text formatter.
func WithFormatter(f func(cron.Occurrence) string) Option {
	return func(l *Loop) { l.dispatcher.format = f }
}

// NewLoop wires a loop over store, sending through sink.
func NewLoop(cfg Config, store events.Reader, expander *cron.Expander, sink delivery.Sink, log *logger.Logger, opts ...Option) (*Loop, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("reminder interval must be positive (got %s)", cfg.Interval)
	}
	if cfg.Lookahead < 0 || cfg.Tolerance < 0 {
		return nil, fmt.Errorf("reminder lookahead and tolerance must not be negative")
	}
	window := Window{Lookahead: cfg.Lookahead, Tolerance: cfg.Tolerance}
	if cfg.Interval > window.Span() {
		return nil, fmt.Errorf("%w: interval %s exceeds min(lookahead %s, tolerance %s)",
			ErrIntervalTooWide, cfg.Interval, cfg.Lookahead, cfg.Tolerance)
	}
	if log == nil {
		log = logger.Nop()
	}

	l := &Loop{
		cfg:      cfg,
		store:    store,
		expander: expander,
		window:   window,
		clock:    time.Now,
		logger:   log,
	}
	l.dispatcher = NewDispatcher(sink, window.Retention(), log, nil)
	for _, opt := range opts {
		opt(l)
	}
	l.dispatcher.metrics = l.metrics
	return l, nil
}

// Start launches the loop goroutine.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running = true

	l.logger.Info("reminder loop started",
		logger.Field{Key: "interval", Value: l.cfg.Interval},
		logger.Field{Key: "lookahead", Value: l.cfg.Lookahead},
		logger.Field{Key: "tolerance", Value: l.cfg.Tolerance},
		logger.Field{Key: "location", Value: l.expander.Location().String()})

	go l.run(runCtx, l.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight tick to finish or for ctx
// to expire.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.cancel()
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("reminder loop stop: %w", ctx.Err())
	}
}

// State returns a snapshot of the loop.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Running:  l.running,
		Ticks:    l.ticks,
		LastTick: l.lastTick,
		Records:  l.records,
	}
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		close(done)
		l.logger.Info("reminder loop stopped")
	}()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	if l.cfg.FireImmediately {
		l.safeTick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.safeTick(ctx)
			// A pass that overran the interval waits for the next boundary.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// safeTick runs one tick that is not interrupted by loop cancellation.
func (l *Loop) safeTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	tickCtx := context.WithoutCancel(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			l.logger.ErrorCtx(tickCtx, "reminder tick panicked", fmt.Errorf("panic: %v", r))
			l.metrics.RecordTick(metrics.TickPanic, time.Since(start))
		}
	}()

	if _, err := l.Tick(tickCtx); err != nil {
		l.logger.ErrorCtx(tickCtx, "reminder tick aborted", err)
	}
}

// Tick performs one pass at the current clock reading. A store failure aborts
// the pass before anything is sent.
func (l *Loop) Tick(ctx context.Context) (TickReport, error) {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()

	start := time.Now()
	now := l.clock()
	report := TickReport{ID: uuid.NewString(), Now: now}
	log := l.logger.With(logger.Field{Key: "tick_id", Value: report.ID})

	defs, err := l.store.ListAll(ctx)
	if err != nil {
		l.metrics.RecordTick(metrics.TickStoreError, time.Since(start))
		return report, fmt.Errorf("list events: %w", err)
	}
	report.Events = len(defs)
	l.metrics.SetEvents(len(defs))

	// Occurrences are expanded strictly after now; one that has already
	// started is never due again.
	occs, invalid := l.expander.Until(defs, now, l.window.Horizon(now))
	for _, ierr := range invalid {
		report.Invalid++
		l.metrics.RecordInvalidSchedule()
		log.WarnCtx(ctx, "skipping event with invalid schedule",
			logger.Field{Key: "event", Value: ierr.Event},
			logger.Field{Key: "cron", Value: ierr.Expression},
			logger.Field{Key: "error", Value: ierr.Err.Error()})
	}

	due := l.window.Filter(occs, now)
	report.Due = len(due)
	for _, occ := range due {
		switch l.dispatcher.Dispatch(ctx, occ) {
		case ResultSent:
			report.Sent++
		case ResultFailed:
			report.Failed++
		case ResultDuplicate:
			report.Duplicate++
		}
	}

	report.Pruned = l.dispatcher.Prune(now)

	l.mu.Lock()
	l.ticks++
	l.lastTick = now
	l.records = l.dispatcher.Len()
	l.mu.Unlock()

	l.metrics.RecordTick(metrics.TickOK, time.Since(start))
	log.DebugCtx(ctx, "reminder tick complete",
		logger.Field{Key: "events", Value: report.Events},
		logger.Field{Key: "due", Value: report.Due},
		logger.Field{Key: "sent", Value: report.Sent},
		logger.Field{Key: "failed", Value: report.Failed},
		logger.Field{Key: "duplicate", Value: report.Duplicate},
		logger.Field{Key: "pruned", Value: report.Pruned})
	return report, nil
}
