package reminder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/logger"
)

// 2026-10-19 is a Monday.
var mondayMorning = time.Date(2026, 10, 19, 8, 59, 30, 0, time.UTC)

type fakeStore struct {
	mu   sync.Mutex
	defs []events.Definition
	err  error
}

func (s *fakeStore) ListAll(_ context.Context) ([]events.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]events.Definition(nil), s.defs...), nil
}

func (s *fakeStore) set(defs ...events.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = defs
}

type recordingSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *recordingSink) Send(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.err
}

func (s *recordingSink) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func defaultConfig() Config {
	return Config{
		Interval:  time.Minute,
		Lookahead: 600 * time.Second,
		Tolerance: 120 * time.Second,
	}
}

func newTestLoop(t *testing.T, store events.Reader, sink *recordingSink, clock *manualClock) *Loop {
	t.Helper()
	loop, err := NewLoop(defaultConfig(), store, cron.NewExpander(time.UTC), sink, logger.Nop(),
		WithClock(clock.Now),
		WithFormatter(func(o cron.Occurrence) string { return o.EventName + "@" + o.Timestamp.Format("15:04") }))
	require.NoError(t, err)
	return loop
}

func TestWindow_Contains(t *testing.T) {
	w := Window{Lookahead: 10 * time.Minute, Tolerance: 2 * time.Minute}
	now := mondayMorning

	assert.True(t, w.Contains(now, now))
	assert.True(t, w.Contains(now.Add(2*time.Minute), now))
	assert.True(t, w.Contains(now.Add(-2*time.Minute), now))
	assert.False(t, w.Contains(now.Add(2*time.Minute+time.Second), now))
	assert.False(t, w.Contains(now.Add(-3*time.Minute), now))
	assert.Equal(t, now.Add(10*time.Minute), w.Horizon(now))
	assert.Equal(t, 12*time.Minute, w.Retention())
}

func TestWindow_FilterKeepsOrder(t *testing.T) {
	w := Window{Lookahead: 10 * time.Minute, Tolerance: 2 * time.Minute}
	now := mondayMorning
	occs := []cron.Occurrence{
		{EventName: "a", Timestamp: now.Add(30 * time.Second)},
		{EventName: "b", Timestamp: now.Add(30 * time.Second)},
		{EventName: "c", Timestamp: now.Add(5 * time.Minute)},
	}

	due := w.Filter(occs, now)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].EventName)
	assert.Equal(t, "b", due[1].EventName)
	assert.Empty(t, w.Filter(nil, now))
}

func TestLoop_StandupDueBeforeStart(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}}}
	sink := &recordingSink{}
	clock := &manualClock{now: mondayMorning}
	loop := newTestLoop(t, store, sink, clock)

	report, err := loop.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Due)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, []string{"standup@09:00"}, sink.sent())
}

func TestLoop_NoResendAcrossTicks(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}}}
	sink := &recordingSink{}
	clock := &manualClock{now: mondayMorning}
	loop := newTestLoop(t, store, sink, clock)
	ctx := context.Background()

	_, err := loop.Tick(ctx)
	require.NoError(t, err)

	// 08:59:45 still sees 09:00 within tolerance.
	clock.Set(mondayMorning.Add(15 * time.Second))
	report, err := loop.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Duplicate)
	assert.Equal(t, 0, report.Sent)

	clock.Set(time.Date(2026, 10, 19, 9, 1, 30, 0, time.UTC))
	report, err = loop.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due)

	assert.Len(t, sink.sent(), 1)
}

func TestLoop_PastOccurrenceNotDueOnFreshLoop(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}}}
	sink := &recordingSink{}
	clock := &manualClock{now: time.Date(2026, 10, 19, 9, 1, 30, 0, time.UTC)}
	loop := newTestLoop(t, store, sink, clock)

	report, err := loop.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due)
	assert.Empty(t, sink.sent())
}

func TestLoop_OutsideToleranceNotSentYet(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}}}
	sink := &recordingSink{}
	clock := &manualClock{now: time.Date(2026, 10, 19, 8, 55, 0, 0, time.UTC)}
	loop := newTestLoop(t, store, sink, clock)

	report, err := loop.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due)
	assert.Empty(t, sink.sent())
}

func TestLoop_SimultaneousOccurrencesInNameOrder(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{
		{Name: "retro", Schedule: "0 0 9 * * *"},
		{Name: "deploy", Schedule: "0 0 9 * * *"},
		{Name: "lunch", Schedule: "0 0 12 * * *"},
	}}
	sink := &recordingSink{}
	clock := &manualClock{now: mondayMorning}
	loop := newTestLoop(t, store, sink, clock)

	_, err := loop.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy@09:00", "retro@09:00"}, sink.sent())
}

func TestLoop_DeletedEventRecordPruned(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}}}
	sink := &recordingSink{}
	clock := &manualClock{now: mondayMorning}
	loop := newTestLoop(t, store, sink, clock)
	ctx := context.Background()

	_, err := loop.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loop.State().Records)

	store.set()
	clock.Set(mondayMorning.Add(time.Minute))
	report, err := loop.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Events)
	assert.Equal(t, 0, report.Pruned)

	// 09:00 falls behind now-(lookahead+tolerance) after 09:12.
	clock.Set(time.Date(2026, 10, 19, 9, 20, 0, 0, time.UTC))
	report, err = loop.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, 0, loop.State().Records)
	assert.Len(t, sink.sent(), 1)
}

func TestLoop_StoreErrorAbortsTick(t *testing.T) {
	storeErr := events.NewStoreError("list", errors.New("connection refused"))
	store := &fakeStore{err: storeErr}
	sink := &recordingSink{}
	clock := &manualClock{now: mondayMorning}
	loop := newTestLoop(t, store, sink, clock)

	_, err := loop.Tick(context.Background())
	require.Error(t, err)

	var se *events.StoreError
	assert.ErrorAs(t, err, &se)
	assert.Empty(t, sink.sent())
	assert.Equal(t, int64(0), loop.State().Ticks)
}

func TestLoop_InvalidScheduleSkipsOnlyThatEvent(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{
		{Name: "broken", Schedule: "not a cron"},
		{Name: "standup", Schedule: "0 0 9 * * MON-FRI"},
	}}
	sink := &recordingSink{}
	clock := &manualClock{now: mondayMorning}
	loop := newTestLoop(t, store, sink, clock)

	report, err := loop.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, []string{"standup@09:00"}, sink.sent())
}

func TestLoop_FailedDeliveryNotRetried(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}}}
	sink := &recordingSink{err: errors.New("webhook down")}
	clock := &manualClock{now: mondayMorning}
	loop := newTestLoop(t, store, sink, clock)
	ctx := context.Background()

	report, err := loop.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	clock.Set(mondayMorning.Add(15 * time.Second))
	report, err = loop.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Duplicate)
	assert.Len(t, sink.sent(), 1)
}

func TestLoop_FreshReadEachTick(t *testing.T) {
	store := &fakeStore{}
	sink := &recordingSink{}
	clock := &manualClock{now: mondayMorning}
	loop := newTestLoop(t, store, sink, clock)
	ctx := context.Background()

	_, err := loop.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, sink.sent())

	store.set(events.Definition{Name: "standup", Schedule: "0 0 9 * * MON-FRI"})
	_, err = loop.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"standup@09:00"}, sink.sent())
}

func TestNewLoop_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		tooWide bool
	}{
		{name: "zero interval", cfg: Config{}},
		{name: "negative tolerance", cfg: Config{Interval: time.Second, Lookahead: time.Minute, Tolerance: -time.Second}},
		{name: "interval wider than tolerance", cfg: Config{Interval: 300 * time.Second, Lookahead: 600 * time.Second, Tolerance: 120 * time.Second}, tooWide: true},
		{name: "interval wider than lookahead", cfg: Config{Interval: 90 * time.Second, Lookahead: 60 * time.Second, Tolerance: 120 * time.Second}, tooWide: true},
		{name: "zero window", cfg: Config{Interval: time.Second}, tooWide: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoop(tt.cfg, &fakeStore{}, cron.NewExpander(time.UTC), &recordingSink{}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.tooWide, errors.Is(err, ErrIntervalTooWide))
		})
	}
}

func TestNewLoop_AcceptsIntervalEqualToWindow(t *testing.T) {
	cfg := Config{Interval: 120 * time.Second, Lookahead: 600 * time.Second, Tolerance: 120 * time.Second}
	_, err := NewLoop(cfg, &fakeStore{}, cron.NewExpander(time.UTC), &recordingSink{}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 120*time.Second, Window{Lookahead: cfg.Lookahead, Tolerance: cfg.Tolerance}.Span())
}

// The widest allowed interval still announces a weekday 09:00 occurrence
// wherever the tick grid falls relative to it.
func TestLoop_WidestIntervalNeverMissesOccurrence(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{{Name: "standup", Schedule: "0 9 * * MON-FRI"}}}
	nine := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	cfg := defaultConfig()
	cfg.Interval = cfg.Tolerance

	for _, offset := range []time.Duration{0, time.Second, 45 * time.Second, 119 * time.Second} {
		sink := &recordingSink{}
		clock := &manualClock{}
		loop, err := NewLoop(cfg, store, cron.NewExpander(time.UTC), sink, logger.Nop(), WithClock(clock.Now))
		require.NoError(t, err)

		// Ticks at nine-10m+offset, stepping by the interval, until past 09:00.
		for now := nine.Add(-10*time.Minute + offset); !now.After(nine.Add(cfg.Interval)); now = now.Add(cfg.Interval) {
			clock.Set(now)
			_, err := loop.Tick(context.Background())
			require.NoError(t, err)
		}
		assert.Len(t, sink.sent(), 1, "offset %s", offset)
	}
}

type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (s *blockingSink) Send(ctx context.Context, _ string) error {
	close(s.entered)
	<-s.release
	s.ctxErr <- ctx.Err()
	return nil
}

func TestLoop_StopWaitsForInFlightTick(t *testing.T) {
	store := &fakeStore{defs: []events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}}}
	sink := &blockingSink{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	clock := &manualClock{now: mondayMorning}
	cfg := defaultConfig()
	cfg.Interval = cfg.Tolerance
	cfg.FireImmediately = true

	loop, err := NewLoop(cfg, store, cron.NewExpander(time.UTC), sink, logger.Nop(), WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, loop.Start(context.Background()))
	assert.ErrorIs(t, loop.Start(context.Background()), ErrAlreadyStarted)

	select {
	case <-sink.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first tick did not start")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- loop.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the tick finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(sink.release)
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.NoError(t, <-sink.ctxErr)
	state := loop.State()
	assert.False(t, state.Running)
	assert.Equal(t, int64(1), state.Ticks)
	assert.NoError(t, loop.Stop(context.Background()))
}

func TestLoop_StopTimeout(t *testing.T) {
	sink := &blockingSink{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	store := &fakeStore{defs: []events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}}}
	cfg := defaultConfig()
	cfg.FireImmediately = true
	clock := &manualClock{now: mondayMorning}

	loop, err := NewLoop(cfg, store, cron.NewExpander(time.UTC), sink, logger.Nop(), WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, loop.Start(context.Background()))
	<-sink.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, loop.Stop(ctx), context.DeadlineExceeded)

	close(sink.release)
	require.NoError(t, loop.Stop(context.Background()))
}

// slowSink takes longer than the tick interval and tracks overlapping sends.
type slowSink struct {
	delay       time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (s *slowSink) Send(_ context.Context, _ string) error {
	n := s.inFlight.Add(1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(s.delay)
	s.inFlight.Add(-1)
	s.calls.Add(1)
	return nil
}

func TestLoop_TickerPolicy(t *testing.T) {
	// An occurrence every minute; the clock jumps one minute per tick so
	// every tick has a fresh occurrence to send.
	store := &fakeStore{defs: []events.Definition{{Name: "pulse", Schedule: "* * * * *"}}}
	var reads atomic.Int64
	clock := func() time.Time {
		return mondayMorning.Add(time.Duration(reads.Add(1)) * time.Minute)
	}
	sink := &slowSink{delay: 60 * time.Millisecond}

	cfg := defaultConfig()
	cfg.Interval = 20 * time.Millisecond

	loop, err := NewLoop(cfg, store, cron.NewExpander(time.UTC), sink, logger.Nop(), WithClock(clock))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, loop.Start(context.Background()))
	defer func() { _ = loop.Stop(context.Background()) }()

	// No immediate tick: nothing happens before one interval has elapsed.
	time.Sleep(cfg.Interval / 4)
	if time.Since(start) < cfg.Interval {
		assert.Zero(t, loop.State().Ticks)
		assert.Zero(t, sink.inFlight.Load()+sink.calls.Load())
	}

	require.Eventually(t, func() bool { return loop.State().Ticks >= 3 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, loop.Stop(context.Background()))

	state := loop.State()
	assert.False(t, state.Running)
	assert.GreaterOrEqual(t, sink.calls.Load(), int32(3))
	assert.Equal(t, int32(1), sink.maxInFlight.Load(), "sends never overlap")
	// Overrun ticks are deferred, not queued: three slow ticks take at least
	// three send delays.
	assert.GreaterOrEqual(t, time.Since(start), 3*sink.delay)
}

type panickingStore struct{}

func (panickingStore) ListAll(context.Context) ([]events.Definition, error) {
	panic("boom")
}

func TestLoop_PanicInTickIsRecovered(t *testing.T) {
	cfg := defaultConfig()
	loop, err := NewLoop(cfg, panickingStore{}, cron.NewExpander(time.UTC), &recordingSink{}, logger.Nop())
	require.NoError(t, err)

	assert.NotPanics(t, func() { loop.safeTick(context.Background()) })
}

func TestDispatcher_PruneKeepsRecent(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 12*time.Minute, logger.Nop(), nil)
	ctx := context.Background()
	old := cron.Occurrence{EventName: "a", Timestamp: mondayMorning.Add(-20 * time.Minute)}
	recent := cron.Occurrence{EventName: "b", Timestamp: mondayMorning.Add(-5 * time.Minute)}

	assert.Equal(t, ResultSent, d.Dispatch(ctx, old))
	assert.Equal(t, ResultSent, d.Dispatch(ctx, recent))
	assert.Equal(t, ResultDuplicate, d.Dispatch(ctx, recent))

	assert.Equal(t, 1, d.Prune(mondayMorning))
	assert.False(t, d.Seen(old))
	assert.True(t, d.Seen(recent))
	assert.Equal(t, 1, d.Len())
}

func TestDispatcher_SameInstantDifferentZones(t *testing.T) {
	d := NewDispatcher(&recordingSink{}, time.Hour, logger.Nop(), nil)
	tokyo := time.FixedZone("JST", 9*60*60)

	occ := cron.Occurrence{EventName: "a", Timestamp: mondayMorning}
	sameInstant := cron.Occurrence{EventName: "a", Timestamp: mondayMorning.In(tokyo)}

	assert.Equal(t, ResultSent, d.Dispatch(context.Background(), occ))
	assert.Equal(t, ResultDuplicate, d.Dispatch(context.Background(), sameInstant))
}
