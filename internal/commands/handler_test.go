package commands

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/ipubot/internal/bus"
	"github.com/aatumaykin/ipubot/internal/constants"
	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/ledger"
	"github.com/aatumaykin/ipubot/internal/logger"
	"github.com/aatumaykin/ipubot/internal/metrics"
	"github.com/aatumaykin/ipubot/internal/storage"
	"github.com/aatumaykin/ipubot/internal/workers"
)

// 2026-10-19 is a Monday.
var mondayMorning = time.Date(2026, 10, 19, 8, 59, 30, 0, time.UTC)

type MockMessageBus struct {
	mock.Mock
}

func (m *MockMessageBus) PublishOutbound(msg bus.OutboundMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

type failingStore struct {
	*storage.MemoryStore
	err error
}

func (s *failingStore) ListAll(context.Context) ([]events.Definition, error) {
	return nil, s.err
}

func (s *failingStore) ListUsers(context.Context) ([]ledger.User, error) {
	return nil, s.err
}

type handlerFixture struct {
	h     *Handler
	store *storage.MemoryStore
	bus   *MockMessageBus
	reg   *prometheus.Registry
}

func newHandlerFixture(t *testing.T, opts Options) *handlerFixture {
	t.Helper()
	store := storage.NewMemoryStore()
	return newHandlerFixtureWith(t, store, store, store, opts)
}

func newHandlerFixtureWith(t *testing.T, mem *storage.MemoryStore, ev events.Store, ls ledger.Store, opts Options) *handlerFixture {
	t.Helper()
	expander := cron.NewExpander(time.UTC)
	reg := prometheus.NewRegistry()
	mb := &MockMessageBus{}

	h := NewHandler(
		events.NewValidatingStore(ev, expander),
		ledger.New(ls, constants.DefaultMinutesPerPoint),
		expander,
		mb,
		logger.Nop(),
		metrics.InitPrometheusMetrics("test", reg),
		opts,
	)
	h.clock = func() time.Time { return mondayMorning }
	return &handlerFixture{h: h, store: mem, bus: mb, reg: reg}
}

func inbound(text string) bus.InboundMessage {
	msg := bus.NewInboundMessage(bus.ChannelTypeTelegram, -100, "42", "alice", text)
	msg.MessageID = 9
	msg.Metadata = map[string]any{"bot_username": "ipubot"}
	return msg
}

func (f *handlerFixture) handle(t *testing.T, text string) string {
	t.Helper()
	reply, ok := f.h.Handle(context.Background(), inbound(text))
	require.True(t, ok, "expected %q to be a command", text)
	return reply
}

func TestHandler_Help(t *testing.T) {
	f := newHandlerFixture(t, Options{Version: "1.2.3"})
	reply := f.handle(t, "!help")
	assert.True(t, strings.HasPrefix(reply, "ipubot ver 1.2.3\n"))
	assert.Contains(t, reply, "!add_event")
}

func TestHandler_LedgerFlow(t *testing.T) {
	f := newHandlerFixture(t, Options{})

	assert.Equal(t, "not found", f.handle(t, "!all"))
	assert.Equal(t, "📃 +3", f.handle(t, "+35"))
	assert.Equal(t, "📃 +1", f.handle(t, "+10"))
	assert.Equal(t, "alice 📃 4", f.handle(t, "!all"))

	assert.Equal(t, "reset", f.handle(t, "!reset"))
	assert.Equal(t, "not found", f.handle(t, "/all@ipubot"))
}

func TestHandler_DelayBelowOnePoint(t *testing.T) {
	f := newHandlerFixture(t, Options{})
	assert.Equal(t, "📃 +0", f.handle(t, "+5"))
	assert.Equal(t, "alice 📃 0", f.handle(t, "!all"))
}

func TestHandler_DelayWithoutUser(t *testing.T) {
	f := newHandlerFixture(t, Options{})
	msg := inbound("+30")
	msg.UserID = ""

	reply, ok := f.h.Handle(context.Background(), msg)
	require.True(t, ok)
	assert.Equal(t, constants.MsgInvalidUsage, reply)
}

func TestHandler_AddEvent(t *testing.T) {
	f := newHandlerFixture(t, Options{PreviewCount: 3})

	reply := f.handle(t, "!add_event standup 0 0 9 * * MON-FRI")
	assert.Equal(t, "✨ standup registered\n"+
		"- 10/19(Mon) 09:00\n"+
		"- 10/20(Tue) 09:00\n"+
		"- 10/21(Wed) 09:00", reply)

	defs, err := f.store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []events.Definition{{Name: "standup", Schedule: "0 0 9 * * MON-FRI"}}, defs)

	assert.Equal(t, "❌ standup already exists", f.handle(t, "!add_event standup 0 0 10 * * *"))
}

func TestHandler_AddEventInvalid(t *testing.T) {
	f := newHandlerFixture(t, Options{})

	assert.Equal(t, constants.MsgInvalidUsage, f.handle(t, "!add_event standup"))
	assert.Equal(t, constants.MsgInvalidUsage, f.handle(t, "!add_event"))

	reply := f.handle(t, "!add_event standup every morning")
	assert.True(t, strings.HasPrefix(reply, `❌ invalid schedule "every morning"`), reply)

	defs, err := f.store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestHandler_UpdateEvent(t *testing.T) {
	f := newHandlerFixture(t, Options{PreviewCount: 1})

	assert.Equal(t, "❌ ghost not found", f.handle(t, "!update_event ghost 0 0 9 * * *"))

	f.handle(t, "!add_event standup 0 0 9 * * MON-FRI")
	assert.Equal(t, "✨ standup updated\n- 10/19(Mon) 10:00", f.handle(t, "!update_event standup 0 0 10 * * *"))

	defs, err := f.store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0 0 10 * * *", defs[0].Schedule)
}

func TestHandler_DeleteEvent(t *testing.T) {
	f := newHandlerFixture(t, Options{})
	f.handle(t, "!add_event standup 0 0 9 * * MON-FRI")

	assert.Equal(t, constants.MsgInvalidUsage, f.handle(t, "!delete_event"))
	assert.Equal(t, "🗑 standup deleted", f.handle(t, "!delete_event standup"))
	assert.Equal(t, "❌ standup not found", f.handle(t, "!delete_event standup"))
}

func TestHandler_Events(t *testing.T) {
	f := newHandlerFixture(t, Options{UpcomingLimit: 4})

	assert.Equal(t, constants.MsgNoUpcoming, f.handle(t, "!events"))

	f.handle(t, "!add_event standup 0 0 9 * * MON-FRI")
	f.handle(t, "!add_event lunch 0 0 12 * * *")
	f.handle(t, "!add_event deploy 0 0 9 * * *")

	assert.Equal(t, "- 10/19(Mon) 09:00 deploy\n"+
		"- 10/19(Mon) 09:00 standup\n"+
		"- 10/19(Mon) 12:00 lunch\n"+
		"- 10/20(Tue) 09:00 deploy", f.handle(t, "!events"))
}

func TestHandler_EventsSkipsInvalidStoredSchedule(t *testing.T) {
	mem := storage.NewMemoryStore()
	// Written around the validating wrapper, as an older deployment might have.
	require.NoError(t, mem.Insert(context.Background(), events.Definition{Name: "broken", Schedule: "nope"}))
	require.NoError(t, mem.Insert(context.Background(), events.Definition{Name: "lunch", Schedule: "0 0 12 * * *"}))
	f := newHandlerFixtureWith(t, mem, mem, mem, Options{UpcomingLimit: 1})

	assert.Equal(t, "- 10/19(Mon) 12:00 lunch", f.handle(t, "!events"))
}

func TestHandler_NotACommand(t *testing.T) {
	f := newHandlerFixture(t, Options{})

	for _, text := range []string{"hello", "!unknown", "/events@otherbot", "+", ""} {
		_, ok := f.h.Handle(context.Background(), inbound(text))
		assert.False(t, ok, text)
	}
}

func TestHandler_StoreErrorReplies(t *testing.T) {
	mem := storage.NewMemoryStore()
	fs := &failingStore{MemoryStore: mem, err: events.NewStoreError("list", errors.New("disk gone"))}
	f := newHandlerFixtureWith(t, mem, fs, fs, Options{})

	assert.Equal(t, constants.MsgCommandFailed, f.handle(t, "!events"))
	assert.Equal(t, constants.MsgCommandFailed, f.handle(t, "!all"))

	count, err := testutil.GatherAndCount(f.reg, "test_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHandler_RecordsMetrics(t *testing.T) {
	f := newHandlerFixture(t, Options{})
	f.handle(t, "!all")
	f.handle(t, "!all")
	f.handle(t, "!add_event x")

	count, err := testutil.GatherAndCount(f.reg, "test_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count) // all/ok and add_event/invalid
}

func TestHandler_ProcessPublishesReply(t *testing.T) {
	f := newHandlerFixture(t, Options{})
	f.bus.On("PublishOutbound", mock.MatchedBy(func(msg bus.OutboundMessage) bool {
		return msg.Text == "not found" && msg.ChatID == -100 && msg.ReplyToMessageID == 9
	})).Return(nil).Once()

	require.NoError(t, f.h.Process(context.Background(), inbound("!all")))
	require.NoError(t, f.h.Process(context.Background(), inbound("just chatting")))
	f.bus.AssertExpectations(t)
}

func TestHandler_ProcessPublishError(t *testing.T) {
	f := newHandlerFixture(t, Options{})
	f.bus.On("PublishOutbound", mock.Anything).Return(bus.ErrQueueFull)

	err := f.h.Process(context.Background(), inbound("!all"))
	assert.ErrorIs(t, err, bus.ErrQueueFull)
}

type recordingBus struct {
	mu   sync.Mutex
	msgs []bus.OutboundMessage
}

func (r *recordingBus) PublishOutbound(msg bus.OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingBus) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestHandler_RunUsesPool(t *testing.T) {
	store := storage.NewMemoryStore()
	expander := cron.NewExpander(time.UTC)
	rb := &recordingBus{}
	h := NewHandler(events.NewValidatingStore(store, expander), ledger.New(store, 10), expander, rb, logger.Nop(), nil, Options{})

	pool := workers.NewPool(2, 10, logger.Nop())
	pool.Start()
	defer func() { _ = pool.Stop(context.Background()) }()

	in := make(chan bus.InboundMessage, 3)
	in <- inbound("+20")
	in <- inbound("!help")
	in <- inbound("not a command")
	close(in)

	h.Run(context.Background(), in, pool)
	assert.Eventually(t, func() bool { return rb.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

type fullPool struct{}

func (fullPool) TrySubmit(workers.Task) error { return workers.ErrQueueFull }

func TestHandler_RunDropsWhenPoolFull(t *testing.T) {
	f := newHandlerFixture(t, Options{})
	in := make(chan bus.InboundMessage, 1)
	in <- inbound("!all")
	close(in)

	assert.NotPanics(t, func() { f.h.Run(context.Background(), in, fullPool{}) })
	f.bus.AssertNotCalled(t, "PublishOutbound", mock.Anything)
}
