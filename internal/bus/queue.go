package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/aatumaykin/ipubot/internal/logger"
)

var (
	ErrQueueFull      = errors.New("queue is full")
	ErrAlreadyStarted = errors.New("message bus is already started")
	ErrNotStarted     = errors.New("message bus is not started")
)

const subscriberBuffer = 16

// topic fans one queue out to every subscriber.
type topic[T any] struct {
	name  string
	queue chan T
	subs  map[int64]chan T
}

func newTopic[T any](name string) *topic[T] {
	return &topic[T]{name: name, subs: make(map[int64]chan T)}
}

func (t *topic[T]) open(capacity int) {
	t.queue = make(chan T, capacity)
}

func (t *topic[T]) close() {
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
	close(t.queue)
}

// MessageBus is an asynchronous queue for inbound and outbound chat messages.
type MessageBus struct {
	mu       sync.RWMutex
	logger   *logger.Logger
	capacity int
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	nextID   int64

	inbound  *topic[InboundMessage]
	outbound *topic[OutboundMessage]
}

// New creates a MessageBus whose queues hold up to capacity messages.
func New(capacity int, log *logger.Logger) *MessageBus {
	return &MessageBus{
		logger:   log,
		capacity: capacity,
		inbound:  newTopic[InboundMessage]("inbound"),
		outbound: newTopic[OutboundMessage]("outbound"),
	}
}

// Start launches the distribution goroutines.
func (mb *MessageBus) Start(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.started {
		return ErrAlreadyStarted
	}

	mb.ctx, mb.cancel = context.WithCancel(ctx)
	mb.inbound.open(mb.capacity)
	mb.outbound.open(mb.capacity)
	mb.started = true

	go distribute(mb, mb.inbound)
	go distribute(mb, mb.outbound)

	mb.logger.Info("message bus started", logger.Field{Key: "capacity", Value: mb.capacity})
	return nil
}

// Stop closes the queues and every subscriber channel.
func (mb *MessageBus) Stop() error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.started {
		return ErrNotStarted
	}

	mb.cancel()
	mb.inbound.close()
	mb.outbound.close()
	mb.started = false

	mb.logger.Info("message bus stopped")
	return nil
}

// IsStarted reports whether the bus is running.
func (mb *MessageBus) IsStarted() bool {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return mb.started
}

// PublishInbound enqueues a message received from a channel.
func (mb *MessageBus) PublishInbound(msg InboundMessage) error {
	return publish(mb, mb.inbound, msg, msg.SessionID)
}

// PublishOutbound enqueues a reply for a channel.
func (mb *MessageBus) PublishOutbound(msg OutboundMessage) error {
	return publish(mb, mb.outbound, msg, msg.SessionID)
}

// SubscribeInbound returns a channel of inbound messages, or nil when the
// bus is not started. The channel is closed by Stop.
func (mb *MessageBus) SubscribeInbound(ctx context.Context) <-chan InboundMessage {
	return subscribe(ctx, mb, mb.inbound)
}

// SubscribeOutbound returns a channel of outbound messages, or nil when the
// bus is not started. The channel is closed by Stop.
func (mb *MessageBus) SubscribeOutbound(ctx context.Context) <-chan OutboundMessage {
	return subscribe(ctx, mb, mb.outbound)
}

func publish[T any](mb *MessageBus, t *topic[T], msg T, sessionID string) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if !mb.started {
		return ErrNotStarted
	}

	select {
	case t.queue <- msg:
		mb.logger.DebugCtx(mb.ctx, t.name+" message published",
			logger.Field{Key: "session_id", Value: sessionID})
		return nil
	default:
		mb.logger.WarnCtx(mb.ctx, t.name+" queue full",
			logger.Field{Key: "capacity", Value: cap(t.queue)})
		return ErrQueueFull
	}
}

func subscribe[T any](ctx context.Context, mb *MessageBus, t *topic[T]) <-chan T {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.started {
		return nil
	}

	ch := make(chan T, subscriberBuffer)
	mb.nextID++
	t.subs[mb.nextID] = ch

	mb.logger.DebugCtx(ctx, t.name+" subscriber added",
		logger.Field{Key: "subscriber_id", Value: mb.nextID})
	return ch
}

func distribute[T any](mb *MessageBus, t *topic[T]) {
	mb.mu.RLock()
	ctx, queue := mb.ctx, t.queue
	mb.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-queue:
			if !ok {
				return
			}
			mb.mu.RLock()
			for _, ch := range t.subs {
				select {
				case ch <- msg:
				default:
					mb.logger.WarnCtx(ctx, t.name+" subscriber channel full, skipping message")
				}
			}
			mb.mu.RUnlock()
		}
	}
}
