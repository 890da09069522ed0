// Package commands handles chat commands for the point ledger and the
// periodic event registry.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/ipubot/internal/bus"
	"github.com/aatumaykin/ipubot/internal/constants"
	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/ledger"
	"github.com/aatumaykin/ipubot/internal/logger"
	"github.com/aatumaykin/ipubot/internal/messages"
	"github.com/aatumaykin/ipubot/internal/metrics"
	"github.com/aatumaykin/ipubot/internal/workers"
)

// Command outcome labels.
const (
	statusOK      = "ok"
	statusInvalid = "invalid"
	statusError   = "error"
)

// MessageBusInterface defines the message bus operations needed by Handler.
type MessageBusInterface interface {
	PublishOutbound(msg bus.OutboundMessage) error
}

// Submitter queues work on the worker pool.
type Submitter interface {
	TrySubmit(task workers.Task) error
}

// Options tunes the listings.
type Options struct {
	UpcomingLimit int
	PreviewCount  int
	Version       string
}

// reply is the outcome of one command.
type reply struct {
	text   string
	status string
}

type commandFunc func(ctx context.Context, cmd Command, msg bus.InboundMessage) (reply, error)

// Handler executes chat commands.
type Handler struct {
	events     events.Store
	ledger     *ledger.Ledger
	expander   *cron.Expander
	messageBus MessageBusInterface
	logger     *logger.Logger
	metrics    *metrics.Metrics
	opts       Options
	clock      func() time.Time
	table      map[string]commandFunc
}

// NewHandler creates a new command handler. events should reject unparsable
// schedules (see events.NewValidatingStore).
func NewHandler(
	store events.Store,
	points *ledger.Ledger,
	expander *cron.Expander,
	messageBus MessageBusInterface,
	log *logger.Logger,
	m *metrics.Metrics,
	opts Options,
) *Handler {
	if opts.UpcomingLimit <= 0 {
		opts.UpcomingLimit = constants.DefaultUpcomingLimit
	}
	if opts.PreviewCount <= 0 {
		opts.PreviewCount = constants.DefaultPreviewCount
	}

	h := &Handler{
		events:     store,
		ledger:     points,
		expander:   expander,
		messageBus: messageBus,
		logger:     log,
		metrics:    m,
		opts:       opts,
		clock:      time.Now,
	}
	h.table = map[string]commandFunc{
		constants.CommandHelp:        h.handleHelp,
		constants.CommandAll:         h.handleAll,
		constants.CommandReset:       h.handleReset,
		constants.CommandDelay:       h.handleDelay,
		constants.CommandAddEvent:    h.handleAddEvent,
		constants.CommandUpdateEvent: h.handleUpdateEvent,
		constants.CommandDeleteEvent: h.handleDeleteEvent,
		constants.CommandEvents:      h.handleEvents,
	}
	return h
}

// Run submits every inbound message to pool until inbound is closed or ctx
// is done. Each message becomes one task, so distinct messages run
// concurrently.
func (h *Handler) Run(ctx context.Context, inbound <-chan bus.InboundMessage, pool Submitter) {
	h.logger.Info("command handler started")
	defer h.logger.Info("command handler stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			task := workers.Task{
				ID:   uuid.NewString(),
				Type: "command",
				Run: func(taskCtx context.Context) (string, error) {
					return "", h.Process(taskCtx, msg)
				},
			}
			if err := pool.TrySubmit(task); err != nil {
				h.logger.WarnCtx(ctx, "dropping inbound message", logger.Field{Key: "error", Value: err.Error()},
					logger.Field{Key: "session_id", Value: msg.SessionID})
			}
		}
	}
}

// Process handles msg and publishes the reply, if any.
func (h *Handler) Process(ctx context.Context, msg bus.InboundMessage) error {
	text, ok := h.Handle(ctx, msg)
	if !ok {
		return nil
	}
	if err := h.messageBus.PublishOutbound(msg.Reply(text)); err != nil {
		h.logger.ErrorCtx(ctx, "failed to publish reply", err,
			logger.Field{Key: "session_id", Value: msg.SessionID})
		return fmt.Errorf("publish reply: %w", err)
	}
	return nil
}

// Handle runs the command in msg and returns the reply text. ok is false for
// messages that are not commands.
func (h *Handler) Handle(ctx context.Context, msg bus.InboundMessage) (text string, ok bool) {
	botName, _ := msg.Metadata["bot_username"].(string)
	cmd, ok := Parse(msg.Text, botName)
	if !ok {
		return "", false
	}
	fn, ok := h.table[cmd.Name]
	if !ok {
		return "", false
	}

	fields := []logger.Field{
		{Key: "command", Value: cmd.Name},
		{Key: "user_id", Value: msg.UserID},
		{Key: "session_id", Value: msg.SessionID},
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			h.logger.ErrorCtx(ctx, "command panic recovered", fmt.Errorf("panic: %v", r), fields...)
			h.metrics.RecordCommand(cmd.Name, statusError, time.Since(start))
			text, ok = constants.MsgCommandFailed, true
		}
	}()

	res, err := fn(ctx, cmd, msg)
	if err != nil {
		h.logger.ErrorCtx(ctx, "command failed", err, fields...)
		res = reply{text: constants.MsgCommandFailed, status: statusError}
	} else {
		h.logger.InfoCtx(ctx, "command handled", fields...)
	}
	if res.status == "" {
		res.status = statusOK
	}
	h.metrics.RecordCommand(cmd.Name, res.status, time.Since(start))
	return res.text, true
}

func okReply(text string) reply {
	return reply{text: text, status: statusOK}
}

func invalidReply(text string) reply {
	return reply{text: text, status: statusInvalid}
}

func (h *Handler) handleHelp(_ context.Context, _ Command, _ bus.InboundMessage) (reply, error) {
	return okReply(messages.FormatHelp(h.opts.Version)), nil
}

func (h *Handler) handleAll(ctx context.Context, _ Command, _ bus.InboundMessage) (reply, error) {
	users, err := h.ledger.Users(ctx)
	if err != nil {
		return reply{}, err
	}
	return okReply(messages.FormatUsers(users)), nil
}

func (h *Handler) handleReset(ctx context.Context, _ Command, _ bus.InboundMessage) (reply, error) {
	if err := h.ledger.Reset(ctx); err != nil {
		return reply{}, err
	}
	return okReply(constants.MsgReset), nil
}

func (h *Handler) handleDelay(ctx context.Context, cmd Command, msg bus.InboundMessage) (reply, error) {
	points, err := h.ledger.ReportDelay(ctx, msg.UserID, msg.UserName, cmd.Minutes)
	if errors.Is(err, ledger.ErrInvalidUser) {
		return invalidReply(constants.MsgInvalidUsage), nil
	}
	if err != nil {
		return reply{}, err
	}
	return okReply(fmt.Sprintf(constants.MsgPointsAdded, points)), nil
}

// eventArgs splits "<name> <cron...>".
func eventArgs(args []string) (name, schedule string, valid bool) {
	if len(args) < 2 {
		return "", "", false
	}
	return args[0], strings.Join(args[1:], " "), true
}

func (h *Handler) handleAddEvent(ctx context.Context, cmd Command, _ bus.InboundMessage) (reply, error) {
	return h.saveEvent(ctx, cmd, false)
}

func (h *Handler) handleUpdateEvent(ctx context.Context, cmd Command, _ bus.InboundMessage) (reply, error) {
	return h.saveEvent(ctx, cmd, true)
}

func (h *Handler) saveEvent(ctx context.Context, cmd Command, update bool) (reply, error) {
	name, schedule, valid := eventArgs(cmd.Args)
	if !valid {
		return invalidReply(constants.MsgInvalidUsage), nil
	}

	next, err := h.expander.PreviewUpcoming(schedule, h.clock(), h.opts.PreviewCount)
	if err != nil {
		return invalidScheduleReply(schedule, err)
	}

	def := events.Definition{Name: name, Schedule: schedule}
	if update {
		err = h.events.Update(ctx, def)
	} else {
		err = h.events.Insert(ctx, def)
	}

	switch {
	case errors.Is(err, events.ErrDuplicateName):
		return invalidReply(fmt.Sprintf(constants.MsgEventExists, name)), nil
	case errors.Is(err, events.ErrNotFound):
		return invalidReply(fmt.Sprintf(constants.MsgEventNotFound, name)), nil
	case cron.IsInvalidSchedule(err):
		return invalidScheduleReply(schedule, err)
	case err != nil:
		return reply{}, err
	}

	return okReply(messages.FormatEventSaved(name, update, next)), nil
}

func invalidScheduleReply(schedule string, err error) (reply, error) {
	var ise *cron.InvalidScheduleError
	if errors.As(err, &ise) {
		return invalidReply(fmt.Sprintf(constants.MsgInvalidSchedule, schedule, ise.Err)), nil
	}
	return reply{}, err
}

func (h *Handler) handleDeleteEvent(ctx context.Context, cmd Command, _ bus.InboundMessage) (reply, error) {
	if len(cmd.Args) < 1 {
		return invalidReply(constants.MsgInvalidUsage), nil
	}
	name := cmd.Args[0]

	err := h.events.Delete(ctx, name)
	if errors.Is(err, events.ErrNotFound) {
		return invalidReply(fmt.Sprintf(constants.MsgEventNotFound, name)), nil
	}
	if err != nil {
		return reply{}, err
	}
	return okReply(fmt.Sprintf(constants.MsgEventDeleted, name)), nil
}

func (h *Handler) handleEvents(ctx context.Context, _ Command, _ bus.InboundMessage) (reply, error) {
	defs, err := h.events.ListAll(ctx)
	if err != nil {
		return reply{}, err
	}

	occs, skipped := h.expander.TopK(defs, h.clock(), h.opts.UpcomingLimit)
	for _, ise := range skipped {
		h.logger.WarnCtx(ctx, "skipping event with invalid schedule",
			logger.Field{Key: "event", Value: ise.Event},
			logger.Field{Key: "cron", Value: ise.Expression})
	}
	return okReply(messages.FormatUpcoming(occs)), nil
}
