// Package telegram connects the message bus to a Telegram bot.
//
// Features:
//   - Long polling for receiving updates
//   - Whitelist-based user authorization
//   - Bot menu registration for the chat commands
//   - HTML replies with a plain-text fallback
package telegram

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/aatumaykin/ipubot/internal/bus"
	"github.com/aatumaykin/ipubot/internal/channels"
	"github.com/aatumaykin/ipubot/internal/config"
	"github.com/aatumaykin/ipubot/internal/constants"
	"github.com/aatumaykin/ipubot/internal/logger"
)

// Connector represents the Telegram bot connector.
type Connector struct {
	cfg      config.TelegramConfig
	logger   *logger.Logger
	bus      *bus.MessageBus
	bot      BotInterface
	username string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a connector. bot may be nil, in which case Start builds one
// from cfg.Token.
func New(cfg config.TelegramConfig, log *logger.Logger, msgBus *bus.MessageBus, bot BotInterface) *Connector {
	return &Connector{
		cfg:    cfg,
		logger: log,
		bus:    msgBus,
		bot:    bot,
	}
}

// Start initializes the bot and begins polling for updates.
func (c *Connector) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.logger.Info("telegram connector disabled in config")
		return nil
	}
	c.logger.Info(constants.MsgTelegramStartup)

	if c.bot == nil {
		if c.cfg.Token == "" {
			return fmt.Errorf("telegram token is required")
		}
		bot, err := NewBot(c.cfg.Token)
		if err != nil {
			return err
		}
		c.bot = bot
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	me, err := c.bot.GetMe(c.ctx)
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	c.username = me.Username
	c.logger.Info("telegram bot initialized",
		logger.Field{Key: "bot_id", Value: me.ID},
		logger.Field{Key: "username", Value: me.Username})

	if err := c.registerCommands(); err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to register bot commands", err)
	}

	updates, err := c.bot.UpdatesViaLongPolling(c.ctx, &telego.GetUpdatesParams{
		Timeout:        c.cfg.PollTimeoutSeconds,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	outbound := c.bus.SubscribeOutbound(c.ctx)
	if outbound == nil {
		c.cancel()
		return fmt.Errorf("subscribe outbound: %w", bus.ErrNotStarted)
	}

	c.wg.Add(2)
	go c.poll(updates)
	go c.handleOutbound(outbound)
	return nil
}

// Stop cancels polling and waits for the connector goroutines.
func (c *Connector) Stop() error {
	if c.cancel == nil {
		return nil
	}
	c.logger.Info("stopping telegram connector")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("telegram connector stopped gracefully")
	return nil
}

// Username returns the bot's @username once started.
func (c *Connector) Username() string {
	return c.username
}

// Bot returns the underlying API client, or nil before Start.
func (c *Connector) Bot() BotInterface {
	return c.bot
}

func (c *Connector) registerCommands() error {
	cmds := make([]telego.BotCommand, 0, len(constants.CommandOrder))
	for _, name := range constants.CommandOrder {
		cmds = append(cmds, telego.BotCommand{Command: name, Description: constants.CommandDescriptions[name]})
	}
	if err := c.bot.SetMyCommands(c.ctx, &telego.SetMyCommandsParams{Commands: cmds}); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	c.logger.Info("bot commands registered", logger.Field{Key: "count", Value: len(cmds)})
	return nil
}

func (c *Connector) poll(updates <-chan telego.Update) {
	defer c.wg.Done()
	c.logger.Info("long polling started")

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("long polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				c.logger.Info("updates channel closed")
				return
			}
			if err := c.handleUpdate(update); err != nil {
				c.logger.ErrorCtx(c.ctx, "failed to handle update", err)
			}
		}
	}
}

// isAllowedUser reports whether userID passes the whitelist. An empty
// whitelist admits everyone.
func (c *Connector) isAllowedUser(userID string) bool {
	if len(c.cfg.AllowedUsers) == 0 {
		return true
	}
	return slices.Contains(c.cfg.AllowedUsers, userID)
}

func (c *Connector) handleUpdate(update telego.Update) error {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil {
		return nil
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	if !c.isAllowedUser(userID) {
		c.logger.WarnCtx(c.ctx, "message blocked - user not in whitelist",
			logger.Field{Key: "user_id", Value: userID},
			logger.Field{Key: "username", Value: msg.From.Username})
		return c.send(bus.OutboundMessage{
			ChannelType:      bus.ChannelTypeTelegram,
			ChatID:           msg.Chat.ID,
			Text:             constants.MsgUnauthorized,
			ReplyToMessageID: msg.MessageID,
		})
	}

	in := bus.NewInboundMessage(bus.ChannelTypeTelegram, msg.Chat.ID, userID, displayName(msg.From), msg.Text)
	in.MessageID = msg.MessageID
	in.Metadata = map[string]any{
		"chat_type":    msg.Chat.Type,
		"bot_username": c.username,
	}

	if err := c.bus.PublishInbound(in); err != nil {
		return fmt.Errorf("failed to publish inbound message: %w", err)
	}
	return nil
}

// displayName picks the name recorded in the point ledger.
func displayName(u *telego.User) string {
	if u.Username != "" {
		return u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return strconv.FormatInt(u.ID, 10)
	}
	return name
}

func (c *Connector) handleOutbound(outbound <-chan bus.OutboundMessage) {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-outbound:
			if !ok {
				return
			}
			if msg.ChannelType != bus.ChannelTypeTelegram {
				continue
			}
			if err := c.send(msg); err != nil {
				var se *channels.SendError
				if errors.As(err, &se) {
					c.logger.ErrorCtx(c.ctx, "failed to send telegram message", err, se.LogFields()...)
				} else {
					c.logger.ErrorCtx(c.ctx, "failed to send telegram message", err)
				}
			}
		}
	}
}

func (c *Connector) sendTimeout() time.Duration {
	if c.cfg.SendTimeoutSeconds <= 0 {
		return time.Duration(constants.DefaultTelegramSendTimeoutSeconds) * time.Second
	}
	return time.Duration(c.cfg.SendTimeoutSeconds) * time.Second
}

// send delivers msg as HTML and retries once as plain text when Telegram
// rejects the markup.
func (c *Connector) send(msg bus.OutboundMessage) error {
	params := &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: msg.ChatID},
		Text:      MarkdownToHTML(msg.Text),
		ParseMode: telego.ModeHTML,
	}
	if msg.ReplyToMessageID != 0 {
		params.ReplyParameters = &telego.ReplyParameters{
			MessageID:                msg.ReplyToMessageID,
			AllowSendingWithoutReply: true,
		}
	}

	err := c.sendOnce(params)
	if err == nil {
		return nil
	}

	se := channels.NewTelegramSendError(msg.ChatID, err)
	if !se.IsParseError() {
		return se
	}

	c.logger.WarnCtx(c.ctx, "html parse error, retrying as plain text",
		logger.Field{Key: "chat_id", Value: msg.ChatID},
		logger.Field{Key: "error", Value: se.Description})
	params.ParseMode = ""
	params.Text = StripFormatting(msg.Text)
	if err := c.sendOnce(params); err != nil {
		return channels.NewTelegramSendError(msg.ChatID, err)
	}
	return nil
}

func (c *Connector) sendOnce(params *telego.SendMessageParams) error {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout())
	defer cancel()
	_, err := c.bot.SendMessage(sendCtx, params)
	return err
}
