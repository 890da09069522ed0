package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	tgchannel "github.com/aatumaykin/ipubot/internal/channels/telegram"
)

const sinkTelegram = "telegram"

// TelegramSink sends messages to one Telegram chat, throttled by a token bucket.
type TelegramSink struct {
	bot     MessageSender
	chatID  int64
	limiter *rate.Limiter
	timeout time.Duration
}

// NewTelegramSink returns a TelegramSink. A non-positive perSecond disables throttling.
func NewTelegramSink(bot MessageSender, chatID int64, perSecond float64, timeout time.Duration) *TelegramSink {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &TelegramSink{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
	}
}

// Send waits for the rate limiter and sends text to the chat.
func (s *TelegramSink) Send(ctx context.Context, text string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctxTimeout); err != nil {
		return &DeliveryError{Sink: sinkTelegram, Err: err}
	}

	msg, err := s.bot.SendMessage(ctxTimeout, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: s.chatID},
		Text:      tgchannel.MarkdownToHTML(text),
		ParseMode: telego.ModeHTML,
	})
	if err != nil {
		return &DeliveryError{Sink: sinkTelegram, Err: err}
	}
	if msg == nil {
		return &DeliveryError{Sink: sinkTelegram, Err: errors.New("empty response")}
	}
	return nil
}
