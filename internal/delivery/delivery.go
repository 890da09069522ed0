// Package delivery sends reminder text to an outbound channel.
package delivery

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"github.com/aatumaykin/ipubot/internal/config"
	"github.com/aatumaykin/ipubot/internal/logger"
)

// Sink delivers one message. A returned error is a *DeliveryError.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// DeliveryError reports a failed send.
type DeliveryError struct {
	Sink       string
	StatusCode int // HTTP status for the webhook sink, 0 otherwise
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failed with status %d: %v", e.Sink, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s delivery failed: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// MessageSender is the part of the Telegram bot API the telegram sink needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// New builds the sink selected by cfg.Kind. bot is only used by the telegram kind.
func New(cfg config.DeliveryConfig, bot MessageSender, log *logger.Logger) (Sink, error) {
	switch cfg.Kind {
	case config.DeliveryWebhook:
		return NewWebhookSink(cfg.WebhookURL, cfg.Timeout()), nil
	case config.DeliveryTelegram:
		if bot == nil {
			return nil, fmt.Errorf("telegram delivery requires a telegram bot")
		}
		return NewTelegramSink(bot, cfg.ChatID, cfg.RatePerSecond, cfg.Timeout()), nil
	case config.DeliveryLog:
		return NewLogSink(log), nil
	default:
		return nil, fmt.Errorf("unknown delivery kind: %q", cfg.Kind)
	}
}
