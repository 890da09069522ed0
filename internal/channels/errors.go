// Package channels holds types shared by chat transport connectors.
package channels

import (
	"errors"
	"fmt"
	"strings"
	"time"

	telegoapi "github.com/mymmrac/telego/telegoapi"

	"github.com/aatumaykin/ipubot/internal/logger"
)

// SendError describes a failed delivery to a chat.
type SendError struct {
	Channel     string
	ChatID      int64
	Code        int
	Description string
	RetryAfter  time.Duration
	Err         error
}

func (e *SendError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s send to %d failed (%d): %s", e.Channel, e.ChatID, e.Code, e.Description)
	}
	return fmt.Sprintf("%s send to %d failed: %v", e.Channel, e.ChatID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether the API rejected the message formatting.
func (e *SendError) IsParseError() bool {
	if e.Code != 400 {
		return false
	}
	d := e.Description
	return strings.Contains(d, "can't parse entities") ||
		strings.Contains(d, "Can't find end of the entity") ||
		strings.Contains(d, "wrong number of entities") ||
		strings.Contains(d, "unsupported start tag")
}

// LogFields returns the fields worth attaching to a log line.
func (e *SendError) LogFields() []logger.Field {
	return []logger.Field{
		{Key: "channel", Value: e.Channel},
		{Key: "chat_id", Value: e.ChatID},
		{Key: "error_code", Value: e.Code},
		{Key: "retry_after", Value: e.RetryAfter},
	}
}

// NewTelegramSendError wraps err, extracting Bot API details when present.
func NewTelegramSendError(chatID int64, err error) *SendError {
	se := &SendError{Channel: "telegram", ChatID: chatID, Err: err}

	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		se.Code = apiErr.ErrorCode
		se.Description = apiErr.Description
		if apiErr.Parameters != nil {
			se.RetryAfter = time.Duration(apiErr.Parameters.RetryAfter) * time.Second
		}
	}
	return se
}
