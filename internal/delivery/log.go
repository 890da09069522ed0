package delivery

import (
	"context"

	"github.com/aatumaykin/ipubot/internal/logger"
)

// LogSink writes messages to the logger instead of delivering them.
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink returns a LogSink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

// Send logs text at info level. It never fails.
func (s *LogSink) Send(ctx context.Context, text string) error {
	s.logger.InfoCtx(ctx, "reminder", logger.Field{Key: "text", Value: text})
	return nil
}
