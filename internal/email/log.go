package email

import (
	"context"

	"go.uber.org/zap"
)

// LogSender logs messages to zap instead of delivering them.
// Used when SMTP is not configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender backed by logger.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message and returns nil.
func (l *LogSender) Send(_ context.Context, to []string, subject, body string) error {
	l.logger.Info("compliance notice (not sent, smtp disabled)",
		zap.Strings("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
