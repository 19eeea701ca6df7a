package alerting

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogAlerter writes alerts to the log. Used when no Telegram bot is configured.
type LogAlerter struct{}

// NewLogAlerter creates a new log alerter
func NewLogAlerter() *LogAlerter {
	return &LogAlerter{}
}

// Alert logs message at error level
func (LogAlerter) Alert(_ context.Context, message string) error {
	log.WithField("alert", true).Error(message)
	return nil
}
