package messaging

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/blotter/pkg/domain/messaging"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

// LogAdapter writes reminders to the structured log. It never fails.
type LogAdapter struct {
	config messaging.AdapterConfig
	logger *slog.Logger
}

func NewLogAdapter(config messaging.AdapterConfig, logger *slog.Logger) *LogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAdapter{config: config, logger: logger}
}

func (a *LogAdapter) Name() string { return a.config.Name }
func (a *LogAdapter) Type() string { return messaging.TypeLog }

func (a *LogAdapter) Notify(_ context.Context, n reminder.Notification) error {
	a.logger.Info(n.Title,
		"channel", a.config.Name,
		"hearing_id", n.HearingID,
		"case", n.CaseNumber,
		"offset", n.Offset,
		"body", n.Body,
	)
	return nil
}
