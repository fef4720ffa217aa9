package events

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/blotter/pkg/domain"
)

// LoggingHandler logs every event at debug level.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler. A nil logger uses slog.Default().
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger}
}

func (h *LoggingHandler) Handle(_ context.Context, event DomainEvent) error {
	h.logger.Debug("domain event",
		"event_type", event.EventType(),
		"aggregate_type", event.AggregateType(),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt())
	return nil
}

func (h *LoggingHandler) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:       "LoggingHandler",
		Handler:    h.Handle,
		EventTypes: []string{"*"},
	}
}

// HistoryHandler writes case and hearing events into the hash-chained history.
// Reminder history is recorded by the scheduler itself and is not repeated here.
type HistoryHandler struct {
	audit  domain.AuditLogger
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(audit domain.AuditLogger, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{audit: audit, logger: logger}
}

func (h *HistoryHandler) Handle(_ context.Context, event DomainEvent) error {
	if event.EventType() == TypeReminderFired {
		return nil
	}
	actor := "system"
	if a, ok := actorOf(event); ok && a != "" {
		actor = a
	}
	if err := h.audit.Log(event.EventType(), actor, Payload(event)); err != nil {
		h.logger.Error("failed to record history", "event_type", event.EventType(), "error", err)
		return err
	}
	return nil
}

func (h *HistoryHandler) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:       "HistoryHandler",
		Handler:    h.Handle,
		EventTypes: []string{"*"},
	}
}

type actorer interface{ actor() string }

func (e BaseEvent) actor() string { return e.Actor }

func actorOf(event DomainEvent) (string, bool) {
	a, ok := event.(actorer)
	if !ok {
		return "", false
	}
	return a.actor(), true
}
