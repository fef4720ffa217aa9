package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/events"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/messaging"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

// HearingReader looks up the current state of a hearing and its case.
type HearingReader interface {
	GetHearing(ctx context.Context, id string) (*hearing.Hearing, error)
	GetCase(ctx context.Context, id string) (*casefile.Case, error)
}

// DeadLetterSink keeps reminders that could not be delivered.
type DeadLetterSink interface {
	Append(dl messaging.DeadLetter) error
}

// ReminderDispatcher runs when a reminder's delay elapses.
type ReminderDispatcher struct {
	serviceOptions
	store       HearingReader
	prefs       reminder.PreferencesStore
	notifier    reminder.Notifier
	audit       domain.AuditLogger
	deadLetters DeadLetterSink
	retryConfig retry.Config
}

// DefaultDeliveryRetry is the backoff applied to Notifier failures.
var DefaultDeliveryRetry = retry.Config{
	MaxAttempts:   4,
	InitialDelay:  500 * time.Millisecond,
	BackoffPolicy: retry.BackoffExponential,
}

func NewReminderDispatcher(store HearingReader, prefs reminder.PreferencesStore, notifier reminder.Notifier, audit domain.AuditLogger, deadLetters DeadLetterSink, opts ...Option) *ReminderDispatcher {
	return &ReminderDispatcher{
		serviceOptions: newServiceOptions(opts),
		store:          store,
		prefs:          prefs,
		notifier:       notifier,
		audit:          audit,
		deadLetters:    deadLetters,
		retryConfig:    DefaultDeliveryRetry,
	}
}

// SetRetryConfig overrides DefaultDeliveryRetry.
func (d *ReminderDispatcher) SetRetryConfig(cfg retry.Config) {
	d.retryConfig = cfg
}

// Fire delivers task if it is still relevant. Stale reminders (hearing gone,
// no longer Scheduled, moved, or offset since disabled) succeed without
// sending. Only Notifier failures are retried; exhausting the retries logs a
// failure, writes a dead letter and returns a *domain.DeliveryError.
func (d *ReminderDispatcher) Fire(ctx context.Context, task reminder.Task) error {
	h, err := d.store.GetHearing(ctx, task.HearingID)
	if errors.Is(err, domain.ErrHearingNotFound) {
		d.skip(task, "hearing no longer exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load hearing %s: %w", task.HearingID, err)
	}

	if h.Status != hearing.StatusScheduled {
		d.skip(task, "hearing "+string(h.Status))
		return nil
	}

	at, err := h.When(d.location)
	if err != nil {
		d.logger.Error("reminder dropped: unparsable hearing time", "hearing_id", h.ID, "offset", task.Offset, "error", err)
		d.record(domain.ActionReminderFailed, task, map[string]interface{}{"error": err.Error(), "retried": false})
		return nil
	}
	offset, err := task.Offset.Duration()
	if err != nil {
		d.skip(task, err.Error())
		return nil
	}
	if !at.Add(-offset).Truncate(time.Second).Equal(task.FireAt.Truncate(time.Second)) {
		d.skip(task, "hearing time changed since scheduling")
		return nil
	}

	prefs, err := d.prefs.LoadPreferences()
	if err != nil {
		d.logger.Warn("using default reminder preferences", "error", err)
		prefs = reminder.DefaultPreferences()
	}
	if !prefs.Allows(task.Offset) {
		d.skip(task, reminder.SkipDisabled)
		return nil
	}

	caseNumber := ""
	if c, err := d.store.GetCase(ctx, h.CaseID); err == nil {
		caseNumber = c.Number
	}
	n := reminder.Compose(task.Offset, h.ID, h.CaseID, caseNumber, h.Location, at, prefs)

	r := retry.New[struct{}](d.retryConfig)
	_, err = r.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.notifier.Notify(ctx, n)
	})
	if err != nil {
		derr := &domain.DeliveryError{HearingID: h.ID, Offset: string(task.Offset), Err: err}
		d.logger.Error("reminder delivery failed", "hearing_id", h.ID, "offset", task.Offset,
			"attempts", d.retryConfig.MaxAttempts, "error", err)
		d.record(domain.ActionReminderFailed, task, map[string]interface{}{"error": err.Error(), "retried": true})
		d.deadLetter(n, derr)
		if f, ok := d.notifier.(reminder.Forgetter); ok {
			f.Forget(n)
		}
		return derr
	}

	d.logger.Info("reminder sent", "hearing_id", h.ID, "offset", task.Offset)
	d.record(domain.ActionReminderSent, task, nil)
	d.publish(ctx, &events.ReminderFired{
		BaseEvent: events.NewBase(events.TypeReminderFired, events.AggregateHearing, h.ID, "system", d.now()),
		CaseID:    h.CaseID,
		Offset:    string(task.Offset),
	})
	return nil
}

func (d *ReminderDispatcher) skip(task reminder.Task, reason string) {
	d.logger.Info("stale reminder suppressed", "hearing_id", task.HearingID, "offset", task.Offset, "reason", reason)
	d.record(domain.ActionReminderSkipped, task, map[string]interface{}{"reason": reason})
}

func (d *ReminderDispatcher) record(action string, task reminder.Task, extra map[string]interface{}) {
	if d.audit == nil {
		return
	}
	meta := map[string]interface{}{
		"hearing_id": task.HearingID,
		"offset":     string(task.Offset),
	}
	for k, v := range extra {
		meta[k] = v
	}
	if err := d.audit.Log(action, "system", meta); err != nil {
		d.logger.Warn("failed to record reminder history", "action", action, "error", err)
	}
}

func (d *ReminderDispatcher) deadLetter(n reminder.Notification, cause error) {
	if d.deadLetters == nil {
		return
	}
	payload, _ := json.Marshal(n)
	dl := messaging.DeadLetter{
		Timestamp: d.now(),
		HearingID: n.HearingID,
		Offset:    string(n.Offset),
		Payload:   string(payload),
		Error:     cause.Error(),
		Attempts:  d.retryConfig.MaxAttempts,
	}
	if err := d.deadLetters.Append(dl); err != nil {
		d.logger.Error("failed to write dead letter", "hearing_id", n.HearingID, "error", err)
	}
}
