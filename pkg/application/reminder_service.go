package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

// HearingLister is the read side ReminderService needs to rehydrate the queue.
type HearingLister interface {
	GetHearing(ctx context.Context, id string) (*hearing.Hearing, error)
	ListHearingsByStatus(ctx context.Context, status hearing.Status) ([]*hearing.Hearing, error)
}

// ReminderService plans and registers hearing reminders with the work queue.
// Operations on one hearing are serialized; different hearings proceed in parallel.
type ReminderService struct {
	serviceOptions
	hearings HearingLister
	queue    reminder.WorkQueue
	prefs    reminder.PreferencesStore
	audit    domain.AuditLogger
	locks    keyedMutex
}

func NewReminderService(hearings HearingLister, queue reminder.WorkQueue, prefs reminder.PreferencesStore, audit domain.AuditLogger, opts ...Option) *ReminderService {
	return &ReminderService{
		serviceOptions: newServiceOptions(opts),
		hearings:       hearings,
		queue:          queue,
		prefs:          prefs,
		audit:          audit,
	}
}

// Schedule registers every enabled, still-future reminder for h and updates
// h.ReminderScheduled. Preferences are read on every call. An unparsable hearing
// time returns a *domain.ParseError and schedules nothing.
func (s *ReminderService) Schedule(ctx context.Context, h *hearing.Hearing) (reminder.Plan, error) {
	unlock := s.lock(ctx, h.ID)
	defer unlock()
	return s.schedule(ctx, h)
}

// Cancel removes all pending reminders for hearingID. Cancelling a hearing
// with nothing scheduled is a no-op.
func (s *ReminderService) Cancel(ctx context.Context, hearingID string) (int, error) {
	unlock := s.lock(ctx, hearingID)
	defer unlock()
	return s.cancel(ctx, hearingID)
}

// Reschedule cancels and re-plans h's reminders as one step.
func (s *ReminderService) Reschedule(ctx context.Context, h *hearing.Hearing) (reminder.Plan, error) {
	unlock := s.lock(ctx, h.ID)
	defer unlock()
	return s.reschedule(ctx, h)
}

// WithHearing runs fn while holding hearingID's lock, so a read-modify-save of
// the hearing cannot interleave with another one. Schedule, Reschedule and
// Cancel called with the ctx passed to fn do not lock again.
func (s *ReminderService) WithHearing(ctx context.Context, hearingID string, fn func(ctx context.Context) error) error {
	if holdsHearing(ctx, hearingID) {
		return fn(ctx)
	}
	unlock := s.locks.Lock(hearingID)
	defer unlock()
	return fn(context.WithValue(ctx, heldHearingKey{}, hearingID))
}

type heldHearingKey struct{}

func holdsHearing(ctx context.Context, hearingID string) bool {
	held, _ := ctx.Value(heldHearingKey{}).(string)
	return held == hearingID
}

func (s *ReminderService) lock(ctx context.Context, hearingID string) func() {
	if holdsHearing(ctx, hearingID) {
		return func() {}
	}
	return s.locks.Lock(hearingID)
}

func (s *ReminderService) reschedule(ctx context.Context, h *hearing.Hearing) (reminder.Plan, error) {
	removed, err := s.cancel(ctx, h.ID)
	if err != nil {
		return reminder.Plan{}, err
	}
	plan, err := s.schedule(ctx, h)
	if err != nil {
		return plan, err
	}
	s.record(domain.ActionReminderRescheduled, map[string]interface{}{
		"hearing_id": h.ID,
		"removed":    removed,
		"scheduled":  len(plan.Tasks),
	})
	return plan, nil
}

// Pending lists the not-yet-fired reminders for hearingID.
func (s *ReminderService) Pending(hearingID string) []reminder.Task {
	return s.queue.Pending(hearingID)
}

// Sync re-plans every Scheduled hearing. It is idempotent and returns the
// number of reminders now registered. Hearings that fail to plan are logged
// and skipped.
func (s *ReminderService) Sync(ctx context.Context) (int, error) {
	hearings, err := s.hearings.ListHearingsByStatus(ctx, hearing.StatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("list scheduled hearings: %w", err)
	}

	total := 0
	for _, h := range hearings {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.replan(ctx, h.ID)
		if err != nil {
			s.logger.Warn("skipping hearing during reminder sync", "hearing_id", h.ID, "error", err)
			continue
		}
		total += n
	}
	s.logger.Info("reminders synced", "hearings", len(hearings), "reminders", total)
	return total, nil
}

// Refresh re-plans Scheduled hearings updated after since. Another process
// may have written them without reaching this queue. It returns the newest
// UpdatedAt seen, to pass as since on the next call.
func (s *ReminderService) Refresh(ctx context.Context, since time.Time) (time.Time, error) {
	hearings, err := s.hearings.ListHearingsByStatus(ctx, hearing.StatusScheduled)
	if err != nil {
		return since, fmt.Errorf("list scheduled hearings: %w", err)
	}

	newest := since
	for _, h := range hearings {
		if !h.UpdatedAt.After(since) {
			continue
		}
		if _, err := s.replan(ctx, h.ID); err != nil {
			s.logger.Warn("skipping hearing during reminder refresh", "hearing_id", h.ID, "error", err)
		}
		if h.UpdatedAt.After(newest) {
			newest = h.UpdatedAt
		}
	}
	return newest, nil
}

// replan re-reads the hearing under its lock and reschedules it, or drops its
// reminders when it is no longer Scheduled.
func (s *ReminderService) replan(ctx context.Context, hearingID string) (int, error) {
	var n int
	err := s.WithHearing(ctx, hearingID, func(ctx context.Context) error {
		h, err := s.hearings.GetHearing(ctx, hearingID)
		if err != nil {
			return err
		}
		if h.Status != hearing.StatusScheduled {
			_, err := s.cancel(ctx, hearingID)
			return err
		}
		plan, err := s.reschedule(ctx, h)
		n = len(plan.Tasks)
		return err
	})
	return n, err
}

func (s *ReminderService) schedule(ctx context.Context, h *hearing.Hearing) (reminder.Plan, error) {
	prefs, err := s.prefs.LoadPreferences()
	if err != nil {
		return reminder.Plan{}, fmt.Errorf("load reminder preferences: %w", err)
	}
	if !prefs.Enabled {
		s.logger.Info("reminders disabled, nothing scheduled", "hearing_id", h.ID)
		h.ReminderScheduled = false
		return reminder.Plan{}, nil
	}

	at, err := h.When(s.location)
	if err != nil {
		s.logger.Warn("cannot schedule reminders: unparsable hearing time",
			"hearing_id", h.ID, "date", h.Date, "time", h.Time, "error", err)
		h.ReminderScheduled = false
		return reminder.Plan{}, err
	}

	now := s.now()
	plan := reminder.PlanReminders(h.ID, at, now, prefs)

	for _, sk := range plan.Skipped {
		s.logger.Info("reminder skipped", "hearing_id", h.ID, "offset", sk.Offset, "fire_at", sk.FireAt, "reason", sk.Reason)
		if sk.Reason == reminder.SkipPast {
			s.record(domain.ActionReminderSkipped, map[string]interface{}{
				"hearing_id": h.ID,
				"offset":     string(sk.Offset),
				"fire_at":    sk.FireAt.Format(time.RFC3339),
				"reason":     sk.Reason,
			})
		}
	}

	registered := plan.Tasks[:0:0]
	for _, task := range plan.Tasks {
		if err := s.queue.Register(ctx, task.Key(), task.FireAt.Sub(now), task); err != nil {
			s.logger.Error("failed to register reminder", "hearing_id", h.ID, "offset", task.Offset, "error", err)
			if len(registered) > 0 {
				if _, cerr := s.queue.CancelByTag(ctx, h.ID); cerr != nil {
					s.logger.Warn("failed to roll back partial reminders", "hearing_id", h.ID, "error", cerr)
				}
			}
			h.ReminderScheduled = false
			plan.Tasks = nil
			return plan, fmt.Errorf("register reminder %s: %w", task.Key(), err)
		}
		registered = append(registered, task)
		s.logger.Debug("reminder scheduled", "hearing_id", h.ID, "offset", task.Offset, "fire_at", task.FireAt)
		s.record(domain.ActionReminderScheduled, map[string]interface{}{
			"hearing_id": h.ID,
			"offset":     string(task.Offset),
			"fire_at":    task.FireAt.Format(time.RFC3339),
		})
	}
	plan.Tasks = registered
	h.ReminderScheduled = len(registered) > 0
	return plan, nil
}

func (s *ReminderService) cancel(ctx context.Context, hearingID string) (int, error) {
	n, err := s.queue.CancelByTag(ctx, hearingID)
	if err != nil {
		return 0, fmt.Errorf("cancel reminders for hearing %s: %w", hearingID, err)
	}
	if n > 0 {
		s.logger.Debug("reminders cancelled", "hearing_id", hearingID, "count", n)
		s.record(domain.ActionReminderCancelled, map[string]interface{}{
			"hearing_id": hearingID,
			"count":      n,
		})
	}
	return n, nil
}

// record writes history without failing the caller; the queue is authoritative.
func (s *ReminderService) record(action string, meta map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(action, "system", meta); err != nil {
		s.logger.Warn("failed to record reminder history", "action", action, "error", err)
	}
}

// keyedMutex hands out one mutex per key and frees it when the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
