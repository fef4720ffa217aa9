package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/events"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
	"github.com/felixgeelhaar/blotter/pkg/domain/store"
)

// ReminderScheduler is the part of ReminderService the hearing use cases drive.
type ReminderScheduler interface {
	Schedule(ctx context.Context, h *hearing.Hearing) (reminder.Plan, error)
	Reschedule(ctx context.Context, h *hearing.Hearing) (reminder.Plan, error)
	Cancel(ctx context.Context, hearingID string) (int, error)
	WithHearing(ctx context.Context, hearingID string, fn func(ctx context.Context) error) error
}

// HearingService schedules hearings on a case and keeps their reminders current.
type HearingService struct {
	serviceOptions
	repo      store.Repository
	cases     *CaseService
	reminders ReminderScheduler
}

func NewHearingService(repo store.Repository, cases *CaseService, reminders ReminderScheduler, opts ...Option) *HearingService {
	return &HearingService{
		serviceOptions: newServiceOptions(opts),
		repo:           repo,
		cases:          cases,
		reminders:      reminders,
	}
}

// ScheduleResult is a stored hearing and the reminders planned for it.
type ScheduleResult struct {
	Hearing *hearing.Hearing `json:"hearing"`
	Plan    reminder.Plan    `json:"plan"`
	// Warning is set when the hearing was saved but reminders could not be planned.
	Warning string `json:"warning,omitempty"`
}

// Get returns one hearing.
func (s *HearingService) Get(ctx context.Context, id string) (*hearing.Hearing, error) {
	return s.repo.GetHearing(ctx, strings.TrimSpace(id))
}

// List returns the hearings of a case.
func (s *HearingService) List(ctx context.Context, caseRef string) ([]*hearing.Hearing, error) {
	c, err := s.cases.Resolve(ctx, caseRef)
	if err != nil {
		return nil, err
	}
	return s.repo.ListHearings(ctx, c.ID)
}

// PendingApprovals returns scheduled hearings still awaiting a decision.
func (s *HearingService) PendingApprovals(ctx context.Context) ([]*hearing.Hearing, error) {
	all, err := s.repo.ListHearingsByStatus(ctx, hearing.StatusScheduled)
	if err != nil {
		return nil, err
	}
	var out []*hearing.Hearing
	for _, h := range all {
		if h.Approval.IsPending() {
			out = append(out, h)
		}
	}
	return out, nil
}

// Schedule creates a hearing on a case under investigation, moves the case to
// Scheduled and plans the reminders. An unparsable date or time still saves the
// hearing; the result then carries a warning and no reminders.
func (s *HearingService) Schedule(ctx context.Context, caseRef string, d hearing.Details, actor string) (*ScheduleResult, error) {
	c, err := s.cases.Resolve(ctx, caseRef)
	if err != nil {
		return nil, err
	}
	now := s.now()
	from := c.Status
	if err := c.Apply(casefile.EventSchedule, now); err != nil {
		return nil, err
	}

	h, err := hearing.New(c.ID, d, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateHearing(ctx, h); err != nil {
		return nil, fmt.Errorf("create hearing: %w", err)
	}
	if from != c.Status {
		if err := s.repo.SetCaseStatus(ctx, c.ID, c.Status); err != nil {
			return nil, fmt.Errorf("set case status: %w", err)
		}
	}

	res := &ScheduleResult{Hearing: h}
	res.Plan, res.Warning, err = s.plan(ctx, h, s.reminders.Schedule)
	if err != nil {
		return res, err
	}

	s.logger.Info("hearing scheduled", "hearing_id", h.ID, "case", c.Number, "reminders", len(res.Plan.Tasks))
	s.publish(ctx, &events.HearingScheduled{
		BaseEvent: events.NewBase(events.TypeHearingScheduled, events.AggregateHearing, h.ID, actor, now),
		CaseID:    c.ID,
		Date:      h.Date,
		Time:      h.Time,
		Location:  h.Location,
	})
	s.cases.statusChanged(ctx, c, from, actor)
	return res, nil
}

// Reschedule changes date, time or place. Empty fields of d keep their current value.
func (s *HearingService) Reschedule(ctx context.Context, id string, d hearing.Details, actor string) (*ScheduleResult, error) {
	var res *ScheduleResult
	err := s.update(ctx, id, func(ctx context.Context, h *hearing.Hearing) error {
		if err := h.Reschedule(mergeDetails(h, d), s.now()); err != nil {
			return err
		}
		res = &ScheduleResult{Hearing: h}
		var err error
		res.Plan, res.Warning, err = s.plan(ctx, h, s.reminders.Reschedule)
		return err
	})
	if err != nil {
		return res, err
	}
	h := res.Hearing

	s.publish(ctx, &events.HearingRescheduled{
		BaseEvent: events.NewBase(events.TypeHearingRescheduled, events.AggregateHearing, h.ID, actor, h.UpdatedAt),
		CaseID:    h.CaseID,
		Date:      h.Date,
		Time:      h.Time,
		Location:  h.Location,
	})
	return res, nil
}

// Cancel marks the hearing Cancelled and removes its reminders.
func (s *HearingService) Cancel(ctx context.Context, id, reason, actor string) (*hearing.Hearing, error) {
	h, err := s.finish(ctx, id, hearing.EventCancel)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, &events.HearingCancelled{
		BaseEvent: events.NewBase(events.TypeHearingCancelled, events.AggregateHearing, h.ID, actor, h.UpdatedAt),
		CaseID:    h.CaseID,
		Reason:    reason,
	})
	return h, nil
}

// Complete marks the hearing as held and removes its remaining reminders.
func (s *HearingService) Complete(ctx context.Context, id, actor string) (*hearing.Hearing, error) {
	h, err := s.finish(ctx, id, hearing.EventComplete)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, &events.HearingCompleted{
		BaseEvent: events.NewBase(events.TypeHearingCompleted, events.AggregateHearing, h.ID, actor, h.UpdatedAt),
		CaseID:    h.CaseID,
	})
	return h, nil
}

// Approve records an approval. Approval does not affect the timeline or reminders.
func (s *HearingService) Approve(ctx context.Context, id, actor string) (*hearing.Hearing, error) {
	return s.decide(ctx, id, hearing.EventApprove, "", actor)
}

// Decline records a decline with an optional reason.
func (s *HearingService) Decline(ctx context.Context, id, reason, actor string) (*hearing.Hearing, error) {
	return s.decide(ctx, id, hearing.EventDecline, reason, actor)
}

func (s *HearingService) decide(ctx context.Context, id, event, reason, actor string) (*hearing.Hearing, error) {
	var h *hearing.Hearing
	err := s.update(ctx, id, func(ctx context.Context, cur *hearing.Hearing) error {
		if err := cur.Decide(event, reason, s.now()); err != nil {
			return err
		}
		if err := s.repo.UpdateHearing(ctx, cur); err != nil {
			return fmt.Errorf("save approval: %w", err)
		}
		h = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, &events.HearingApprovalDecided{
		BaseEvent: events.NewBase(events.TypeHearingApprovalDecided, events.AggregateHearing, h.ID, actor, h.UpdatedAt),
		CaseID:    h.CaseID,
		Decision:  string(h.Approval),
		Reason:    h.DeclineReason,
	})
	return h, nil
}

// finish applies a terminal hearing event, persists it, then cancels reminders.
func (s *HearingService) finish(ctx context.Context, id, event string) (*hearing.Hearing, error) {
	var h *hearing.Hearing
	err := s.update(ctx, id, func(ctx context.Context, cur *hearing.Hearing) error {
		if err := closeHearing(ctx, s.repo, s.reminders, s.logger, cur, event, s.now()); err != nil {
			return err
		}
		h = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// update reads the hearing and runs fn while holding the hearing's lock, so
// concurrent changes to one hearing apply one after another.
func (s *HearingService) update(ctx context.Context, id string, fn func(ctx context.Context, h *hearing.Hearing) error) error {
	id = strings.TrimSpace(id)
	return s.reminders.WithHearing(ctx, id, func(ctx context.Context) error {
		h, err := s.repo.GetHearing(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, h)
	})
}

// closeHearing applies a terminal event, drops the reminders and saves. The
// caller holds the hearing's lock.
func closeHearing(ctx context.Context, repo store.Repository, reminders ReminderScheduler, logger *slog.Logger, h *hearing.Hearing, event string, now time.Time) error {
	if err := h.Apply(event, now); err != nil {
		return err
	}
	if _, err := reminders.Cancel(ctx, h.ID); err != nil {
		logger.Warn("failed to cancel reminders; stale ones will be suppressed when they fire", "hearing_id", h.ID, "error", err)
	}
	h.ReminderScheduled = false
	if err := repo.UpdateHearing(ctx, h); err != nil {
		return fmt.Errorf("save hearing %s: %w", h.ID, err)
	}
	return nil
}

type planFunc func(ctx context.Context, h *hearing.Hearing) (reminder.Plan, error)

// plan runs a reminder operation and persists the resulting flag. Parse errors
// become a warning; anything else is returned.
func (s *HearingService) plan(ctx context.Context, h *hearing.Hearing, fn planFunc) (reminder.Plan, string, error) {
	plan, err := fn(ctx, h)
	warning := ""
	if err != nil {
		if !errors.Is(err, domain.ErrParse) {
			if serr := s.repo.UpdateHearing(ctx, h); serr != nil {
				return plan, "", errors.Join(
					fmt.Errorf("reminders not scheduled: %w", err),
					fmt.Errorf("save hearing: %w", serr),
				)
			}
			return plan, "", fmt.Errorf("hearing saved but reminders not scheduled: %w", err)
		}
		warning = err.Error()
	}
	if err := s.repo.UpdateHearing(ctx, h); err != nil {
		return plan, warning, fmt.Errorf("save hearing: %w", err)
	}
	return plan, warning, nil
}

func mergeDetails(h *hearing.Hearing, d hearing.Details) hearing.Details {
	out := hearing.Details{
		Date:             h.Date,
		Time:             h.Time,
		ScheduledAt:      h.ScheduledAt,
		Location:         h.Location,
		Purpose:          h.Purpose,
		PresidingOfficer: h.PresidingOfficer,
	}
	if d.ScheduledAt != nil {
		out.ScheduledAt = d.ScheduledAt
		out.Date, out.Time = d.Date, d.Time
	} else if d.Date != "" || d.Time != "" {
		// New display strings replace the absolute time.
		out.ScheduledAt = nil
		if d.Date != "" {
			out.Date = d.Date
		}
		if d.Time != "" {
			out.Time = d.Time
		}
	}
	if d.Location != "" {
		out.Location = d.Location
	}
	if d.Purpose != "" {
		out.Purpose = d.Purpose
	}
	if d.PresidingOfficer != "" {
		out.PresidingOfficer = d.PresidingOfficer
	}
	return out
}
