package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/blotter/pkg/domain/events"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/resolution"
	"github.com/felixgeelhaar/blotter/pkg/domain/store"
)

// ResolutionService closes a case with a settled or withdrawn outcome.
type ResolutionService struct {
	serviceOptions
	repo      store.Repository
	cases     *CaseService
	reminders ReminderScheduler
}

func NewResolutionService(repo store.Repository, cases *CaseService, reminders ReminderScheduler, opts ...Option) *ResolutionService {
	return &ResolutionService{
		serviceOptions: newServiceOptions(opts),
		repo:           repo,
		cases:          cases,
		reminders:      reminders,
	}
}

// RecordResult describes what a recorded resolution changed.
type RecordResult struct {
	Resolution *resolution.Resolution `json:"resolution"`
	CaseStatus string                 `json:"case_status"`
	// Hearings lists still-scheduled hearings closed by this resolution.
	Hearings []*hearing.Hearing `json:"hearings,omitempty"`
}

// Record validates the type through the status mapper before anything is
// written. On success the case takes the mapped status and every hearing still
// Scheduled is completed (Settled) or cancelled (Withdrawn) with its reminders
// removed.
func (s *ResolutionService) Record(ctx context.Context, caseRef, typ, details, actor string) (*RecordResult, error) {
	t, err := resolution.ParseType(typ)
	if err != nil {
		return nil, err
	}
	status, err := resolution.MapToStatus(t)
	if err != nil {
		return nil, err
	}
	caseEvent, err := resolution.CaseEvent(status)
	if err != nil {
		return nil, err
	}
	hearingEvent, err := resolution.HearingEvent(t)
	if err != nil {
		return nil, err
	}

	c, err := s.cases.Resolve(ctx, caseRef)
	if err != nil {
		return nil, err
	}
	now := s.now()
	from := c.Status
	if err := c.Apply(caseEvent, now); err != nil {
		return nil, err
	}

	r, err := resolution.New(c.ID, t, details, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateResolution(ctx, r); err != nil {
		return nil, fmt.Errorf("create resolution: %w", err)
	}
	if err := s.repo.SetCaseStatus(ctx, c.ID, status); err != nil {
		return nil, fmt.Errorf("set case status: %w", err)
	}

	res := &RecordResult{Resolution: r, CaseStatus: string(status)}
	hearings, err := s.repo.ListHearings(ctx, c.ID)
	if err != nil {
		return res, fmt.Errorf("list hearings: %w", err)
	}
	for _, listed := range hearings {
		if listed.Status != hearing.StatusScheduled {
			continue
		}
		var closed *hearing.Hearing
		err := s.reminders.WithHearing(ctx, listed.ID, func(ctx context.Context) error {
			h, err := s.repo.GetHearing(ctx, listed.ID)
			if err != nil {
				return err
			}
			if h.Status != hearing.StatusScheduled {
				return nil
			}
			if err := closeHearing(ctx, s.repo, s.reminders, s.logger, h, hearingEvent, now); err != nil {
				return err
			}
			closed = h
			return nil
		})
		if err != nil {
			return res, err
		}
		if closed != nil {
			res.Hearings = append(res.Hearings, closed)
			s.publishHearingClosed(ctx, closed, actor)
		}
	}

	s.logger.Info("resolution recorded", "case", c.Number, "type", t, "status", status, "hearings_closed", len(res.Hearings))
	s.publish(ctx, &events.ResolutionRecorded{
		BaseEvent:      events.NewBase(events.TypeResolutionRecorded, events.AggregateCase, c.ID, actor, now),
		ResolutionID:   r.ID,
		ResolutionType: string(t),
		CaseStatus:     string(status),
	})
	s.cases.statusChanged(ctx, c, from, actor)
	return res, nil
}

// List returns the resolutions recorded on a case.
func (s *ResolutionService) List(ctx context.Context, caseRef string) ([]*resolution.Resolution, error) {
	c, err := s.cases.Resolve(ctx, caseRef)
	if err != nil {
		return nil, err
	}
	return s.repo.ListResolutions(ctx, c.ID)
}

func (s *ResolutionService) publishHearingClosed(ctx context.Context, h *hearing.Hearing, actor string) {
	switch h.Status {
	case hearing.StatusCompleted:
		s.publish(ctx, &events.HearingCompleted{
			BaseEvent: events.NewBase(events.TypeHearingCompleted, events.AggregateHearing, h.ID, actor, h.UpdatedAt),
			CaseID:    h.CaseID,
		})
	case hearing.StatusCancelled:
		s.publish(ctx, &events.HearingCancelled{
			BaseEvent: events.NewBase(events.TypeHearingCancelled, events.AggregateHearing, h.ID, actor, h.UpdatedAt),
			CaseID:    h.CaseID,
			Reason:    "case withdrawn",
		})
	}
}
