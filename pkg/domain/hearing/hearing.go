// Package hearing models court hearings scheduled on a case.
package hearing

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain"
)

// Status is the lifecycle status of a hearing.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Hearing lifecycle events.
const (
	EventReschedule = "reschedule"
	EventComplete   = "complete"
	EventCancel     = "cancel"
)

var validTransitions = map[Status]map[string]Status{
	StatusScheduled: {
		EventReschedule: StatusScheduled,
		EventComplete:   StatusCompleted,
		EventCancel:     StatusCancelled,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValid returns true if the status is a valid hearing status.
func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// IsFinal returns true for completed or cancelled hearings.
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus parses a string into a Status.
func ParseStatus(str string) (Status, error) {
	s := Status(str)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid hearing status: %s", str)
	}
	return s, nil
}

// Hearing is a court date attached to a case.
type Hearing struct {
	ID               string         `json:"id"`
	CaseID           string         `json:"case_id"`
	Date             string         `json:"date"`
	Time             string         `json:"time"`
	ScheduledAt      *time.Time     `json:"scheduled_at,omitempty"`
	Location         string         `json:"location"`
	Purpose          string         `json:"purpose,omitempty"`
	PresidingOfficer string         `json:"presiding_officer,omitempty"`
	Status           Status         `json:"status"`
	Approval         ApprovalStatus `json:"approval"`
	DeclineReason    string         `json:"decline_reason,omitempty"`
	// ReminderScheduled is informational; the delayed-work registry is authoritative.
	ReminderScheduled bool      `json:"reminder_scheduled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Details is the editable part of a hearing.
type Details struct {
	Date             string
	Time             string
	ScheduledAt      *time.Time
	Location         string
	Purpose          string
	PresidingOfficer string
}

// New creates a scheduled hearing awaiting approval.
func New(caseID string, d Details, now time.Time) (*Hearing, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, fmt.Errorf("case ID is required")
	}
	h := &Hearing{
		ID:        domain.NewID(),
		CaseID:    caseID,
		Status:    StatusScheduled,
		Approval:  ApprovalPending,
		CreatedAt: now,
	}
	if err := h.setDetails(d, now); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hearing) setDetails(d Details, now time.Time) error {
	if strings.TrimSpace(d.Location) == "" {
		return fmt.Errorf("hearing location is required")
	}
	if d.ScheduledAt != nil {
		// Stores keep whole seconds at best; reminder fire times are compared against this value.
		at := d.ScheduledAt.Truncate(time.Second)
		h.ScheduledAt = &at
		if d.Date == "" {
			d.Date = FormatDate(at)
		}
		if d.Time == "" {
			d.Time = FormatTime(at)
		}
	} else {
		h.ScheduledAt = nil
	}
	if strings.TrimSpace(d.Date) == "" || strings.TrimSpace(d.Time) == "" {
		return fmt.Errorf("hearing date and time are required")
	}
	h.Date = strings.TrimSpace(d.Date)
	h.Time = strings.TrimSpace(d.Time)
	h.Location = strings.TrimSpace(d.Location)
	h.Purpose = d.Purpose
	h.PresidingOfficer = d.PresidingOfficer
	h.UpdatedAt = now
	return nil
}

// Apply moves the hearing through its lifecycle.
func (h *Hearing) Apply(event string, now time.Time) error {
	target, ok := validTransitions[h.Status][event]
	if !ok {
		return &domain.TransitionError{Entity: "hearing", ID: h.ID, From: string(h.Status), Event: event}
	}
	h.Status = target
	h.UpdatedAt = now
	return nil
}

// Reschedule replaces the hearing details on a still scheduled hearing.
func (h *Hearing) Reschedule(d Details, now time.Time) error {
	if err := h.Apply(EventReschedule, now); err != nil {
		return err
	}
	return h.setDetails(d, now)
}

// Decide applies an approval decision. A decline carries a reason, which may be empty.
func (h *Hearing) Decide(event, reason string, now time.Time) error {
	m, err := NewApprovalMachine(h.Approval, h.ID)
	if err != nil {
		return err
	}
	if err := m.Transition(event); err != nil {
		return err
	}
	h.Approval = m.Current()
	if h.Approval == ApprovalDeclined {
		h.DeclineReason = reason
	}
	h.UpdatedAt = now
	return nil
}

// When returns the absolute hearing time. ScheduledAt wins over the display strings.
func (h *Hearing) When(loc *time.Location) (time.Time, error) {
	if h.ScheduledAt != nil {
		return h.ScheduledAt.In(loc), nil
	}
	t, err := ParseDateTime(h.Date, h.Time, loc)
	if err != nil {
		return time.Time{}, &domain.ParseError{HearingID: h.ID, Date: h.Date, Time: h.Time, Err: err}
	}
	return t, nil
}
