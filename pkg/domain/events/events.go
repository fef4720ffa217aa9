// Package events defines the domain events emitted by case, hearing and
// reminder operations.
package events

import (
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain"
)

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	AggregateType() string
	OccurredAt() time.Time
}

// Aggregate types.
const (
	AggregateCase    = "case"
	AggregateHearing = "hearing"
)

// Event types.
const (
	TypeCaseCreated            = "case.created"
	TypeCaseStatusChanged      = "case.status_changed"
	TypeOfficerAssigned        = "case.officer_assigned"
	TypeInvestigationStarted   = "case.investigation_started"
	TypeArtifactAdded          = "case.artifact_added"
	TypeHearingScheduled       = "hearing.scheduled"
	TypeHearingRescheduled     = "hearing.rescheduled"
	TypeHearingCancelled       = "hearing.cancelled"
	TypeHearingCompleted       = "hearing.completed"
	TypeHearingApprovalDecided = "hearing.approval_decided"
	TypeResolutionRecorded     = "case.resolution_recorded"
	TypeReminderFired          = "hearing.reminder_fired"
)

// BaseEvent carries the fields common to every event.
type BaseEvent struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	AggregateID_   string                 `json:"aggregate_id"`
	AggregateType_ string                 `json:"aggregate_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Actor          string                 `json:"actor"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// NewBase stamps a fresh event ID.
func NewBase(eventType, aggregateType, aggregateID, actor string, now time.Time) BaseEvent {
	return BaseEvent{
		ID:             domain.NewID(),
		Type:           eventType,
		AggregateID_:   aggregateID,
		AggregateType_: aggregateType,
		Timestamp:      now,
		Actor:          actor,
	}
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) AggregateID() string   { return e.AggregateID_ }
func (e BaseEvent) AggregateType() string { return e.AggregateType_ }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// CaseCreated is emitted when a case is opened.
type CaseCreated struct {
	BaseEvent
	Number string `json:"number"`
	Title  string `json:"title"`
}

// CaseStatusChanged is emitted for every case status transition.
type CaseStatusChanged struct {
	BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

// OfficerAssigned is emitted when a case gets (or changes) its officer.
type OfficerAssigned struct {
	BaseEvent
	Officer string `json:"officer"`
}

// InvestigationStarted is emitted once per case.
type InvestigationStarted struct {
	BaseEvent
}

// ArtifactAdded is emitted for each witness, suspect or evidence record.
type ArtifactAdded struct {
	BaseEvent
	ArtifactID string `json:"artifact_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
}

// HearingScheduled is emitted when a hearing is created.
type HearingScheduled struct {
	BaseEvent
	CaseID   string `json:"case_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// HearingRescheduled is emitted when a hearing's date, time or place changes.
type HearingRescheduled struct {
	BaseEvent
	CaseID   string `json:"case_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// HearingCancelled is emitted when a hearing will not take place.
type HearingCancelled struct {
	BaseEvent
	CaseID string `json:"case_id"`
	Reason string `json:"reason,omitempty"`
}

// HearingCompleted is emitted when a hearing has been held.
type HearingCompleted struct {
	BaseEvent
	CaseID string `json:"case_id"`
}

// HearingApprovalDecided is emitted when an approval leaves Pending.
type HearingApprovalDecided struct {
	BaseEvent
	CaseID   string `json:"case_id"`
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// ResolutionRecorded is emitted when a case is settled or withdrawn.
type ResolutionRecorded struct {
	BaseEvent
	ResolutionID   string `json:"resolution_id"`
	ResolutionType string `json:"resolution_type"`
	CaseStatus     string `json:"case_status"`
}

// ReminderFired is emitted after a reminder has been delivered.
type ReminderFired struct {
	BaseEvent
	CaseID string `json:"case_id"`
	Offset string `json:"offset"`
}

// Payload flattens an event into the map pushed to remote sinks.
func Payload(e DomainEvent) map[string]interface{} {
	p := map[string]interface{}{
		"type":           e.EventType(),
		"aggregate_type": e.AggregateType(),
		"aggregate_id":   e.AggregateID(),
		"timestamp":      e.OccurredAt().UTC().Format(time.RFC3339Nano),
	}
	switch ev := e.(type) {
	case *CaseCreated:
		p["number"] = ev.Number
		p["title"] = ev.Title
	case *CaseStatusChanged:
		p["from"] = ev.From
		p["to"] = ev.To
	case *OfficerAssigned:
		p["officer"] = ev.Officer
	case *ArtifactAdded:
		p["artifact_id"] = ev.ArtifactID
		p["kind"] = ev.Kind
		p["name"] = ev.Name
	case *HearingScheduled:
		p["case_id"] = ev.CaseID
		p["date"] = ev.Date
		p["time"] = ev.Time
		p["location"] = ev.Location
	case *HearingRescheduled:
		p["case_id"] = ev.CaseID
		p["date"] = ev.Date
		p["time"] = ev.Time
		p["location"] = ev.Location
	case *HearingCancelled:
		p["case_id"] = ev.CaseID
		if ev.Reason != "" {
			p["reason"] = ev.Reason
		}
	case *HearingCompleted:
		p["case_id"] = ev.CaseID
	case *HearingApprovalDecided:
		p["case_id"] = ev.CaseID
		p["decision"] = ev.Decision
		if ev.Reason != "" {
			p["reason"] = ev.Reason
		}
	case *ResolutionRecorded:
		p["resolution_id"] = ev.ResolutionID
		p["resolution_type"] = ev.ResolutionType
		p["case_status"] = ev.CaseStatus
	case *ReminderFired:
		p["case_id"] = ev.CaseID
		p["offset"] = ev.Offset
	}
	return p
}
