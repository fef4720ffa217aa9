package casefile

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain"
)

// Case is an incident report moving through the investigation timeline.
type Case struct {
	ID                   string    `json:"id"`
	Number               string    `json:"number"`
	Title                string    `json:"title"`
	Description          string    `json:"description,omitempty"`
	Status               Status    `json:"status"`
	AssignedOfficer      string    `json:"assigned_officer,omitempty"`
	InvestigationStarted bool      `json:"investigation_started"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// New creates a pending case.
func New(number domain.CaseNumber, title, description string, now time.Time) (*Case, error) {
	if number.IsZero() {
		return nil, fmt.Errorf("case number is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("case title is required")
	}
	return &Case{
		ID:          domain.NewID(),
		Number:      number.String(),
		Title:       title,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// HasOfficer reports whether an officer is assigned.
func (c *Case) HasOfficer() bool {
	return c.AssignedOfficer != ""
}

// Apply moves the case through its lifecycle.
func (c *Case) Apply(event string, now time.Time) error {
	target, ok := c.Status.TransitionWith(event)
	if !ok {
		return &domain.TransitionError{Entity: "case", ID: c.Number, From: string(c.Status), Event: event}
	}
	c.Status = target
	c.UpdatedAt = now
	return nil
}

// Assign records the officer and moves a pending case to Assigned.
func (c *Case) Assign(officer string, now time.Time) error {
	officer = strings.TrimSpace(officer)
	if officer == "" {
		return fmt.Errorf("officer name is required")
	}
	if err := c.Apply(EventAssign, now); err != nil {
		return err
	}
	c.AssignedOfficer = officer
	return nil
}

// StartInvestigation opens the investigation on an assigned case.
func (c *Case) StartInvestigation(now time.Time) error {
	if !c.HasOfficer() {
		return &domain.TransitionError{Entity: "case", ID: c.Number, From: "unassigned", Event: EventStart}
	}
	if err := c.Apply(EventStart, now); err != nil {
		return err
	}
	c.InvestigationStarted = true
	return nil
}

// ArtifactKind is the kind of evidence-gathering record attached to a case.
type ArtifactKind string

const (
	KindWitness  ArtifactKind = "witness"
	KindSuspect  ArtifactKind = "suspect"
	KindEvidence ArtifactKind = "evidence"
)

// AllArtifactKinds returns every artifact kind.
func AllArtifactKinds() []ArtifactKind {
	return []ArtifactKind{KindWitness, KindSuspect, KindEvidence}
}

// ParseArtifactKind parses an artifact kind.
func ParseArtifactKind(str string) (ArtifactKind, error) {
	k := ArtifactKind(strings.ToLower(strings.TrimSpace(str)))
	switch k {
	case KindWitness, KindSuspect, KindEvidence:
		return k, nil
	default:
		return "", &domain.InvalidEnumError{Enum: "artifact kind", Value: str}
	}
}

// Artifact is a witness, suspect or evidence record. The timeline only counts them.
type Artifact struct {
	ID        string       `json:"id"`
	CaseID    string       `json:"case_id"`
	Kind      ArtifactKind `json:"kind"`
	Name      string       `json:"name"`
	Details   string       `json:"details,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
