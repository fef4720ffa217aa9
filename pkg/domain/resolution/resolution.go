// Package resolution records case outcomes and maps them onto case status.
package resolution

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
)

// Type is the outcome recorded for a case.
type Type string

const (
	TypeSettled   Type = "Settled"
	TypeWithdrawn Type = "Withdrawn"
)

// AllTypes returns all valid resolution types.
func AllTypes() []Type {
	return []Type{TypeSettled, TypeWithdrawn}
}

func (t Type) String() string {
	return string(t)
}

// MapToStatus maps a resolution type onto the case status it implies.
// Unknown types return an InvalidEnumError and no status.
func MapToStatus(t Type) (casefile.Status, error) {
	switch t {
	case TypeSettled:
		return casefile.StatusResolved, nil
	case TypeWithdrawn:
		return casefile.StatusCancelled, nil
	default:
		return "", &domain.InvalidEnumError{Enum: "resolution type", Value: string(t)}
	}
}

// HearingEvent returns the event applied to still-scheduled hearings once the
// case is resolved with t.
func HearingEvent(t Type) (string, error) {
	switch t {
	case TypeSettled:
		return hearing.EventComplete, nil
	case TypeWithdrawn:
		return hearing.EventCancel, nil
	default:
		return "", &domain.InvalidEnumError{Enum: "resolution type", Value: string(t)}
	}
}

// CaseEvent returns the case lifecycle event matching the mapped status.
func CaseEvent(status casefile.Status) (string, error) {
	switch status {
	case casefile.StatusResolved:
		return casefile.EventResolve, nil
	case casefile.StatusCancelled:
		return casefile.EventCancel, nil
	default:
		return "", &domain.InvalidEnumError{Enum: "resolution status", Value: string(status)}
	}
}

// ParseType parses a resolution type. Only the exact names are accepted.
func ParseType(str string) (Type, error) {
	for _, t := range AllTypes() {
		if string(t) == str {
			return t, nil
		}
	}
	return "", &domain.InvalidEnumError{Enum: "resolution type", Value: str}
}

// Resolution is the immutable outcome record of a case.
type Resolution struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Type      Type      `json:"type"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// New validates the type and returns a resolution record.
func New(caseID string, t Type, details string, now time.Time) (*Resolution, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, fmt.Errorf("case ID is required")
	}
	if _, err := MapToStatus(t); err != nil {
		return nil, err
	}
	return &Resolution{
		ID:        domain.NewID(),
		CaseID:    caseID,
		Type:      t,
		Details:   details,
		CreatedAt: now,
	}, nil
}
