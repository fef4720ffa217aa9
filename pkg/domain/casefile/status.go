// Package casefile holds the case aggregate and its investigative artifacts.
package casefile

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle status of a case.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusAssigned  Status = "Assigned"
	StatusOngoing   Status = "Ongoing"
	StatusScheduled Status = "Scheduled"
	StatusResolved  Status = "Resolved"
	StatusCancelled Status = "Cancelled"
)

// Case lifecycle events.
const (
	EventAssign   = "assign"
	EventStart    = "start"
	EventSchedule = "schedule"
	EventResolve  = "resolve"
	EventCancel   = "cancel"
)

// validTransitions maps currentStatus -> event -> targetStatus.
var validTransitions = map[Status]map[string]Status{
	StatusPending: {
		EventAssign:  StatusAssigned,
		EventResolve: StatusResolved,
		EventCancel:  StatusCancelled,
	},
	StatusAssigned: {
		EventAssign:  StatusAssigned,
		EventStart:   StatusOngoing,
		EventResolve: StatusResolved,
		EventCancel:  StatusCancelled,
	},
	StatusOngoing: {
		EventAssign:   StatusOngoing,
		EventSchedule: StatusScheduled,
		EventResolve:  StatusResolved,
		EventCancel:   StatusCancelled,
	},
	StatusScheduled: {
		EventAssign:   StatusScheduled,
		EventSchedule: StatusScheduled,
		EventResolve:  StatusResolved,
		EventCancel:   StatusCancelled,
	},
	StatusResolved:  {},
	StatusCancelled: {},
}

// AllStatuses returns all valid case statuses.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusAssigned,
		StatusOngoing,
		StatusScheduled,
		StatusResolved,
		StatusCancelled,
	}
}

// IsValid returns true if the status is a valid case status.
func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// IsFinal returns true for resolved or cancelled cases.
func (s Status) IsFinal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// TransitionWith returns the status reached by event, if allowed.
func (s Status) TransitionWith(event string) (Status, bool) {
	transitions, ok := validTransitions[s]
	if !ok {
		return "", false
	}
	target, ok := transitions[event]
	return target, ok
}

// CanTransitionTo returns true if some event leads from s to target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidEvents returns the events accepted in this status.
func (s Status) ValidEvents() []string {
	var events []string
	for _, e := range []string{EventAssign, EventStart, EventSchedule, EventResolve, EventCancel} {
		if _, ok := validTransitions[s][e]; ok {
			events = append(events, e)
		}
	}
	return events
}

// ParseStatus parses a string into a Status.
func ParseStatus(str string) (Status, error) {
	s := Status(str)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid case status: %s", str)
	}
	return s, nil
}

// MarshalJSON implements json.Marshaler interface.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*s = StatusPending
		return nil
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
