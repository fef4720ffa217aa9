package hearing

import (
	"encoding/json"
	"fmt"
)

// ApprovalStatus represents the presiding officer's decision on a hearing.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalDeclined ApprovalStatus = "Declined"
)

// AllApprovalStatuses returns all valid approval statuses.
func AllApprovalStatuses() []ApprovalStatus {
	return []ApprovalStatus{
		ApprovalPending,
		ApprovalApproved,
		ApprovalDeclined,
	}
}

// IsValid returns true if the status is a valid approval status.
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalDeclined:
		return true
	default:
		return false
	}
}

func (s ApprovalStatus) String() string {
	return string(s)
}

// IsPending returns true if the status is pending.
func (s ApprovalStatus) IsPending() bool {
	return s == ApprovalPending
}

// IsFinal returns true once a decision has been made. Decisions are never revisited.
func (s ApprovalStatus) IsFinal() bool {
	return s == ApprovalApproved || s == ApprovalDeclined
}

// CanTransitionTo returns true if a transition to the target status is allowed.
func (s ApprovalStatus) CanTransitionTo(target ApprovalStatus) bool {
	return s == ApprovalPending && target.IsFinal()
}

// ValidTransitions returns all valid target statuses from this status.
func (s ApprovalStatus) ValidTransitions() []ApprovalStatus {
	if s == ApprovalPending {
		return []ApprovalStatus{ApprovalApproved, ApprovalDeclined}
	}
	return nil
}

// ParseApprovalStatus parses a string into an ApprovalStatus.
func ParseApprovalStatus(str string) (ApprovalStatus, error) {
	status := ApprovalStatus(str)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid approval status: %s", str)
	}
	return status, nil
}

// MarshalJSON implements json.Marshaler interface.
func (s ApprovalStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *ApprovalStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	// Older records carry no approval field.
	if str == "" {
		*s = ApprovalPending
		return nil
	}

	status, err := ParseApprovalStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}
