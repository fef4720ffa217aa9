// Package timeline derives the seven investigative stages of a case from its artifact counts.
package timeline

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// StageStatus is the derived completion state of a single stage.
type StageStatus string

const (
	StatusPending    StageStatus = "pending"
	StatusInProgress StageStatus = "in_progress"
	StatusCompleted  StageStatus = "completed"
)

// AllStageStatuses returns all valid stage statuses.
func AllStageStatuses() []StageStatus {
	return []StageStatus{StatusPending, StatusInProgress, StatusCompleted}
}

// IsValid returns true if the status is a valid stage status.
func (s StageStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

func (s StageStatus) String() string {
	return string(s)
}

// DisplayName returns a human-readable display name for the status.
func (s StageStatus) DisplayName() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// ParseStageStatus parses a string into a StageStatus.
func ParseStageStatus(str string) (StageStatus, error) {
	s := StageStatus(str)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid stage status: %s", str)
	}
	return s, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *StageStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseStageStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// StageID is the 1-based position of a stage in the fixed timeline.
type StageID int

const (
	StageCaseCreated StageID = iota + 1
	StageCaseAssigned
	StageInvestigationStarted
	StageWitnessesSuspects
	StageHearingScheduled
	StageResolutionDocumented
	StageCaseClosed
)

// StageCount is the fixed length of every timeline.
const StageCount = 7

// AllStageIDs returns the stage identifiers in timeline order.
func AllStageIDs() []StageID {
	return []StageID{
		StageCaseCreated,
		StageCaseAssigned,
		StageInvestigationStarted,
		StageWitnessesSuspects,
		StageHearingScheduled,
		StageResolutionDocumented,
		StageCaseClosed,
	}
}

// IsValid returns true if the ID is one of the seven stages.
func (id StageID) IsValid() bool {
	return id >= StageCaseCreated && id <= StageCaseClosed
}

func (id StageID) String() string {
	return strconv.Itoa(int(id))
}

// Name returns the stage title shown on the case timeline.
func (id StageID) Name() string {
	switch id {
	case StageCaseCreated:
		return "Case Created"
	case StageCaseAssigned:
		return "Case Assigned"
	case StageInvestigationStarted:
		return "Investigation Started"
	case StageWitnessesSuspects:
		return "Witnesses & Suspects"
	case StageHearingScheduled:
		return "Hearing Scheduled"
	case StageResolutionDocumented:
		return "Resolution Documented"
	case StageCaseClosed:
		return "Case Closed"
	default:
		return "Stage " + id.String()
	}
}

// Description returns the one-line subtitle for the stage.
func (id StageID) Description() string {
	switch id {
	case StageCaseCreated:
		return "Initial report submitted"
	case StageCaseAssigned:
		return "Officer assigned to the case"
	case StageInvestigationStarted:
		return "Investigation in progress"
	case StageWitnessesSuspects:
		return "Gathering case information"
	case StageHearingScheduled:
		return "Court hearing date set"
	case StageResolutionDocumented:
		return "Case outcome documented"
	case StageCaseClosed:
		return "Case finalized"
	default:
		return ""
	}
}

// Stage is one derived row of the case timeline.
type Stage struct {
	ID          StageID     `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      StageStatus `json:"status"`
	// Awaiting names the missing category of a partly collected stage.
	Awaiting Awaiting `json:"awaiting,omitempty"`
}

// Awaiting is what an in-progress stage still needs.
type Awaiting string

const (
	AwaitingWitness Awaiting = "witness"
	AwaitingSuspect Awaiting = "suspect"
)

func newStage(id StageID, status StageStatus) Stage {
	return Stage{
		ID:          id,
		Name:        id.Name(),
		Description: id.Description(),
		Status:      status,
	}
}

// IsCompleted returns true if the stage is completed.
func (s Stage) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// IsInProgress returns true if the stage is in progress.
func (s Stage) IsInProgress() bool {
	return s.Status == StatusInProgress
}
