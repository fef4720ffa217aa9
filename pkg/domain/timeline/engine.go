package timeline

import (
	"fmt"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/resolution"
)

// Counts is the artifact snapshot a timeline is derived from.
type Counts struct {
	OfficerAssigned bool `json:"officer_assigned"`
	Witnesses       int  `json:"witnesses"`
	Suspects        int  `json:"suspects"`
	Evidence        int  `json:"evidence"`
	Hearings        int  `json:"hearings"`
	Resolutions     int  `json:"resolutions"`
	// LatestResolutionType is the most recent resolution's type, nil when none is recorded.
	LatestResolutionType *resolution.Type `json:"latest_resolution_type,omitempty"`
}

// Validate rejects negative counts.
func (c Counts) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"witnesses", c.Witnesses},
		{"suspects", c.Suspects},
		{"evidence", c.Evidence},
		{"hearings", c.Hearings},
		{"resolutions", c.Resolutions},
	}
	for _, f := range fields {
		if f.value < 0 {
			return &domain.DataConsistencyError{
				Subject: "artifact counts",
				Detail:  fmt.Sprintf("%s is negative (%d)", f.name, f.value),
			}
		}
	}
	switch {
	case c.Resolutions > 0 && c.LatestResolutionType == nil:
		return &domain.DataConsistencyError{Subject: "artifact counts", Detail: "resolutions recorded without a type"}
	case c.Resolutions == 0 && c.LatestResolutionType != nil:
		return &domain.DataConsistencyError{Subject: "artifact counts", Detail: "resolution type without a resolution"}
	case c.LatestResolutionType != nil:
		if _, err := resolution.MapToStatus(*c.LatestResolutionType); err != nil {
			return &domain.DataConsistencyError{Subject: "artifact counts", Detail: "latest resolution", Err: err}
		}
	}
	return nil
}

// HasAnyArtifact reports whether any investigative artifact has been recorded.
func (c Counts) HasAnyArtifact() bool {
	return c.Witnesses > 0 || c.Suspects > 0 || c.Evidence > 0 || c.Hearings > 0 || c.Resolutions > 0
}

// ComputeStages derives all seven stages from counts. Each rule looks only at
// counts, never at the status of another stage.
func ComputeStages(c Counts) []Stage {
	stages := make([]Stage, 0, StageCount)

	stages = append(stages, newStage(StageCaseCreated, StatusCompleted))

	assigned := StatusPending
	if c.OfficerAssigned {
		assigned = StatusCompleted
	}
	stages = append(stages, newStage(StageCaseAssigned, assigned))

	// Never completed; an investigation stays open until the case closes.
	investigation := StatusPending
	if c.HasAnyArtifact() {
		investigation = StatusInProgress
	}
	stages = append(stages, newStage(StageInvestigationStarted, investigation))

	people := newStage(StageWitnessesSuspects, StatusPending)
	switch {
	case c.Witnesses > 0 && c.Suspects > 0:
		people.Status = StatusCompleted
	case c.Witnesses > 0:
		people.Status = StatusInProgress
		people.Awaiting = AwaitingSuspect
	case c.Suspects > 0:
		people.Status = StatusInProgress
		people.Awaiting = AwaitingWitness
	}
	stages = append(stages, people)

	hearing := StatusPending
	if c.Hearings > 0 {
		hearing = StatusInProgress
	}
	stages = append(stages, newStage(StageHearingScheduled, hearing))

	resolution := StatusPending
	closed := StatusPending
	if c.Resolutions > 0 {
		resolution = StatusInProgress
		closed = StatusCompleted
	}
	stages = append(stages, newStage(StageResolutionDocumented, resolution))
	stages = append(stages, newStage(StageCaseClosed, closed))

	return stages
}

// Validate checks that stages is a complete, ordered timeline.
func Validate(stages []Stage) error {
	if len(stages) != StageCount {
		return &domain.DataConsistencyError{
			Subject: "timeline",
			Detail:  fmt.Sprintf("expected %d stages, got %d", StageCount, len(stages)),
		}
	}
	for i, s := range stages {
		if s.ID != StageID(i+1) {
			return &domain.DataConsistencyError{
				Subject: "timeline",
				Detail:  fmt.Sprintf("stage at position %d has id %d", i+1, s.ID),
			}
		}
		if !s.Status.IsValid() {
			return &domain.DataConsistencyError{
				Subject: "timeline",
				Detail:  fmt.Sprintf("stage %d has status %q", s.ID, s.Status),
			}
		}
	}
	return nil
}

// Find returns the stage with the given id from a validated timeline.
func Find(stages []Stage, id StageID) (Stage, bool) {
	if !id.IsValid() || int(id) > len(stages) {
		return Stage{}, false
	}
	s := stages[id-1]
	if s.ID != id {
		return Stage{}, false
	}
	return s, true
}
