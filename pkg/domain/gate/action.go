// Package gate decides which investigative action an officer may take next.
package gate

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

// Role is the viewer's role on a case.
type Role string

const (
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
)

// AllRoles returns all valid roles.
func AllRoles() []Role {
	return []Role{RoleOfficer, RoleAdmin, RoleUser}
}

// IsValid returns true if the role is known.
func (r Role) IsValid() bool {
	switch r {
	case RoleOfficer, RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name case-insensitively.
func ParseRole(str string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(str)))
	if !r.IsValid() {
		return "", &domain.InvalidEnumError{Enum: "role", Value: str}
	}
	return r, nil
}

// Mode distinguishes actions that add an artifact from those that only display them.
type Mode string

const (
	ModeAdd  Mode = "add"
	ModeView Mode = "view"
)

// Action is a closed set of gated investigative actions.
type Action string

const (
	ActionAssignOfficer      Action = "assign_officer"
	ActionAddWitness         Action = "add_witness"
	ActionAddSuspect         Action = "add_suspect"
	ActionScheduleHearing    Action = "schedule_hearing"
	ActionViewHearings       Action = "view_hearings"
	ActionDocumentResolution Action = "document_resolution"
	ActionViewResolution     Action = "view_resolution"
)

// AllActions returns every gated action in timeline order.
func AllActions() []Action {
	return []Action{
		ActionAssignOfficer,
		ActionAddWitness,
		ActionAddSuspect,
		ActionScheduleHearing,
		ActionViewHearings,
		ActionDocumentResolution,
		ActionViewResolution,
	}
}

// Stage returns the timeline stage an action belongs to.
func (a Action) Stage() (timeline.StageID, error) {
	switch a {
	case ActionAssignOfficer:
		return timeline.StageCaseAssigned, nil
	case ActionAddWitness, ActionAddSuspect:
		return timeline.StageWitnessesSuspects, nil
	case ActionScheduleHearing, ActionViewHearings:
		return timeline.StageHearingScheduled, nil
	case ActionDocumentResolution, ActionViewResolution:
		return timeline.StageResolutionDocumented, nil
	default:
		return 0, &domain.InvalidEnumError{Enum: "action", Value: string(a)}
	}
}

// Mode returns whether the action adds or views.
func (a Action) Mode() (Mode, error) {
	switch a {
	case ActionAssignOfficer, ActionAddWitness, ActionAddSuspect, ActionScheduleHearing, ActionDocumentResolution:
		return ModeAdd, nil
	case ActionViewHearings, ActionViewResolution:
		return ModeView, nil
	default:
		return "", &domain.InvalidEnumError{Enum: "action", Value: string(a)}
	}
}

// Label returns the button text for the action.
func (a Action) Label() string {
	switch a {
	case ActionAssignOfficer:
		return "Assign Officer"
	case ActionAddWitness:
		return "Add Witness"
	case ActionAddSuspect:
		return "Add Suspect"
	case ActionScheduleHearing:
		return "Schedule Hearing"
	case ActionViewHearings:
		return "View Hearings"
	case ActionDocumentResolution:
		return "Document Resolution"
	case ActionViewResolution:
		return "View Resolution"
	default:
		return string(a)
	}
}

// ParseAction parses an action name.
func ParseAction(str string) (Action, error) {
	a := Action(str)
	if _, err := a.Stage(); err != nil {
		return "", err
	}
	return a, nil
}

// ViewTarget is a closed set of artifact lists a viewer can open.
type ViewTarget string

const (
	ViewWitnesses  ViewTarget = "witnesses"
	ViewSuspects   ViewTarget = "suspects"
	ViewEvidence   ViewTarget = "evidence"
	ViewHearings   ViewTarget = "hearings"
	ViewResolution ViewTarget = "resolution"
)

// AllViewTargets returns every view target.
func AllViewTargets() []ViewTarget {
	return []ViewTarget{ViewWitnesses, ViewSuspects, ViewEvidence, ViewHearings, ViewResolution}
}

// Stage returns the stage whose status decides if the view has content.
func (v ViewTarget) Stage() (timeline.StageID, error) {
	switch v {
	case ViewWitnesses, ViewSuspects:
		return timeline.StageWitnessesSuspects, nil
	case ViewEvidence:
		return timeline.StageInvestigationStarted, nil
	case ViewHearings:
		return timeline.StageHearingScheduled, nil
	case ViewResolution:
		return timeline.StageResolutionDocumented, nil
	default:
		return 0, &domain.InvalidEnumError{Enum: "view target", Value: string(v)}
	}
}

// ParseViewTarget parses a view target name.
func ParseViewTarget(str string) (ViewTarget, error) {
	v := ViewTarget(strings.ToLower(str))
	if _, err := v.Stage(); err != nil {
		return "", err
	}
	return v, nil
}

// Descriptor is one action as presented to a viewer.
type Descriptor struct {
	Stage   timeline.StageID `json:"stage"`
	Action  Action           `json:"action,omitempty"`
	Target  ViewTarget       `json:"target,omitempty"`
	Mode    Mode             `json:"mode"`
	Enabled bool             `json:"enabled"`
	Reason  string           `json:"reason,omitempty"`
}

func (d Descriptor) String() string {
	name := string(d.Action)
	if d.Target != "" {
		name = "view:" + string(d.Target)
	}
	state := "enabled"
	if !d.Enabled {
		state = "disabled (" + d.Reason + ")"
	}
	return fmt.Sprintf("stage %d %s %s", d.Stage, name, state)
}
