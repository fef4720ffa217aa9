package gate

import (
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

// Reasons attached to disabled descriptors.
const (
	ReasonNotStarted   = "start investigation first"
	ReasonCompleted    = "already completed"
	ReasonSpent        = "already recorded; view instead"
	ReasonNotNext      = "another step comes first"
	ReasonNothingToSee = "nothing recorded yet"
)

// rule declares how one gated stage behaves.
type rule struct {
	stage   timeline.StageID
	prereq  timeline.StageID // zero means no prerequisite
	oneShot bool
	add     func(timeline.Stage) Action
	view    Action
}

// Stage 3 has no officer action: starting the investigation is a separate
// operation that sets the investigationStarted flag.
var rules = []rule{
	{
		stage: timeline.StageCaseAssigned,
		add:   func(timeline.Stage) Action { return ActionAssignOfficer },
	},
	{
		stage:  timeline.StageWitnessesSuspects,
		prereq: timeline.StageCaseAssigned,
		add: func(s timeline.Stage) Action {
			if s.IsInProgress() && s.Awaiting == timeline.AwaitingSuspect {
				return ActionAddSuspect
			}
			return ActionAddWitness
		},
	},
	{
		stage:   timeline.StageHearingScheduled,
		prereq:  timeline.StageWitnessesSuspects,
		oneShot: true,
		add:     func(timeline.Stage) Action { return ActionScheduleHearing },
		view:    ActionViewHearings,
	},
	{
		stage:   timeline.StageResolutionDocumented,
		prereq:  timeline.StageHearingScheduled,
		oneShot: true,
		add:     func(timeline.Stage) Action { return ActionDocumentResolution },
		view:    ActionViewResolution,
	},
}

func ruleFor(id timeline.StageID) (rule, bool) {
	for _, r := range rules {
		if r.stage == id {
			return r, true
		}
	}
	return rule{}, false
}

// satisfied reports whether a stage counts as done for gating purposes.
// One-shot stages never reach Completed, so having taken their action is enough.
func satisfied(stages []timeline.Stage, id timeline.StageID) bool {
	if id == 0 {
		return true
	}
	s := stages[id-1]
	if s.IsCompleted() {
		return true
	}
	r, ok := ruleFor(id)
	return ok && r.oneShot && s.IsInProgress()
}

// Decision is the full gate output for one viewer.
type Decision struct {
	Descriptors []Descriptor `json:"descriptors"`
	Next        *Descriptor  `json:"next,omitempty"`
}

// NextEnabledAction returns the single enabled action for the viewer, or nil.
func NextEnabledAction(stages []timeline.Stage, investigationStarted bool, role Role) (*Descriptor, error) {
	d, err := Evaluate(stages, investigationStarted, role)
	if err != nil {
		return nil, err
	}
	return d.Next, nil
}

// Evaluate computes every descriptor for the viewer along with the enabled one.
func Evaluate(stages []timeline.Stage, investigationStarted bool, role Role) (Decision, error) {
	if err := timeline.Validate(stages); err != nil {
		return Decision{}, err
	}
	if _, err := ParseRole(string(role)); err != nil {
		return Decision{}, err
	}

	if role != RoleOfficer {
		return Decision{Descriptors: viewDescriptors(stages)}, nil
	}

	next := nextFor(stages, investigationStarted)
	descriptors := make([]Descriptor, 0, len(AllActions()))
	for _, a := range AllActions() {
		d, err := describe(stages, a, investigationStarted, next)
		if err != nil {
			return Decision{}, err
		}
		descriptors = append(descriptors, d)
	}

	return Decision{Descriptors: descriptors, Next: next}, nil
}

func nextFor(stages []timeline.Stage, investigationStarted bool) *Descriptor {
	if !investigationStarted {
		return nil
	}

	var spent *Descriptor
	for _, r := range rules {
		s := stages[r.stage-1]
		if s.IsCompleted() {
			continue
		}
		if !satisfied(stages, r.prereq) {
			continue
		}
		if r.oneShot && s.IsInProgress() {
			spent = &Descriptor{Stage: r.stage, Action: r.view, Mode: ModeView, Enabled: true}
			continue
		}
		return &Descriptor{Stage: r.stage, Action: r.add(s), Mode: ModeAdd, Enabled: true}
	}
	return spent
}

func describe(stages []timeline.Stage, a Action, investigationStarted bool, next *Descriptor) (Descriptor, error) {
	stageID, err := a.Stage()
	if err != nil {
		return Descriptor{}, err
	}
	mode, err := a.Mode()
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{Stage: stageID, Action: a, Mode: mode}
	switch {
	case !investigationStarted:
		d.Reason = ReasonNotStarted
	case next != nil && next.Action == a:
		d.Enabled = true
	case stages[stageID-1].IsCompleted():
		d.Reason = ReasonCompleted
	case mode == ModeAdd && satisfied(stages, stageID):
		d.Reason = ReasonSpent
	default:
		d.Reason = ReasonNotNext
	}
	return d, nil
}

func viewDescriptors(stages []timeline.Stage) []Descriptor {
	out := make([]Descriptor, 0, len(AllViewTargets()))
	for _, v := range AllViewTargets() {
		// Stage lookups cannot fail for members of AllViewTargets.
		stageID, _ := v.Stage()
		d := Descriptor{Stage: stageID, Target: v, Mode: ModeView}
		if stages[stageID-1].Status == timeline.StatusPending {
			d.Reason = ReasonNothingToSee
		} else {
			d.Enabled = true
		}
		out = append(out, d)
	}
	return out
}
