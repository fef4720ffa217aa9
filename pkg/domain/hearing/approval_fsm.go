package hearing

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/blotter/pkg/domain"
)

// Approval events.
const (
	EventApprove = "approve"
	EventDecline = "decline"
)

// State constants for statekit. They must stay equal to the ApprovalStatus values.
const (
	stateApprovalPending  = "Pending"
	stateApprovalApproved = "Approved"
	stateApprovalDeclined = "Declined"
)

func init() {
	stateMap := map[string]ApprovalStatus{
		stateApprovalPending:  ApprovalPending,
		stateApprovalApproved: ApprovalApproved,
		stateApprovalDeclined: ApprovalDeclined,
	}
	for fsmState, status := range stateMap {
		if fsmState != string(status) {
			panic(fmt.Sprintf("FSM state %q does not match ApprovalStatus %q", fsmState, status))
		}
	}
}

// ApprovalContext carries the hearing under decision.
type ApprovalContext struct {
	HearingID string
}

// ApprovalMachine runs the Pending -> Approved | Declined decision.
type ApprovalMachine struct {
	hearingID   string
	interpreter *statekit.Interpreter[ApprovalContext]
}

// NewApprovalMachine starts a machine at the hearing's stored approval status.
func NewApprovalMachine(initial ApprovalStatus, hearingID string) (*ApprovalMachine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("invalid approval status: %s", initial)
	}

	builder := statekit.NewMachine[ApprovalContext]("hearing-approval").
		WithInitial(statekit.StateID(initial)).
		WithContext(ApprovalContext{HearingID: hearingID})

	builder.State(stateApprovalPending).
		On(EventApprove).Target(stateApprovalApproved).
		On(EventDecline).Target(stateApprovalDeclined).
		Done()

	builder.State(stateApprovalApproved).Done()
	builder.State(stateApprovalDeclined).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build approval machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &ApprovalMachine{hearingID: hearingID, interpreter: interpreter}, nil
}

// Transition sends event; an unchanged state means the decision was already made.
func (m *ApprovalMachine) Transition(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if m.Current() != before {
		return nil
	}
	return &domain.TransitionError{Entity: "hearing", ID: m.hearingID, From: string(before), Event: event}
}

// Current returns the machine's approval status.
func (m *ApprovalMachine) Current() ApprovalStatus {
	return ApprovalStatus(m.interpreter.State().Value)
}
