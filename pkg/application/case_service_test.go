package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/felixgeelhaar/blotter/pkg/application"
	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/events"
	"github.com/felixgeelhaar/blotter/pkg/domain/gate"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

// openCase creates a case and takes it to Ongoing with a witness on file.
func openCase(t *testing.T, hs *harness, number string) *casefile.Case {
	t.Helper()
	ctx := context.Background()
	if _, err := hs.cases.Create(ctx, number, "Stolen bicycle", "", "desk"); err != nil {
		t.Fatal(err)
	}
	if _, err := hs.cases.Assign(ctx, number, "Sgt. Miller", "desk"); err != nil {
		t.Fatal(err)
	}
	if _, err := hs.cases.StartInvestigation(ctx, number, "Sgt. Miller"); err != nil {
		t.Fatal(err)
	}
	if _, err := hs.cases.AddArtifact(ctx, number, casefile.KindWitness, "J. Doe", "", "Sgt. Miller"); err != nil {
		t.Fatal(err)
	}
	c, err := hs.cases.Resolve(ctx, number)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCaseService_OfficerWalkthrough(t *testing.T) {
	repo := NewMockRepo()
	pub := &MockPublisher{}
	svc := application.NewCaseService(repo, application.WithClock(func() time.Time { return t0 }), application.WithPublisher(pub))
	ctx := context.Background()

	c, err := svc.Create(ctx, "cr-101", "Vandalism", "Graffiti on station wall", "desk")
	if err != nil {
		t.Fatal(err)
	}
	if c.Number != "CR-101" || c.Status != casefile.StatusPending {
		t.Fatalf("created %+v", c)
	}

	next, err := svc.NextAction(ctx, c.Number, gate.RoleOfficer)
	if err != nil {
		t.Fatal(err)
	}
	if next != nil {
		t.Errorf("before investigation starts no action should be enabled, got %v", next)
	}

	if _, err := svc.Assign(ctx, c.ID, "Officer Reyes", "desk"); err != nil {
		t.Fatal(err)
	}
	started, err := svc.StartInvestigation(ctx, c.Number, "Officer Reyes")
	if err != nil {
		t.Fatal(err)
	}
	if started.Status != casefile.StatusOngoing || !started.InvestigationStarted {
		t.Fatalf("after start: %+v", started)
	}

	next, _ = svc.NextAction(ctx, c.Number, gate.RoleOfficer)
	if next == nil || next.Action != gate.ActionAddWitness {
		t.Fatalf("next = %v, want add_witness", next)
	}

	if _, err := svc.AddArtifact(ctx, c.Number, casefile.KindWitness, "A. Smith", "saw it", "Officer Reyes"); err != nil {
		t.Fatal(err)
	}
	next, _ = svc.NextAction(ctx, c.Number, gate.RoleOfficer)
	if next == nil || next.Action != gate.ActionAddSuspect {
		t.Fatalf("next = %v, want add_suspect", next)
	}

	_, stages, err := svc.Timeline(ctx, c.Number)
	if err != nil {
		t.Fatal(err)
	}
	want := []timeline.StageStatus{
		timeline.StatusCompleted,
		timeline.StatusCompleted,
		timeline.StatusInProgress,
		timeline.StatusInProgress,
		timeline.StatusPending,
		timeline.StatusPending,
		timeline.StatusPending,
	}
	got := make([]timeline.StageStatus, 0, len(stages))
	for _, s := range stages {
		got = append(got, s.Status)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stage statuses (-want +got):\n%s", diff)
	}

	wantEvents := []string{
		events.TypeCaseCreated,
		events.TypeOfficerAssigned,
		events.TypeCaseStatusChanged,
		events.TypeInvestigationStarted,
		events.TypeCaseStatusChanged,
		events.TypeArtifactAdded,
	}
	if diff := cmp.Diff(wantEvents, pub.Types()); diff != "" {
		t.Errorf("published events (-want +got):\n%s", diff)
	}
}

func TestCaseService_ViewerGetsNoAction(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-5")

	_, d, err := hs.cases.Decision(context.Background(), c.Number, gate.RoleUser)
	if err != nil {
		t.Fatal(err)
	}
	if d.Next != nil {
		t.Errorf("user role got next action %v", d.Next)
	}
	for _, desc := range d.Descriptors {
		if desc.Mode != gate.ModeView {
			t.Errorf("user role got %v", desc)
		}
	}
}

func TestCaseService_AddArtifactRequiresInvestigation(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()
	if _, err := hs.cases.Create(ctx, "CR-2", "Fraud", "", "desk"); err != nil {
		t.Fatal(err)
	}
	_, err := hs.cases.AddArtifact(ctx, "CR-2", casefile.KindSuspect, "X", "", "desk")
	if err == nil || !strings.Contains(err.Error(), gate.ReasonNotStarted) {
		t.Errorf("expected not-started error, got %v", err)
	}
}

func TestCaseService_StartRequiresOfficer(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()
	if _, err := hs.cases.Create(ctx, "CR-3", "Theft", "", "desk"); err != nil {
		t.Fatal(err)
	}
	if _, err := hs.cases.StartInvestigation(ctx, "CR-3", "desk"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCaseService_Create(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		number  string
		title   string
		wantErr bool
	}{
		{"valid", "CR-10", "Assault", false},
		{"duplicate", "cr-10", "Assault again", true},
		{"bad number", "10 / 2", "x", true},
		{"no title", "CR-11", "  ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hs.cases.Create(ctx, tt.number, tt.title, "", "desk")
			if (err != nil) != tt.wantErr {
				t.Errorf("Create(%q) error = %v, wantErr %v", tt.number, err, tt.wantErr)
			}
		})
	}
}

func TestCaseService_ResolveUnknown(t *testing.T) {
	hs := newHarness(t)
	if _, err := hs.cases.Resolve(context.Background(), "CR-404"); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Errorf("expected ErrCaseNotFound, got %v", err)
	}
}

func TestCaseService_MissingReport(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()

	calls := map[string]func() error{
		"timeline": func() error { _, _, err := hs.cases.Timeline(ctx, "CR-999"); return err },
		"decision": func() error { _, _, err := hs.cases.Decision(ctx, "CR-999", gate.RoleOfficer); return err },
		"next":     func() error { _, err := hs.cases.NextAction(ctx, "CR-999", gate.RoleOfficer); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !errors.Is(err, domain.ErrDataConsistency) {
				t.Errorf("expected ErrDataConsistency, got %v", err)
			}
			if !errors.Is(err, domain.ErrCaseNotFound) {
				t.Errorf("expected ErrCaseNotFound to stay reachable, got %v", err)
			}
		})
	}
}

func TestCaseService_Artifacts(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-6")
	ctx := context.Background()

	if _, err := hs.cases.AddArtifact(ctx, c.ID, casefile.KindEvidence, "Crowbar", "bagged", "Sgt. Miller"); err != nil {
		t.Fatal(err)
	}
	witnesses, err := hs.cases.Artifacts(ctx, c.Number, casefile.KindWitness)
	if err != nil {
		t.Fatal(err)
	}
	evidence, _ := hs.cases.Artifacts(ctx, c.Number, casefile.KindEvidence)
	if len(witnesses) != 1 || len(evidence) != 1 || evidence[0].Name != "Crowbar" {
		t.Errorf("witnesses=%d evidence=%v", len(witnesses), evidence)
	}
}
