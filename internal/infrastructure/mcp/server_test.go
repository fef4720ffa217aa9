package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/application"
	"github.com/felixgeelhaar/blotter/pkg/domain/gate"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
	"github.com/felixgeelhaar/blotter/pkg/storage"
)

var now = time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	if err := storage.NewFilesystemRepository(root).Initialize(); err != nil {
		t.Fatal(err)
	}
	services, err := wiring.BuildAppServices(context.Background(), root, wiring.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = services.Close() })
	return NewServer(services)
}

func TestServer_CaseWorkflow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if _, err := s.handleCreateCase(ctx, CreateCaseArgs{Number: "cr-500", Title: "Hit and run"}); err != nil {
		t.Fatal(err)
	}

	out, err := s.handleNextAction(ctx, NextActionArgs{Case: "CR-500"})
	if err != nil {
		t.Fatal(err)
	}
	if d := out.(gate.Decision); d.Next != nil {
		t.Errorf("next before start = %v", d.Next)
	}

	if _, err := s.handleStart(ctx, CaseRefArgs{Case: "CR-500"}); err == nil || !strings.Contains(err.Error(), "Assign an officer") {
		t.Errorf("start without officer: %v", err)
	}
	if _, err := s.handleAssign(ctx, AssignArgs{Case: "CR-500", Officer: "Sgt. Reyes"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.handleStart(ctx, CaseRefArgs{Case: "CR-500"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.handleAddArtifact(ctx, ArtifactArgs{Case: "CR-500", Kind: "witness", Name: "Driver"}); err != nil {
		t.Fatal(err)
	}

	out, _ = s.handleNextAction(ctx, NextActionArgs{Case: "CR-500", Role: "officer"})
	if d := out.(gate.Decision); d.Next == nil || d.Next.Action != gate.ActionAddSuspect {
		t.Errorf("next = %+v", d.Next)
	}

	out, err = s.handleSchedule(ctx, ScheduleArgs{Case: "CR-500", At: "2026-06-03T10:00:00Z", Location: "Court 5"})
	if err != nil {
		t.Fatal(err)
	}
	res := out.(*application.ScheduleResult)
	if len(res.Plan.Tasks) != len(reminder.AllOffsets()) {
		t.Errorf("planned %d reminders", len(res.Plan.Tasks))
	}

	out, err = s.handlePendingReminders(ctx, HearingArgs{Hearing: res.Hearing.ID})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(out.([]reminder.Task)); n != 4 {
		t.Errorf("pending reminders = %d", n)
	}

	out, _ = s.handlePendingApprovals(ctx, struct{}{})
	if n := len(out.([]*hearing.Hearing)); n != 1 {
		t.Errorf("pending approvals = %d", n)
	}
	if _, err := s.handleApprove(ctx, HearingArgs{Hearing: res.Hearing.ID}); err != nil {
		t.Fatal(err)
	}

	out, err = s.handleResolution(ctx, ResolutionArgs{Case: "CR-500", Type: "Settled"})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.(*application.RecordResult).CaseStatus; got != "Resolved" {
		t.Errorf("case status = %s", got)
	}
	out, _ = s.handlePendingReminders(ctx, HearingArgs{Hearing: res.Hearing.ID})
	if n := len(out.([]reminder.Task)); n != 0 {
		t.Errorf("reminders left after resolution = %d", n)
	}
}

func TestServer_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"unknown case", func() error { _, err := s.handleTimeline(ctx, CaseRefArgs{Case: "CR-0"}); return err }, "case not found"},
		{"bad role", func() error { _, err := s.handleNextAction(ctx, NextActionArgs{Case: "CR-0", Role: "judge"}); return err }, "Unknown role"},
		{"bad kind", func() error {
			_, err := s.handleAddArtifact(ctx, ArtifactArgs{Case: "CR-0", Kind: "rumour", Name: "x"})
			return err
		}, "artifact kind"},
		{"bad at", func() error { _, err := s.handleSchedule(ctx, ScheduleArgs{Case: "CR-0", At: "tomorrow"}); return err }, "RFC 3339"},
		{"bad resolution", func() error { _, err := s.handleResolution(ctx, ResolutionArgs{Case: "CR-0", Type: "Dismissed"}); return err }, "Settled"},
		{"unknown hearing", func() error { _, err := s.handlePendingReminders(ctx, HearingArgs{Hearing: "nope"}); return err }, "hearing not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestServer_ToolsAndOpenAPI(t *testing.T) {
	s := newTestServer(t)

	names := map[string]bool{}
	for _, tool := range s.mcpServer.Tools() {
		names[tool.Name] = true
	}
	for _, want := range []string{"blotter_next_action", "blotter_case_timeline", "blotter_hearing_schedule", "blotter_pending_reminders"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}

	data, err := s.OpenAPI()
	if err != nil {
		t.Fatal(err)
	}
	var doc OpenAPISpec
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Paths["/tools/blotter_next_action"]; !ok {
		t.Error("openapi document misses blotter_next_action")
	}
}
