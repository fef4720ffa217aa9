// Package mcp exposes case timelines, step gating and hearing reminders to
// MCP clients.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/application"
	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/gate"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
	"github.com/felixgeelhaar/blotter/pkg/domain/resolution"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

const defaultActor = "ai-agent"

type Server struct {
	mcpServer   *mcp.Server
	cases       *application.CaseService
	hearings    *application.HearingService
	resolutions *application.ResolutionService
	reminders   *application.ReminderService
	prefs       *application.PreferencesService
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// toolErr returns friendly for unexpected failures. Domain rule violations
// are passed through since they tell the client what to do differently.
func toolErr(friendly string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidEnum),
		errors.Is(err, domain.ErrCaseNotFound),
		errors.Is(err, domain.ErrHearingNotFound),
		errors.Is(err, domain.ErrParse):
		return fmt.Errorf("%s: %v", friendly, err)
	}
	return fmt.Errorf("%s", friendly)
}

func NewServer(services *wiring.AppServices) *Server {
	info := mcp.ServerInfo{
		Name:    "blotter",
		Version: Version,
	}
	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Blotter MCP Server"),
			mcp.WithDescription("Blotter exposes case timelines, the next permitted step, hearings and their reminders."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Read a case timeline and next action before changing it. Only the next action returned by blotter_next_action is permitted."),
		),
		cases:       services.Cases,
		hearings:    services.Hearings,
		resolutions: services.Resolutions,
		reminders:   services.Reminders,
		prefs:       services.Preferences,
	}
	s.registerTools()
	s.registerSchemaResource()
	return s
}

type CaseRefArgs struct {
	Case string `json:"case" jsonschema:"description=Case number or ID"`
}

type NextActionArgs struct {
	Case string `json:"case" jsonschema:"description=Case number or ID"`
	Role string `json:"role,omitempty" jsonschema:"description=officer, admin or user (default officer)"`
}

type CreateCaseArgs struct {
	Number      string `json:"number" jsonschema:"description=Case number, e.g. CR-2026-014"`
	Title       string `json:"title" jsonschema:"description=Short incident title"`
	Description string `json:"description,omitempty" jsonschema:"description=Incident narrative"`
	Actor       string `json:"actor,omitempty" jsonschema:"description=Who is acting (default ai-agent)"`
}

type AssignArgs struct {
	Case    string `json:"case" jsonschema:"description=Case number or ID"`
	Officer string `json:"officer" jsonschema:"description=Officer to assign"`
	Actor   string `json:"actor,omitempty" jsonschema:"description=Who is acting"`
}

type ArtifactArgs struct {
	Case    string `json:"case" jsonschema:"description=Case number or ID"`
	Kind    string `json:"kind" jsonschema:"description=witness, suspect or evidence"`
	Name    string `json:"name" jsonschema:"description=Name or label"`
	Details string `json:"details,omitempty" jsonschema:"description=Statement or notes"`
	Actor   string `json:"actor,omitempty" jsonschema:"description=Who is acting"`
}

type ScheduleArgs struct {
	Case             string `json:"case" jsonschema:"description=Case number or ID"`
	At               string `json:"at,omitempty" jsonschema:"description=RFC 3339 hearing time; wins over date and time"`
	Date             string `json:"date,omitempty" jsonschema:"description=Hearing date, e.g. Mar 12, 2026"`
	Time             string `json:"time,omitempty" jsonschema:"description=Hearing time, e.g. 10:00 AM"`
	Location         string `json:"location" jsonschema:"description=Court room or venue"`
	Purpose          string `json:"purpose,omitempty" jsonschema:"description=Purpose of the hearing"`
	PresidingOfficer string `json:"presiding_officer,omitempty" jsonschema:"description=Presiding officer"`
	Actor            string `json:"actor,omitempty" jsonschema:"description=Who is acting"`
}

type RescheduleArgs struct {
	Hearing  string `json:"hearing" jsonschema:"description=Hearing ID"`
	At       string `json:"at,omitempty" jsonschema:"description=New RFC 3339 hearing time"`
	Date     string `json:"date,omitempty" jsonschema:"description=New date"`
	Time     string `json:"time,omitempty" jsonschema:"description=New time"`
	Location string `json:"location,omitempty" jsonschema:"description=New location"`
	Actor    string `json:"actor,omitempty" jsonschema:"description=Who is acting"`
}

type HearingArgs struct {
	Hearing string `json:"hearing" jsonschema:"description=Hearing ID"`
	Reason  string `json:"reason,omitempty" jsonschema:"description=Reason (cancel and decline)"`
	Actor   string `json:"actor,omitempty" jsonschema:"description=Who is acting"`
}

type ResolutionArgs struct {
	Case    string `json:"case" jsonschema:"description=Case number or ID"`
	Type    string `json:"type" jsonschema:"description=Settled or Withdrawn"`
	Details string `json:"details,omitempty" jsonschema:"description=Resolution notes"`
	Actor   string `json:"actor,omitempty" jsonschema:"description=Who is acting"`
}

func (s *Server) registerTools() {
	register(s, "blotter_case_list", s.handleCaseList)
	register(s, "blotter_case_timeline", s.handleTimeline)
	register(s, "blotter_next_action", s.handleNextAction)
	register(s, "blotter_case_create", s.handleCreateCase)
	register(s, "blotter_case_assign", s.handleAssign)
	register(s, "blotter_case_start", s.handleStart)
	register(s, "blotter_case_add_artifact", s.handleAddArtifact)
	register(s, "blotter_hearing_schedule", s.handleSchedule)
	register(s, "blotter_hearing_reschedule", s.handleReschedule)
	register(s, "blotter_hearing_cancel", s.handleCancel)
	register(s, "blotter_hearing_complete", s.handleComplete)
	register(s, "blotter_hearing_approve", s.handleApprove)
	register(s, "blotter_hearing_decline", s.handleDecline)
	register(s, "blotter_hearings_pending_approval", s.handlePendingApprovals)
	register(s, "blotter_pending_reminders", s.handlePendingReminders)
	register(s, "blotter_resolution_record", s.handleResolution)
	register(s, "blotter_reminder_preferences", s.handlePreferences)
}

func register[A any](s *Server, name string, fn func(context.Context, A) (any, error)) {
	t, ok := toolsByName[name]
	if !ok {
		panic("tool " + name + " missing from catalog")
	}
	s.mcpServer.Tool(name).
		Description(t.Description).
		Handler(checked(name, fn))
}

func actorOr(a string) string {
	if a == "" {
		return defaultActor
	}
	return a
}

func parseAt(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid at %q: use RFC 3339, e.g. 2026-03-12T10:00:00Z", v)
	}
	return &t, nil
}

type caseSummary struct {
	Number  string          `json:"number"`
	Title   string          `json:"title"`
	Status  casefile.Status `json:"status"`
	Officer string          `json:"officer,omitempty"`
}

func (s *Server) handleCaseList(ctx context.Context, args struct{}) (any, error) {
	list, err := s.cases.List(ctx)
	if err != nil {
		return nil, toolErr("Failed to list cases.", err)
	}
	out := make([]caseSummary, 0, len(list))
	for _, c := range list {
		out = append(out, caseSummary{Number: c.Number, Title: c.Title, Status: c.Status, Officer: c.AssignedOfficer})
	}
	return out, nil
}

type timelineView struct {
	Case   *casefile.Case   `json:"case"`
	Stages []timeline.Stage `json:"stages"`
}

func (s *Server) handleTimeline(ctx context.Context, args CaseRefArgs) (any, error) {
	c, stages, err := s.cases.Timeline(ctx, args.Case)
	if err != nil {
		return nil, toolErr(fmt.Sprintf("Failed to load timeline for case '%s'.", args.Case), err)
	}
	return timelineView{Case: c, Stages: stages}, nil
}

func (s *Server) handleNextAction(ctx context.Context, args NextActionArgs) (any, error) {
	role := gate.RoleOfficer
	if args.Role != "" {
		r, err := gate.ParseRole(args.Role)
		if err != nil {
			return nil, toolErr("Unknown role.", err)
		}
		role = r
	}
	_, d, err := s.cases.Decision(ctx, args.Case, role)
	if err != nil {
		return nil, toolErr(fmt.Sprintf("Failed to evaluate case '%s'.", args.Case), err)
	}
	return d, nil
}

func (s *Server) handleCreateCase(ctx context.Context, args CreateCaseArgs) (any, error) {
	c, err := s.cases.Create(ctx, args.Number, args.Title, args.Description, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr("Failed to create case. Case numbers must be unique.", err)
	}
	return c, nil
}

func (s *Server) handleAssign(ctx context.Context, args AssignArgs) (any, error) {
	c, err := s.cases.Assign(ctx, args.Case, args.Officer, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr("Failed to assign officer.", err)
	}
	return c, nil
}

func (s *Server) handleStart(ctx context.Context, args CaseRefArgs) (any, error) {
	c, err := s.cases.StartInvestigation(ctx, args.Case, defaultActor)
	if err != nil {
		return nil, toolErr("Failed to start the investigation. Assign an officer first.", err)
	}
	return c, nil
}

func (s *Server) handleAddArtifact(ctx context.Context, args ArtifactArgs) (any, error) {
	kind, err := casefile.ParseArtifactKind(args.Kind)
	if err != nil {
		return nil, toolErr("Unknown artifact kind.", err)
	}
	a, err := s.cases.AddArtifact(ctx, args.Case, kind, args.Name, args.Details, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr("Failed to add artifact.", err)
	}
	return a, nil
}

func (s *Server) handleSchedule(ctx context.Context, args ScheduleArgs) (any, error) {
	at, err := parseAt(args.At)
	if err != nil {
		return nil, err
	}
	res, err := s.hearings.Schedule(ctx, args.Case, hearing.Details{
		Date:             args.Date,
		Time:             args.Time,
		ScheduledAt:      at,
		Location:         args.Location,
		Purpose:          args.Purpose,
		PresidingOfficer: args.PresidingOfficer,
	}, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr("Failed to schedule hearing. The investigation must be under way.", err)
	}
	return res, nil
}

func (s *Server) handleReschedule(ctx context.Context, args RescheduleArgs) (any, error) {
	at, err := parseAt(args.At)
	if err != nil {
		return nil, err
	}
	res, err := s.hearings.Reschedule(ctx, args.Hearing, hearing.Details{
		Date:        args.Date,
		Time:        args.Time,
		ScheduledAt: at,
		Location:    args.Location,
	}, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr("Failed to reschedule hearing.", err)
	}
	return res, nil
}

func (s *Server) handleCancel(ctx context.Context, args HearingArgs) (any, error) {
	h, err := s.hearings.Cancel(ctx, args.Hearing, args.Reason, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr("Failed to cancel hearing.", err)
	}
	return h, nil
}

func (s *Server) handleComplete(ctx context.Context, args HearingArgs) (any, error) {
	h, err := s.hearings.Complete(ctx, args.Hearing, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr("Failed to complete hearing.", err)
	}
	return h, nil
}

func (s *Server) handleApprove(ctx context.Context, args HearingArgs) (any, error) {
	h, err := s.hearings.Approve(ctx, args.Hearing, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr("Failed to approve hearing. Only pending hearings can be decided.", err)
	}
	return h, nil
}

func (s *Server) handleDecline(ctx context.Context, args HearingArgs) (any, error) {
	h, err := s.hearings.Decline(ctx, args.Hearing, args.Reason, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr("Failed to decline hearing. Only pending hearings can be decided.", err)
	}
	return h, nil
}

func (s *Server) handlePendingApprovals(ctx context.Context, args struct{}) (any, error) {
	list, err := s.hearings.PendingApprovals(ctx)
	if err != nil {
		return nil, toolErr("Failed to list pending hearings.", err)
	}
	return list, nil
}

func (s *Server) handlePendingReminders(ctx context.Context, args HearingArgs) (any, error) {
	if _, err := s.hearings.Get(ctx, args.Hearing); err != nil {
		return nil, toolErr("Unknown hearing.", err)
	}
	tasks := s.reminders.Pending(args.Hearing)
	if tasks == nil {
		tasks = []reminder.Task{}
	}
	return tasks, nil
}

func (s *Server) handleResolution(ctx context.Context, args ResolutionArgs) (any, error) {
	res, err := s.resolutions.Record(ctx, args.Case, args.Type, args.Details, actorOr(args.Actor))
	if err != nil {
		return nil, toolErr(fmt.Sprintf("Failed to record resolution. Use one of %v.", resolution.AllTypes()), err)
	}
	return res, nil
}

func (s *Server) handlePreferences(ctx context.Context, args struct{}) (any, error) {
	p, err := s.prefs.Get()
	if err != nil {
		return nil, toolErr("Failed to load reminder preferences.", err)
	}
	return p, nil
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

func (s *Server) ServeWebSocket(ctx context.Context, addr string) error {
	return mcp.ServeWebSocket(ctx, s.mcpServer, addr)
}
