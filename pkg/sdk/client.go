package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/mcp-go/client"

	"github.com/felixgeelhaar/blotter/pkg/application"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/gate"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

// Client is a typed Go client for the Blotter MCP server.
type Client struct {
	mcp      *client.Client
	retryCfg retry.Config
	timeout  time.Duration
	actor    string
}

// NewClient creates a new SDK client wrapping the given MCP transport.
func NewClient(transport client.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		mcp:      client.New(transport, client.WithTimeout(o.timeout)),
		timeout:  o.timeout,
		retryCfg: o.retry,
		actor:    o.actor,
	}
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*client.ServerInfo, error) {
	return c.mcp.Initialize(ctx)
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// call invokes a tool with retry. Tool error results are not retried.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (*client.ToolResult, error) {
	if c.actor != "" && actorTools[tool] {
		if _, ok := args["actor"]; !ok {
			args["actor"] = c.actor
		}
	}
	r := retry.New[*client.ToolResult](c.retryCfg)
	result, err := r.Do(ctx, func(ctx context.Context) (*client.ToolResult, error) {
		return c.mcp.CallTool(ctx, tool, args)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", tool, err)
	}
	if result.IsError {
		msg := ""
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, &ToolError{Tool: tool, Message: msg}
	}
	return result, nil
}

// callJSON invokes tool and decodes its text result into T.
func callJSON[T any](ctx context.Context, c *Client, tool string, args map[string]any) (*T, error) {
	res, err := c.call(ctx, tool, args)
	if err != nil {
		return nil, err
	}
	return unmarshalText[T](res)
}

// unmarshalText extracts Content[0].Text from a tool result and unmarshals it as JSON.
func unmarshalText[T any](result *client.ToolResult) (*T, error) {
	text, err := textResult(result)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &v, nil
}

func textResult(result *client.ToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", ErrNoContent
	}
	return result.Content[0].Text, nil
}

// --- Schema ---

// GetSchema reads the blotter://schema resource from the server.
func (c *Client) GetSchema(ctx context.Context) (*SchemaInfo, error) {
	rc, err := c.mcp.ReadResource(ctx, "blotter://schema")
	if err != nil {
		return nil, fmt.Errorf("read schema resource: %w", err)
	}
	var info SchemaInfo
	if err := json.Unmarshal([]byte(rc.Text), &info); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return &info, nil
}

// Compatible returns nil when the server's schema major version matches
// SupportedSchemaMajor and its catalog lists every tool the client calls.
func (c *Client) Compatible(ctx context.Context) error {
	info, err := c.GetSchema(ctx)
	if err != nil {
		return fmt.Errorf("check compatibility: %w", err)
	}
	return info.checkCompatible()
}

// actorTools take an actor argument.
var actorTools = map[string]bool{
	"blotter_case_create":        true,
	"blotter_case_assign":        true,
	"blotter_case_add_artifact":  true,
	"blotter_hearing_schedule":   true,
	"blotter_hearing_reschedule": true,
	"blotter_hearing_cancel":     true,
	"blotter_hearing_complete":   true,
	"blotter_hearing_approve":    true,
	"blotter_hearing_decline":    true,
	"blotter_resolution_record":  true,
}

// --- Cases ---

func (c *Client) ListCases(ctx context.Context) ([]CaseSummary, error) {
	v, err := callJSON[[]CaseSummary](ctx, c, "blotter_case_list", nil)
	if err != nil {
		return nil, err
	}
	return *v, nil
}

// Timeline returns the seven stages of a case.
func (c *Client) Timeline(ctx context.Context, caseRef string) (*Timeline, error) {
	return callJSON[Timeline](ctx, c, "blotter_case_timeline", map[string]any{"case": caseRef})
}

// NextAction returns the gate decision for role. Decision.Next is nil when
// role has nothing to do.
func (c *Client) NextAction(ctx context.Context, caseRef string, role gate.Role) (*gate.Decision, error) {
	args := map[string]any{"case": caseRef}
	setIf(args, "role", string(role))
	return callJSON[gate.Decision](ctx, c, "blotter_next_action", args)
}

func (c *Client) CreateCase(ctx context.Context, number, title, description, actor string) (*casefile.Case, error) {
	args := map[string]any{"number": number, "title": title}
	setIf(args, "description", description)
	setIf(args, "actor", actor)
	return callJSON[casefile.Case](ctx, c, "blotter_case_create", args)
}

func (c *Client) AssignOfficer(ctx context.Context, caseRef, officer, actor string) (*casefile.Case, error) {
	args := map[string]any{"case": caseRef, "officer": officer}
	setIf(args, "actor", actor)
	return callJSON[casefile.Case](ctx, c, "blotter_case_assign", args)
}

func (c *Client) StartInvestigation(ctx context.Context, caseRef string) (*casefile.Case, error) {
	return callJSON[casefile.Case](ctx, c, "blotter_case_start", map[string]any{"case": caseRef})
}

// AddArtifact records a witness, suspect or piece of evidence.
func (c *Client) AddArtifact(ctx context.Context, caseRef string, kind casefile.ArtifactKind, name, details, actor string) (*casefile.Artifact, error) {
	args := map[string]any{"case": caseRef, "kind": string(kind), "name": name}
	setIf(args, "details", details)
	setIf(args, "actor", actor)
	return callJSON[casefile.Artifact](ctx, c, "blotter_case_add_artifact", args)
}

// --- Hearings ---

// ScheduleHearing creates a hearing and returns it with its reminder plan.
func (c *Client) ScheduleHearing(ctx context.Context, req ScheduleRequest) (*application.ScheduleResult, error) {
	return callJSON[application.ScheduleResult](ctx, c, "blotter_hearing_schedule", req.args())
}

func (c *Client) RescheduleHearing(ctx context.Context, req RescheduleRequest) (*application.ScheduleResult, error) {
	return callJSON[application.ScheduleResult](ctx, c, "blotter_hearing_reschedule", req.args())
}

func (c *Client) CancelHearing(ctx context.Context, id, reason, actor string) (*hearing.Hearing, error) {
	return c.hearingAction(ctx, "blotter_hearing_cancel", id, reason, actor)
}

func (c *Client) CompleteHearing(ctx context.Context, id, actor string) (*hearing.Hearing, error) {
	return c.hearingAction(ctx, "blotter_hearing_complete", id, "", actor)
}

func (c *Client) ApproveHearing(ctx context.Context, id, actor string) (*hearing.Hearing, error) {
	return c.hearingAction(ctx, "blotter_hearing_approve", id, "", actor)
}

func (c *Client) DeclineHearing(ctx context.Context, id, reason, actor string) (*hearing.Hearing, error) {
	return c.hearingAction(ctx, "blotter_hearing_decline", id, reason, actor)
}

func (c *Client) hearingAction(ctx context.Context, tool, id, reason, actor string) (*hearing.Hearing, error) {
	args := map[string]any{"hearing": id}
	setIf(args, "reason", reason)
	setIf(args, "actor", actor)
	return callJSON[hearing.Hearing](ctx, c, tool, args)
}

// PendingApprovals lists hearings still awaiting an approval decision.
func (c *Client) PendingApprovals(ctx context.Context) ([]*hearing.Hearing, error) {
	v, err := callJSON[[]*hearing.Hearing](ctx, c, "blotter_hearings_pending_approval", nil)
	if err != nil {
		return nil, err
	}
	return *v, nil
}

// PendingReminders lists the reminders the server process still holds for a hearing.
func (c *Client) PendingReminders(ctx context.Context, hearingID string) ([]reminder.Task, error) {
	v, err := callJSON[[]reminder.Task](ctx, c, "blotter_pending_reminders", map[string]any{"hearing": hearingID})
	if err != nil {
		return nil, err
	}
	return *v, nil
}

// --- Resolution and preferences ---

// RecordResolution closes a case as Settled or Withdrawn.
func (c *Client) RecordResolution(ctx context.Context, caseRef, typ, details, actor string) (*application.RecordResult, error) {
	args := map[string]any{"case": caseRef, "type": typ}
	setIf(args, "details", details)
	setIf(args, "actor", actor)
	return callJSON[application.RecordResult](ctx, c, "blotter_resolution_record", args)
}

func (c *Client) ReminderPreferences(ctx context.Context) (*reminder.Preferences, error) {
	return callJSON[reminder.Preferences](ctx, c, "blotter_reminder_preferences", nil)
}
