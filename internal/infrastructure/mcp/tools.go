package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidArguments is returned when tool arguments fail their input schema.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// Tool groups, used as OpenAPI tags and in the schema resource.
const (
	groupCase       = "case"
	groupHearing    = "hearing"
	groupReminder   = "reminder"
	groupResolution = "resolution"
)

type toolSpec struct {
	Name        string
	Group       string
	Since       string
	Description string
	// Input is the JSON Schema arguments are checked against before the
	// handler runs. Empty means the tool takes no arguments.
	Input string
}

const (
	caseRef    = `"case": {"type": "string", "minLength": 1, "description": "Case number or ID"}`
	hearingRef = `"hearing": {"type": "string", "minLength": 1, "description": "Hearing ID"}`
	actorProp  = `"actor": {"type": "string"}`
)

func object(required []string, props ...string) string {
	req, _ := json.Marshal(required)
	return `{"$schema": "http://json-schema.org/draft-07/schema#", "type": "object", "required": ` + string(req) +
		`, "properties": {` + strings.Join(props, ", ") + `}}`
}

var toolCatalog = []toolSpec{
	{Name: "blotter_case_list", Group: groupCase, Since: "1.0.0",
		Description: "List all cases with their status"},
	{Name: "blotter_case_timeline", Group: groupCase, Since: "1.0.0",
		Description: "Show the seven timeline stages of a case",
		Input:       object([]string{"case"}, caseRef)},
	{Name: "blotter_next_action", Group: groupCase, Since: "1.0.0",
		Description: "Return the single action currently permitted on a case for a role, plus every action and view with its enabled state",
		Input:       object([]string{"case"}, caseRef, `"role": {"type": "string"}`)},
	{Name: "blotter_case_create", Group: groupCase, Since: "1.0.0",
		Description: "Open a new case",
		Input: object([]string{"number", "title"},
			`"number": {"type": "string", "minLength": 1}`,
			`"title": {"type": "string", "minLength": 1}`,
			`"description": {"type": "string"}`, actorProp)},
	{Name: "blotter_case_assign", Group: groupCase, Since: "1.0.0",
		Description: "Assign an officer to a case",
		Input:       object([]string{"case", "officer"}, caseRef, `"officer": {"type": "string", "minLength": 1}`, actorProp)},
	{Name: "blotter_case_start", Group: groupCase, Since: "1.0.0",
		Description: "Start the investigation on an assigned case",
		Input:       object([]string{"case"}, caseRef)},
	{Name: "blotter_case_add_artifact", Group: groupCase, Since: "1.0.0",
		Description: "Record a witness, suspect or piece of evidence",
		Input: object([]string{"case", "kind", "name"}, caseRef,
			`"kind": {"type": "string", "minLength": 1}`,
			`"name": {"type": "string", "minLength": 1}`,
			`"details": {"type": "string"}`, actorProp)},
	{Name: "blotter_hearing_schedule", Group: groupHearing, Since: "1.0.0",
		Description: "Schedule a hearing and its reminders",
		Input: `{"$schema": "http://json-schema.org/draft-07/schema#", "type": "object",
			"required": ["case", "location"],
			"properties": {` + caseRef + `,
				"at": {"type": "string"},
				"date": {"type": "string"},
				"time": {"type": "string"},
				"location": {"type": "string", "minLength": 1},
				"purpose": {"type": "string"},
				"presiding_officer": {"type": "string"}, ` + actorProp + `},
			"anyOf": [
				{"properties": {"at": {"minLength": 1}}, "required": ["at"]},
				{"properties": {"date": {"minLength": 1}, "time": {"minLength": 1}}, "required": ["date", "time"]}
			]}`},
	{Name: "blotter_hearing_reschedule", Group: groupHearing, Since: "1.0.0",
		Description: "Move a hearing; its reminders move with it",
		Input: object([]string{"hearing"}, hearingRef,
			`"at": {"type": "string"}`, `"date": {"type": "string"}`, `"time": {"type": "string"}`,
			`"location": {"type": "string"}`, actorProp)},
	{Name: "blotter_hearing_cancel", Group: groupHearing, Since: "1.0.0",
		Description: "Cancel a hearing and its reminders",
		Input:       object([]string{"hearing"}, hearingRef, `"reason": {"type": "string"}`, actorProp)},
	{Name: "blotter_hearing_complete", Group: groupHearing, Since: "1.0.0",
		Description: "Mark a hearing held and drop its reminders",
		Input:       object([]string{"hearing"}, hearingRef, actorProp)},
	{Name: "blotter_hearing_approve", Group: groupHearing, Since: "1.0.0",
		Description: "Approve a pending hearing",
		Input:       object([]string{"hearing"}, hearingRef, actorProp)},
	{Name: "blotter_hearing_decline", Group: groupHearing, Since: "1.0.0",
		Description: "Decline a pending hearing with a reason",
		Input:       object([]string{"hearing"}, hearingRef, `"reason": {"type": "string"}`, actorProp)},
	{Name: "blotter_hearings_pending_approval", Group: groupHearing, Since: "1.0.0",
		Description: "List hearings awaiting an approval decision"},
	{Name: "blotter_pending_reminders", Group: groupReminder, Since: "1.0.0",
		Description: "List the reminders still queued for a hearing in this process",
		Input:       object([]string{"hearing"}, hearingRef)},
	{Name: "blotter_reminder_preferences", Group: groupReminder, Since: "1.0.0",
		Description: "Show the reminder preferences"},
	{Name: "blotter_resolution_record", Group: groupResolution, Since: "1.0.0",
		Description: "Record a case resolution (Settled or Withdrawn)",
		Input: object([]string{"case", "type"}, caseRef,
			`"type": {"type": "string", "enum": ["Settled", "Withdrawn"]}`,
			`"details": {"type": "string"}`, actorProp)},
}

var (
	toolsByName  = indexTools(toolCatalog)
	inputSchemas = compileInputs(toolCatalog)
)

func indexTools(specs []toolSpec) map[string]toolSpec {
	m := make(map[string]toolSpec, len(specs))
	for _, t := range specs {
		m[t.Name] = t
	}
	return m
}

// compileInputs panics on a malformed schema; the catalog is static.
func compileInputs(specs []toolSpec) map[string]*gojsonschema.Schema {
	m := make(map[string]*gojsonschema.Schema, len(specs))
	for _, t := range specs {
		if t.Input == "" {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(t.Input))
		if err != nil {
			panic(fmt.Sprintf("input schema for %s: %v", t.Name, err))
		}
		m[t.Name] = schema
	}
	return m
}

// validateInput checks args against the input schema of tool.
func validateInput(tool string, args any) error {
	schema, ok := inputSchemas[tool]
	if !ok {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments for %s: %w", tool, err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate arguments for %s: %w", tool, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(msgs, "; "))
}

// checked rejects arguments that fail the tool's input schema before fn runs.
func checked[A any](tool string, fn func(context.Context, A) (any, error)) func(context.Context, A) (any, error) {
	return func(ctx context.Context, args A) (any, error) {
		if err := validateInput(tool, args); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

// inputDocument returns the decoded input schema of tool, or nil.
func inputDocument(tool string) map[string]any {
	t, ok := toolsByName[tool]
	if !ok || t.Input == "" {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(t.Input), &doc); err != nil {
		return nil
	}
	delete(doc, "$schema")
	return doc
}

func requiredFields(tool string) []string {
	doc := inputDocument(tool)
	if doc == nil {
		return nil
	}
	raw, _ := doc["required"].([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
