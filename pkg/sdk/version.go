package sdk

import (
	"fmt"
	"strings"
)

// SupportedSchemaMajor is the tool schema major version this client speaks.
const SupportedSchemaMajor = "1"

// SchemaInfo is the blotter://schema resource.
type SchemaInfo struct {
	SchemaVersion string     `json:"schema_version"`
	ServerVersion string     `json:"server_version"`
	Tools         []ToolInfo `json:"tools"`
}

// ToolInfo describes one tool in the server's catalog.
type ToolInfo struct {
	Name     string   `json:"name"`
	Group    string   `json:"group"`
	Since    string   `json:"since"`
	Required []string `json:"required,omitempty"`
}

// Tool looks up name in the catalog.
func (i *SchemaInfo) Tool(name string) (ToolInfo, bool) {
	for _, t := range i.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolInfo{}, false
}

// clientTools are the tools this package calls.
var clientTools = []string{
	"blotter_case_list",
	"blotter_case_timeline",
	"blotter_next_action",
	"blotter_case_create",
	"blotter_case_assign",
	"blotter_case_start",
	"blotter_case_add_artifact",
	"blotter_hearing_schedule",
	"blotter_hearing_reschedule",
	"blotter_hearing_cancel",
	"blotter_hearing_complete",
	"blotter_hearing_approve",
	"blotter_hearing_decline",
	"blotter_hearings_pending_approval",
	"blotter_pending_reminders",
	"blotter_resolution_record",
	"blotter_reminder_preferences",
}

// checkCompatible reports a major version mismatch or tools this client
// needs that the server does not offer.
func (i *SchemaInfo) checkCompatible() error {
	serverMajor := majorVersion(i.SchemaVersion)
	if serverMajor != SupportedSchemaMajor {
		return fmt.Errorf("incompatible schema: server=%s (major %s), sdk supports major %s",
			i.SchemaVersion, serverMajor, SupportedSchemaMajor)
	}
	var missing []string
	for _, name := range clientTools {
		if _, ok := i.Tool(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("server %s lacks tools: %s", i.ServerVersion, strings.Join(missing, ", "))
	}
	return nil
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}
