package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/felixgeelhaar/mcp-go"
)

// SchemaVersion versions the tool catalog. Bump the minor version when a
// tool or optional argument is added, the major when one is removed.
const SchemaVersion = "1.0.0"

const schemaURI = "blotter://schema"

type toolEntry struct {
	Name     string   `json:"name"`
	Group    string   `json:"group"`
	Since    string   `json:"since"`
	Required []string `json:"required,omitempty"`
}

type schemaResponse struct {
	SchemaVersion string      `json:"schema_version"`
	ServerVersion string      `json:"server_version"`
	Tools         []toolEntry `json:"tools"`
}

func catalogResponse() schemaResponse {
	tools := make([]toolEntry, 0, len(toolCatalog))
	for _, t := range toolCatalog {
		tools = append(tools, toolEntry{Name: t.Name, Group: t.Group, Since: t.Since, Required: requiredFields(t.Name)})
	}
	return schemaResponse{SchemaVersion: SchemaVersion, ServerVersion: Version, Tools: tools}
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource(schemaURI).
		Name(schemaURI).
		Description("Tool catalog: version, group and required arguments of every blotter tool").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			data, err := json.Marshal(catalogResponse())
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      schemaURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
