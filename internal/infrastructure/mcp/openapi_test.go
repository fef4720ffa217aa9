package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/felixgeelhaar/mcp-go"
	"github.com/google/go-cmp/cmp"
)

func TestGenerateOpenAPI(t *testing.T) {
	srv := mcplib.NewServer(mcplib.ServerInfo{Name: "test", Version: "0.1.0"})
	srv.Tool("test_tool").
		Description("A test tool").
		Handler(func(ctx context.Context, args struct {
			Name string `json:"name" jsonschema:"description=The name"`
		}) (string, error) {
			return "ok", nil
		})

	tools := srv.Tools()
	if len(tools) == 0 {
		t.Fatal("no tools registered on server")
	}

	data, err := GenerateOpenAPI(srv)
	if err != nil {
		t.Fatalf("GenerateOpenAPI failed: %v", err)
	}

	var spec OpenAPISpec
	if err := json.Unmarshal(data, &spec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if spec.OpenAPI != "3.0.3" {
		t.Errorf("expected openapi 3.0.3, got %s", spec.OpenAPI)
	}
	if spec.Info.Title != "Blotter MCP API" {
		t.Errorf("unexpected title: %s", spec.Info.Title)
	}

	path, ok := spec.Paths["/tools/test_tool"]
	if !ok {
		t.Fatalf("expected /tools/test_tool path, got paths: %v", spec.Paths)
	}
	if path.Post == nil {
		t.Fatal("expected POST operation")
	}
	if path.Post.OperationID != "test_tool" {
		t.Errorf("unexpected operationId: %s", path.Post.OperationID)
	}
	if path.Post.Summary != "A test tool" {
		t.Errorf("unexpected summary: %s", path.Post.Summary)
	}
}

func TestGenerateOpenAPI_NoArgs(t *testing.T) {
	srv := mcplib.NewServer(mcplib.ServerInfo{Name: "test", Version: "0.1.0"})
	srv.Tool("no_args_tool").
		Description("No args").
		Handler(func(ctx context.Context, args struct{}) (string, error) {
			return "ok", nil
		})

	data, err := GenerateOpenAPI(srv)
	if err != nil {
		t.Fatalf("GenerateOpenAPI failed: %v", err)
	}

	var spec OpenAPISpec
	if err := json.Unmarshal(data, &spec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	path, ok := spec.Paths["/tools/no_args_tool"]
	if !ok {
		t.Fatal("expected /tools/no_args_tool path")
	}
	if path.Post == nil {
		t.Fatal("expected POST operation")
	}
	if path.Post.RequestBody != nil {
		t.Error("expected no request body for empty args tool")
	}
}

func TestGenerateOpenAPI_CatalogTools(t *testing.T) {
	s := newTestServer(t)
	data, err := s.OpenAPI()
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Paths map[string]struct {
			Post struct {
				Tags        []string `json:"tags"`
				Since       string   `json:"x-since"`
				RequestBody *struct {
					Content map[string]struct {
						Schema struct {
							Required []string `json:"required"`
						} `json:"schema"`
					} `json:"content"`
				} `json:"requestBody"`
			} `json:"post"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tool     string
		tag      string
		required []string
	}{
		{"blotter_case_timeline", "case", []string{"case"}},
		{"blotter_hearing_schedule", "hearing", []string{"case", "location"}},
		{"blotter_pending_reminders", "reminder", []string{"hearing"}},
		{"blotter_resolution_record", "resolution", []string{"case", "type"}},
		{"blotter_case_list", "case", nil},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			p, ok := doc.Paths["/tools/"+tt.tool]
			if !ok {
				t.Fatal("path missing")
			}
			if len(p.Post.Tags) != 1 || p.Post.Tags[0] != tt.tag || p.Post.Since != "1.0.0" {
				t.Errorf("tags = %v, since = %q", p.Post.Tags, p.Post.Since)
			}
			if tt.required == nil {
				if p.Post.RequestBody != nil {
					t.Error("tool without arguments has a request body")
				}
				return
			}
			if p.Post.RequestBody == nil {
				t.Fatal("request body missing")
			}
			got := p.Post.RequestBody.Content["application/json"].Schema.Required
			if diff := cmp.Diff(tt.required, got); diff != "" {
				t.Errorf("required mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
