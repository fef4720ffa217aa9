package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/felixgeelhaar/blotter/pkg/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantHint string
		wantCode int
	}{
		{
			name:     "transition",
			err:      &domain.TransitionError{Entity: "hearing", ID: "h1", From: "Cancelled", Event: "complete"},
			wantHint: "The hearing is Cancelled",
			wantCode: 1,
		},
		{
			name:     "parse",
			err:      fmt.Errorf("plan: %w", &domain.ParseError{Date: "someday", Time: "noon"}),
			wantMsg:  "hearing time could not be read",
			wantHint: "--at",
			wantCode: 1,
		},
		{
			name:     "enum",
			err:      &domain.InvalidEnumError{Enum: "role", Value: "judge"},
			wantHint: "officer, admin, user",
			wantCode: 1,
		},
		{
			name:     "not initialized",
			err:      fmt.Errorf("/tmp/x: %w", ErrNotInitialized),
			wantMsg:  "workspace not initialized",
			wantHint: "blotter init",
			wantCode: 1,
		},
		{
			name:     "case not found",
			err:      fmt.Errorf("%w: CR-9", domain.ErrCaseNotFound),
			wantMsg:  "case not found",
			wantCode: 1,
		},
		{
			name:     "data consistency",
			err:      &domain.DataConsistencyError{Subject: "timeline", Detail: "6 stages"},
			wantMsg:  "stored case data is inconsistent",
			wantHint: "history verify",
			wantCode: 1,
		},
		{
			name:     "aborted",
			err:      ErrAborted,
			wantMsg:  "aborted",
			wantCode: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cliErr *CLIError
			if !errors.As(MapError(tt.err), &cliErr) {
				t.Fatalf("MapError(%v) is not a CLIError", tt.err)
			}
			if tt.wantMsg != "" && cliErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", cliErr.Message, tt.wantMsg)
			}
			if !strings.Contains(cliErr.Hint, tt.wantHint) {
				t.Errorf("hint = %q, want it to contain %q", cliErr.Hint, tt.wantHint)
			}
			if cliErr.ExitCode != tt.wantCode {
				t.Errorf("exit code = %d, want %d", cliErr.ExitCode, tt.wantCode)
			}
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	if MapError(nil) != nil {
		t.Error("MapError(nil) should be nil")
	}
	plain := errors.New("disk full")
	if got := MapError(plain); got != plain {
		t.Errorf("unmapped error changed: %v", got)
	}
	own := &CLIError{Message: "custom", ExitCode: 3}
	if got := MapError(fmt.Errorf("wrap: %w", own)); !errors.Is(got, own) {
		t.Errorf("CLIError not passed through: %v", got)
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	if code := Report(&buf, nil); code != 0 || buf.Len() != 0 {
		t.Errorf("nil error: code %d, output %q", code, buf.String())
	}

	buf.Reset()
	code := Report(&buf, fmt.Errorf("load: %w", domain.ErrHearingNotFound))
	if code != 1 {
		t.Errorf("code = %d", code)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Error: hearing not found") || !strings.Contains(out, "Hint: Run 'blotter hearing list") {
		t.Errorf("output = %q", out)
	}

	buf.Reset()
	if code := Report(&buf, &CLIError{Message: "2 integrity violations", ExitCode: 3}); code != 3 {
		t.Errorf("code = %d", code)
	}
	if strings.Contains(buf.String(), "Hint:") {
		t.Errorf("empty hint printed: %q", buf.String())
	}
}
