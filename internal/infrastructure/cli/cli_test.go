package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/gate"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, dir, "init", "--timezone", "Europe/Berlin")
	if !strings.Contains(out, "Initialized blotter workspace") {
		t.Errorf("output = %q", out)
	}
	for _, name := range []string{"config.yaml", "blotter.db", "events.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, ".blotter", name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
	data, _ := os.ReadFile(filepath.Join(dir, ".blotter", "config.yaml"))
	if !strings.Contains(string(data), "Europe/Berlin") {
		t.Errorf("config = %s", data)
	}

	// A second init keeps the existing config.
	mustRun(t, dir, "init", "--timezone", "UTC")
	data, _ = os.ReadFile(filepath.Join(dir, ".blotter", "config.yaml"))
	if !strings.Contains(string(data), "Europe/Berlin") {
		t.Error("second init overwrote config")
	}
}

func TestNotInitialized(t *testing.T) {
	_, err := runCLI(t, "--project", t.TempDir(), "case", "list")
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || !strings.Contains(cliErr.Hint, "blotter init") {
		t.Errorf("hint = %+v", cliErr)
	}
}

func TestCaseWorkflow(t *testing.T) {
	dir := newWorkspace(t)

	out := mustRun(t, dir, "case", "create", "cr-7", "Burglary on 5th", "-d", "Back door forced")
	if !strings.Contains(out, "Created case CR-7 (Pending)") {
		t.Errorf("create output = %q", out)
	}

	out = mustRun(t, dir, "case", "next", "CR-7")
	if !strings.Contains(out, "Next: nothing to do") {
		t.Errorf("next before start = %q", out)
	}

	mustRun(t, dir, "case", "assign", "CR-7", "Det. Okafor")
	out = mustRun(t, dir, "case", "start", "CR-7")
	if !strings.Contains(out, "(Ongoing)") {
		t.Errorf("start output = %q", out)
	}
	mustRun(t, dir, "case", "add", "witness", "CR-7", "Neighbour", "--details", "heard glass break")

	out = mustRun(t, dir, "case", "next", "CR-7", "--role", "officer")
	if !strings.Contains(out, "Next: Add Suspect") {
		t.Errorf("next = %q", out)
	}

	out = mustRun(t, dir, "case", "timeline", "CR-7")
	for _, want := range []string{"[x] 1. Case Created", "[x] 2. Case Assigned", "[~] 3. Investigation Started", "[~] 4. Witnesses & Suspects", "[ ] 7. Case Closed"} {
		if !strings.Contains(out, want) {
			t.Errorf("timeline missing %q:\n%s", want, out)
		}
	}

	var stages struct {
		Stages []timeline.Stage `json:"stages"`
	}
	decodeJSON(t, mustRun(t, dir, "--json", "case", "timeline", "CR-7"), &stages)
	if len(stages.Stages) != 7 {
		t.Errorf("json stages = %d", len(stages.Stages))
	}

	var cases []casefile.Case
	decodeJSON(t, mustRun(t, dir, "--json", "case", "list"), &cases)
	if len(cases) != 1 || cases[0].AssignedOfficer != "Det. Okafor" {
		t.Errorf("cases = %+v", cases)
	}

	var d gate.Decision
	decodeJSON(t, mustRun(t, dir, "--json", "case", "next", "CR-7", "--role", "user"), &d)
	if d.Next != nil {
		t.Errorf("viewer got next action %v", d.Next)
	}
}

func TestCaseErrors(t *testing.T) {
	dir := newWorkspace(t)
	mustRun(t, dir, "case", "create", "CR-1", "Fraud")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown case", []string{"case", "timeline", "CR-404"}, domain.ErrCaseNotFound},
		{"bad role", []string{"case", "next", "CR-1", "--role", "judge"}, domain.ErrInvalidEnum},
		{"bad kind", []string{"case", "add", "alibi", "CR-1", "x"}, domain.ErrInvalidEnum},
		{"add before start", []string{"case", "add", "suspect", "CR-1", "x"}, domain.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"--project", dir}, tt.args...)...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHearingWorkflow(t *testing.T) {
	dir := newWorkspace(t)
	openCase(t, dir, "CR-20")

	out := mustRun(t, dir, "hearing", "schedule", "CR-20", "--date", "2030-02-01", "--time", "09:30", "--location", "Court 2", "--presider", "Judge Amari")
	for _, want := range []string{"on 2030-02-01 09:30 at Court 2", "reminder 1_day", "reminder at_time"} {
		if !strings.Contains(out, want) {
			t.Errorf("schedule output missing %q:\n%s", want, out)
		}
	}

	id := scheduleHearing(t, dir, "CR-20")

	out = mustRun(t, dir, "hearing", "list", "CR-20")
	if strings.Count(out, "Scheduled") != 2 {
		t.Errorf("list = %q", out)
	}
	out = mustRun(t, dir, "hearing", "pending")
	if !strings.Contains(out, id) {
		t.Errorf("pending = %q", out)
	}

	out = mustRun(t, dir, "hearing", "reminders", id)
	if strings.Count(out, "reminder ") != 4 || !strings.Contains(out, "2030-01-10 09:45") {
		t.Errorf("reminders = %q", out)
	}

	out = mustRun(t, dir, "hearing", "approve", id)
	if !strings.Contains(out, "approval Approved") {
		t.Errorf("approve = %q", out)
	}
	if _, err := runCLI(t, "--project", dir, "hearing", "decline", id, "--reason", "late"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("declining an approved hearing: %v", err)
	}

	out = mustRun(t, dir, "hearing", "reschedule", id, "--time", "14:00")
	if !strings.Contains(out, "on 2030-01-10 14:00 at Court 1") {
		t.Errorf("reschedule = %q", out)
	}

	out = mustRun(t, dir, "hearing", "cancel", id, "--reason", "judge ill", "--yes")
	if !strings.Contains(out, "Cancelled hearing") {
		t.Errorf("cancel = %q", out)
	}
	out = mustRun(t, dir, "hearing", "reminders", id)
	if !strings.Contains(out, "No reminders planned.") {
		t.Errorf("reminders after cancel = %q", out)
	}
	if _, err := runCLI(t, "--project", dir, "hearing", "complete", id); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("completing a cancelled hearing: %v", err)
	}
}

func TestHearingScheduleErrors(t *testing.T) {
	dir := newWorkspace(t)
	mustRun(t, dir, "case", "create", "CR-21", "Theft")

	_, err := runCLI(t, "--project", dir, "hearing", "schedule", "CR-21", "--at", "2030-01-10T10:00:00Z", "--location", "Court 1")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("scheduling before investigation: %v", err)
	}
	_, err = runCLI(t, "--project", dir, "hearing", "schedule", "CR-21", "--at", "tomorrow", "--location", "Court 1")
	if err == nil || !strings.Contains(err.Error(), "RFC 3339") {
		t.Errorf("bad --at: %v", err)
	}
	if _, err := runCLI(t, "--project", dir, "hearing", "approve", "missing"); !errors.Is(err, domain.ErrHearingNotFound) {
		t.Errorf("unknown hearing: %v", err)
	}
}

func TestHearingScheduleUnparsableWarns(t *testing.T) {
	dir := newWorkspace(t)
	openCase(t, dir, "CR-22")

	out := mustRun(t, dir, "hearing", "schedule", "CR-22", "--date", "next tuesday", "--time", "noon", "--location", "Court 3")
	if !strings.Contains(out, "Warning:") || !strings.Contains(out, "No reminders planned.") {
		t.Errorf("output = %q", out)
	}
}

func TestConfirmation(t *testing.T) {
	dir := newWorkspace(t)
	openCase(t, dir, "CR-23")
	id := scheduleHearing(t, dir, "CR-23")

	var asked string
	decline := WithConfirmer(context.Background(), func(_ io.Reader, _ io.Writer, prompt string) (bool, error) {
		asked = prompt
		return false, nil
	})
	_, err := runCLIContext(t, decline, "--project", dir, "hearing", "cancel", id)
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || cliErr.ExitCode != 2 {
		t.Fatalf("declined prompt: %v", err)
	}
	if !strings.Contains(asked, id) {
		t.Errorf("prompt = %q", asked)
	}
	out := mustRun(t, dir, "hearing", "list", "CR-23")
	if strings.Contains(out, "Cancelled") {
		t.Error("hearing cancelled despite declined prompt")
	}

	accept := WithConfirmer(context.Background(), func(io.Reader, io.Writer, string) (bool, error) { return true, nil })
	if _, err := runCLIContext(t, accept, "--project", dir, "hearing", "cancel", id); err != nil {
		t.Fatalf("accepted prompt: %v", err)
	}
}

func TestConfirmation_DefaultPromptReadsStdin(t *testing.T) {
	dir := newWorkspace(t)
	openCase(t, dir, "CR-24")
	id := scheduleHearing(t, dir, "CR-24")

	// stdin is empty in tests, so the default prompt declines.
	_, err := runCLI(t, "--project", dir, "hearing", "cancel", id)
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || cliErr.ExitCode != 2 {
		t.Fatalf("empty stdin: %v", err)
	}
	mustRun(t, dir, "hearing", "cancel", id, "--yes")
}

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := promptYesNo(strings.NewReader(tt.in), io.Discard, "ok?")
		if err != nil || got != tt.want {
			t.Errorf("promptYesNo(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestResolution(t *testing.T) {
	dir := newWorkspace(t)
	openCase(t, dir, "CR-30")
	id := scheduleHearing(t, dir, "CR-30")

	_, err := runCLI(t, "--project", dir, "resolution", "record", "CR-30", "--type", "Dismissed", "--yes")
	if !errors.Is(err, domain.ErrInvalidEnum) {
		t.Fatalf("invalid type: %v", err)
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) && !strings.Contains(cliErr.Hint, "Settled") {
		t.Errorf("hint = %q", cliErr.Hint)
	}

	out := mustRun(t, dir, "resolution", "record", "CR-30", "--type", "Withdrawn", "--details", "complainant withdrew", "--yes")
	if !strings.Contains(out, "case is now Cancelled") || !strings.Contains(out, id+" is now Cancelled") {
		t.Errorf("record = %q", out)
	}

	out = mustRun(t, dir, "resolution", "list", "CR-30")
	if !strings.Contains(out, "Withdrawn") || !strings.Contains(out, "complainant withdrew") {
		t.Errorf("list = %q", out)
	}

	out = mustRun(t, dir, "case", "timeline", "CR-30")
	if !strings.Contains(out, "[x] 7. Case Closed") {
		t.Errorf("timeline = %q", out)
	}
}

func TestReminderPreferences(t *testing.T) {
	dir := newWorkspace(t)

	out := mustRun(t, dir, "reminders", "prefs", "set", "1_hour", "off")
	if !strings.Contains(out, "1_hour     off") || !strings.Contains(out, "1_day      on") {
		t.Errorf("set = %q", out)
	}

	openCase(t, dir, "CR-40")
	id := scheduleHearing(t, dir, "CR-40")
	out = mustRun(t, dir, "hearing", "reminders", id)
	if strings.Contains(out, "1_hour") || strings.Count(out, "reminder ") != 3 {
		t.Errorf("reminders with 1_hour off = %q", out)
	}

	if _, err := runCLI(t, "--project", dir, "reminders", "prefs", "set", "2_days", "on"); !errors.Is(err, domain.ErrInvalidEnum) {
		t.Errorf("unknown key: %v", err)
	}
	if _, err := runCLI(t, "--project", dir, "reminders", "prefs", "set", "sound", "maybe"); err == nil {
		t.Error("expected error for bad switch value")
	}

	out = mustRun(t, dir, "reminders", "prefs", "reset")
	if strings.Contains(out, "off") {
		t.Errorf("reset = %q", out)
	}
}

func TestReminderHistoryAndVerify(t *testing.T) {
	dir := newWorkspace(t)
	openCase(t, dir, "CR-50")
	id := scheduleHearing(t, dir, "CR-50")

	out := mustRun(t, dir, "reminders", "history", "--hearing", id)
	if strings.Count(out, domain.ActionReminderScheduled) != 4 {
		t.Errorf("history = %q", out)
	}
	out = mustRun(t, dir, "reminders", "history", "--hearing", "other")
	if !strings.Contains(out, "No history.") {
		t.Errorf("filtered history = %q", out)
	}

	out = mustRun(t, dir, "history")
	if !strings.Contains(out, "case.created") || !strings.Contains(out, "workspace.initialized") {
		t.Errorf("full history = %q", out)
	}

	out = mustRun(t, dir, "history", "verify")
	if !strings.Contains(out, "History is intact") {
		t.Errorf("verify = %q", out)
	}

	path := filepath.Join(dir, ".blotter", "events.jsonl")
	data, _ := os.ReadFile(path)
	tampered := strings.Replace(string(data), "CR-50", "CR-51", 1)
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := runCLI(t, "--project", dir, "history", "verify")
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || cliErr.ExitCode != 3 {
		t.Errorf("verify after tampering: %v", err)
	}

	out = mustRun(t, dir, "reminders", "deadletters")
	if !strings.Contains(out, "No failed deliveries.") {
		t.Errorf("deadletters = %q", out)
	}
}

func TestChannels(t *testing.T) {
	dir := newWorkspace(t)

	out := mustRun(t, dir, "channels", "list")
	if !strings.Contains(out, "No channels configured.") {
		t.Errorf("empty list = %q", out)
	}

	mustRun(t, dir, "channels", "add", "console", "log", "--offsets", "1_day,at_time")
	mustRun(t, dir, "channels", "add", "desk", "webhook", "https://hooks.example.com/desk", "--secret", "s3cret")

	tests := []struct {
		name string
		args []string
	}{
		{"duplicate", []string{"channels", "add", "console", "log"}},
		{"webhook without url", []string{"channels", "add", "hook", "webhook"}},
		{"unknown type", []string{"channels", "add", "pager", "sms", "tel:1"}},
		{"bad offset", []string{"channels", "add", "x", "log", "--offsets", "2_days"}},
		{"test unknown", []string{"channels", "test", "nobody"}},
		{"remove unknown", []string{"channels", "remove", "nobody"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, append([]string{"--project", dir}, tt.args...)...); err == nil {
				t.Error("expected error")
			}
		})
	}

	out = mustRun(t, dir, "channels", "list")
	if !strings.Contains(out, "1_day,at_time") || !strings.Contains(out, "https://hooks.example.com/desk") {
		t.Errorf("list = %q", out)
	}

	out = mustRun(t, dir, "channels", "test", "console")
	if !strings.Contains(out, `Test reminder sent to channel "console"`) {
		t.Errorf("test = %q", out)
	}

	mustRun(t, dir, "channels", "remove", "desk")
	out = mustRun(t, dir, "channels", "list")
	if strings.Contains(out, "desk") {
		t.Errorf("removed channel still listed: %q", out)
	}
}

func TestDashboardSnapshot(t *testing.T) {
	dir := newWorkspace(t)
	openCase(t, dir, "CR-60")
	scheduleHearing(t, dir, "CR-60")
	t.Setenv("BLOTTER_SKIP_DASHBOARD_RUN", "true")

	out := mustRun(t, dir, "dashboard")
	for _, want := range []string{"Blotter case board (officer)", "CR-60", "Sgt. Miller", "1 hearing(s) awaiting approval", "Witnesses & Suspects"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q:\n%s", want, out)
		}
	}
}

func TestDashboardModel(t *testing.T) {
	calls := 0
	m := initialModel(func() (boardData, error) {
		calls++
		return boardData{Role: gate.RoleAdmin}, nil
	})

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if calls != 2 {
		t.Errorf("refresh loaded %d times, want 2", calls)
	}
	_, cmd := next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not return tea.Quit")
	}

	failing := initialModel(func() (boardData, error) { return boardData{}, errors.New("store offline") })
	if !strings.Contains(failing.View(), "store offline") {
		t.Errorf("error view = %q", failing.View())
	}
}

func TestMCPOpenAPI(t *testing.T) {
	dir := newWorkspace(t)
	out := mustRun(t, dir, "mcp", "--openapi")
	for _, want := range []string{`"openapi"`, "blotter_case_list", "blotter_hearing_schedule"} {
		if !strings.Contains(out, want) {
			t.Errorf("openapi missing %q", want)
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	dir := newWorkspace(t)
	openCase(t, dir, "CR-70")
	scheduleHearing(t, dir, "CR-70")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	out, err := runCLIContext(t, ctx, "--project", dir, "serve", "--addr", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !strings.Contains(out, "Serving 4 reminders") {
		t.Errorf("serve output = %q", out)
	}
}

func TestLogFlags(t *testing.T) {
	dir := newWorkspace(t)
	if _, err := runCLI(t, "--project", dir, "--log-level", "loud", "case", "list"); err == nil {
		t.Error("expected error for unknown log level")
	}
	if _, err := runCLI(t, "--project", dir, "--log-format", "xml", "case", "list"); err == nil {
		t.Error("expected error for unknown log format")
	}
	mustRun(t, dir, "--log-level", "debug", "--log-format", "json", "case", "list")
}
