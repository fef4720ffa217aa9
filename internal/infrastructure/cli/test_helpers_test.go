package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so runs do not leak into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLIContext(t, context.Background(), args...)
}

func runCLIContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags(RootCmd)

	var out, errOut bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&errOut)
	RootCmd.SetIn(strings.NewReader(""))
	RootCmd.SetArgs(args)
	err := RootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// mustRun runs args against dir and fails the test on error.
func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, append([]string{"--project", dir}, args...)...)
	if err != nil {
		t.Fatalf("blotter %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func decodeJSON(t *testing.T, out string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
}

// newWorkspace initializes a UTC workspace in a temp dir.
func newWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustRun(t, dir, "init", "--timezone", "UTC")
	return dir
}

// openCase takes a new case to the point where a hearing can be scheduled.
func openCase(t *testing.T, dir, number string) {
	t.Helper()
	mustRun(t, dir, "case", "create", number, "Stolen bicycle")
	mustRun(t, dir, "case", "assign", number, "Sgt. Miller")
	mustRun(t, dir, "case", "start", number)
	mustRun(t, dir, "case", "add", "witness", number, "J. Doe")
}

// scheduleHearing schedules a hearing far ahead and returns its ID.
func scheduleHearing(t *testing.T, dir, number string) string {
	t.Helper()
	out := mustRun(t, dir, "--json", "hearing", "schedule", number, "--at", "2030-01-10T10:00:00Z", "--location", "Court 1")
	var res struct {
		Hearing struct {
			ID string `json:"id"`
		} `json:"hearing"`
	}
	decodeJSON(t, out, &res)
	if res.Hearing.ID == "" {
		t.Fatalf("no hearing id in %s", out)
	}
	return res.Hearing.ID
}
