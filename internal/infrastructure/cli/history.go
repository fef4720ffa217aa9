package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the workspace history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return MapError(err)
		}
		entries, err := ws.Audit.GetTimeline()
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), entries)
	},
}

var historyVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the workspace history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return MapError(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Verifying history integrity...")
		violations, err := ws.Audit.VerifyIntegrity()
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}

		if len(violations) == 0 {
			fmt.Fprintln(out, "History is intact and verified.")
			return nil
		}

		fmt.Fprintf(out, "Found %d integrity violations:\n", len(violations))
		for _, v := range violations {
			fmt.Fprintf(out, "  - %s\n", v)
		}
		return &CLIError{Message: fmt.Sprintf("%d integrity violations", len(violations)), ExitCode: 3}
	},
}

// loadWorkspace opens the workspace files without the Data Store.
func loadWorkspace() (*wiring.Workspace, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	if !storage.NewFilesystemRepository(root).IsInitialized() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotInitialized)
	}
	return wiring.NewWorkspace(root)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	historyCmd.AddCommand(historyVerifyCmd)
	RootCmd.AddCommand(historyCmd)
}
