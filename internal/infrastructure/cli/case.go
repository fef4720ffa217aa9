package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/gate"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

var (
	caseDescription string
	caseRole        string
	artifactDetails string
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Create cases and walk them through the investigation",
}

var caseCreateCmd = &cobra.Command{
	Use:   "create <number> <title>",
	Short: "Open a new case",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			c, err := s.Cases.Create(ctx, args[0], args[1], caseDescription, actor())
			if err != nil {
				return err
			}
			return printCase(cmd, c, "Created")
		})
	},
}

var caseAssignCmd = &cobra.Command{
	Use:   "assign <case> <officer>",
	Short: "Assign the investigating officer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			c, err := s.Cases.Assign(ctx, args[0], args[1], actor())
			if err != nil {
				return err
			}
			return printCase(cmd, c, "Assigned")
		})
	},
}

var caseStartCmd = &cobra.Command{
	Use:   "start <case>",
	Short: "Start the investigation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			c, err := s.Cases.StartInvestigation(ctx, args[0], actor())
			if err != nil {
				return err
			}
			return printCase(cmd, c, "Started investigation on")
		})
	},
}

var caseAddCmd = &cobra.Command{
	Use:       "add <witness|suspect|evidence> <case> <name>",
	Short:     "Record a witness, suspect or piece of evidence",
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{"witness", "suspect", "evidence"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := casefile.ParseArtifactKind(args[0])
		if err != nil {
			return MapError(err)
		}
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			a, err := s.Cases.AddArtifact(ctx, args[1], kind, args[2], artifactDetails, actor())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q to %s\n", a.Kind, a.Name, args[1])
			return nil
		})
	},
}

var caseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			cases, err := s.Cases.List(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), cases)
			}
			if len(cases) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cases yet.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NUMBER\tSTATUS\tOFFICER\tTITLE")
			for _, c := range cases {
				officer := c.AssignedOfficer
				if officer == "" {
					officer = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Number, c.Status, officer, c.Title)
			}
			return w.Flush()
		})
	},
}

var caseTimelineCmd = &cobra.Command{
	Use:   "timeline <case>",
	Short: "Show the seven lifecycle stages of a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			c, stages, err := s.Cases.Timeline(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"case": c, "stages": stages})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s  [%s]\n\n", c.Number, c.Title, c.Status)
			for _, st := range stages {
				fmt.Fprintf(out, "  %s %d. %-26s %s\n", stageMarker(st.Status), st.ID, st.Name, st.Status.DisplayName())
			}
			return nil
		})
	},
}

var caseNextCmd = &cobra.Command{
	Use:   "next <case>",
	Short: "Show which actions are enabled for a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := gate.ParseRole(caseRole)
		if err != nil {
			return MapError(err)
		}
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			_, d, err := s.Cases.Decision(ctx, args[0], role)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), d)
			}
			out := cmd.OutOrStdout()
			if d.Next != nil {
				fmt.Fprintf(out, "Next: %s\n\n", d.Next.Action.Label())
			} else {
				fmt.Fprintln(out, "Next: nothing to do")
				fmt.Fprintln(out)
			}
			for _, desc := range d.Descriptors {
				fmt.Fprintf(out, "  %s\n", desc)
			}
			return nil
		})
	},
}

func stageMarker(s timeline.StageStatus) string {
	switch s {
	case timeline.StatusCompleted:
		return "[x]"
	case timeline.StatusInProgress:
		return "[~]"
	default:
		return "[ ]"
	}
}

func printCase(cmd *cobra.Command, c *casefile.Case, verb string) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s case %s (%s)\n", verb, c.Number, c.Status)
	return nil
}

func init() {
	caseCreateCmd.Flags().StringVarP(&caseDescription, "description", "d", "", "Case description")
	caseNextCmd.Flags().StringVar(&caseRole, "role", "officer", "Viewer role (officer, admin, user)")
	caseAddCmd.Flags().StringVar(&artifactDetails, "details", "", "Free-text details")

	caseCmd.AddCommand(caseCreateCmd, caseAssignCmd, caseStartCmd, caseAddCmd, caseListCmd, caseTimelineCmd, caseNextCmd)
	RootCmd.AddCommand(caseCmd)
}
