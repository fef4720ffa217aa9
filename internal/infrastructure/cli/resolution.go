package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/domain/resolution"
)

var (
	resolutionType    string
	resolutionDetails string
)

var resolutionCmd = &cobra.Command{
	Use:   "resolution",
	Short: "Document how a case was resolved",
}

var resolutionRecordCmd = &cobra.Command{
	Use:   "record <case>",
	Short: "Record a resolution and close the case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirmed(cmd, fmt.Sprintf("Close case %s as %s?", args[0], resolutionType)); err != nil {
			return MapError(err)
		}
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			res, err := s.Resolutions.Record(ctx, args[0], resolutionType, resolutionDetails, actor())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recorded %s resolution; case is now %s\n", res.Resolution.Type, res.CaseStatus)
			for _, h := range res.Hearings {
				fmt.Fprintf(out, "  hearing %s is now %s\n", h.ID, h.Status)
			}
			return nil
		})
	},
}

var resolutionListCmd = &cobra.Command{
	Use:   "list <case>",
	Short: "List the resolutions of a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			list, err := s.Resolutions.List(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No resolution recorded.")
				return nil
			}
			for _, r := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Type, r.Details)
			}
			return nil
		})
	},
}

func resolutionTypeNames() string {
	names := make([]string, 0, 2)
	for _, t := range resolution.AllTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func init() {
	resolutionRecordCmd.Flags().StringVarP(&resolutionType, "type", "t", "", "Resolution type ("+resolutionTypeNames()+")")
	resolutionRecordCmd.Flags().StringVar(&resolutionDetails, "details", "", "How the case was resolved")
	resolutionRecordCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	_ = resolutionRecordCmd.MarkFlagRequired("type")

	resolutionCmd.AddCommand(resolutionRecordCmd, resolutionListCmd)
	RootCmd.AddCommand(resolutionCmd)
}
