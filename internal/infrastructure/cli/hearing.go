package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/application"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

var (
	hearingDate      string
	hearingTime      string
	hearingAt        string
	hearingLocation  string
	hearingPurpose   string
	hearingPresiding string
	hearingReason    string
)

var hearingCmd = &cobra.Command{
	Use:   "hearing",
	Short: "Schedule hearings and manage their approval",
}

var hearingScheduleCmd = &cobra.Command{
	Use:   "schedule <case>",
	Short: "Schedule a hearing and plan its reminders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := hearingDetails()
		if err != nil {
			return MapError(err)
		}
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			res, err := s.Hearings.Schedule(ctx, args[0], d, actor())
			if err != nil {
				return err
			}
			return printSchedule(cmd.OutOrStdout(), "Scheduled", res)
		})
	},
}

var hearingRescheduleCmd = &cobra.Command{
	Use:   "reschedule <hearing-id>",
	Short: "Move a hearing; unchanged fields keep their value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := hearingDetails()
		if err != nil {
			return MapError(err)
		}
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			res, err := s.Hearings.Reschedule(ctx, args[0], d, actor())
			if err != nil {
				return err
			}
			return printSchedule(cmd.OutOrStdout(), "Rescheduled", res)
		})
	},
}

var hearingCancelCmd = &cobra.Command{
	Use:   "cancel <hearing-id>",
	Short: "Cancel a hearing and drop its reminders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirmed(cmd, fmt.Sprintf("Cancel hearing %s?", args[0])); err != nil {
			return MapError(err)
		}
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			h, err := s.Hearings.Cancel(ctx, args[0], hearingReason, actor())
			if err != nil {
				return err
			}
			return printHearing(cmd.OutOrStdout(), "Cancelled", h)
		})
	},
}

var hearingCompleteCmd = &cobra.Command{
	Use:   "complete <hearing-id>",
	Short: "Mark a hearing as held",
	Args:  cobra.ExactArgs(1),
	RunE: hearingAction(func(ctx context.Context, s *wiring.AppServices, id string) (*hearing.Hearing, string, error) {
		h, err := s.Hearings.Complete(ctx, id, actor())
		return h, "Completed", err
	}),
}

var hearingApproveCmd = &cobra.Command{
	Use:   "approve <hearing-id>",
	Short: "Approve a hearing awaiting a decision",
	Args:  cobra.ExactArgs(1),
	RunE: hearingAction(func(ctx context.Context, s *wiring.AppServices, id string) (*hearing.Hearing, string, error) {
		h, err := s.Hearings.Approve(ctx, id, actor())
		return h, "Approved", err
	}),
}

var hearingDeclineCmd = &cobra.Command{
	Use:   "decline <hearing-id>",
	Short: "Decline a hearing awaiting a decision",
	Args:  cobra.ExactArgs(1),
	RunE: hearingAction(func(ctx context.Context, s *wiring.AppServices, id string) (*hearing.Hearing, string, error) {
		h, err := s.Hearings.Decline(ctx, id, hearingReason, actor())
		return h, "Declined", err
	}),
}

var hearingListCmd = &cobra.Command{
	Use:   "list <case>",
	Short: "List the hearings of a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			list, err := s.Hearings.List(ctx, args[0])
			if err != nil {
				return err
			}
			return printHearings(cmd.OutOrStdout(), list)
		})
	},
}

var hearingPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List hearings awaiting approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			list, err := s.Hearings.PendingApprovals(ctx)
			if err != nil {
				return err
			}
			return printHearings(cmd.OutOrStdout(), list)
		})
	},
}

var hearingRemindersCmd = &cobra.Command{
	Use:   "reminders <hearing-id>",
	Short: "Show the reminders planned for a hearing",
	Long: `Show the reminders the scheduler plans for a hearing under the current
preferences. Delivery happens in 'blotter serve'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			h, err := s.Hearings.Get(ctx, args[0])
			if err != nil {
				return err
			}
			plan := reminder.Plan{}
			if !h.Status.IsFinal() {
				at, err := h.When(s.Workspace.Location)
				if err != nil {
					return err
				}
				prefs, err := s.Preferences.Get()
				if err != nil {
					return err
				}
				plan = reminder.PlanReminders(h.ID, at, time.Now(), prefs)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), plan)
			}
			printPlan(cmd.OutOrStdout(), plan)
			return nil
		})
	},
}

func hearingAction(fn func(ctx context.Context, s *wiring.AppServices, id string) (*hearing.Hearing, string, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			h, verb, err := fn(ctx, s, args[0])
			if err != nil {
				return err
			}
			return printHearing(cmd.OutOrStdout(), verb, h)
		})
	}
}

// hearingDetails reads the hearing flags. --at wins over --date and --time.
func hearingDetails() (hearing.Details, error) {
	d := hearing.Details{
		Date:             hearingDate,
		Time:             hearingTime,
		Location:         hearingLocation,
		Purpose:          hearingPurpose,
		PresidingOfficer: hearingPresiding,
	}
	if hearingAt != "" {
		at, err := time.Parse(time.RFC3339, hearingAt)
		if err != nil {
			return d, fmt.Errorf("invalid --at %q: want RFC 3339, e.g. 2026-03-12T10:00:00+01:00", hearingAt)
		}
		d.ScheduledAt = &at
	}
	return d, nil
}

func printSchedule(w io.Writer, verb string, res *application.ScheduleResult) error {
	if jsonOutput {
		return printJSON(w, res)
	}
	h := res.Hearing
	fmt.Fprintf(w, "%s hearing %s on %s %s at %s\n", verb, h.ID, h.Date, h.Time, h.Location)
	if res.Warning != "" {
		fmt.Fprintf(w, "Warning: %s\n", res.Warning)
	}
	printPlan(w, res.Plan)
	return nil
}

func printPlan(w io.Writer, plan reminder.Plan) {
	if len(plan.Tasks) == 0 && len(plan.Skipped) == 0 {
		fmt.Fprintln(w, "No reminders planned.")
		return
	}
	for _, t := range plan.Tasks {
		fmt.Fprintf(w, "  reminder %-8s %s\n", t.Offset, t.FireAt.Format("2006-01-02 15:04"))
	}
	for _, sk := range plan.Skipped {
		fmt.Fprintf(w, "  skipped  %-8s %s (%s)\n", sk.Offset, sk.FireAt.Format("2006-01-02 15:04"), sk.Reason)
	}
}

func printHearing(w io.Writer, verb string, h *hearing.Hearing) error {
	if jsonOutput {
		return printJSON(w, h)
	}
	fmt.Fprintf(w, "%s hearing %s (%s, approval %s)\n", verb, h.ID, h.Status, h.Approval)
	return nil
}

func printHearings(w io.Writer, list []*hearing.Hearing) error {
	if jsonOutput {
		return printJSON(w, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No hearings.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tLOCATION\tSTATUS\tAPPROVAL")
	for _, h := range list {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\n", h.ID, h.Date, h.Time, h.Location, h.Status, h.Approval)
	}
	return tw.Flush()
}

func init() {
	for _, c := range []*cobra.Command{hearingScheduleCmd, hearingRescheduleCmd} {
		c.Flags().StringVar(&hearingDate, "date", "", "Hearing date (YYYY-MM-DD)")
		c.Flags().StringVar(&hearingTime, "time", "", "Hearing time (HH:MM)")
		c.Flags().StringVar(&hearingAt, "at", "", "Hearing instant in RFC 3339; overrides --date and --time")
		c.Flags().StringVar(&hearingLocation, "location", "", "Courtroom or venue")
		c.Flags().StringVar(&hearingPurpose, "purpose", "", "Purpose of the hearing")
		c.Flags().StringVar(&hearingPresiding, "presider", "", "Presiding officer")
	}
	hearingCancelCmd.Flags().StringVar(&hearingReason, "reason", "", "Why the hearing is cancelled")
	hearingCancelCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	hearingDeclineCmd.Flags().StringVar(&hearingReason, "reason", "", "Why the hearing is declined")

	hearingCmd.AddCommand(hearingScheduleCmd, hearingRescheduleCmd, hearingCancelCmd, hearingCompleteCmd,
		hearingApproveCmd, hearingDeclineCmd, hearingListCmd, hearingPendingCmd, hearingRemindersCmd)
	RootCmd.AddCommand(hearingCmd)
}
