package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

var historyHearing string

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Reminder preferences, history and failed deliveries",
}

var remindersPrefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change reminder preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(_ context.Context, s *wiring.AppServices) error {
			p, err := s.Preferences.Get()
			if err != nil {
				return err
			}
			return printPrefs(cmd.OutOrStdout(), p)
		})
	},
}

var remindersPrefsSetCmd = &cobra.Command{
	Use:   "set <key> <on|off>",
	Short: "Turn a preference on or off (enabled, 1_day, 1_hour, 15_min, at_time, sound, vibration)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		return withServices(cmd, func(_ context.Context, s *wiring.AppServices) error {
			p, err := s.Preferences.Set(args[0], on, actor())
			if err != nil {
				return err
			}
			return printPrefs(cmd.OutOrStdout(), p)
		})
	},
}

var remindersPrefsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(_ context.Context, s *wiring.AppServices) error {
			p, err := s.Preferences.Reset(actor())
			if err != nil {
				return err
			}
			return printPrefs(cmd.OutOrStdout(), p)
		})
	},
}

var remindersHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show scheduled, sent, skipped and failed reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(_ context.Context, s *wiring.AppServices) error {
			entries, err := s.Audit.ReminderHistory(historyHearing)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), entries)
		})
	},
}

var remindersDeadLettersCmd = &cobra.Command{
	Use:   "deadletters",
	Short: "List reminders that exhausted their delivery retries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(_ context.Context, s *wiring.AppServices) error {
			letters, err := s.DeadLetters.ReadAll()
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), letters)
			}
			if len(letters) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No failed deliveries.")
				return nil
			}
			for _, dl := range letters {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  hearing %s  %-8s after %d attempts: %s\n",
					dl.Timestamp.Format("2006-01-02 15:04"), dl.HearingID, dl.Offset, dl.Attempts, dl.Error)
			}
			return nil
		})
	},
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", v)
	}
	return b, nil
}

func printPrefs(w io.Writer, p reminder.Preferences) error {
	if jsonOutput {
		return printJSON(w, p)
	}
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	fmt.Fprintf(w, "enabled    %s\n", onOff(p.Enabled))
	offsets := []struct {
		o  reminder.OffsetType
		on bool
	}{
		{reminder.OffsetOneDay, p.OneDay},
		{reminder.OffsetOneHour, p.OneHour},
		{reminder.OffsetFifteenMin, p.FifteenMin},
		{reminder.OffsetAtTime, p.AtTime},
	}
	for _, o := range offsets {
		fmt.Fprintf(w, "%-10s %s\n", o.o, onOff(o.on))
	}
	fmt.Fprintf(w, "sound      %s\n", onOff(p.Sound))
	fmt.Fprintf(w, "vibration  %s\n", onOff(p.Vibration))
	return nil
}

func printHistory(w io.Writer, entries []domain.Event) error {
	if jsonOutput {
		return printJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-24s %-10s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Actor, formatMeta(e.Metadata))
	}
	return nil
}

func formatMeta(m map[string]interface{}) string {
	if len(m) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}

func init() {
	remindersHistoryCmd.Flags().StringVar(&historyHearing, "hearing", "", "Only show entries for this hearing")

	remindersPrefsCmd.AddCommand(remindersPrefsSetCmd, remindersPrefsResetCmd)
	remindersCmd.AddCommand(remindersPrefsCmd, remindersHistoryCmd, remindersDeadLettersCmd)
	RootCmd.AddCommand(remindersCmd)
}
