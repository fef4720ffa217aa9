package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	msginfra "github.com/felixgeelhaar/blotter/internal/infrastructure/messaging"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/logging"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/domain/messaging"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

var (
	channelSecret  string
	channelOffsets string
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Manage reminder delivery channels (webhook, slack, websocket, log)",
}

var channelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return MapError(err)
		}
		config, err := ws.Repo.LoadMessagingConfig()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), config.Adapters)
		}
		if len(config.Adapters) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No channels configured. Reminders are written to the log.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tENABLED\tOFFSETS\tURL")
		for _, a := range config.Adapters {
			offsets := strings.Join(a.Offsets, ",")
			if offsets == "" {
				offsets = "all"
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", a.Name, a.Type, a.Enabled, offsets, a.URL)
		}
		return w.Flush()
	},
}

var channelsAddCmd = &cobra.Command{
	Use:   "add <name> <type> [url]",
	Short: "Add a channel",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := messaging.AdapterConfig{
			Name:    args[0],
			Type:    args[1],
			Secret:  channelSecret,
			Enabled: true,
		}
		if len(args) == 3 {
			cfg.URL = args[2]
		}
		if channelOffsets != "" {
			for _, o := range strings.Split(channelOffsets, ",") {
				offset, err := reminder.ParseOffset(strings.TrimSpace(o))
				if err != nil {
					return MapError(err)
				}
				cfg.Offsets = append(cfg.Offsets, string(offset))
			}
		}

		return withServices(cmd, func(_ context.Context, s *wiring.AppServices) error {
			repo := s.Workspace.Repo
			config, err := repo.LoadMessagingConfig()
			if err != nil {
				return err
			}
			for _, a := range config.Adapters {
				if a.Name == cfg.Name {
					return fmt.Errorf("channel %q already exists", cfg.Name)
				}
			}
			if _, err := msginfra.NewRegistry(&messaging.MessagingConfig{Adapters: []messaging.AdapterConfig{cfg}}, s.Hub, logging.New("channels")); err != nil {
				return err
			}

			config.Adapters = append(config.Adapters, cfg)
			if err := repo.SaveMessagingConfig(config); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s channel %q\n", cfg.Type, cfg.Name)
			return nil
		})
	},
}

var channelsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return MapError(err)
		}
		config, err := ws.Repo.LoadMessagingConfig()
		if err != nil {
			return err
		}
		kept := config.Adapters[:0]
		for _, a := range config.Adapters {
			if a.Name != args[0] {
				kept = append(kept, a)
			}
		}
		if len(kept) == len(config.Adapters) {
			return fmt.Errorf("channel %q not found", args[0])
		}
		config.Adapters = kept
		if err := ws.Repo.SaveMessagingConfig(config); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed channel %q\n", args[0])
		return nil
	},
}

var channelsTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Send a test reminder through one channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			config, err := s.Workspace.Repo.LoadMessagingConfig()
			if err != nil {
				return err
			}

			var target *messaging.AdapterConfig
			for i, a := range config.Adapters {
				if a.Name == args[0] {
					target = &config.Adapters[i]
					break
				}
			}
			if target == nil {
				return fmt.Errorf("channel %q not found", args[0])
			}

			single := *target
			single.Enabled = true
			single.Offsets = nil
			registry, err := msginfra.NewRegistry(&messaging.MessagingConfig{Adapters: []messaging.AdapterConfig{single}}, s.Hub, logging.New("channels"))
			if err != nil {
				return fmt.Errorf("create channel: %w", err)
			}

			n := reminder.Notification{
				HearingID: "test",
				CaseID:    "test",
				Offset:    reminder.OffsetAtTime,
				Title:     "Test reminder",
				Body:      "This is a test reminder from blotter.",
				Location:  "-",
				At:        time.Now(),
			}
			if err := registry.Notify(ctx, n); err != nil {
				return fmt.Errorf("send test to %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test reminder sent to channel %q\n", args[0])
			return nil
		})
	},
}

func init() {
	channelsAddCmd.Flags().StringVar(&channelSecret, "secret", "", "HMAC secret for webhook signatures")
	channelsAddCmd.Flags().StringVar(&channelOffsets, "offsets", "", "Comma-separated offsets to deliver (default all)")

	channelsCmd.AddCommand(channelsListCmd, channelsAddCmd, channelsRemoveCmd, channelsTestCmd)
	RootCmd.AddCommand(channelsCmd)
}
