package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/logging"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/watch"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/infrastructure/dashboard"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Deliver reminders and serve the case board",
	Long: `Run the reminder scheduler in the foreground. On start every scheduled
hearing is re-planned; edits to reminders.yaml re-plan them again, and
hearings changed by other blotter commands are picked up periodically.

The case board, JSON API, websocket feed (/ws) and event stream (/events)
are served on --addr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWithServices(cmd, nil, func(_ context.Context, s *wiring.AppServices) error {
			return runServe(ctx, s, cmd)
		})
	},
}

func runServe(ctx context.Context, s *wiring.AppServices, cmd *cobra.Command) error {
	logger := logging.New("serve")

	since := time.Now()
	synced, err := s.Reminders.Sync(ctx)
	if err != nil {
		return fmt.Errorf("initial reminder sync: %w", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = s.Workspace.Config.Server.Addr
	}
	board, err := dashboard.NewServer(addr, s.Cases, s.Hearings, logging.New("dashboard"))
	if err != nil {
		return err
	}
	board.Mount("GET /ws", s.Hub)
	board.Mount("GET /events", s.Stream)

	watcher, err := watch.WatchPreferences(s.Workspace.Root, func(ev watch.ChangeEvent) {
		if n, err := s.Reminders.Sync(ctx); err != nil {
			logger.Warn("reminder sync after preference change failed", "error", err)
		} else {
			logger.Info("reminder preferences changed", "path", ev.Path, "reminders", n)
		}
	}, watch.WithLogger(logging.New("watch")))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d reminders; case board on http://%s\n", synced, addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Queue.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return board.Serve(gctx) })
	g.Go(func() error {
		ticker := time.NewTicker(s.Workspace.Config.RefreshInterval())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				next, err := s.Reminders.Refresh(gctx, since)
				if err != nil {
					logger.Warn("reminder refresh failed", "error", err)
					continue
				}
				since = next
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.addr in config.yaml)")
	RootCmd.AddCommand(serveCmd)
}
