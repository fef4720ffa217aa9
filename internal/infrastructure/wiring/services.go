// Package wiring assembles the application services for a workspace.
package wiring

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/delay"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/logging"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/messaging"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/remotesync"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/sse"
	"github.com/felixgeelhaar/blotter/pkg/application"
	"github.com/felixgeelhaar/blotter/pkg/domain/events"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
	"github.com/felixgeelhaar/blotter/pkg/domain/store"
)

// AppServices exposes the application layer wired to one workspace.
type AppServices struct {
	Workspace *Workspace
	Store     store.Repository
	Events    *events.EventDispatcher
	Hub       *messaging.Hub
	Stream    *sse.Handler
	Queue     *delay.TimerQueue

	Notifier    *messaging.Registry
	DeadLetters *messaging.DeadLetterStore

	Audit       *application.AuditService
	Reminders   *application.ReminderService
	Dispatcher  *application.ReminderDispatcher
	Cases       *application.CaseService
	Hearings    *application.HearingService
	Resolutions *application.ResolutionService
	Preferences *application.PreferencesService
}

type buildOptions struct {
	now      func() time.Time
	store    store.Repository
	planOnly bool
}

// BuildOption customises BuildAppServices.
type BuildOption func(*buildOptions)

// WithClock replaces time.Now in every service.
func WithClock(now func() time.Time) BuildOption {
	return func(o *buildOptions) { o.now = now }
}

// WithStore skips opening the configured Data Store.
func WithStore(s store.Repository) BuildOption {
	return func(o *buildOptions) { o.store = s }
}

// WithPlanOnly keeps reminders in the queue without delivering them. Processes
// other than serve use it so a reminder is never sent twice.
func WithPlanOnly() BuildOption {
	return func(o *buildOptions) { o.planOnly = true }
}

// BuildAppServices opens the configured store and wires services, event
// handlers, notifier channels and the reminder queue for root.
func BuildAppServices(ctx context.Context, root string, opts ...BuildOption) (*AppServices, error) {
	bo := buildOptions{now: time.Now}
	for _, opt := range opts {
		opt(&bo)
	}

	ws, err := NewWorkspace(root)
	if err != nil {
		return nil, err
	}

	repo := bo.store
	if repo == nil {
		repo, err = ws.OpenStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	hub := messaging.NewHub(logging.New("hub"))
	msgConfig, err := ws.Repo.LoadMessagingConfig()
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	notifier, err := messaging.NewRegistry(msgConfig, hub, logging.New("notifier"))
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	audit := application.NewAuditService(ws.Repo, application.WithClock(bo.now))
	ws.Audit = audit
	stream := sse.NewHandler(logging.New("sse"))
	dispatcher := buildDispatcher(ws, hub, stream)

	common := []application.Option{
		application.WithClock(bo.now),
		application.WithLocation(ws.Location),
		application.WithPublisher(dispatcher),
	}
	with := func(component string) []application.Option {
		return append(append([]application.Option{}, common...), application.WithLogger(logging.New(component)))
	}

	deadLetters := messaging.NewDeadLetterStore(ws.Config.DeadLetterPath(root))

	reminderDispatcher := application.NewReminderDispatcher(repo, ws.Repo, notifier, audit, deadLetters, with("reminders")...)
	reminderDispatcher.SetRetryConfig(ws.Config.RetryConfig())

	fire := reminderDispatcher.Fire
	if bo.planOnly {
		fire = func(_ context.Context, t reminder.Task) error {
			logging.New("queue").Debug("reminder left to serve", "hearing_id", t.HearingID, "offset", t.Offset)
			return nil
		}
	}
	queue := delay.NewTimerQueue(fire, delay.WithLogger(logging.New("queue")))
	reminders := application.NewReminderService(repo, queue, ws.Repo, audit, with("reminders")...)

	cases := application.NewCaseService(repo, with("cases")...)
	hearings := application.NewHearingService(repo, cases, reminders, with("hearings")...)
	resolutions := application.NewResolutionService(repo, cases, reminders, with("resolutions")...)

	return &AppServices{
		Workspace:   ws,
		Store:       repo,
		Events:      dispatcher,
		Hub:         hub,
		Stream:      stream,
		Queue:       queue,
		Notifier:    notifier,
		DeadLetters: deadLetters,
		Audit:       audit,
		Reminders:   reminders,
		Dispatcher:  reminderDispatcher,
		Cases:       cases,
		Hearings:    hearings,
		Resolutions: resolutions,
		Preferences: application.NewPreferencesService(ws.Repo, audit),
	}, nil
}

func buildDispatcher(ws *Workspace, hub *messaging.Hub, stream *sse.Handler) *events.EventDispatcher {
	d := events.NewEventDispatcher(logging.New("events"))
	d.ContinueOnError = true
	d.Register(events.NewLoggingHandler(logging.New("events")).Registration())
	d.Register(events.NewHistoryHandler(ws.Audit, logging.New("history")).Registration())
	d.RegisterWildcard("websocket", hub.HandleEvent)
	d.RegisterWildcard("sse", stream.HandleEvent)

	if url := ws.Config.RemoteSync.URL; url != "" {
		pusher := remotesync.New(url,
			remotesync.WithToken(ws.Config.RemoteSync.Token),
			remotesync.WithTimeout(ws.Config.SyncTimeout()),
			remotesync.WithLogger(logging.New("remotesync")),
		)
		d.RegisterWildcard("remote-sync", pusher.HandleEvent)
	}
	return d
}

// Close stops pending reminders, lets published events finish and releases
// the store and websocket clients.
func (s *AppServices) Close() error {
	s.Queue.Close()
	s.Events.Wait()
	s.Hub.Close()
	return s.Store.Close()
}
