package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// EventHandlerFunc handles a domain event.
type EventHandlerFunc func(ctx context.Context, event DomainEvent) error

// HandlerRegistration binds a named handler to event types. "*" matches all.
type HandlerRegistration struct {
	EventTypes []string
	Handler    EventHandlerFunc
	Name       string
}

// EventDispatcher fans domain events out to registered handlers.
type EventDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	logger   *slog.Logger
	inflight sync.WaitGroup

	// ContinueOnError runs every handler and collects failures instead of
	// stopping at the first one.
	ContinueOnError bool
}

type namedHandler struct {
	name    string
	handler EventHandlerFunc
}

// NewEventDispatcher creates an empty dispatcher. A nil logger uses slog.Default().
func NewEventDispatcher(logger *slog.Logger) *EventDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventDispatcher{
		handlers: make(map[string][]namedHandler),
		logger:   logger,
	}
}

// Register adds a handler for its event types.
func (d *EventDispatcher) Register(reg HandlerRegistration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	nh := namedHandler{name: reg.Name, handler: reg.Handler}
	for _, eventType := range reg.EventTypes {
		d.handlers[eventType] = append(d.handlers[eventType], nh)
	}
}

// RegisterHandler registers handler for the given event types.
func (d *EventDispatcher) RegisterHandler(name string, handler EventHandlerFunc, eventTypes ...string) {
	d.Register(HandlerRegistration{Name: name, Handler: handler, EventTypes: eventTypes})
}

// RegisterWildcard registers handler for every event.
func (d *EventDispatcher) RegisterWildcard(name string, handler EventHandlerFunc) {
	d.RegisterHandler(name, handler, "*")
}

func (d *EventDispatcher) handlersFor(eventType string) []namedHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]namedHandler, 0, len(d.handlers[eventType])+len(d.handlers["*"]))
	out = append(out, d.handlers[eventType]...)
	out = append(out, d.handlers["*"]...)
	return out
}

// Dispatch runs the matching handlers in registration order, specific types
// before wildcards.
func (d *EventDispatcher) Dispatch(ctx context.Context, event DomainEvent) error {
	eventType := event.EventType()

	var errs []error
	for _, nh := range d.handlersFor(eventType) {
		if err := nh.handler(ctx, event); err != nil {
			handlerErr := fmt.Errorf("handler %s failed for event %s: %w", nh.name, eventType, err)
			if !d.ContinueOnError {
				return handlerErr
			}
			errs = append(errs, handlerErr)
		}
	}

	if len(errs) > 0 {
		return &DispatchError{Errors: errs}
	}
	return nil
}

// Publish dispatches without blocking the caller. Failures are logged, never
// returned; the triggering operation has already succeeded.
func (d *EventDispatcher) Publish(ctx context.Context, event DomainEvent) {
	if !d.HasHandlers(event.EventType()) {
		return
	}
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		if err := d.Dispatch(context.WithoutCancel(ctx), event); err != nil {
			d.logger.Warn("event dispatch failed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"error", err)
		}
	}()
}

// Wait blocks until every Publish issued so far has been handled.
func (d *EventDispatcher) Wait() {
	d.inflight.Wait()
}

// DispatchAsync dispatches in a goroutine and reports the result on the returned channel.
func (d *EventDispatcher) DispatchAsync(ctx context.Context, event DomainEvent) <-chan error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Dispatch(ctx, event)
		close(errChan)
	}()
	return errChan
}

// HasHandlers reports whether any handler would receive eventType.
func (d *EventDispatcher) HasHandlers(eventType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventType]) > 0 || len(d.handlers["*"]) > 0
}

// Clear removes all registered handlers.
func (d *EventDispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[string][]namedHandler)
}

// DispatchError collects handler failures when ContinueOnError is set.
type DispatchError struct {
	Errors []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple dispatch errors (%d)", len(e.Errors))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e *DispatchError) Unwrap() []error {
	return e.Errors
}
