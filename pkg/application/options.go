// Package application holds the use cases that drive a case from intake to
// resolution and keep its hearing reminders in step.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain/events"
)

// EventPublisher receives domain events after a use case has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent)
}

type serviceOptions struct {
	now       func() time.Time
	location  *time.Location
	logger    *slog.Logger
	publisher EventPublisher
}

// Option customises a service.
type Option func(*serviceOptions)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// WithLocation sets the zone hearing date strings are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(o *serviceOptions) { o.location = loc }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) { o.logger = l }
}

// WithPublisher sets where domain events go.
func WithPublisher(p EventPublisher) Option {
	return func(o *serviceOptions) { o.publisher = p }
}

func newServiceOptions(opts []Option) serviceOptions {
	o := serviceOptions{
		now:      time.Now,
		location: time.Local,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o serviceOptions) publish(ctx context.Context, e events.DomainEvent) {
	if o.publisher != nil {
		o.publisher.Publish(ctx, e)
	}
}
