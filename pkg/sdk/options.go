package sdk

import (
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

type options struct {
	timeout time.Duration
	retry   retry.Config
	actor   string
}

func defaultOptions() options {
	return options{
		timeout: 30 * time.Second,
		retry: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  500 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Option configures the SDK client.
type Option func(*options)

// WithTimeout bounds each MCP request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetry sets how often a failed transport call is attempted. Tool errors
// are never retried.
func WithRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(o *options) {
		o.retry.MaxAttempts = maxAttempts
		o.retry.InitialDelay = initialDelay
	}
}

// WithActor records actor in the history of every change made through the
// client unless a call names its own actor.
func WithActor(actor string) Option {
	return func(o *options) { o.actor = actor }
}
