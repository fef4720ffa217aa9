// Package remotesync pushes domain events to an external HTTP endpoint.
// Pushes are best effort; a failed push is logged and never surfaces to the
// operation that produced the event.
package remotesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/felixgeelhaar/blotter/pkg/domain/events"
)

const DefaultTimeout = 5 * time.Second

// Pusher posts each event's payload as JSON to a single URL.
type Pusher struct {
	url     string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

type Option func(*Pusher)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Pusher) {
		if c != nil {
			p.client = c
		}
	}
}

// WithToken sends an Authorization bearer token with every push.
func WithToken(token string) Option {
	return func(p *Pusher) { p.token = token }
}

func WithTimeout(d time.Duration) Option {
	return func(p *Pusher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pusher) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(url string, opts ...Option) *Pusher {
	p := &Pusher{
		url:     url,
		timeout: DefaultTimeout,
		client:  &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleEvent pushes e within the configured deadline. It matches
// events.EventHandlerFunc.
func (p *Pusher) HandleEvent(ctx context.Context, e events.DomainEvent) error {
	body, err := json.Marshal(events.Payload(e))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	t := timeout.New[int](timeout.Config{DefaultTimeout: p.timeout})
	status, err := t.Execute(ctx, p.timeout, func(ctx context.Context) (int, error) {
		return p.post(ctx, body)
	})
	if err != nil {
		p.logger.Warn("remote sync push failed",
			"event_type", e.EventType(),
			"aggregate_id", e.AggregateID(),
			"error", err)
		return fmt.Errorf("remote sync: %w", err)
	}
	p.logger.Debug("remote sync pushed", "event_type", e.EventType(), "status", status)
	return nil
}

func (p *Pusher) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "blotter-sync/1.0")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
