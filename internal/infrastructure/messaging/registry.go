package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain/messaging"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

// Registry creates channels from configuration and fans reminders out to them.
type Registry struct {
	channels []route
	hub      *Hub
	logger   *slog.Logger

	mu        sync.Mutex
	delivered map[string]map[string]bool
}

type route struct {
	config  messaging.AdapterConfig
	channel messaging.Channel
}

var (
	_ reminder.Notifier  = (*Registry)(nil)
	_ reminder.Forgetter = (*Registry)(nil)
)

// FallbackChannel names the log channel used when nothing else is enabled.
const FallbackChannel = "log"

// NewRegistry creates channels from a MessagingConfig. hub backs websocket
// channels and may be nil when none are configured. With no enabled
// adapters, reminders go to a log channel.
func NewRegistry(config *messaging.MessagingConfig, hub *Hub, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{hub: hub, logger: logger, delivered: make(map[string]map[string]bool)}

	if config != nil {
		for _, cfg := range config.Adapters {
			if !cfg.Enabled {
				continue
			}

			ch, err := r.createChannel(cfg)
			if err != nil {
				return nil, fmt.Errorf("create adapter %q: %w", cfg.Name, err)
			}
			r.channels = append(r.channels, route{config: cfg, channel: ch})
		}
	}

	if len(r.channels) == 0 {
		cfg := messaging.AdapterConfig{Name: FallbackChannel, Type: messaging.TypeLog, Enabled: true}
		r.channels = append(r.channels, route{config: cfg, channel: NewLogAdapter(cfg, logger)})
	}
	return r, nil
}

// Channels returns all active channels.
func (r *Registry) Channels() []messaging.Channel {
	out := make([]messaging.Channel, 0, len(r.channels))
	for _, rt := range r.channels {
		out = append(out, rt.channel)
	}
	return out
}

// Notify sends n to every channel that accepts its offset. Channels that
// already took n are skipped when the caller retries, so a retry only
// re-sends to the channels that failed.
func (r *Registry) Notify(ctx context.Context, n reminder.Notification) error {
	key := deliveryKey(n)

	var errs []error
	for _, rt := range r.channels {
		if !rt.config.Accepts(n.Offset) || r.wasDelivered(key, rt.config.Name) {
			continue
		}
		if err := rt.channel.Notify(ctx, n); err != nil {
			r.logger.Warn("reminder channel failed", "channel", rt.config.Name, "hearing_id", n.HearingID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", rt.config.Name, err))
			continue
		}
		r.markDelivered(key, rt.config.Name)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.forget(key)
	return nil
}

// Forget drops what Notify remembered about n after a partial failure.
func (r *Registry) Forget(n reminder.Notification) {
	r.forget(deliveryKey(n))
}

// Pending reports how many notifications have partial deliveries on record.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delivered)
}

func deliveryKey(n reminder.Notification) string {
	return n.HearingID + "/" + string(n.Offset) + "/" + n.At.UTC().Format(time.RFC3339)
}

func (r *Registry) wasDelivered(key, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delivered[key][channel]
}

func (r *Registry) markDelivered(key, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delivered[key] == nil {
		r.delivered[key] = make(map[string]bool)
	}
	r.delivered[key][channel] = true
}

func (r *Registry) forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.delivered, key)
}

func (r *Registry) createChannel(cfg messaging.AdapterConfig) (messaging.Channel, error) {
	switch cfg.Type {
	case messaging.TypeWebhook:
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook adapter needs a url")
		}
		return NewWebhookAdapter(cfg), nil
	case messaging.TypeSlack:
		if cfg.URL == "" {
			return nil, fmt.Errorf("slack adapter needs a url")
		}
		return NewSlackAdapter(cfg), nil
	case messaging.TypeLog:
		return NewLogAdapter(cfg, r.logger), nil
	case messaging.TypeWebSocket:
		if r.hub == nil {
			return nil, fmt.Errorf("websocket adapter configured but no hub is running")
		}
		return r.hub.Channel(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", cfg.Type)
	}
}
