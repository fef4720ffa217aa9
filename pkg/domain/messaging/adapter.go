// Package messaging defines the pluggable reminder delivery channels.
package messaging

import (
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

// Channel types.
const (
	TypeWebhook   = "webhook"
	TypeSlack     = "slack"
	TypeWebSocket = "websocket"
	TypeLog       = "log"
)

// Channel delivers reminders to one destination.
type Channel interface {
	reminder.Notifier
	Name() string
	Type() string
}

// AdapterConfig configures one channel.
type AdapterConfig struct {
	Name    string            `yaml:"name" json:"name"`
	Type    string            `yaml:"type" json:"type"`
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	Secret  string            `yaml:"secret,omitempty" json:"secret,omitempty"`
	Offsets []string          `yaml:"offsets,omitempty" json:"offsets,omitempty"` // empty = all offsets
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Options map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

// Accepts reports whether the channel wants reminders for offset o.
func (c AdapterConfig) Accepts(o reminder.OffsetType) bool {
	if len(c.Offsets) == 0 {
		return true
	}
	for _, f := range c.Offsets {
		if f == string(o) {
			return true
		}
	}
	return false
}

// MessagingConfig is the serialized form of messaging.yaml.
type MessagingConfig struct {
	Adapters []AdapterConfig `yaml:"adapters" json:"adapters"`
}

// DeadLetter records a reminder that exhausted its delivery retries.
type DeadLetter struct {
	Timestamp time.Time `json:"timestamp"`
	HearingID string    `json:"hearing_id"`
	Offset    string    `json:"offset"`
	Channel   string    `json:"channel,omitempty"`
	Payload   string    `json:"payload"`
	Error     string    `json:"error"`
	Attempts  int       `json:"attempts"`
}
