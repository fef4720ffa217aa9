// Package messaging provides the reminder delivery channels.
package messaging

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain/messaging"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

// SignatureHeader carries the HMAC of the body when a secret is configured.
const SignatureHeader = "X-Blotter-Signature"

// WebhookPayload is the JSON body posted to webhook endpoints.
type WebhookPayload struct {
	EventType string                `json:"event_type"`
	Timestamp time.Time             `json:"timestamp"`
	Data      reminder.Notification `json:"data"`
}

// WebhookAdapter posts reminders to a generic webhook URL.
type WebhookAdapter struct {
	config messaging.AdapterConfig
	client *http.Client
}

// NewWebhookAdapter creates a webhook adapter from config.
func NewWebhookAdapter(config messaging.AdapterConfig) *WebhookAdapter {
	return &WebhookAdapter{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *WebhookAdapter) Name() string { return a.config.Name }
func (a *WebhookAdapter) Type() string { return messaging.TypeWebhook }

func (a *WebhookAdapter) Notify(ctx context.Context, n reminder.Notification) error {
	body, err := json.Marshal(WebhookPayload{
		EventType: "hearing.reminder",
		Timestamp: time.Now().UTC(),
		Data:      n,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Blotter-Reminders/1.0")
	if a.config.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, a.config.Secret))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Sign computes HMAC-SHA256 of the payload using the secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
