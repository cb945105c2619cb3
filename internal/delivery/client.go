// Package delivery sends signed webhook callbacks to registered subscribers.
package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/francis/platform/internal/domain"
)

// DefaultTimeout bounds a single delivery attempt so a slow subscriber cannot
// occupy a processing slot indefinitely.
const DefaultTimeout = 10 * time.Second

// webhookBody is the wire contract for outbound callbacks. Field order and
// names must stay stable for subscriber signature verification.
type webhookBody struct {
	EventID   string         `json:"eventId"`
	Type      string         `json:"type"`
	ClientID  string         `json:"clientId"`
	Timestamp string         `json:"timestamp"`
	Data      domain.Payload `json:"data"`
}

// Client delivers events to subscriber endpoints over HTTP POST.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a delivery client. timeout <= 0 uses DefaultTimeout.
func New(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Sign computes the hex HMAC-SHA256 of body under secret. Signing the same
// body with the same secret is deterministic.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Body builds the canonical JSON body for an event. Exposed so tests and
// subscriber tooling can reproduce the signed bytes exactly.
func Body(ev *domain.DomainEvent) ([]byte, error) {
	b, err := json.Marshal(webhookBody{
		EventID:   ev.ID.String(),
		Type:      string(ev.Type),
		ClientID:  ev.ClientID,
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
		Data:      ev.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal webhook body: %w", err)
	}
	return b, nil
}

// Deliver POSTs the signed event to the subscription endpoint. Any non-2xx
// response or transport error is a failure. The caller owns the consequences
// (failure counting, deactivation); delivery never touches event state.
func (c *Client) Deliver(ctx context.Context, sub domain.Subscription, ev *domain.DomainEvent) error {
	body, err := Body(ev)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Francis-Signature", Sign(sub.Secret, body))
	req.Header.Set("X-Francis-Event-Type", string(ev.Type))
	req.Header.Set("X-Francis-Event-Id", ev.ID.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook transport: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	c.logger.Debug("webhook delivered",
		"subscription_id", sub.ID,
		"event_id", ev.ID,
		"event_type", ev.Type,
		"endpoint", sub.Endpoint,
	)
	return nil
}
