package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// PushClient sends push notifications through the notification gateway. If no
// base URL is configured, sends are no-ops.
type PushClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewPushClient creates a push gateway client.
func NewPushClient(baseURL, apiKey string, logger *slog.Logger) *PushClient {
	if baseURL == "" {
		logger.Info("push gateway disabled")
	}
	return &PushClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Notify sends a push notification to all of the client's registered devices.
func (c *PushClient) Notify(ctx context.Context, clientID, title, message string) error {
	if c.baseURL == "" {
		c.logger.Debug("push skipped (gateway disabled)", "client_id", clientID, "title", title)
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"clientId": clientID,
		"title":    title,
		"message":  message,
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("push gateway error (status %d): %s", resp.StatusCode, string(b))
	}
	return nil
}
