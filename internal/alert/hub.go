// Package alert fans administrator alerts out to attached listeners and keeps
// a bounded history for the admin API.
package alert

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity classifies an alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is a single administrator notification. Abandoned HIGH-priority
// events produce CRITICAL alerts.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	EventID   string    `json:"eventId,omitempty"`
	EventType string    `json:"eventType,omitempty"`
	ClientID  string    `json:"clientId,omitempty"`
	At        time.Time `json:"at"`
}

// Hub distributes alerts to listener channels (ops dashboards) and retains
// the most recent entries in a ring.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]chan Alert
	recent    []Alert
	maxRecent int
	logger    *slog.Logger
}

// NewHub creates a hub retaining up to maxRecent alerts. maxRecent <= 0
// defaults to 100.
func NewHub(maxRecent int, logger *slog.Logger) *Hub {
	if maxRecent <= 0 {
		maxRecent = 100
	}
	return &Hub{
		listeners: make(map[string]chan Alert),
		maxRecent: maxRecent,
		logger:    logger,
	}
}

// Publish records the alert and sends it to every listener. Listeners with a
// full buffer are skipped rather than blocking the scheduler.
func (h *Hub) Publish(a Alert) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}

	h.mu.Lock()
	h.recent = append(h.recent, a)
	if len(h.recent) > h.maxRecent {
		h.recent = h.recent[len(h.recent)-h.maxRecent:]
	}
	for id, ch := range h.listeners {
		select {
		case ch <- a:
		default:
			h.logger.Warn("alert listener buffer full", "listener", id, "alert_id", a.ID)
		}
	}
	h.mu.Unlock()

	h.logger.Info("admin alert",
		"alert_id", a.ID,
		"severity", a.Severity,
		"message", a.Message,
		"event_id", a.EventID,
		"client_id", a.ClientID,
	)
}

// Attach registers a listener and returns its channel.
func (h *Hub) Attach(id string, buffer int) <-chan Alert {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Alert, buffer)
	h.mu.Lock()
	h.listeners[id] = ch
	h.mu.Unlock()
	return ch
}

// Detach removes a listener and closes its channel.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		close(ch)
		delete(h.listeners, id)
	}
}

// Recent returns the retained alerts, newest last.
func (h *Hub) Recent() []Alert {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Alert, len(h.recent))
	copy(out, h.recent)
	return out
}

// Shutdown closes all listener channels.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.listeners {
		close(ch)
		delete(h.listeners, id)
	}
}
