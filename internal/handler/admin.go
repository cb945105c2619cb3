package handler

import (
	"net/http"
	"time"

	"github.com/francis/platform/internal/alert"
	"github.com/francis/platform/internal/service"
)

// AdminHandler serves the operational monitoring surface.
type AdminHandler struct {
	events *service.EventService
	alerts *alert.Hub
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(events *service.EventService, alerts *alert.Hub) *AdminHandler {
	return &AdminHandler{events: events, alerts: alerts}
}

// QueueStats handles GET /admin/queue/stats.
func (h *AdminHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats := h.events.Stats()
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"totalEvents":             stats.TotalEvents,
		"pendingEvents":           stats.PendingEvents,
		"failedEvents":            stats.FailedEvents,
		"averageProcessingTimeMs": float64(stats.AverageProcessingTime) / float64(time.Millisecond),
	})
}

// Alerts handles GET /admin/alerts.
func (h *AdminHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]interface{}{"alerts": h.alerts.Recent()})
}
