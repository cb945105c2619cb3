package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/francis/platform/internal/domain"
	"github.com/francis/platform/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SubscriptionHandler exposes the webhook subscription API.
type SubscriptionHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(reg *registry.Registry, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{registry: reg, logger: logger}
}

type subscribeRequest struct {
	ClientID   string   `json:"clientId"`
	EventTypes []string `json:"eventTypes"`
	Endpoint   string   `json:"endpoint"`
	Secret     string   `json:"secret"`
}

// subscriptionView is the API representation. The signing secret is never
// echoed back.
type subscriptionView struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"clientId"`
	EventTypes   []string   `json:"eventTypes"`
	Endpoint     string     `json:"endpoint"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastDelivery *time.Time `json:"lastDelivery,omitempty"`
	FailureCount int        `json:"failureCount"`
}

func toView(s domain.Subscription) subscriptionView {
	types := make([]string, len(s.EventTypes))
	for i, t := range s.EventTypes {
		types[i] = string(t)
	}
	return subscriptionView{
		ID:           s.ID.String(),
		ClientID:     s.ClientID,
		EventTypes:   types,
		Endpoint:     s.Endpoint,
		Active:       s.Active,
		CreatedAt:    s.CreatedAt,
		LastDelivery: s.LastDelivery,
		FailureCount: s.FailureCount,
	}
}

// Subscribe handles POST /subscriptions.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	types := make([]domain.EventType, len(req.EventTypes))
	for i, t := range req.EventTypes {
		types[i] = domain.EventType(t)
	}

	id, err := h.registry.Subscribe(domain.SubscriptionSpec{
		ClientID:   req.ClientID,
		EventTypes: types,
		Endpoint:   req.Endpoint,
		Secret:     req.Secret,
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	h.logger.Info("subscription created", "subscription_id", id, "client_id", req.ClientID)
	RespondJSON(w, http.StatusCreated, map[string]string{"subscriptionId": id.String()})
}

// Unsubscribe handles DELETE /subscriptions/{id}.
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid subscription ID"))
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		RespondError(w, domain.ErrValidation("clientId query parameter is required"))
		return
	}

	if !h.registry.Unsubscribe(id, clientID) {
		RespondError(w, domain.ErrNotFound("subscription", id.String()))
		return
	}

	h.logger.Info("subscription removed", "subscription_id", id, "client_id", clientID)
	RespondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// List handles GET /subscriptions.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		RespondError(w, domain.ErrValidation("clientId query parameter is required"))
		return
	}

	subs := h.registry.ByClient(clientID)
	views := make([]subscriptionView, len(subs))
	for i, s := range subs {
		views[i] = toView(s)
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": views})
}
