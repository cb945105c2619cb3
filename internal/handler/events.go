package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/francis/platform/internal/domain"
	"github.com/francis/platform/internal/service"
	"github.com/google/uuid"
)

// EventHandler exposes the ingestion API over HTTP.
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

type enqueueRequest struct {
	Type       string          `json:"type"`
	Source     string          `json:"source"`
	ClientID   string          `json:"clientId"`
	Priority   string          `json:"priority,omitempty"`
	MaxRetries int             `json:"maxRetries,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func (req *enqueueRequest) options() (service.EnqueueOptions, error) {
	opts := service.EnqueueOptions{MaxRetries: req.MaxRetries}
	if req.Priority != "" {
		prio, ok := domain.ParsePriority(req.Priority)
		if !ok {
			return opts, domain.ErrValidation("priority must be HIGH, MEDIUM or LOW")
		}
		opts.Priority = &prio
	}
	return opts, nil
}

func respondEnqueued(w http.ResponseWriter, id uuid.UUID) {
	RespondJSON(w, http.StatusAccepted, map[string]string{"eventId": id.String()})
}

// Enqueue handles POST /events.
func (h *EventHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	payload, err := domain.ParsePayload(domain.EventType(req.Type), req.Data)
	if err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}

	opts, err := req.options()
	if err != nil {
		RespondError(w, err)
		return
	}

	id, err := h.events.Enqueue(domain.EventType(req.Type), req.Source, req.ClientID, payload, opts)
	if err != nil {
		RespondError(w, err)
		return
	}
	respondEnqueued(w, id)
}

// EnqueueBanking handles POST /events/banking.
func (h *EventHandler) EnqueueBanking(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	payload, err := domain.ParsePayload(domain.EventType(req.Type), req.Data)
	if err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}

	id, err := h.events.HandleBankingEvent(domain.EventType(req.Type), req.Source, req.ClientID, payload)
	if err != nil {
		RespondError(w, err)
		return
	}
	respondEnqueued(w, id)
}

// EnqueueCompliance handles POST /events/compliance.
func (h *EventHandler) EnqueueCompliance(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	var payload domain.CompliancePayload
	if len(req.Data) == 0 {
		RespondError(w, domain.ErrValidation("data is required"))
		return
	}
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		RespondError(w, domain.ErrValidation("invalid compliance payload"))
		return
	}

	id, err := h.events.HandleComplianceEvent(req.Source, req.ClientID, &payload)
	if err != nil {
		RespondError(w, err)
		return
	}
	respondEnqueued(w, id)
}

// EnqueueDocument handles POST /events/documents.
func (h *EventHandler) EnqueueDocument(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	var payload domain.DocumentPayload
	if len(req.Data) == 0 {
		RespondError(w, domain.ErrValidation("data is required"))
		return
	}
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		RespondError(w, domain.ErrValidation("invalid document payload"))
		return
	}

	id, err := h.events.HandleDocumentEvent(req.Source, req.ClientID, &payload)
	if err != nil {
		RespondError(w, err)
		return
	}
	respondEnqueued(w, id)
}

// EnqueueMarketData handles POST /events/market-data.
func (h *EventHandler) EnqueueMarketData(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	var payload domain.MarketDataPayload
	if len(req.Data) == 0 {
		RespondError(w, domain.ErrValidation("data is required"))
		return
	}
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		RespondError(w, domain.ErrValidation("invalid market data payload"))
		return
	}

	id, err := h.events.HandleMarketDataEvent(req.Source, req.ClientID, &payload)
	if err != nil {
		RespondError(w, err)
		return
	}
	respondEnqueued(w, id)
}
