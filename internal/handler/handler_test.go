package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/francis/platform/internal/app"
	"github.com/francis/platform/internal/infra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := &infra.Config{
		APIPort:            3200,
		TickInterval:       2 * time.Second,
		MaxConcurrent:      5,
		HandlerTimeout:     30 * time.Second,
		DeliveryTimeout:    10 * time.Second,
		QueueCapacity:      100,
		HighValueThreshold: 1000,
		AnomalyThreshold:   500000,
		AlertHistory:       10,
	}
	a := app.New(app.Deps{
		Cfg:    cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(a.Alerts.Shutdown)
	return a
}

func doJSON(t *testing.T, a *app.App, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestEnqueueEndpoint_Accepted(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/events", map[string]any{
		"type":     "TRANSACTION_NEW",
		"source":   "bank-gateway",
		"clientId": "client-1",
		"data": map[string]any{
			"transactionId": "tx-1",
			"accountId":     "acc-1",
			"amount":        2500,
			"currency":      "EUR",
		},
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["eventId"])
	assert.Equal(t, 1, a.Events.Stats().PendingEvents)
}

func TestEnqueueEndpoint_UnknownTypeRejected(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/events", map[string]any{
		"type":     "NOPE",
		"clientId": "client-1",
		"data":     map[string]any{},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, 0, a.Events.Stats().PendingEvents, "rejected events never enter the queue")
}

func TestEnqueueEndpoint_MalformedJSON(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(`{"type":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueEndpoint_InvalidPriorityOverride(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/events", map[string]any{
		"type":     "MARKET_DATA_UPDATE",
		"clientId": "client-1",
		"priority": "URGENT",
		"data":     map[string]any{"symbols": []string{"AAPL"}},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBankingEndpoint_RejectsNonBankingType(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/events/banking", map[string]any{
		"type":     "MARKET_DATA_UPDATE",
		"clientId": "client-1",
		"data":     map[string]any{"symbols": []string{"AAPL"}},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBankingEndpoint_Accepted(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/events/banking", map[string]any{
		"type":     "ACCOUNT_SYNC",
		"source":   "nordigen",
		"clientId": "client-1",
		"data": map[string]any{
			"provider":   "nordigen",
			"accountIds": []string{"acc-1"},
		},
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
}

func TestComplianceEndpoint_Accepted(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/events/compliance", map[string]any{
		"source":   "watchlist",
		"clientId": "client-1",
		"data": map[string]any{
			"subtype": "SANCTION_ALERT",
			"details": "entity match",
		},
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
}

func TestDocumentEndpoint_ValidationApplied(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/events/documents", map[string]any{
		"clientId": "client-1",
		"data": map[string]any{
			"documentId":     "doc-1",
			"classification": "W2",
			"confidence":     1.5,
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketDataEndpoint_Accepted(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/events/market-data", map[string]any{
		"clientId": "client-1",
		"data":     map[string]any{"symbols": []string{"AAPL", "MSFT"}},
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
}

func TestSubscriptionLifecycle(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/subscriptions", map[string]any{
		"clientId":   "client-1",
		"eventTypes": []string{"TRANSACTION_NEW"},
		"endpoint":   "https://hooks.example.com/x",
		"secret":     "s3cret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	subID := decodeBody(t, rec)["subscriptionId"].(string)
	require.NotEmpty(t, subID)

	// The list view never echoes the secret.
	rec = doJSON(t, a, http.MethodGet, "/subscriptions?clientId=client-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3cret")
	assert.Contains(t, rec.Body.String(), subID)

	// Wrong owner cannot remove it.
	rec = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/subscriptions/%s?clientId=intruder", subID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/subscriptions/%s?clientId=client-1", subID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, a, http.MethodGet, "/subscriptions?clientId=client-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), subID)
}

func TestSubscribe_InvalidSpecRejected(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/subscriptions", map[string]any{
		"clientId":   "client-1",
		"eventTypes": []string{"TRANSACTION_NEW"},
		"endpoint":   "ftp://example.com/x",
		"secret":     "s",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminQueueStats(t *testing.T) {
	a := newTestApp(t)

	doJSON(t, a, http.MethodPost, "/events/market-data", map[string]any{
		"clientId": "client-1",
		"data":     map[string]any{"symbols": []string{"AAPL"}},
	})

	rec := doJSON(t, a, http.MethodGet, "/admin/queue/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["totalEvents"])
	assert.EqualValues(t, 1, body["pendingEvents"])
	assert.EqualValues(t, 0, body["failedEvents"])
}

func TestAdminAlerts_EmptyByDefault(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodGet, "/admin/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Alerts []json.RawMessage `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Alerts)
}

func TestHealth_AuditDisabled(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["audit"])
}
