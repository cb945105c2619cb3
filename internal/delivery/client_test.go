package delivery

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/francis/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvent() *domain.DomainEvent {
	return &domain.DomainEvent{
		ID:        uuid.New(),
		Type:      domain.EventTransactionNew,
		Source:    "bank-gateway",
		ClientID:  "client-1",
		Timestamp: time.Date(2026, 8, 28, 14, 5, 0, 0, time.UTC),
		Payload: &domain.TransactionPayload{
			TransactionID: "tx-9",
			AccountID:     "acc-1",
			Amount:        2500,
			Currency:      "EUR",
		},
		Priority:   domain.PriorityHigh,
		MaxRetries: domain.BankingMaxRetries,
	}
}

func TestDeliver_SendsSignedBodyAndHeaders(t *testing.T) {
	ev := sampleEvent()
	sub := domain.Subscription{
		ID:       uuid.New(),
		ClientID: "client-1",
		Secret:   "topsecret",
	}

	var gotBody []byte
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	sub.Endpoint = srv.URL

	c := New(0, testLogger())
	require.NoError(t, c.Deliver(context.Background(), sub, ev))

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, string(ev.Type), gotHeaders.Get("X-Francis-Event-Type"))
	assert.Equal(t, ev.ID.String(), gotHeaders.Get("X-Francis-Event-Id"))
	assert.Equal(t, Sign(sub.Secret, gotBody), gotHeaders.Get("X-Francis-Signature"))

	var decoded struct {
		EventID   string          `json:"eventId"`
		Type      string          `json:"type"`
		ClientID  string          `json:"clientId"`
		Timestamp string          `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, ev.ID.String(), decoded.EventID)
	assert.Equal(t, "TRANSACTION_NEW", decoded.Type)
	assert.Equal(t, "client-1", decoded.ClientID)
	assert.Equal(t, "2026-08-28T14:05:00Z", decoded.Timestamp)
	assert.NotEmpty(t, decoded.Data)
}

func TestDeliver_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sub := domain.Subscription{ID: uuid.New(), ClientID: "client-1", Endpoint: srv.URL, Secret: "s"}
	c := New(0, testLogger())

	err := c.Deliver(context.Background(), sub, sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestDeliver_TransportErrorIsError(t *testing.T) {
	sub := domain.Subscription{ID: uuid.New(), ClientID: "client-1", Endpoint: "http://127.0.0.1:1", Secret: "s"}
	c := New(500*time.Millisecond, testLogger())

	err := c.Deliver(context.Background(), sub, sampleEvent())
	require.Error(t, err)
}

func TestSign_DeterministicAndBodySensitive(t *testing.T) {
	body := []byte(`{"eventId":"e1","type":"TRANSACTION_NEW"}`)

	first := Sign("secret", body)
	second := Sign("secret", body)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = 'X'
	assert.NotEqual(t, first, Sign("secret", tampered))
	assert.NotEqual(t, first, Sign("other", body))
}

func TestBody_StableShape(t *testing.T) {
	ev := sampleEvent()

	b1, err := Body(ev)
	require.NoError(t, err)
	b2, err := Body(ev)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}
