package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/francis/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAccountCache_Refresh(t *testing.T) {
	c := NewAccountCache()

	_, ok := c.LastRefreshed("client-1", "acc-1")
	assert.False(t, ok)

	require.NoError(t, c.RefreshAccounts(context.Background(), "client-1", []string{"acc-1", "acc-2"}))

	_, ok = c.LastRefreshed("client-1", "acc-1")
	assert.True(t, ok)
	_, ok = c.LastRefreshed("client-2", "acc-1")
	assert.False(t, ok)
}

func TestQuoteCache_Update(t *testing.T) {
	c := NewQuoteCache()

	require.NoError(t, c.UpdateQuotes(context.Background(), []string{"AAPL"}))

	_, ok := c.LastUpdated("AAPL")
	assert.True(t, ok)
	_, ok = c.LastUpdated("MSFT")
	assert.False(t, ok)
}

func TestRecalcScheduler_CoalescesReasons(t *testing.T) {
	s := NewRecalcScheduler()

	require.NoError(t, s.TriggerRecalculation(context.Background(), "client-1", "new transaction"))
	require.NoError(t, s.TriggerRecalculation(context.Background(), "client-1", "new transaction"))
	require.NoError(t, s.TriggerRecalculation(context.Background(), "client-1", "regulation change"))

	assert.Len(t, s.Pending("client-1"), 2)
	assert.Empty(t, s.Pending("client-2"))
}

func TestThresholdAnomalyChecker(t *testing.T) {
	c := &ThresholdAnomalyChecker{Limit: 1000}

	flagged, err := c.CheckTransaction(context.Background(), "client-1", &domain.TransactionPayload{Amount: 999})
	require.NoError(t, err)
	assert.False(t, flagged)

	flagged, err = c.CheckTransaction(context.Background(), "client-1", &domain.TransactionPayload{Amount: 1000})
	require.NoError(t, err)
	assert.True(t, flagged)

	flagged, err = c.CheckTransaction(context.Background(), "client-1", &domain.TransactionPayload{Amount: -1500})
	require.NoError(t, err)
	assert.True(t, flagged, "withdrawals count by absolute value")
}

func TestProfileStore_KeyedByDocumentID(t *testing.T) {
	s := NewProfileStore()

	doc := &domain.DocumentPayload{DocumentID: "doc-1", Classification: "W2", Confidence: 0.9}
	require.NoError(t, s.ApplyDocument(context.Background(), "client-1", doc))
	require.NoError(t, s.ApplyDocument(context.Background(), "client-1", doc))

	assert.Len(t, s.Documents("client-1"), 1, "redelivery does not duplicate")
}

func TestPushClient_DisabledIsNoop(t *testing.T) {
	c := NewPushClient("", "", testLogger())
	require.NoError(t, c.Notify(context.Background(), "client-1", "t", "m"))
}

func TestPushClient_SendsAuthorizedRequest(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewPushClient(srv.URL, "key-1", testLogger())
	require.NoError(t, c.Notify(context.Background(), "client-1", "Unusual transaction", "details"))

	assert.Equal(t, "Bearer key-1", gotAuth)
	assert.Equal(t, "client-1", gotBody["clientId"])
	assert.Equal(t, "Unusual transaction", gotBody["title"])
}

func TestPushClient_GatewayErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewPushClient(srv.URL, "", testLogger())
	err := c.Notify(context.Background(), "client-1", "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
