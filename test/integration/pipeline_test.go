//go:build integration

package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/francis/platform/internal/delivery"
	"github.com/francis/platform/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_EndToEndWebhookDelivery(t *testing.T) {
	env := testutil.NewTestEnv(t)

	var received atomic.Int32
	var lastSig, lastBody atomic.Value
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(body)
		lastSig.Store(r.Header.Get("X-Francis-Signature"))
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	resp := env.POST(t, "/subscriptions", map[string]interface{}{
		"clientId":   "client-1",
		"eventTypes": []string{"TRANSACTION_NEW"},
		"endpoint":   hook.URL,
		"secret":     "wh-secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.POST(t, "/events", map[string]interface{}{
		"type":     "TRANSACTION_NEW",
		"source":   "bank-gateway",
		"clientId": "client-1",
		"data": map[string]interface{}{
			"transactionId": "tx-e2e",
			"accountId":     "acc-1",
			"amount":        250000,
			"currency":      "EUR",
		},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	testutil.Eventually(t, 5*time.Second, func() bool {
		return received.Load() == 1
	}, "webhook not delivered")

	body := lastBody.Load().([]byte)
	sig := lastSig.Load().(string)
	assert.Equal(t, delivery.Sign("wh-secret", body), sig)

	stats := env.App.Events.Stats()
	assert.Equal(t, 0, stats.PendingEvents)
}

func TestPipeline_FailingEndpointRetriedAndCounted(t *testing.T) {
	env := testutil.NewTestEnv(t)

	var hits atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer hook.Close()

	resp := env.POST(t, "/subscriptions", map[string]interface{}{
		"clientId":   "client-1",
		"eventTypes": []string{"MARKET_DATA_UPDATE"},
		"endpoint":   hook.URL,
		"secret":     "s",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		SubscriptionID string `json:"subscriptionId"`
	}
	testutil.DecodeJSON(t, resp, &created)

	resp = env.POST(t, "/events/market-data", map[string]interface{}{
		"clientId": "client-1",
		"data":     map[string]interface{}{"symbols": []string{"AAPL"}},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	// Handler success is decoupled from delivery: the event processes once and
	// the failed delivery only bumps the subscription failure counter.
	testutil.Eventually(t, 5*time.Second, func() bool {
		return hits.Load() == 1 && env.App.Events.Stats().PendingEvents == 0
	}, "event not processed")

	resp = env.GET(t, "/subscriptions?clientId=client-1")
	var listed struct {
		Subscriptions []struct {
			ID           string `json:"id"`
			Active       bool   `json:"active"`
			FailureCount int    `json:"failureCount"`
		} `json:"subscriptions"`
	}
	testutil.DecodeJSON(t, resp, &listed)
	require.Len(t, listed.Subscriptions, 1)
	assert.Equal(t, 1, listed.Subscriptions[0].FailureCount)
	assert.True(t, listed.Subscriptions[0].Active)
}

func TestPipeline_AdminStatsTrackProcessing(t *testing.T) {
	env := testutil.NewTestEnv(t)

	for i := 0; i < 3; i++ {
		resp := env.POST(t, "/events/market-data", map[string]interface{}{
			"clientId": "client-1",
			"data":     map[string]interface{}{"symbols": []string{"AAPL"}},
		})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		resp.Body.Close()
	}

	testutil.Eventually(t, 5*time.Second, func() bool {
		return env.App.Events.Stats().PendingEvents == 0
	}, "queue did not drain")

	resp := env.GET(t, "/admin/queue/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		TotalEvents   int `json:"totalEvents"`
		PendingEvents int `json:"pendingEvents"`
		FailedEvents  int `json:"failedEvents"`
	}
	testutil.DecodeJSON(t, resp, &stats)
	assert.Equal(t, 3, stats.TotalEvents)
	assert.Equal(t, 0, stats.PendingEvents)
	assert.Equal(t, 0, stats.FailedEvents)
}

func TestPipeline_HighPriorityProcessedBeforeTick(t *testing.T) {
	env := testutil.NewTestEnv(t)

	// Sanction alerts are HIGH priority and wake the scheduler immediately.
	resp := env.POST(t, "/events/compliance", map[string]interface{}{
		"source":   "watchlist",
		"clientId": "client-1",
		"data": map[string]interface{}{
			"subtype": "SANCTION_ALERT",
			"details": "entity match",
		},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	testutil.Eventually(t, 2*time.Second, func() bool {
		return env.App.Events.Stats().PendingEvents == 0
	}, "sanction alert not processed")
}
