//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/francis/platform/internal/app"
	"github.com/francis/platform/internal/infra"
)

// TestEnv runs the full pipeline behind a live HTTP server: real router, real
// scheduler loop on a fast tick, real webhook delivery client. No Postgres or
// Kafka; the audit archive and mirror stay disabled.
type TestEnv struct {
	App    *app.App
	Server *httptest.Server
	cancel context.CancelFunc
}

// NewTestEnv boots the pipeline and registers teardown on t.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	cfg := &infra.Config{
		APIPort:            0,
		TickInterval:       20 * time.Millisecond,
		MaxConcurrent:      5,
		HandlerTimeout:     5 * time.Second,
		DeliveryTimeout:    2 * time.Second,
		QueueCapacity:      1000,
		HighValueThreshold: 1000,
		AnomalyThreshold:   500000,
		AlertHistory:       100,
	}

	a := app.New(app.Deps{
		Cfg:    cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	a.Processor.Start(ctx)

	srv := httptest.NewServer(a.Router)

	env := &TestEnv{App: a, Server: srv, cancel: cancel}
	t.Cleanup(func() {
		srv.Close()
		cancel()
		a.Processor.Wait()
		a.Alerts.Shutdown()
	})
	return env
}

// POST sends a JSON body to the pipeline API.
func (env *TestEnv) POST(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("POST %s: marshal: %v", path, err)
	}
	resp, err := http.Post(env.Server.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// GET fetches a path from the pipeline API.
func (env *TestEnv) GET(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// DELETE issues a DELETE against the pipeline API.
func (env *TestEnv) DELETE(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, env.Server.URL+path, nil)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	return resp
}

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// Eventually polls cond until it returns true or the deadline passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}
