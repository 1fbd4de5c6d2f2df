package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftpursuit/corridor/internal/logging"
)

func TestLivenessReportsAlive(t *testing.T) {
	fixed := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	hub := NewHub(logging.NewTestLogger())
	hub.now = func() time.Time { return fixed }

	rr := httptest.NewRecorder()
	hub.Handler(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/livez", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var payload struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	assert.Equal(t, "alive", payload.Status)
	assert.Equal(t, fixed.Format(time.RFC3339Nano), payload.Timestamp)
}

func TestStatusServesRunSummary(t *testing.T) {
	hub := NewHub(logging.NewTestLogger())
	handler := hub.Handler(func() Status {
		return Status{SimulatedMs: 1500, Frames: 90, Seed: 42, CycleSteps: 1000}
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var status Status
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
	assert.Equal(t, Status{SimulatedMs: 1500, Frames: 90, Seed: 42, CycleSteps: 1000}, status)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	hub.Handler(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSlidingWindowLimiter(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewSlidingWindowLimiter(time.Minute, 2, func() time.Time { return now })

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("expected first two calls to be allowed")
	}
	if limiter.Allow() {
		t.Fatal("expected third call to be denied")
	}
	now = now.Add(30 * time.Second)
	if limiter.Allow() {
		t.Fatal("expected call within window to still be denied")
	}
	now = now.Add(31 * time.Second)
	if !limiter.Allow() {
		t.Fatal("expected limiter to permit call after window passes")
	}
	if !NewSlidingWindowLimiter(0, 0, nil).Allow() {
		t.Fatal("limiter with zero configuration should allow")
	}
}

func TestHubRejectsViewersOverLimit(t *testing.T) {
	hub := NewHub(logging.NewTestLogger())
	hub.LimitConnections(time.Minute, 1)
	server := httptest.NewServer(hub.Handler(nil))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
