package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/groups/{id}", "GET", 200, 15*time.Millisecond)
	m.ObserveRequest("/api/groups/{id}", "GET", 200, 5*time.Millisecond)
	m.ObserveRequest("/api/groups/{id}", "GET", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/groups/{id}", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/groups/{id}", "GET", "404")))
}

func TestCounters(t *testing.T) {
	m := New()
	m.RecurringCreated(3)
	m.RecurringCreated(0)
	m.NotificationCreated("settlement")
	m.EmailSent("password_reset", "skipped")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.recurring))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("settlement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("password_reset", "skipped")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("/x", "GET", 200, time.Second)
	m.RecurringCreated(1)
	m.NotificationCreated("x")
	m.EmailSent("x", "sent")
}

func TestHandler(t *testing.T) {
	m := New()
	m.RegisterGauge("websocket_clients", "Open WebSocket connections.", func() float64 { return 4 })
	m.ObserveRequest("/health", "GET", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `coincious_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, string(body), "coincious_websocket_clients 4")
}
