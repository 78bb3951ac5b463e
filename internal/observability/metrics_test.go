package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.MatchRequest("matched")
	m.MatchRequest("matched")
	m.Matched("opposite_gender")
	m.SearchStarted()
	m.SearchFinished(3 * time.Second)
	m.CallStarted()
	m.CallStarted()
	m.CallStopped()
	m.CallEnded("time_limit")
	m.Swept(4)
	m.Swept(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MatchRequests.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MatchTier.WithLabelValues("opposite_gender")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WaitingSearches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveCalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallsEnded.WithLabelValues("time_limit")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SweptEntries))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MatchRequest("waiting")
		m.Matched("any")
		m.SearchStarted()
		m.SearchFinished(time.Second)
		m.CallStarted()
		m.CallStopped()
		m.CallEnded("user_ended")
		m.Swept(1)
		m.ClientConnected()
		m.ClientDisconnected()
	})
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.MatchRequest("waiting")

	rec := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_match_requests_total{outcome="waiting"} 1`))
}
