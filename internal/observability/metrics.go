package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	MatchRequests   *prometheus.CounterVec
	MatchTier       *prometheus.CounterVec
	WaitingSearches prometheus.Gauge
	ActiveCalls     prometheus.Gauge
	CallsEnded      *prometheus.CounterVec
	WaitDuration    prometheus.Histogram
	SweptEntries    prometheus.Counter
	WSClients       prometheus.Gauge
}

// NewMetrics registers the instruments on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MatchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_requests_total",
			Help:      "Match requests by outcome.",
		}, []string{"outcome"}),
		MatchTier: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_tier_total",
			Help:      "Successful matches by candidate tier.",
		}, []string{"tier"}),
		WaitingSearches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_searches",
			Help:      "Searches currently polling on this instance.",
		}),
		ActiveCalls: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Calls tracked by this instance.",
		}),
		CallsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_ended_total",
			Help:      "Ended calls by reason.",
		}, []string{"reason"}),
		WaitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wait_duration_seconds",
			Help:      "Time a waiting user spent before the search finished.",
			Buckets:   []float64{2, 5, 10, 20, 30, 60, 120, 180, 300},
		}),
		SweptEntries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_waiting_entries_total",
			Help:      "Stale waiting entries removed by the sweeper.",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected websocket clients.",
		}),
	}
}

func (m *Metrics) MatchRequest(outcome string) {
	if m == nil {
		return
	}
	m.MatchRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Matched(tier string) {
	if m == nil {
		return
	}
	m.MatchTier.WithLabelValues(tier).Inc()
}

func (m *Metrics) SearchStarted() {
	if m == nil {
		return
	}
	m.WaitingSearches.Inc()
}

// SearchFinished records the end of a search that waited for d.
func (m *Metrics) SearchFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.WaitingSearches.Dec()
	m.WaitDuration.Observe(d.Seconds())
}

func (m *Metrics) CallStarted() {
	if m == nil {
		return
	}
	m.ActiveCalls.Inc()
}

// CallStopped is the counterpart of CallStarted for calls tracked on this instance.
func (m *Metrics) CallStopped() {
	if m == nil {
		return
	}
	m.ActiveCalls.Dec()
}

func (m *Metrics) CallEnded(reason string) {
	if m == nil {
		return
	}
	m.CallsEnded.WithLabelValues(reason).Inc()
}

func (m *Metrics) Swept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SweptEntries.Add(float64(n))
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.WSClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.WSClients.Dec()
}

// MetricsHandler serves the given gatherer.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
