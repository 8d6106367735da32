package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_model/go"
)

// Metrics is the Prometheus registry for the API process. The registry is
// instance-scoped so parallel servers in tests never collide.
type Metrics struct {
	registry *prometheus.Registry

	HTTPDuration *prometheus.HistogramVec
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter

	RefreshRuns    *prometheus.CounterVec
	RefreshRunning prometheus.Gauge

	WSClients prometheus.Gauge
}

// NewMetrics builds and registers every metric.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spooky_http_request_duration_seconds",
				Help:    "API request duration by route and status",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"route", "method", "status"},
		),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spooky_api_cache_hits_total",
			Help: "Responses served from the API response cache",
		}),

		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spooky_api_cache_misses_total",
			Help: "Responses rebuilt past the API response cache",
		}),

		RefreshRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spooky_refresh_runs_total",
				Help: "Completed refresh runs by trigger and result",
			},
			[]string{"trigger", "result"},
		),

		RefreshRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spooky_refresh_running",
			Help: "Whether a refresh run is currently in flight",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spooky_ws_clients",
			Help: "Connected refresh feed clients",
		}),
	}

	m.registry.MustRegister(
		m.HTTPDuration,
		m.CacheHits,
		m.CacheMisses,
		m.RefreshRuns,
		m.RefreshRunning,
		m.WSClients,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served API request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.HTTPDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordCacheHit counts a response served from cache.
func (m *Metrics) RecordCacheHit() { m.CacheHits.Inc() }

// RecordCacheMiss counts a response rebuilt from the store.
func (m *Metrics) RecordCacheMiss() { m.CacheMisses.Inc() }

// RecordRun counts a finished refresh run.
func (m *Metrics) RecordRun(trigger string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.RefreshRuns.WithLabelValues(trigger, result).Inc()
}

// SetRefreshRunning flips the in-flight gauge.
func (m *Metrics) SetRefreshRunning(running bool) {
	if running {
		m.RefreshRunning.Set(1)
		return
	}
	m.RefreshRunning.Set(0)
}

// RunTotals reads the refresh run counters back out of the registry so the
// health endpoint can report totals since process start.
func (m *Metrics) RunTotals() (ok, failed int64) {
	sample := &io_prometheus_client.Metric{}
	for _, trigger := range []string{"manual", "scheduled"} {
		for _, result := range []string{"ok", "failed"} {
			counter, err := m.RefreshRuns.GetMetricWithLabelValues(trigger, result)
			if err != nil {
				continue
			}
			if err := counter.Write(sample); err != nil {
				continue
			}
			n := int64(sample.GetCounter().GetValue())
			if result == "ok" {
				ok += n
			} else {
				failed += n
			}
		}
	}
	return ok, failed
}
