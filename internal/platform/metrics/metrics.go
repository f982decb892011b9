package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "employee_link"

// Metrics は API と紐付け処理の Prometheus メトリクスを保持します。
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	linkRuns        *prometheus.CounterVec
	linkedPairs     *prometheus.CounterVec
	partialRuns     *prometheus.CounterVec
}

// New は専用のレジストリにメトリクスを登録して返します。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method, and status code",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		linkRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auto_link_runs_total",
				Help:      "Number of auto-link runs by strategy",
			},
			[]string{"strategy"},
		),
		linkedPairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auto_link_pairs_total",
				Help:      "Number of employee/user pairs requested and affected by auto-link runs",
			},
			[]string{"strategy", "result"},
		),
		partialRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auto_link_partial_runs_total",
				Help:      "Number of auto-link runs that changed fewer rows than planned",
			},
			[]string{"strategy"},
		),
	}

	reg.MustRegister(m.requestsTotal, m.requestDuration, m.linkRuns, m.linkedPairs, m.partialRuns)
	return m
}

// ObserveHTTP は 1 リクエスト分の結果を記録します。
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveAutoLink は自動紐付け 1 回分の件数を記録します。
func (m *Metrics) ObserveAutoLink(strategy string, requested, affected int) {
	m.linkRuns.WithLabelValues(strategy).Inc()
	m.linkedPairs.WithLabelValues(strategy, "requested").Add(float64(requested))
	m.linkedPairs.WithLabelValues(strategy, "affected").Add(float64(affected))
	if affected < requested {
		m.partialRuns.WithLabelValues(strategy).Inc()
	}
}

// Handler は /metrics 用のハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
