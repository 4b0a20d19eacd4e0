package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datapythonista/arrow-prime/kernel"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Errors          *prometheus.CounterVec

	// Kernel metrics
	ColumnsClassified  prometheus.Counter
	ElementsClassified prometheus.Counter
	ColumnSize         prometheus.Histogram
	Verdicts           *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with the default
// registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg. Tests
// use this with a fresh registry to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total requests by operation",
		}, []string{"op"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request duration by operation",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"op"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed requests by error kind",
		}, []string{"kind"}),

		ColumnsClassified: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_classified_total",
			Help:      "Total columns processed",
		}),
		ElementsClassified: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elements_classified_total",
			Help:      "Total column elements processed",
		}),
		ColumnSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "column_size",
			Help:      "Number of elements per request column",
			Buckets:   []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reduction_verdicts_total",
			Help:      "are_all_primes verdicts by outcome",
		}, []string{"verdict"}),
	}
}

// RecordRequest records a successful request.
func (m *Metrics) RecordRequest(op string, elements int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(op).Inc()
	m.RequestDuration.WithLabelValues(op).Observe(duration.Seconds())
	m.ColumnsClassified.Inc()
	m.ElementsClassified.Add(float64(elements))
	m.ColumnSize.Observe(float64(elements))
}

// RecordVerdict records the outcome of a reduction.
func (m *Metrics) RecordVerdict(v kernel.Tristate) {
	m.Verdicts.WithLabelValues(v.String()).Inc()
}

// MetricsServer runs an HTTP server exposing the /metrics endpoint.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a new metrics server on the given address.
func NewMetricsServer(addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start starts the metrics server (blocking).
func (s *MetricsServer) Start() error {
	return s.server.ListenAndServe()
}

// StartAsync starts the metrics server in a goroutine.
func (s *MetricsServer) StartAsync() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop stops the metrics server.
func (s *MetricsServer) Stop() error {
	return s.server.Close()
}
