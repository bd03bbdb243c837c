package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics of the service
type Metrics struct {
	// Rendering
	RendersTotal          *prometheus.CounterVec
	RenderDurationSeconds prometheus.Histogram
	RenderPages           prometheus.Histogram
	RenderWorkersBusy     prometheus.Gauge

	// Contract lifecycle
	ContractTransitionsTotal *prometheus.CounterVec

	// Archive
	ArchiveDocuments prometheus.Gauge
	ArchiveBytes     prometheus.Gauge

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// System metrics
	UptimeSeconds prometheus.Gauge
	Goroutines    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contracte_renders_total",
				Help: "Total number of PDF renders by result",
			},
			[]string{"result"},
		),
		RenderDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "contracte_render_duration_seconds",
				Help:    "PDF render duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		RenderPages: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "contracte_render_pages",
				Help:    "Pages per rendered document",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
			},
		),
		RenderWorkersBusy: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contracte_render_workers_busy",
				Help: "Number of render workers currently running a job",
			},
		),

		ContractTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contracte_contract_transitions_total",
				Help: "Total number of contract status changes by target status",
			},
			[]string{"status"},
		),

		ArchiveDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contracte_archive_documents",
				Help: "Number of signed documents in the archive",
			},
		),
		ArchiveBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contracte_archive_bytes",
				Help: "Total size of archived PDFs in bytes",
			},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contracte_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contracte_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contracte_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contracte_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contracte_goroutines",
				Help: "Number of active goroutines",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.RendersTotal,
		m.RenderDurationSeconds,
		m.RenderPages,
		m.RenderWorkersBusy,
		m.ContractTransitionsTotal,
		m.ArchiveDocuments,
		m.ArchiveBytes,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.UptimeSeconds,
		m.Goroutines,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRender records one render. It satisfies render.Observer.
func (m *Metrics) ObserveRender(d time.Duration, pages int, err error) {
	if err != nil {
		m.RendersTotal.WithLabelValues("error").Inc()
		return
	}
	m.RendersTotal.WithLabelValues("ok").Inc()
	m.RenderDurationSeconds.Observe(d.Seconds())
	m.RenderPages.Observe(float64(pages))
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}
