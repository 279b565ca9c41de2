package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the graph-builder metrics
type Collector struct {
	incomingRequests prometheus.Counter
	responseErrors   prometheus.Counter

	refreshCycles   prometheus.Counter
	refreshErrors   prometheus.Counter
	refreshDuration prometheus.Histogram
	lastSuccess     prometheus.Gauge
	graphBytes      prometheus.Gauge
	metadataBytes   prometheus.Gauge
	pluginDuration  *prometheus.HistogramVec
}

// NewCollector creates the collector and registers its metrics with reg.
// It panics if a metric is already registered.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		incomingRequests: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "graph_incoming_requests_total",
				Help: "Total number of incoming graph requests",
			},
		),
		responseErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "graph_response_errors_total",
				Help: "Total number of graph requests answered with an error",
			},
		),
		refreshCycles: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "graph_refresh_cycles_total",
				Help: "Total number of graph refresh cycles",
			},
		),
		refreshErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "graph_refresh_errors_total",
				Help: "Total number of failed graph refresh cycles",
			},
		),
		refreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "graph_refresh_duration_seconds",
				Help:    "Graph refresh cycle duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
			},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "graph_last_success_timestamp_seconds",
				Help: "Unix time of the last successful graph refresh",
			},
		),
		graphBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "graph_document_bytes",
				Help: "Size of the published graph document",
			},
		),
		metadataBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "graph_metadata_bytes",
				Help: "Size of the published secondary metadata document",
			},
		),
		pluginDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graph_plugin_duration_seconds",
				Help:    "Plugin execution duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"plugin"},
		),
	}
}

// IncIncomingRequests counts an incoming graph request
func (c *Collector) IncIncomingRequests() {
	c.incomingRequests.Inc()
}

// IncResponseErrors counts a graph request answered with an error
func (c *Collector) IncResponseErrors() {
	c.responseErrors.Inc()
}

// RecordRefresh records the outcome of a refresh cycle
func (c *Collector) RecordRefresh(duration time.Duration, err error) {
	c.refreshCycles.Inc()
	c.refreshDuration.Observe(duration.Seconds())
	if err != nil {
		c.refreshErrors.Inc()
	}
}

// RecordPublished records the documents published by a successful cycle
func (c *Collector) RecordPublished(graphBytes, metadataBytes int, at time.Time) {
	c.graphBytes.Set(float64(graphBytes))
	c.metadataBytes.Set(float64(metadataBytes))
	c.lastSuccess.Set(float64(at.Unix()))
}

// InitPlugin creates the duration series for a plugin so it is exported
// before the plugin first runs
func (c *Collector) InitPlugin(plugin string) {
	c.pluginDuration.WithLabelValues(plugin)
}

// ObservePluginDuration records how long a plugin ran
func (c *Collector) ObservePluginDuration(plugin string, duration time.Duration) {
	c.pluginDuration.WithLabelValues(plugin).Observe(duration.Seconds())
}
