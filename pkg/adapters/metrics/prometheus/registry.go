package prometheus

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/model"
)

// Registry is the process-wide metrics registry
type Registry struct {
	registry   *prometheus.Registry
	registerer prometheus.Registerer
	prefix     string
}

// NewRegistry creates a registry whose Registerer prefixes every metric
// name with prefix followed by an underscore.
func NewRegistry(prefix string) (*Registry, error) {
	if prefix == "" {
		return nil, fmt.Errorf("metrics prefix is required")
	}
	if !model.IsValidMetricName(model.LabelValue(prefix)) {
		return nil, fmt.Errorf("invalid metrics prefix: %q", prefix)
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	return &Registry{
		registry:   registry,
		registerer: prometheus.WrapRegistererWithPrefix(prefix+"_", registry),
		prefix:     prefix,
	}, nil
}

// Prefix returns the metrics name prefix
func (r *Registry) Prefix() string {
	return r.prefix
}

// Registerer returns the prefixing registerer application metrics use
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registerer
}

// Gatherer returns the underlying gatherer
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler renders all registered metrics in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
