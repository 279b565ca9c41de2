package plugins

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	metrics "github.com/aescanero/graph-builder/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/graph-builder/pkg/ports"
)

// Deps holds what built-in plugins need
type Deps struct {
	Store       ports.DocumentStore
	GraphKey    string
	MetadataKey string
	Metrics     *metrics.Collector
	Tracer      trace.Tracer
	Logger      *zap.Logger
}

// Build creates a chain from plugin names
func Build(names []string, deps Deps) (*Chain, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one plugin is required")
	}

	plugins := make([]Plugin, 0, len(names))
	for _, name := range names {
		switch name {
		case "fetch":
			if deps.Store == nil {
				return nil, fmt.Errorf("plugin fetch requires a document store")
			}
			if deps.GraphKey == "" {
				return nil, fmt.Errorf("plugin fetch requires a graph key")
			}
			plugins = append(plugins, NewFetchPlugin(deps.Store, deps.GraphKey, deps.MetadataKey))
		case "validate":
			plugins = append(plugins, NewValidatePlugin())
		case "minify":
			plugins = append(plugins, NewMinifyPlugin())
		default:
			return nil, fmt.Errorf("unknown plugin: %s", name)
		}
	}

	return NewChain(plugins, deps.Metrics, deps.Tracer, deps.Logger), nil
}
