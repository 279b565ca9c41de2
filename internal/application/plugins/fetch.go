package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/aescanero/graph-builder/pkg/ports"
)

// FetchPlugin loads the graph and secondary metadata documents from a store
type FetchPlugin struct {
	store       ports.DocumentStore
	graphKey    string
	metadataKey string
}

// NewFetchPlugin creates a fetch plugin. An empty metadataKey disables
// loading secondary metadata.
func NewFetchPlugin(store ports.DocumentStore, graphKey, metadataKey string) *FetchPlugin {
	return &FetchPlugin{
		store:       store,
		graphKey:    graphKey,
		metadataKey: metadataKey,
	}
}

// Name returns the plugin name
func (p *FetchPlugin) Name() string {
	return "fetch"
}

// Run replaces the graph with the stored one. A missing metadata document
// keeps whatever metadata the input carried.
func (p *FetchPlugin) Run(ctx context.Context, in *IO) (*IO, error) {
	graph, err := p.store.Get(ctx, p.graphKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch graph: %w", err)
	}

	out := &IO{Graph: graph, Metadata: in.Metadata}

	if p.metadataKey == "" {
		return out, nil
	}

	metadata, err := p.store.Get(ctx, p.metadataKey)
	switch {
	case err == nil:
		out.Metadata = &metadata
	case errors.Is(err, ports.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}

	return out, nil
}
