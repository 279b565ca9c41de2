package plugins

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// MinifyPlugin strips insignificant whitespace from JSON documents
type MinifyPlugin struct{}

// NewMinifyPlugin creates a minify plugin
func NewMinifyPlugin() *MinifyPlugin {
	return &MinifyPlugin{}
}

// Name returns the plugin name
func (p *MinifyPlugin) Name() string {
	return "minify"
}

// Run compacts the graph and, when present, the metadata document
func (p *MinifyPlugin) Run(ctx context.Context, in *IO) (*IO, error) {
	graph, err := minify(in.Graph)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}

	out := &IO{Graph: graph}
	if in.Metadata != nil {
		metadata, err := minify(*in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
		out.Metadata = &metadata
	}

	return out, nil
}

func minify(doc string) (string, error) {
	if !gjson.Valid(doc) {
		return "", fmt.Errorf("not valid JSON")
	}
	return gjson.Get(doc, "@ugly").Raw, nil
}
