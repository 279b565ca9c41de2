package plugins

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// ValidatePlugin rejects graph documents that are not a well-formed update
// graph: an object with a "nodes" array of objects carrying a string
// "version" and an "edges" array of [from, to] node index pairs.
type ValidatePlugin struct{}

// NewValidatePlugin creates a validate plugin
func NewValidatePlugin() *ValidatePlugin {
	return &ValidatePlugin{}
}

// Name returns the plugin name
func (p *ValidatePlugin) Name() string {
	return "validate"
}

// Run passes its input through unchanged when the graph is valid
func (p *ValidatePlugin) Run(ctx context.Context, in *IO) (*IO, error) {
	if err := ValidateGraph(in.Graph); err != nil {
		return nil, err
	}
	if in.Metadata != nil && !gjson.Valid(*in.Metadata) {
		return nil, fmt.Errorf("metadata is not valid JSON")
	}
	return in, nil
}

// ValidateGraph checks the structure of a graph document
func ValidateGraph(doc string) error {
	if doc == "" {
		return fmt.Errorf("graph is empty")
	}
	if !gjson.Valid(doc) {
		return fmt.Errorf("graph is not valid JSON")
	}

	root := gjson.Parse(doc)
	if !root.IsObject() {
		return fmt.Errorf("graph must be a JSON object")
	}

	nodes := root.Get("nodes")
	if !nodes.IsArray() {
		return fmt.Errorf("graph must have a nodes array")
	}
	edges := root.Get("edges")
	if !edges.IsArray() {
		return fmt.Errorf("graph must have an edges array")
	}

	nodeList := nodes.Array()
	for i, node := range nodeList {
		if !node.IsObject() {
			return fmt.Errorf("node %d is not an object", i)
		}
		version := node.Get("version")
		if version.Type != gjson.String || version.String() == "" {
			return fmt.Errorf("node %d has no version", i)
		}
	}

	for i, edge := range edges.Array() {
		ends := edge.Array()
		if !edge.IsArray() || len(ends) != 2 {
			return fmt.Errorf("edge %d must be a [from, to] pair", i)
		}
		for _, end := range ends {
			if end.Type != gjson.Number || end.Num != float64(end.Int()) {
				return fmt.Errorf("edge %d references a non-integer node index", i)
			}
			if end.Int() < 0 || end.Int() >= int64(len(nodeList)) {
				return fmt.Errorf("edge %d references unknown node %d", i, end.Int())
			}
		}
	}

	return nil
}
