package plugins

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	metrics "github.com/aescanero/graph-builder/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/graph-builder/pkg/adapters/storage/memory"
)

const testGraph = `{
  "nodes": [
    {"version": "4.1.0", "payload": "quay.io/release:4.1.0", "metadata": {}},
    {"version": "4.1.1", "payload": "quay.io/release:4.1.1", "metadata": {}}
  ],
  "edges": [[0, 1]]
}`

// funcPlugin adapts a function to the Plugin interface
type funcPlugin struct {
	name string
	run  func(ctx context.Context, in *IO) (*IO, error)
}

func (p *funcPlugin) Name() string { return p.name }

func (p *funcPlugin) Run(ctx context.Context, in *IO) (*IO, error) { return p.run(ctx, in) }

func appendPlugin(name string) Plugin {
	return &funcPlugin{name: name, run: func(_ context.Context, in *IO) (*IO, error) {
		return &IO{Graph: in.Graph + name, Metadata: in.Metadata}, nil
	}}
}

func TestChain_RunsInOrder(t *testing.T) {
	chain := NewChain([]Plugin{appendPlugin("a"), appendPlugin("b"), appendPlugin("c")}, nil, nil, nil)

	out, err := chain.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Graph)
	assert.Nil(t, out.Metadata)
	assert.Equal(t, []string{"a", "b", "c"}, chain.Names())
	assert.Equal(t, 3, chain.Len())
}

func TestChain_StopsAtFirstError(t *testing.T) {
	called := false
	failing := &funcPlugin{name: "broken", run: func(context.Context, *IO) (*IO, error) {
		return nil, errors.New("upstream unavailable")
	}}
	after := &funcPlugin{name: "after", run: func(_ context.Context, in *IO) (*IO, error) {
		called = true
		return in, nil
	}}

	chain := NewChain([]Plugin{appendPlugin("a"), failing, after}, nil, nil, zap.NewNop())

	_, err := chain.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin broken failed")
	assert.Contains(t, err.Error(), "upstream unavailable")
	assert.False(t, called)
}

func TestChain_NilOutputIsError(t *testing.T) {
	empty := &funcPlugin{name: "empty", run: func(context.Context, *IO) (*IO, error) { return nil, nil }}

	_, err := NewChain([]Plugin{empty}, nil, nil, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestChain_SpansAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	collector := metrics.NewCollector(prometheus.NewRegistry())

	chain := NewChain([]Plugin{appendPlugin("a"), appendPlugin("b")}, collector, provider.Tracer("test"), zap.NewNop())

	ctx, parent := provider.Tracer("test").Start(context.Background(), "refresh")
	_, err := chain.Run(ctx)
	parent.End()
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "plugin/a", spans[0].Name())
	assert.Equal(t, "plugin/b", spans[1].Name())
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, parent.SpanContext().SpanID(), spans[1].Parent().SpanID())

	reg := prometheus.NewRegistry()
	other := metrics.NewCollector(reg)
	NewChain([]Plugin{appendPlugin("x")}, other, nil, nil)
	count, err := testutil.GatherAndCount(reg, "graph_plugin_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFetchPlugin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()

	plugin := NewFetchPlugin(store, "graph", "graph-data")

	_, err := plugin.Run(ctx, &IO{})
	require.Error(t, err, "missing graph must fail")

	require.NoError(t, store.Put(ctx, "graph", testGraph))
	out, err := plugin.Run(ctx, &IO{})
	require.NoError(t, err)
	assert.Equal(t, testGraph, out.Graph)
	assert.Nil(t, out.Metadata, "missing metadata is not an error")

	require.NoError(t, store.Put(ctx, "graph-data", `{"channels":["stable-4.1"]}`))
	out, err = plugin.Run(ctx, &IO{})
	require.NoError(t, err)
	require.NotNil(t, out.Metadata)
	assert.Equal(t, `{"channels":["stable-4.1"]}`, *out.Metadata)
}

func TestFetchPlugin_NoMetadataKey(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	require.NoError(t, store.Put(ctx, "graph", testGraph))
	require.NoError(t, store.Put(ctx, "graph-data", "{}"))

	out, err := NewFetchPlugin(store, "graph", "").Run(ctx, &IO{})
	require.NoError(t, err)
	assert.Nil(t, out.Metadata)
}

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "valid", doc: testGraph},
		{name: "empty graph object", doc: `{"nodes":[],"edges":[]}`},
		{name: "empty document", doc: "", wantErr: true},
		{name: "not json", doc: "{nodes", wantErr: true},
		{name: "array root", doc: `[]`, wantErr: true},
		{name: "missing nodes", doc: `{"edges":[]}`, wantErr: true},
		{name: "missing edges", doc: `{"nodes":[]}`, wantErr: true},
		{name: "node without version", doc: `{"nodes":[{"payload":"x"}],"edges":[]}`, wantErr: true},
		{name: "numeric version", doc: `{"nodes":[{"version":4}],"edges":[]}`, wantErr: true},
		{name: "edge out of range", doc: `{"nodes":[{"version":"1"}],"edges":[[0,1]]}`, wantErr: true},
		{name: "negative edge", doc: `{"nodes":[{"version":"1"}],"edges":[[-1,0]]}`, wantErr: true},
		{name: "edge not a pair", doc: `{"nodes":[{"version":"1"}],"edges":[[0]]}`, wantErr: true},
		{name: "fractional edge", doc: `{"nodes":[{"version":"1"},{"version":"2"}],"edges":[[0.5,1]]}`, wantErr: true},
		{name: "self edge", doc: `{"nodes":[{"version":"1"}],"edges":[[0,0]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGraph(tt.doc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePlugin_Metadata(t *testing.T) {
	bad := "not json"
	_, err := NewValidatePlugin().Run(context.Background(), &IO{Graph: testGraph, Metadata: &bad})
	assert.Error(t, err)

	good := `{"a":1}`
	out, err := NewValidatePlugin().Run(context.Background(), &IO{Graph: testGraph, Metadata: &good})
	require.NoError(t, err)
	assert.Equal(t, testGraph, out.Graph)
}

func TestMinifyPlugin(t *testing.T) {
	metadata := "{ \"a\" : [ 1, 2 ] }"
	out, err := NewMinifyPlugin().Run(context.Background(), &IO{Graph: testGraph, Metadata: &metadata})
	require.NoError(t, err)

	assert.NotContains(t, out.Graph, "\n")
	assert.NotContains(t, out.Graph, " ")
	assert.NoError(t, ValidateGraph(out.Graph))
	require.NotNil(t, out.Metadata)
	assert.Equal(t, `{"a":[1,2]}`, *out.Metadata)

	_, err = NewMinifyPlugin().Run(context.Background(), &IO{Graph: "{"})
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	store := memory.NewDocumentStore()

	chain, err := Build([]string{"fetch", "validate", "minify"}, Deps{Store: store, GraphKey: "graph"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fetch", "validate", "minify"}, chain.Names())

	_, err = Build(nil, Deps{})
	assert.Error(t, err)

	_, err = Build([]string{"edge-add-remove"}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown plugin: edge-add-remove")

	_, err = Build([]string{"fetch"}, Deps{})
	assert.Error(t, err, "fetch without store")

	_, err = Build([]string{"fetch"}, Deps{Store: store})
	assert.Error(t, err, "fetch without graph key")
}

func TestBuild_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	require.NoError(t, store.Put(ctx, "graph", testGraph))
	require.NoError(t, store.Put(ctx, "graph-data", `{ "raw": true }`))

	chain, err := Build([]string{"fetch", "validate", "minify"}, Deps{
		Store:       store,
		GraphKey:    "graph",
		MetadataKey: "graph-data",
	})
	require.NoError(t, err)

	out, err := chain.Run(ctx)
	require.NoError(t, err)
	assert.NotContains(t, out.Graph, " ")
	require.NotNil(t, out.Metadata)
	assert.Equal(t, `{"raw":true}`, *out.Metadata)
}
