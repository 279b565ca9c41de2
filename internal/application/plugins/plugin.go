package plugins

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	metrics "github.com/aescanero/graph-builder/pkg/adapters/metrics/prometheus"
)

// IO carries documents between plugins
type IO struct {
	Graph string
	// Metadata is nil when no secondary metadata document was produced
	Metadata *string
}

// Plugin transforms the documents of a refresh cycle
type Plugin interface {
	Name() string
	Run(ctx context.Context, in *IO) (*IO, error)
}

// Chain runs plugins in order
type Chain struct {
	plugins []Plugin
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewChain creates a chain of the given plugins. Collector, tracer and
// logger may be nil.
func NewChain(plugins []Plugin, collector *metrics.Collector, tracer trace.Tracer, logger *zap.Logger) *Chain {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector != nil {
		for _, p := range plugins {
			collector.InitPlugin(p.Name())
		}
	}

	return &Chain{
		plugins: plugins,
		metrics: collector,
		tracer:  tracer,
		logger:  logger,
	}
}

// Names returns the plugin names in execution order
func (c *Chain) Names() []string {
	names := make([]string, len(c.plugins))
	for i, p := range c.plugins {
		names[i] = p.Name()
	}
	return names
}

// Len returns the number of plugins
func (c *Chain) Len() int {
	return len(c.plugins)
}

// Run executes every plugin starting from an empty IO. The first failing
// plugin aborts the chain.
func (c *Chain) Run(ctx context.Context) (*IO, error) {
	io := &IO{}

	for _, p := range c.plugins {
		out, err := c.runPlugin(ctx, p, io)
		if err != nil {
			return nil, fmt.Errorf("plugin %s failed: %w", p.Name(), err)
		}
		io = out
	}

	return io, nil
}

func (c *Chain) runPlugin(ctx context.Context, p Plugin, in *IO) (*IO, error) {
	ctx, span := c.tracer.Start(ctx, "plugin/"+p.Name(),
		trace.WithAttributes(attribute.String("plugin.name", p.Name())))
	defer span.End()

	start := time.Now()
	out, err := p.Run(ctx, in)
	duration := time.Since(start)

	if c.metrics != nil {
		c.metrics.ObservePluginDuration(p.Name(), duration)
	}

	if err == nil && out == nil {
		err = fmt.Errorf("plugin returned no output")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.logger.Debug("plugin completed",
		zap.String("plugin", p.Name()),
		zap.Int("graph_bytes", len(out.Graph)),
		zap.Bool("metadata", out.Metadata != nil),
		zap.Duration("duration", duration))

	return out, nil
}
