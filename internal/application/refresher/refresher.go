package refresher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/aescanero/graph-builder/internal/application/plugins"
	"github.com/aescanero/graph-builder/internal/application/state"
	metrics "github.com/aescanero/graph-builder/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/graph-builder/pkg/ports"
)

// Config holds the refresh cadence
type Config struct {
	// Interval is the wait after a successful cycle
	Interval time.Duration
	// RetryDelay is the wait after a failed cycle
	RetryDelay time.Duration
	// CycleTimeout bounds a single cycle; zero means unbounded
	CycleTimeout time.Duration
	// Schedule, when set, replaces Interval: after a success the next
	// cycle starts at the schedule's next activation
	Schedule cron.Schedule
}

// Refresher periodically runs the plugin chain and publishes its output
type Refresher struct {
	state    *state.State
	chain    *plugins.Chain
	eventBus ports.EventBus
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *zap.Logger
	cfg      Config

	done chan struct{}
}

// New creates a refresher for st. The plugin chain is taken from st.
// eventBus, collector and tracer may be nil.
func New(
	st *state.State,
	eventBus ports.EventBus,
	collector *metrics.Collector,
	tracer trace.Tracer,
	logger *zap.Logger,
	cfg Config,
) (*Refresher, error) {
	if st == nil {
		return nil, errors.New("state is required")
	}
	if st.Plugins() == nil {
		return nil, errors.New("state has no plugin chain")
	}
	if cfg.Interval <= 0 && cfg.Schedule == nil {
		return nil, fmt.Errorf("invalid refresh interval: %s", cfg.Interval)
	}
	if cfg.RetryDelay <= 0 {
		return nil, fmt.Errorf("invalid refresh retry delay: %s", cfg.RetryDelay)
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Refresher{
		state:    st,
		chain:    st.Plugins(),
		eventBus: eventBus,
		metrics:  collector,
		tracer:   tracer,
		logger:   logger,
		cfg:      cfg,
		done:     make(chan struct{}),
	}, nil
}

// Run marks the process live and refreshes until ctx is cancelled. On return
// the live flag is cleared. Run must be called at most once.
func (r *Refresher) Run(ctx context.Context) {
	defer close(r.done)

	r.state.SetLive(true)
	defer r.state.SetLive(false)

	r.logger.Info("refresher started",
		zap.Strings("plugins", r.chain.Names()),
		zap.Duration("interval", r.cfg.Interval),
		zap.Duration("retry_delay", r.cfg.RetryDelay))

	for {
		delay := r.cfg.RetryDelay
		if err := r.RunOnce(ctx); err == nil {
			delay = r.successDelay(time.Now())
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("refresher stopped")
			return
		case <-timer.C:
		}
	}
}

// successDelay returns the wait after a successful cycle ending at now
func (r *Refresher) successDelay(now time.Time) time.Duration {
	if r.cfg.Schedule == nil {
		return r.cfg.Interval
	}

	next := r.cfg.Schedule.Next(now)
	if next.IsZero() || !next.After(now) {
		return r.cfg.RetryDelay
	}
	return next.Sub(now)
}

// Wait blocks until Run has returned or ctx is done
func (r *Refresher) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("refresher shutdown timeout")
	}
}

// RunOnce runs a single refresh cycle. On failure the previously published
// documents and the ready flag are left untouched.
func (r *Refresher) RunOnce(ctx context.Context) (err error) {
	ctx, span := r.tracer.Start(ctx, "refresh")
	defer span.End()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("refresh cycle panicked: %v", rec)
		}

		duration := time.Since(start)
		if r.metrics != nil {
			r.metrics.RecordRefresh(duration, err)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.Error("graph refresh failed",
				zap.Duration("duration", duration),
				zap.Error(err))
		}
	}()

	cycleCtx := ctx
	if r.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, r.cfg.CycleTimeout)
		defer cancel()
	}

	out, err := r.chain.Run(cycleCtx)
	if err != nil {
		return fmt.Errorf("failed to run plugins: %w", err)
	}

	r.state.PublishGraph(out.Graph)
	metadataBytes := 0
	if out.Metadata != nil {
		r.state.PublishMetadata(*out.Metadata)
		metadataBytes = len(*out.Metadata)
	}
	r.state.SetReady(true)

	publishedAt := time.Now()
	if r.metrics != nil {
		r.metrics.RecordPublished(len(out.Graph), metadataBytes, publishedAt)
	}

	nodes := gjson.Get(out.Graph, "nodes.#").Int()
	span.SetAttributes(
		attribute.Int("graph.bytes", len(out.Graph)),
		attribute.Int64("graph.nodes", nodes),
	)

	r.logger.Info("graph refreshed",
		zap.Int("graph_bytes", len(out.Graph)),
		zap.Int("metadata_bytes", metadataBytes),
		zap.Int64("nodes", nodes),
		zap.Duration("duration", time.Since(start)))

	r.publishEvent(ctx, publishedAt, map[string]interface{}{
		"graph_bytes":    len(out.Graph),
		"metadata_bytes": metadataBytes,
		"nodes":          nodes,
	})

	return nil
}

// publishEvent announces new documents on the event bus
func (r *Refresher) publishEvent(ctx context.Context, at time.Time, data map[string]interface{}) {
	if r.eventBus == nil {
		return
	}

	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      ports.EventTypeGraphUpdated,
		Timestamp: at,
		Data:      data,
	}

	if err := r.eventBus.Publish(ctx, ports.TopicGraphEvents, event); err != nil {
		r.logger.Warn("failed to publish event",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
