package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/aescanero/graph-builder/internal/application/state"
	metrics "github.com/aescanero/graph-builder/pkg/adapters/metrics/prometheus"
)

const (
	// StatusListener serves liveness, readiness and metrics
	StatusListener = "status"
	// PrimaryListener serves the graph document
	PrimaryListener = "primary"
	// PublicListener serves the secondary metadata document
	PublicListener = "public"
)

// Config holds listener configuration
type Config struct {
	// Address is the host:port to bind
	Address    string
	PathPrefix string
	// KeepAlive is the idle timeout of kept-alive connections
	KeepAlive time.Duration

	State   *state.State
	Metrics *metrics.Collector

	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator

	// Watch serves the update feed on the public listener; optional
	Watch gin.HandlerFunc

	Logger *zap.Logger
}

// Listener is a single HTTP listener
type Listener struct {
	name     string
	router   *gin.Engine
	server   *http.Server
	listener net.Listener
	handlers *handlers
	logger   *zap.Logger
}

// NewStatusListener creates the status listener. It is neither traced nor
// compressed.
func NewStatusListener(cfg *Config) (*Listener, error) {
	l, err := newListener(StatusListener, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.State.Registry() == nil {
		return nil, errors.New("state has no metrics registry")
	}

	l.router.GET("/liveness", l.handlers.handleLiveness)
	l.router.GET("/readiness", l.handlers.handleReadiness)
	l.router.GET("/metrics", gin.WrapH(cfg.State.Registry().Handler()))

	return l, nil
}

// NewPrimaryListener creates the listener serving the graph document
func NewPrimaryListener(cfg *Config) (*Listener, error) {
	l, err := newListener(PrimaryListener, cfg)
	if err != nil {
		return nil, err
	}

	l.useClientMiddleware(cfg)

	prefix := normalizePrefix(cfg.PathPrefix)
	l.router.GET(prefix+"/v1/graph", l.handlers.handleGraph)
	l.router.GET(prefix+"/graph", l.handlers.handleGraph)

	return l, nil
}

// NewPublicListener creates the listener serving the secondary metadata
// document and, if configured, its update feed
func NewPublicListener(cfg *Config) (*Listener, error) {
	l, err := newListener(PublicListener, cfg)
	if err != nil {
		return nil, err
	}

	prefix := normalizePrefix(cfg.PathPrefix)
	watchPath := prefix + "/graph-data/watch"

	l.useClientMiddleware(cfg, watchPath)
	l.router.Use(corsMiddleware())

	l.router.GET(prefix+"/graph-data", l.handlers.handleGraphData)
	if cfg.Watch != nil {
		l.router.GET(watchPath, cfg.Watch)
	}

	return l, nil
}

func newListener(name string, cfg *Config) (*Listener, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%s listener config is nil", name)
	}
	if cfg.State == nil {
		return nil, fmt.Errorf("%s listener requires state", name)
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("%s listener requires an address", name)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("listener", name))

	provider := cfg.TracerProvider
	if provider == nil {
		provider = noop.NewTracerProvider()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	l := &Listener{
		name:   name,
		router: router,
		handlers: &handlers{
			state:   cfg.State,
			metrics: cfg.Metrics,
			tracer:  provider.Tracer(tracerName),
			logger:  logger,
		},
		logger: logger,
	}

	l.server = &http.Server{
		Addr:        cfg.Address,
		Handler:     router,
		IdleTimeout: cfg.KeepAlive,
	}

	return l, nil
}

// useClientMiddleware installs tracing, request logging and compression.
// Paths in uncompressed are served without gzip.
func (l *Listener) useClientMiddleware(cfg *Config, uncompressed ...string) {
	provider := cfg.TracerProvider
	if provider == nil {
		provider = noop.NewTracerProvider()
	}
	propagator := cfg.Propagator
	if propagator == nil {
		propagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}

	l.router.Use(tracingMiddleware(provider.Tracer(tracerName), propagator))
	l.router.Use(requestLogger(l.logger))
	l.router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(uncompressed)))
}

// normalizePrefix strips a trailing slash so routes never contain "//"
func normalizePrefix(prefix string) string {
	return strings.TrimRight(prefix, "/")
}

// Name returns the listener name
func (l *Listener) Name() string {
	return l.name
}

// Addr returns the bound address, or the configured one before Bind
func (l *Listener) Addr() string {
	if l.listener != nil {
		return l.listener.Addr().String()
	}
	return l.server.Addr
}

// Handler returns the listener's HTTP handler
func (l *Listener) Handler() http.Handler {
	return l.router
}

// Bind opens the listening socket
func (l *Listener) Bind() error {
	if l.listener != nil {
		return fmt.Errorf("%s listener already bound", l.name)
	}

	ln, err := net.Listen("tcp", l.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s listener on %s: %w", l.name, l.server.Addr, err)
	}
	l.listener = ln

	return nil
}

// Close releases a bound socket that was never served
func (l *Listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

// Serve accepts connections until Shutdown is called. It returns nil after
// a graceful shutdown.
func (l *Listener) Serve() error {
	if l.listener == nil {
		return fmt.Errorf("%s listener is not bound", l.name)
	}

	l.logger.Info("starting HTTP listener", zap.String("addr", l.Addr()))

	if err := l.server.Serve(l.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listener failed: %w", l.name, err)
	}

	return nil
}

// Shutdown gracefully shuts down the listener
func (l *Listener) Shutdown(ctx context.Context) error {
	l.logger.Info("shutting down HTTP listener")

	if err := l.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown %s listener: %w", l.name, err)
	}

	l.logger.Info("HTTP listener shut down complete")
	return nil
}
