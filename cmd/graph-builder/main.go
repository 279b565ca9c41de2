package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/graph-builder/internal/application/orchestrator"
	"github.com/aescanero/graph-builder/internal/application/plugins"
	"github.com/aescanero/graph-builder/internal/application/refresher"
	"github.com/aescanero/graph-builder/internal/application/state"
	"github.com/aescanero/graph-builder/internal/config"
	eventsmemory "github.com/aescanero/graph-builder/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/graph-builder/pkg/adapters/events/redis"
	"github.com/aescanero/graph-builder/pkg/adapters/metrics/prometheus"
	storagefile "github.com/aescanero/graph-builder/pkg/adapters/storage/file"
	storagememory "github.com/aescanero/graph-builder/pkg/adapters/storage/memory"
	storageredis "github.com/aescanero/graph-builder/pkg/adapters/storage/redis"
	"github.com/aescanero/graph-builder/pkg/adapters/tracing"
	"github.com/aescanero/graph-builder/pkg/api/http"
	"github.com/aescanero/graph-builder/pkg/api/websocket"
	"github.com/aescanero/graph-builder/pkg/ports"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting graph-builder",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics and tracing
	registry, err := prometheus.NewRegistry(cfg.Metrics.Prefix)
	if err != nil {
		logger.Error("failed to create metrics registry", zap.Error(err))
		return 1
	}
	collector := prometheus.NewCollector(registry.Registerer())

	tracer, err := tracing.New(ctx, &tracing.Config{
		ServiceName:    "graph-builder",
		ServiceVersion: Version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Timeout:        cfg.Tracing.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}()

	// Initialize Redis client
	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Redis close error", zap.Error(err))
			}
		}()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", zap.Error(err))
			return 1
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize adapters
	var store ports.DocumentStore
	switch cfg.Source.Backend {
	case config.BackendRedis:
		store = storageredis.NewDocumentStore(redisClient, 0, logger)
	case config.BackendFile:
		fileStore, err := storagefile.NewDocumentStore(cfg.Source.Dir, cfg.Source.Watch, logger)
		if err != nil {
			logger.Error("failed to open document directory", zap.Error(err))
			return 1
		}
		defer func() { _ = fileStore.Close() }()
		store = fileStore
	default:
		store = storagememory.NewDocumentStore()
	}
	if err := seedStore(ctx, store, cfg); err != nil {
		logger.Error("failed to seed document store", zap.Error(err))
		return 1
	}

	var eventBus ports.EventBus = eventsmemory.NewEventBus(logger)
	if cfg.Source.EventsBackend == config.BackendRedis {
		eventBus = eventsredis.NewStreamsEventBus(redisClient, cfg.Source.EventsMaxLen, logger)
	}
	defer func() { _ = eventBus.Close() }()

	otelTracer := tracer.Provider().Tracer("github.com/aescanero/graph-builder")

	chain, err := plugins.Build(cfg.Source.Plugins, plugins.Deps{
		Store:       store,
		GraphKey:    cfg.Source.GraphKey,
		MetadataKey: cfg.Source.MetadataKey,
		Metrics:     collector,
		Tracer:      otelTracer,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to build plugin chain", zap.Error(err))
		return 1
	}

	// Every metric is registered by now
	if err := prometheus.EnsureRegistered(registry.Gatherer(), registry.Prefix(), cfg.Metrics.Required); err != nil {
		logger.Error("required metrics are not registered", zap.Error(err))
		return 1
	}

	st := state.New(state.Options{
		MandatoryParameters: cfg.Server.MandatoryClientParameters,
		Plugins:             chain,
		Registry:            registry,
	})

	refreshConfig := refresher.Config{
		Interval:     cfg.Refresh.Interval,
		RetryDelay:   cfg.Refresh.RetryDelay,
		CycleTimeout: cfg.Refresh.CycleTimeout,
	}
	if cfg.Refresh.Schedule != "" {
		// Already validated by config.Load
		refreshConfig.Schedule, _ = cron.ParseStandard(cfg.Refresh.Schedule)
	}

	refresh, err := refresher.New(st, eventBus, collector, otelTracer, logger, refreshConfig)
	if err != nil {
		logger.Error("failed to create refresher", zap.Error(err))
		return 1
	}

	// Initialize API listeners
	listenerConfig := func(addr string) *http.Config {
		return &http.Config{
			Address:        addr,
			PathPrefix:     cfg.Server.PathPrefix,
			KeepAlive:      cfg.Server.KeepAlive,
			State:          st,
			Metrics:        collector,
			TracerProvider: tracer.Provider(),
			Propagator:     tracer.Propagator(),
			Logger:         logger,
		}
	}

	statusListener, err := http.NewStatusListener(listenerConfig(cfg.GetStatusAddr()))
	if err != nil {
		logger.Error("failed to create status listener", zap.Error(err))
		return 1
	}

	primaryListener, err := http.NewPrimaryListener(listenerConfig(cfg.GetPrimaryAddr()))
	if err != nil {
		logger.Error("failed to create primary listener", zap.Error(err))
		return 1
	}

	publicConfig := listenerConfig(cfg.GetPublicAddr())
	publicConfig.Watch = websocket.NewHandler(eventBus, logger).HandleWatch
	publicListener, err := http.NewPublicListener(publicConfig)
	if err != nil {
		logger.Error("failed to create public listener", zap.Error(err))
		return 1
	}

	manager := orchestrator.NewManager(
		[]orchestrator.Listener{statusListener, primaryListener, publicListener},
		refresh,
		logger,
		cfg.Timeouts.ShutdownTimeout,
	)

	logger.Info("graph-builder started",
		zap.String("status_addr", cfg.GetStatusAddr()),
		zap.String("primary_addr", cfg.GetPrimaryAddr()),
		zap.String("public_addr", cfg.GetPublicAddr()),
		zap.Strings("plugins", chain.Names()),
		zap.Bool("tracing", tracer.Enabled()))

	if err := manager.Run(ctx); err != nil {
		logger.Error("graph-builder terminated", zap.Error(err))
		return 1
	}

	logger.Info("graph-builder shut down complete")
	return 0
}

// seedStore writes the configured seed documents to the store
func seedStore(ctx context.Context, store ports.DocumentStore, cfg *config.Config) error {
	if cfg.Source.SeedGraph != "" {
		if err := store.Put(ctx, cfg.Source.GraphKey, cfg.Source.SeedGraph); err != nil {
			return fmt.Errorf("failed to seed graph: %w", err)
		}
	}
	if cfg.Source.SeedMetadata != "" && cfg.Source.MetadataKey != "" {
		if err := store.Put(ctx, cfg.Source.MetadataKey, cfg.Source.SeedMetadata); err != nil {
			return fmt.Errorf("failed to seed metadata: %w", err)
		}
	}
	return nil
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
