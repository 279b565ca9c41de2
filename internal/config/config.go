package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/robfig/cron/v3"
)

// Source backends
const (
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config holds all configuration for the graph-builder
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Listener configuration
	Server ServerConfig

	// Metrics configuration
	Metrics MetricsConfig

	// Tracing configuration
	Tracing TracingConfig

	// Plugin chain and upstream documents
	Source SourceConfig

	// Refresh cadence
	Refresh RefreshConfig

	// Redis configuration
	Redis RedisConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// ServerConfig holds the listener configuration
type ServerConfig struct {
	Address       string        `env:"GB_ADDRESS" envDefault:"127.0.0.1"`
	Port          int           `env:"GB_PORT" envDefault:"8080"`
	PublicPort    int           `env:"GB_PUBLIC_PORT" envDefault:"8090"`
	StatusAddress string        `env:"GB_STATUS_ADDRESS" envDefault:"127.0.0.1"`
	StatusPort    int           `env:"GB_STATUS_PORT" envDefault:"9080"`
	PathPrefix    string        `env:"GB_PATH_PREFIX"`
	KeepAlive     time.Duration `env:"GB_KEEP_ALIVE" envDefault:"10s"`

	// MandatoryClientParameters are required on every graph request
	MandatoryClientParameters []string `env:"GB_MANDATORY_CLIENT_PARAMETERS" envSeparator:","`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix   string   `env:"GB_METRICS_PREFIX" envDefault:"graph_builder"`
	Required []string `env:"GB_METRICS_REQUIRED" envSeparator:"," envDefault:"graph_incoming_requests_total,graph_response_errors_total,graph_refresh_cycles_total,graph_refresh_errors_total"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	// Endpoint is the OTLP gRPC collector; empty disables export
	Endpoint    string        `env:"GB_TRACING_ENDPOINT"`
	Insecure    bool          `env:"GB_TRACING_INSECURE" envDefault:"true"`
	SampleRatio float64       `env:"GB_TRACING_SAMPLE_RATIO" envDefault:"1.0"`
	Timeout     time.Duration `env:"GB_TRACING_TIMEOUT" envDefault:"10s"`
}

// SourceConfig holds the plugin chain and upstream document configuration
type SourceConfig struct {
	Plugins     []string `env:"GB_PLUGINS" envSeparator:"," envDefault:"fetch,validate,minify"`
	Backend     string   `env:"GB_SOURCE_BACKEND" envDefault:"redis"`
	GraphKey    string   `env:"GB_SOURCE_GRAPH_KEY" envDefault:"graph-builder:graph"`
	MetadataKey string   `env:"GB_SOURCE_METADATA_KEY" envDefault:"graph-builder:graph-data"`

	// Dir is the directory of the file backend
	Dir   string `env:"GB_SOURCE_DIR"`
	Watch bool   `env:"GB_SOURCE_WATCH" envDefault:"true"`

	EventsBackend string `env:"GB_EVENTS_BACKEND" envDefault:"memory"`
	// EventsMaxLen caps the redis event stream
	EventsMaxLen int64 `env:"GB_EVENTS_MAX_LEN" envDefault:"1000"`

	// SeedGraph and SeedMetadata are read from the named files and written
	// to the store at startup
	SeedGraph    string `env:"GB_SOURCE_SEED_GRAPH_FILE,file"`
	SeedMetadata string `env:"GB_SOURCE_SEED_METADATA_FILE,file"`
}

// RefreshConfig holds the refresher cadence
type RefreshConfig struct {
	Interval     time.Duration `env:"GB_REFRESH_INTERVAL" envDefault:"30s"`
	RetryDelay   time.Duration `env:"GB_REFRESH_RETRY_DELAY" envDefault:"5s"`
	CycleTimeout time.Duration `env:"GB_REFRESH_CYCLE_TIMEOUT" envDefault:"5m"`
	// Schedule is a standard cron expression replacing Interval when set
	Schedule string `env:"GB_REFRESH_SCHEDULE"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// normalize trims list entries and drops empty ones
func (c *Config) normalize() {
	c.Server.MandatoryClientParameters = cleanList(c.Server.MandatoryClientParameters)
	c.Metrics.Required = cleanList(c.Metrics.Required)
	c.Source.Plugins = cleanList(c.Source.Plugins)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate listener ports
	ports := map[string]int{
		"primary": c.Server.Port,
		"public":  c.Server.PublicPort,
		"status":  c.Server.StatusPort,
	}
	for name, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s port: %d", name, port)
		}
	}
	if c.Server.Address == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Server.StatusAddress == "" {
		return fmt.Errorf("status listen address is required")
	}

	if p := c.Server.PathPrefix; p != "" && (!strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/")) {
		return fmt.Errorf("invalid path prefix: %q (must start and not end with '/')", p)
	}
	if c.Server.KeepAlive <= 0 {
		return fmt.Errorf("invalid keep-alive timeout: %s", c.Server.KeepAlive)
	}

	// Validate metrics config
	if c.Metrics.Prefix == "" {
		return fmt.Errorf("metrics prefix is required")
	}

	// Validate tracing config
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("invalid tracing sample ratio: %v (must be between 0 and 1)", c.Tracing.SampleRatio)
	}

	// Validate source config
	if len(c.Source.Plugins) == 0 {
		return fmt.Errorf("at least one plugin is required")
	}
	switch c.Source.Backend {
	case BackendRedis, BackendMemory:
	case BackendFile:
		if c.Source.Dir == "" {
			return fmt.Errorf("source directory is required for the file backend")
		}
	default:
		return fmt.Errorf("unsupported source backend: %s (must be redis, file or memory)", c.Source.Backend)
	}
	if c.Source.EventsBackend != BackendRedis && c.Source.EventsBackend != BackendMemory {
		return fmt.Errorf("unsupported events backend: %s (must be redis or memory)", c.Source.EventsBackend)
	}
	if c.Source.GraphKey == "" {
		return fmt.Errorf("source graph key is required")
	}

	// Validate refresh config
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("invalid refresh interval: %s", c.Refresh.Interval)
	}
	if c.Refresh.Schedule != "" {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", c.Refresh.Schedule, err)
		}
	}
	if c.Refresh.RetryDelay <= 0 {
		return fmt.Errorf("invalid refresh retry delay: %s", c.Refresh.RetryDelay)
	}
	if c.Refresh.CycleTimeout < 0 {
		return fmt.Errorf("invalid refresh cycle timeout: %s", c.Refresh.CycleTimeout)
	}

	// Validate Redis config
	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// UsesRedis reports whether any backend needs a Redis client
func (c *Config) UsesRedis() bool {
	return c.Source.Backend == BackendRedis || c.Source.EventsBackend == BackendRedis
}

// GetPrimaryAddr returns the primary listener address
func (c *Config) GetPrimaryAddr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

// GetPublicAddr returns the public listener address
func (c *Config) GetPublicAddr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.PublicPort))
}

// GetStatusAddr returns the status listener address
func (c *Config) GetStatusAddr() string {
	return net.JoinHostPort(c.Server.StatusAddress, strconv.Itoa(c.Server.StatusPort))
}
