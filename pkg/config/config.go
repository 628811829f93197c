// Package config loads and validates the daemon configuration from YAML,
// with environment overrides for the values that differ per deployment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoFeedUpstream = errors.New("config: no feed upstream address")
	ErrInvalidListen  = errors.New("config: invalid listen address")
)

// FeedConfig configures the upstream event feed subscription.
type FeedConfig struct {
	// UpstreamAddr is the PUB endpoint the feed listener dials,
	// e.g. "tcp://collector:5556".
	UpstreamAddr string `yaml:"upstream_addr" validate:"required"`
	// RecvTimeout bounds a single socket read (default: 1s).
	RecvTimeout time.Duration `yaml:"recv_timeout"`
	// StaleAfter is how long a router may stay silent before it is
	// considered down (default: 90s; 0 disables stale detection).
	StaleAfter time.Duration `yaml:"stale_after"`
	// Compress enables snappy compression on published frames.
	Compress bool `yaml:"compress"`
}

// IngestConfig configures event normalization.
type IngestConfig struct {
	// DedupWindow is how long delivered event IDs are remembered
	// (default: 30s).
	DedupWindow time.Duration `yaml:"dedup_window"`
	// MaxRetries bounds commit retries after optimistic conflicts
	// (default: 5).
	MaxRetries int `yaml:"max_retries" validate:"gte=0"`
	// QueueSize is the per-peer event queue depth (default: 512).
	QueueSize int `yaml:"queue_size" validate:"gte=0"`
}

// EngineConfig configures the convergence engine.
type EngineConfig struct {
	// Debounce is the change coalescing window (default: 100ms).
	Debounce time.Duration `yaml:"debounce"`
	// Workers bounds concurrent per-prefix convergence runs
	// (default: 4).
	Workers int `yaml:"workers" validate:"gte=0"`
}

// FibConfig bounds retries toward the device FIB.
type FibConfig struct {
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=0"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// HTTPConfig configures the query service.
type HTTPConfig struct {
	// Listen is the bind address, e.g. ":8080".
	Listen string `yaml:"listen" validate:"required"`
	// ReadTimeout and WriteTimeout guard slow clients.
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// JWTSecret enables bearer-token auth when non-empty. Overridden
	// by RCP_JWT_SECRET so the secret can stay out of the file.
	JWTSecret string `yaml:"jwt_secret"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Config is the full daemon configuration.
type Config struct {
	Feed   FeedConfig   `yaml:"feed"`
	Ingest IngestConfig `yaml:"ingest"`
	Engine EngineConfig `yaml:"engine"`
	Fib    FibConfig    `yaml:"fib"`
	HTTP   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`
}

// Default returns a configuration suitable for a single-node lab setup.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			UpstreamAddr: "tcp://127.0.0.1:5556",
			RecvTimeout:  time.Second,
			StaleAfter:   90 * time.Second,
		},
		Ingest: IngestConfig{
			DedupWindow: 30 * time.Second,
			MaxRetries:  5,
			QueueSize:   512,
		},
		Engine: EngineConfig{
			Debounce: 100 * time.Millisecond,
			Workers:  4,
		},
		Fib: FibConfig{
			MaxAttempts: 4,
			BaseBackoff: 100 * time.Millisecond,
			MaxBackoff:  5 * time.Second,
			CallTimeout: 3 * time.Second,
		},
		HTTP: HTTPConfig{
			Listen:       ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

var validate = validator.New()

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if c.Feed.UpstreamAddr == "" {
		return ErrNoFeedUpstream
	}
	if c.HTTP.Listen == "" {
		return ErrInvalidListen
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides the per-deployment values from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("RCP_FEED_UPSTREAM"); v != "" {
		c.Feed.UpstreamAddr = v
	}
	if v := os.Getenv("RCP_HTTP_LISTEN"); v != "" {
		c.HTTP.Listen = v
	}
	if v := os.Getenv("RCP_JWT_SECRET"); v != "" {
		c.HTTP.JWTSecret = v
	}
	if v := os.Getenv("RCP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
