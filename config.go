package goSession

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the complete Authority configuration. Load it with [LoadConfig] or
// start from [DefaultConfig] and adjust.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Token     TokenConfig     `yaml:"token"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	State     StateConfig     `yaml:"state"`
	Augmenter AugmenterConfig `yaml:"augmenter"`
}

/*
====================================
STORE CONFIG
====================================
*/

// Store backends accepted by StoreConfig.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// StoreConfig selects the durable credential backend. The ephemeral scope is
// always process memory.
type StoreConfig struct {
	Backend     string        `yaml:"backend"      env:"GOSESSION_STORE_BACKEND"      env-default:"file"`
	Path        string        `yaml:"path"         env:"GOSESSION_STORE_PATH"`
	RedisAddr   string        `yaml:"redis_addr"   env:"GOSESSION_STORE_REDIS_ADDR"   env-default:"localhost:6379"`
	RedisPrefix string        `yaml:"redis_prefix" env:"GOSESSION_STORE_REDIS_PREFIX" env-default:"gs"`
	RedisTTL    time.Duration `yaml:"redis_ttl"    env:"GOSESSION_STORE_REDIS_TTL"    env-default:"0s"`
	SQLitePath  string        `yaml:"sqlite_path"  env:"GOSESSION_STORE_SQLITE_PATH"`
}

/*
====================================
ENDPOINT CONFIG
====================================
*/

// EndpointConfig locates the authentication endpoint.
type EndpointConfig struct {
	BaseURL string        `yaml:"base_url" env:"GOSESSION_ENDPOINT_BASE_URL" env-default:"http://localhost:5164/api"`
	Timeout time.Duration `yaml:"timeout"  env:"GOSESSION_ENDPOINT_TIMEOUT"  env-default:"10s"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls credential evaluation.
type TokenConfig struct {
	// RequireExpiry treats a credential without an exp claim as expired.
	RequireExpiry bool `yaml:"require_expiry" env:"GOSESSION_TOKEN_REQUIRE_EXPIRY" env-default:"false"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"      env:"GOSESSION_AUDIT_ENABLED"      env-default:"false"`
	BufferSize int  `yaml:"buffer_size"  env:"GOSESSION_AUDIT_BUFFER_SIZE"  env-default:"256"`
	DropIfFull bool `yaml:"drop_if_full" env:"GOSESSION_AUDIT_DROP_IF_FULL" env-default:"true"`
}

// MetricsConfig controls in-process metric collection.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"                   env:"GOSESSION_METRICS_ENABLED"            env-default:"true"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms" env:"GOSESSION_METRICS_LATENCY_HISTOGRAMS" env-default:"false"`
}

/*
====================================
STATE / AUGMENTER CONFIG
====================================
*/

// StateConfig controls state subscriptions.
type StateConfig struct {
	// SubscriberBuffer is the default channel capacity for Subscribe(0).
	SubscriberBuffer int `yaml:"subscriber_buffer" env:"GOSESSION_STATE_SUBSCRIBER_BUFFER" env-default:"8"`
}

// AugmenterConfig controls outbound request augmentation.
type AugmenterConfig struct {
	// RejectStatuses are response codes that force session expiry.
	RejectStatuses []int `yaml:"reject_statuses" env:"GOSESSION_AUGMENTER_REJECT_STATUSES" env-separator:"," env-default:"401"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when nothing is loaded.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend:     BackendFile,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "gs",
		},
		Endpoint: EndpointConfig{
			BaseURL: "http://localhost:5164/api",
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		State: StateConfig{
			SubscriberBuffer: 8,
		},
		Augmenter: AugmenterConfig{
			RejectStatuses: []int{401},
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Augmenter.RejectStatuses = append([]int(nil), cfg.Augmenter.RejectStatuses...)
	return out
}

// LoadConfig reads configuration from the YAML file at path, with environment
// variables (GOSESSION_*) overriding file values. An empty path reads the
// environment only. The result is validated.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis backend")
		}
		if c.Store.RedisTTL < 0 {
			return errors.New("store.redis_ttl must be >= 0")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" && c.Store.Path == "" {
			return errors.New("store.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}

	if c.Endpoint.BaseURL == "" {
		return errors.New("endpoint.base_url is required")
	}
	u, err := url.Parse(c.Endpoint.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint.base_url %q is not an absolute URL", c.Endpoint.BaseURL)
	}
	if c.Endpoint.Timeout < 0 {
		return errors.New("endpoint.timeout must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit.buffer_size must be > 0 when audit is enabled")
	}
	if c.State.SubscriberBuffer <= 0 {
		return errors.New("state.subscriber_buffer must be > 0")
	}

	if len(c.Augmenter.RejectStatuses) == 0 {
		return errors.New("augmenter.reject_statuses must not be empty")
	}
	for _, status := range c.Augmenter.RejectStatuses {
		if status < 400 || status > 599 {
			return fmt.Errorf("augmenter.reject_statuses: %d is not an error status", status)
		}
	}
	return nil
}
