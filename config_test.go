package goSession

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidateEnums(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "memory backend valid",
			mutate: func(c *Config) {
				c.Store.Backend = BackendMemory
			},
			wantValid: true,
		},
		{
			name: "unknown backend invalid",
			mutate: func(c *Config) {
				c.Store.Backend = "etcd"
			},
			wantValid: false,
		},
		{
			name: "redis without addr invalid",
			mutate: func(c *Config) {
				c.Store.Backend = BackendRedis
				c.Store.RedisAddr = ""
			},
			wantValid: false,
		},
		{
			name: "redis negative ttl invalid",
			mutate: func(c *Config) {
				c.Store.Backend = BackendRedis
				c.Store.RedisTTL = -time.Second
			},
			wantValid: false,
		},
		{
			name: "sqlite without path invalid",
			mutate: func(c *Config) {
				c.Store.Backend = BackendSQLite
			},
			wantValid: false,
		},
		{
			name: "sqlite with path valid",
			mutate: func(c *Config) {
				c.Store.Backend = BackendSQLite
				c.Store.SQLitePath = "/tmp/session.db"
			},
			wantValid: true,
		},
		{
			name: "relative base url invalid",
			mutate: func(c *Config) {
				c.Endpoint.BaseURL = "/api"
			},
			wantValid: false,
		},
		{
			name: "negative timeout invalid",
			mutate: func(c *Config) {
				c.Endpoint.Timeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "zero subscriber buffer invalid",
			mutate: func(c *Config) {
				c.State.SubscriberBuffer = 0
			},
			wantValid: false,
		},
		{
			name: "empty reject statuses invalid",
			mutate: func(c *Config) {
				c.Augmenter.RejectStatuses = nil
			},
			wantValid: false,
		},
		{
			name: "success status as reject invalid",
			mutate: func(c *Config) {
				c.Augmenter.RejectStatuses = []int{200}
			},
			wantValid: false,
		},
		{
			name: "401 and 419 valid",
			mutate: func(c *Config) {
				c.Augmenter.RejectStatuses = []int{401, 419}
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestCloneConfigCopiesRejectStatuses(t *testing.T) {
	cfg := DefaultConfig()
	clone := cloneConfig(cfg)
	clone.Augmenter.RejectStatuses[0] = 403
	if cfg.Augmenter.RejectStatuses[0] != 401 {
		t.Fatal("clone must not share the reject status slice")
	}
}

func TestLoadConfigFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	yaml := `store:
  backend: memory
endpoint:
  base_url: http://catalog.local/api
  timeout: 3s
token:
  require_expiry: true
augmenter:
  reject_statuses: [401, 419]
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GOSESSION_ENDPOINT_TIMEOUT", "7s")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Store.Backend)
	}
	if cfg.Endpoint.BaseURL != "http://catalog.local/api" {
		t.Fatalf("unexpected base url %q", cfg.Endpoint.BaseURL)
	}
	if cfg.Endpoint.Timeout != 7*time.Second {
		t.Fatalf("expected env override 7s, got %v", cfg.Endpoint.Timeout)
	}
	if !cfg.Token.RequireExpiry {
		t.Fatal("expected require_expiry from file")
	}
	if len(cfg.Augmenter.RejectStatuses) != 2 || cfg.Augmenter.RejectStatuses[1] != 419 {
		t.Fatalf("unexpected reject statuses %v", cfg.Augmenter.RejectStatuses)
	}
	if cfg.State.SubscriberBuffer != 8 {
		t.Fatalf("expected default subscriber buffer, got %d", cfg.State.SubscriberBuffer)
	}
}

func TestLoadConfigEnvOnly(t *testing.T) {
	t.Setenv("GOSESSION_STORE_BACKEND", "memory")
	t.Setenv("GOSESSION_ENDPOINT_BASE_URL", "https://library.example/api")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Endpoint.BaseURL != "https://library.example/api" {
		t.Fatalf("unexpected base url %q", cfg.Endpoint.BaseURL)
	}
	if cfg.Augmenter.RejectStatuses[0] != 401 {
		t.Fatalf("expected default reject status, got %v", cfg.Augmenter.RejectStatuses)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
