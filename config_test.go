package authclient

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if !cfg.Refresh.TeardownOnDoubleFailure {
		t.Fatal("expected teardown on double failure by default")
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"relative base url":      func(c *Config) { c.HTTP.BaseURL = "/api" },
		"negative timeout":       func(c *Config) { c.HTTP.Timeout = -time.Second },
		"zero body limit":        func(c *Config) { c.HTTP.MaxResponseBytes = 0 },
		"relative endpoint":      func(c *Config) { c.Refresh.Endpoint = "/auth/refresh" },
		"zero refresh timeout":   func(c *Config) { c.Refresh.Timeout = 0 },
		"negative refresh ahead": func(c *Config) { c.Refresh.RefreshAhead = -time.Second },
		"empty redis key":        func(c *Config) { c.Session.RedisKey = " " },
		"short seal key":         func(c *Config) { c.Session.SealKey = []byte("short") },
		"zero notify buffer":     func(c *Config) { c.Notify.BufferSize = 0 },
		"negative coalesce":      func(c *Config) { c.Notify.CoalesceWindow = -time.Second },
		"latency without metrics": func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.EnableLatencyHistograms = true
		},
	}

	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCloneConfigCopiesSealKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.SealKey = make([]byte, 32)
	out := cloneConfig(cfg)
	out.Session.SealKey[0] = 1
	if cfg.Session.SealKey[0] != 0 {
		t.Fatal("clone shares SealKey backing array")
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	data := `
http:
  base_url: https://api.example.com
  timeout: 12s
refresh:
  endpoint: /auth/refresh
  refresh_ahead: 30s
  teardown_on_double_failure: false
notify:
  buffer_size: 8
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.BaseURL != "https://api.example.com" || cfg.HTTP.Timeout != 12*time.Second {
		t.Fatalf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.Refresh.RefreshAhead != 30*time.Second || cfg.Refresh.TeardownOnDoubleFailure {
		t.Fatalf("unexpected refresh config %+v", cfg.Refresh)
	}
	if cfg.Refresh.Timeout != DefaultConfig().Refresh.Timeout {
		t.Fatal("unset fields must keep defaults")
	}
	if cfg.Notify.BufferSize != 8 {
		t.Fatalf("unexpected notify config %+v", cfg.Notify)
	}
}

func TestLoadConfigFileJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.jsonc")
	data := `{
  // staging
  "http": {"base_url": "https://staging.example.com", "max_response_bytes": 1024},
  "refresh": {"endpoint": "https://auth.example.com/refresh", "timeout": "3s",},
  /* counters on */
  "metrics": {"enabled": true, "enable_latency_histograms": true},
}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.MaxResponseBytes != 1024 || cfg.Refresh.Timeout != 3*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.Metrics.Enabled || !cfg.Metrics.EnableLatencyHistograms {
		t.Fatalf("unexpected metrics config %+v", cfg.Metrics)
	}
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte("http:\n  base_ulr: https://x\n"), "yaml")
	if err == nil || !strings.Contains(err.Error(), "base_ulr") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestParseConfigValidates(t *testing.T) {
	if _, err := ParseConfig([]byte("refresh:\n  timeout: 0s\n"), "yaml"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("APP_HTTP_BASE_URL", "https://env.example.com")
	t.Setenv("APP_REFRESH_TIMEOUT", "7s")
	t.Setenv("APP_REFRESH_AHEAD", "0s")
	t.Setenv("APP_NOTIFY_ENABLED", "false")
	t.Setenv("APP_SESSION_SEAL_KEY", strings.Repeat("ab", 32))
	t.Setenv("APP_HTTP_MAX_RESPONSE_BYTES", "not-a-number")

	base := DefaultConfig()
	base.Refresh.RefreshAhead = time.Minute
	cfg := ApplyEnv(base, "APP")

	if cfg.HTTP.BaseURL != "https://env.example.com" || cfg.Refresh.Timeout != 7*time.Second {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.Refresh.RefreshAhead != 0 {
		t.Fatal("expected refresh-ahead switched off")
	}
	if cfg.Notify.Enabled {
		t.Fatal("expected notify disabled")
	}
	if len(cfg.Session.SealKey) != 32 || cfg.Session.SealKey[0] != 0xab {
		t.Fatalf("unexpected seal key %x", cfg.Session.SealKey)
	}
	if cfg.HTTP.MaxResponseBytes != base.HTTP.MaxResponseBytes {
		t.Fatal("unparsable value must keep the current one")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env config invalid: %v", err)
	}
}

func TestBuilderSingleUseAndRefresherRequired(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without refresher or endpoint")
	}

	cfg := DefaultConfig()
	cfg.Refresh.Endpoint = "https://auth.example.com/refresh"
	b := New().WithConfig(cfg)
	c, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}
}
