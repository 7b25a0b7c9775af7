package authclient

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config is the complete client configuration. Start from [DefaultConfig] and
// override fields; [Builder.Build] validates it.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Refresh RefreshConfig `yaml:"refresh"`
	Session SessionConfig `yaml:"session"`
	Notify  NotifyConfig  `yaml:"notify"`
	Metrics MetricsConfig `yaml:"metrics"`
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig controls request dispatch.
type HTTPConfig struct {
	// BaseURL resolves relative Request.URL values. Optional.
	BaseURL string `yaml:"base_url"`
	// Timeout bounds a single attempt. Zero means no client-side timeout.
	Timeout          time.Duration `yaml:"timeout"`
	MaxResponseBytes int64         `yaml:"max_response_bytes"`
	UserAgent        string        `yaml:"user_agent"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the refresh cycle.
type RefreshConfig struct {
	// Endpoint is the refresh URL used when no Refresher is supplied to the Builder.
	Endpoint string `yaml:"endpoint"`
	// Timeout bounds one refresh call, independent of any caller's context.
	Timeout time.Duration `yaml:"timeout"`
	// RefreshAhead refreshes before dispatch when the access token is a JWT expiring
	// within this window. Zero disables it.
	RefreshAhead time.Duration `yaml:"refresh_ahead"`
	// Leeway is subtracted from a JWT exp claim before comparing.
	Leeway time.Duration `yaml:"leeway"`
	// TeardownOnDoubleFailure clears the session when a replayed request is rejected again.
	TeardownOnDoubleFailure bool `yaml:"teardown_on_double_failure"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig selects and tunes the built-in session stores.
type SessionConfig struct {
	RedisKey string        `yaml:"redis_key"`
	RedisTTL time.Duration `yaml:"redis_ttl"`
	// SQLitePath opens a SQLite-backed store when no store is supplied to the Builder.
	SQLitePath string `yaml:"sqlite_path"`
	// SealKey is a 32-byte key; when set, persisted sessions are encrypted.
	SealKey []byte `yaml:"-"`
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig controls async delivery to the notification sink.
type NotifyConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
	// CoalesceWindow folds repeated server and network errors with the same message
	// into one notification. Zero disables it.
	CoalesceWindow time.Duration `yaml:"coalesce_window"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:          30 * time.Second,
			MaxResponseBytes: 10 << 20,
			UserAgent:        "authclient/1",
		},
		Refresh: RefreshConfig{
			Timeout:                 15 * time.Second,
			RefreshAhead:            0,
			Leeway:                  5 * time.Second,
			TeardownOnDoubleFailure: true,
		},
		Session: SessionConfig{
			RedisKey: "authclient:session",
			RedisTTL: 0,
		},
		Notify: NotifyConfig{
			Enabled:        true,
			BufferSize:     64,
			DropIfFull:     true,
			CoalesceWindow: 3 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.SealKey = cloneBytes(cfg.Session.SealKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field of c.
func (c *Config) Validate() error {
	// HTTP
	if c.HTTP.BaseURL != "" {
		u, err := url.Parse(c.HTTP.BaseURL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return errors.New("HTTP BaseURL must be an absolute http(s) URL")
		}
	}
	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP Timeout must be >= 0")
	}
	if c.HTTP.MaxResponseBytes <= 0 {
		return errors.New("HTTP MaxResponseBytes must be > 0")
	}

	// Refresh
	if c.Refresh.Endpoint != "" {
		u, err := url.Parse(c.Refresh.Endpoint)
		if err != nil || (!u.IsAbs() && c.HTTP.BaseURL == "") {
			return errors.New("Refresh Endpoint must be absolute or relative to HTTP BaseURL")
		}
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Refresh.RefreshAhead < 0 {
		return errors.New("Refresh RefreshAhead must be >= 0")
	}
	if c.Refresh.Leeway < 0 {
		return errors.New("Refresh Leeway must be >= 0")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisKey) == "" {
		return errors.New("Session RedisKey must not be empty")
	}
	if c.Session.RedisTTL < 0 {
		return errors.New("Session RedisTTL must be >= 0")
	}
	if len(c.Session.SealKey) != 0 && len(c.Session.SealKey) != 32 {
		return errors.New("Session SealKey must be 32 bytes")
	}

	// Notify
	if c.Notify.Enabled && c.Notify.BufferSize <= 0 {
		return errors.New("Notify BufferSize must be > 0 when Notify is enabled")
	}
	if c.Notify.CoalesceWindow < 0 {
		return errors.New("Notify CoalesceWindow must be >= 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
