package authclient

import (
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides cfg from environment variables named prefix + "_" + SECTION +
// "_" + FIELD, for example AUTHCLIENT_HTTP_BASE_URL or AUTHCLIENT_REFRESH_TIMEOUT.
// Unset or unparsable variables keep the current value. SESSION_SEAL_KEY is hex.
func ApplyEnv(cfg Config, prefix string) Config {
	if prefix == "" {
		prefix = "AUTHCLIENT"
	}
	key := func(name string) string { return prefix + "_" + name }

	cfg.HTTP.BaseURL = envString(key("HTTP_BASE_URL"), cfg.HTTP.BaseURL)
	cfg.HTTP.Timeout = envDuration(key("HTTP_TIMEOUT"), cfg.HTTP.Timeout)
	cfg.HTTP.MaxResponseBytes = envInt64(key("HTTP_MAX_RESPONSE_BYTES"), cfg.HTTP.MaxResponseBytes)
	cfg.HTTP.UserAgent = envString(key("HTTP_USER_AGENT"), cfg.HTTP.UserAgent)

	cfg.Refresh.Endpoint = envString(key("REFRESH_ENDPOINT"), cfg.Refresh.Endpoint)
	cfg.Refresh.Timeout = envDuration(key("REFRESH_TIMEOUT"), cfg.Refresh.Timeout)
	cfg.Refresh.RefreshAhead = envDuration(key("REFRESH_AHEAD"), cfg.Refresh.RefreshAhead)
	cfg.Refresh.Leeway = envDuration(key("REFRESH_LEEWAY"), cfg.Refresh.Leeway)
	cfg.Refresh.TeardownOnDoubleFailure = envBool(key("REFRESH_TEARDOWN_ON_DOUBLE_FAILURE"), cfg.Refresh.TeardownOnDoubleFailure)

	cfg.Session.RedisKey = envString(key("SESSION_REDIS_KEY"), cfg.Session.RedisKey)
	cfg.Session.RedisTTL = envDuration(key("SESSION_REDIS_TTL"), cfg.Session.RedisTTL)
	cfg.Session.SQLitePath = envString(key("SESSION_SQLITE_PATH"), cfg.Session.SQLitePath)
	if v := strings.TrimSpace(os.Getenv(key("SESSION_SEAL_KEY"))); v != "" {
		if b, err := hex.DecodeString(v); err == nil {
			cfg.Session.SealKey = b
		}
	}

	cfg.Notify.Enabled = envBool(key("NOTIFY_ENABLED"), cfg.Notify.Enabled)
	cfg.Notify.BufferSize = envInt(key("NOTIFY_BUFFER_SIZE"), cfg.Notify.BufferSize)
	cfg.Notify.DropIfFull = envBool(key("NOTIFY_DROP_IF_FULL"), cfg.Notify.DropIfFull)
	cfg.Notify.CoalesceWindow = envDuration(key("NOTIFY_COALESCE_WINDOW"), cfg.Notify.CoalesceWindow)

	cfg.Metrics.Enabled = envBool(key("METRICS_ENABLED"), cfg.Metrics.Enabled)
	cfg.Metrics.EnableLatencyHistograms = envBool(key("METRICS_LATENCY_HISTOGRAMS"), cfg.Metrics.EnableLatencyHistograms)

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// envDuration accepts zero so a window can be switched off.
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}
