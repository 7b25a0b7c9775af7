package authclient

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/MrEthical07/authclient/internal/flight"
	"github.com/MrEthical07/authclient/internal/notify"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/redis/go-redis/v9"
)

const sealAssociatedData = "authclient/session/v1"

// Builder assembles a [Client].
//
// Builder instances are intended to be configured during initialization and used
// once; a second Build fails.
type Builder struct {
	config Config
	store  session.Store
	redis  redis.UniversalClient

	refresher  refresh.Refresher
	httpClient *http.Client

	sink   NotificationSink
	logger *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSessionStore sets the session store. It takes precedence over WithRedis and
// SessionConfig.SQLitePath.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithRedis persists the session in Redis under SessionConfig.RedisKey.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRefresher sets the refresh exchange. Without it, Build creates an HTTP
// refresher for RefreshConfig.Endpoint.
func (b *Builder) WithRefresher(r refresh.Refresher) *Builder {
	b.refresher = r
	return b
}

// WithHTTPClient sets the client used for dispatch and for the default refresher.
// HTTPConfig.Timeout is ignored when a client is supplied.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

func (b *Builder) WithNotificationSink(sink NotificationSink) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var baseURL *url.URL
	if cfg.HTTP.BaseURL != "" {
		u, err := url.Parse(cfg.HTTP.BaseURL)
		if err != nil {
			return nil, err
		}
		baseURL = u
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTP.Timeout}
	}

	// -------- SESSION STORE --------
	var sealer *session.Sealer
	if len(cfg.Session.SealKey) > 0 {
		s, err := session.NewSealer(cfg.Session.SealKey, sealAssociatedData)
		if err != nil {
			return nil, err
		}
		sealer = s
	}

	var closers []io.Closer
	store := b.store
	switch {
	case store != nil:
	case b.redis != nil:
		store = session.NewRedisStore(b.redis, cfg.Session.RedisKey, cfg.Session.RedisTTL, sealer)
	case cfg.Session.SQLitePath != "":
		s, err := session.OpenSQLiteStore(cfg.Session.SQLitePath, sealer)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		store = s
		closers = append(closers, s)
	default:
		store = session.NewMemoryStore()
	}

	// -------- REFRESHER --------
	refresher := b.refresher
	if refresher == nil {
		if cfg.Refresh.Endpoint == "" {
			closeAll(closers)
			return nil, errors.New("refresher required: set Refresh Endpoint or use WithRefresher")
		}
		endpoint, err := url.Parse(cfg.Refresh.Endpoint)
		if err != nil {
			closeAll(closers)
			return nil, err
		}
		if !endpoint.IsAbs() {
			endpoint = baseURL.ResolveReference(endpoint)
		}
		refresher = refresh.NewHTTPRefresher(endpoint.String(), httpClient)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var inspector *jwt.Inspector
	if cfg.Refresh.RefreshAhead > 0 {
		inspector = jwt.NewInspector(cfg.Refresh.Leeway)
	}

	sink := b.sink
	if sink == nil {
		sink = NoOpSink{}
	}

	c := &Client{
		cfg:       cfg,
		baseURL:   baseURL,
		http:      httpClient,
		store:     store,
		refresher: refresher,
		coord:     flight.New(),
		inspector: inspector,
		notifier: notify.NewDispatcher(notify.Config{
			Enabled:        cfg.Notify.Enabled,
			BufferSize:     cfg.Notify.BufferSize,
			DropIfFull:     cfg.Notify.DropIfFull,
			CoalesceWindow: cfg.Notify.CoalesceWindow,
		}, sink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		closers: closers,
	}

	b.built = true
	return c, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
