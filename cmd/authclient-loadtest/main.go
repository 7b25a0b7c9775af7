package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authclient"
	authotel "github.com/MrEthical07/authclient/metrics/export/otel"
	"github.com/MrEthical07/authclient/metrics/export/prometheus"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func main() {
	flagSet := pflag.NewFlagSet("authclient-loadtest", pflag.ContinueOnError)
	var (
		rounds       = flagSet.Int("rounds", 20, "number of token expiry rounds")
		concurrency  = flagSet.Int("concurrency", 64, "concurrent requests per round")
		refreshDelay = flagSet.Duration("refresh-delay", 20*time.Millisecond, "artificial latency of the fake refresh endpoint")
		storeKind    = flagSet.String("store", "memory", "session store: memory, redis or sqlite")
		redisAddr    = flagSet.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		sqlitePath   = flagSet.String("sqlite-path", "", "sqlite database path for --store=sqlite")
		configPath   = flagSet.String("config", "", "optional YAML or JSONC client config")
		metricsAddr  = flagSet.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
		otelDump     = flagSet.Bool("otel", false, "collect through the OpenTelemetry exporter and print the result")
		verbose      = flagSet.BoolP("verbose", "v", false, "debug logging")
	)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *rounds <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "rounds and concurrency must be > 0")
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	api := newFakeAPI(*refreshDelay)
	srv := httptest.NewServer(api.routes())
	defer srv.Close()

	cfg := authclient.DefaultConfig()
	if *configPath != "" {
		loaded, err := authclient.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg = authclient.ApplyEnv(cfg, "AUTHCLIENT")
	cfg.HTTP.BaseURL = srv.URL
	cfg.Refresh.Endpoint = "/auth/refresh"
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	builder := authclient.New().WithConfig(cfg).WithLogger(logger)

	switch *storeKind {
	case "memory":
	case "redis":
		rdb, cleanup, err := openRedis(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		builder.WithRedis(rdb)
	case "sqlite":
		path := *sqlitePath
		if path == "" {
			dir, err := os.MkdirTemp("", "authclient-loadtest")
			if err != nil {
				fmt.Fprintf(os.Stderr, "temp dir: %v\n", err)
				os.Exit(1)
			}
			defer os.RemoveAll(dir)
			path = dir + "/session.db"
		}
		store, err := session.OpenSQLiteStore(path, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sqlite: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		builder.WithSessionStore(store)
	default:
		fmt.Fprintf(os.Stderr, "unknown store %q\n", *storeKind)
		os.Exit(2)
	}

	client, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", prometheus.Handler(prometheus.NewCollector(client)))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		fmt.Printf("metrics on http://%s/metrics\n", *metricsAddr)
	}

	var reader *sdkmetric.ManualReader
	if *otelDump {
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer provider.Shutdown(context.Background())
		exporter, err := authotel.NewExporter(provider.Meter("authclient-loadtest"), client)
		if err != nil {
			fmt.Fprintf(os.Stderr, "otel exporter: %v\n", err)
			os.Exit(1)
		}
		defer exporter.Close()
	}

	ctx := context.Background()
	access, refreshToken := api.login()
	if err := client.StartSession(ctx, refresh.Pair{AccessToken: access, RefreshToken: refreshToken}); err != nil {
		fmt.Fprintf(os.Stderr, "start session: %v\n", err)
		os.Exit(1)
	}

	var all []time.Duration
	var failures int64
	badRounds := 0
	start := time.Now()
	for r := 0; r < *rounds; r++ {
		api.expireAccess()
		before := api.refreshCalls.Load()

		latencies, failed := runRound(ctx, client, r, *concurrency)
		all = append(all, latencies...)
		failures += failed

		if got := api.refreshCalls.Load() - before; got != 1 {
			badRounds++
			fmt.Printf("round %d: expected 1 refresh call, observed %d\n", r, got)
		}
	}
	total := time.Since(start)

	snapshot := client.MetricsSnapshot()
	fmt.Println("---- results ----")
	fmt.Printf("requests=%d failures=%d rounds=%d rounds_with_extra_refresh=%d\n",
		len(all), failures, *rounds, badRounds)
	fmt.Printf("refresh_calls=%d refresh_cycles=%d replays=%d reuse_rejections=%d\n",
		api.refreshCalls.Load(),
		snapshot.Counters[authclient.MetricRefreshStarted],
		snapshot.Counters[authclient.MetricReplay],
		api.reuseRejections.Load(),
	)
	fmt.Printf("notifications_dropped=%d notifications_coalesced=%d\n",
		client.NotificationsDropped(), client.NotificationsCoalesced())
	printStats(computeStats(total, all))

	if reader != nil {
		if err := printOTel(ctx, reader); err != nil {
			fmt.Fprintf(os.Stderr, "otel collect: %v\n", err)
		}
	}

	if badRounds > 0 || failures > 0 {
		os.Exit(1)
	}
}

func runRound(ctx context.Context, client *authclient.Client, round, concurrency int) ([]time.Duration, int64) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		failures  int64
		latencies = make([]time.Duration, 0, concurrency)
	)

	wg.Add(concurrency)
	for w := 0; w < concurrency; w++ {
		go func(worker int) {
			defer wg.Done()
			t0 := time.Now()
			_, err := client.Do(ctx, authclient.Request{
				Method: http.MethodGet,
				URL:    fmt.Sprintf("/accounts/%d/balance?round=%d", worker, round),
			})
			d := time.Since(t0)
			if err != nil {
				atomic.AddInt64(&failures, 1)
			}
			mu.Lock()
			latencies = append(latencies, d)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return latencies, failures
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	fmt.Printf("using redis at %s\n", addr)
	return client, func() { _ = client.Close() }, nil
}

// printOTel prints every integer data point the exporter produced, sorted by name.
func printOTel(ctx context.Context, reader *sdkmetric.ManualReader) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return err
	}

	var lines []string
	add := func(name string, dps []metricdata.DataPoint[int64]) {
		for _, dp := range dps {
			label := name
			if dp.Attributes.Len() > 0 {
				var attrs []string
				for _, kv := range dp.Attributes.ToSlice() {
					attrs = append(attrs, string(kv.Key)+"="+kv.Value.Emit())
				}
				label += "{" + strings.Join(attrs, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %d", label, dp.Value))
		}
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				add(m.Name, data.DataPoints)
			case metricdata.Gauge[int64]:
				add(m.Name, data.DataPoints)
			}
		}
	}
	sort.Strings(lines)

	fmt.Println("---- otel ----")
	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}

type runStats struct {
	total   time.Duration
	ops     int
	p50     time.Duration
	p95     time.Duration
	p99     time.Duration
	opsPerS float64
}

func computeStats(total time.Duration, samples []time.Duration) runStats {
	if len(samples) == 0 {
		return runStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return runStats{
		total:   total,
		ops:     len(samples),
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(s runStats) {
	fmt.Printf("latency: ops=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		s.ops,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
