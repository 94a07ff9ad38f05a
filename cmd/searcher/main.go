package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/app"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/intent"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/menu-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting menu search service",
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
		"synonym_store", cfg.Synonyms.Store,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checker := health.NewChecker()

	var pg *postgres.Client
	if cfg.Postgres.Enabled {
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		checker.Register("postgres", health.PingCheck(pg))
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			if cfg.Synonyms.Store == "redis" {
				slog.Error("redis is required by the synonym store", "error", err)
				os.Exit(1)
			}
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			checker.Register("redis", health.OptionalCheck(health.PingCheck(redisClient)))
		}
	}

	source, err := app.CatalogSource(cfg.Catalog, cfg.Search, pg)
	if err != nil {
		slog.Error("invalid catalog configuration", "error", err)
		os.Exit(1)
	}
	table, err := app.SynonymTable(cfg.Synonyms)
	if err != nil {
		slog.Error("failed to load synonym table", "error", err)
		os.Exit(1)
	}
	personal, closeStore, err := app.SynonymStore(ctx, cfg.Synonyms, redisClient)
	if err != nil {
		slog.Error("failed to open personal synonym store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Without Kafka the collector feeds the aggregator directly.
	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher = aggregator
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = producer
		if cfg.Analytics.Consume {
			consumer := kafka.NewConsumer(cfg.Kafka, analytics.HandleEvent(aggregator))
			go func() {
				if err := consumer.Start(ctx); err != nil {
					slog.Error("analytics consumer error", "error", err)
				}
			}()
		}
		slog.Info("analytics pipeline enabled",
			"topic", cfg.Kafka.Topic,
			"brokers", cfg.Kafka.Brokers,
			"consume", cfg.Analytics.Consume,
		)
	}
	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize, 100, time.Second)
	collector.Start(ctx)
	defer collector.Close()

	var snapshots analytics.SnapshotLister
	if pg != nil && cfg.Analytics.SnapshotInterval > 0 {
		store := snapshot.NewStore(pg.DB)
		snapshots = store
		go store.Run(ctx, aggregator, cfg.Analytics.SnapshotInterval)
	}

	var queryCache *cache.QueryCache
	extra := []executor.Option{executor.WithMetrics(m), executor.WithTracker(collector)}
	if redisClient != nil {
		queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		extra = append(extra, executor.WithCache(queryCache))
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}
	engine := executor.New(source, table, personal, app.EngineOptions(cfg.Search, extra...)...)
	if err := engine.Load(ctx); err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	for _, lang := range cfg.Search.Languages {
		if _, err := engine.Stats(ctx, lang); err != nil {
			slog.Warn("skipping index warm-up", "lang", lang, "error", err)
		}
	}
	go engine.RunReloader(ctx, cfg.Catalog.ReloadInterval)

	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		cat := engine.Catalog()
		if cat == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "catalog not loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: "version " + cat.Version}
	})

	h := handler.New(engine, intent.NewDefaultRouter(engine), queryCache, collector, m, cfg.Search.MaxResults)
	analyticsH := analytics.NewHandler(aggregator, snapshots)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsH.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Server.Port {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Metrics(m),
	}
	if len(cfg.Server.AllowOrigins) > 0 {
		chain = append(chain, middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins...)))
	}
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimitPerMinute, time.Minute)
		if err := limiter.TrustProxies(cfg.Server.TrustedProxies...); err != nil {
			slog.Error("invalid server.trustedProxies", "error", err)
			os.Exit(1)
		}
		chain = append(chain, middleware.RateLimit(limiter))
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					limiter.Sweep()
				}
			}
		}()
	}
	chain = append(chain, middleware.Timeout(cfg.Server.WriteTimeout))

	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, chain...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("menu search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := personal.Persist(flushCtx); err != nil {
		slog.Warn("flushing learned synonyms failed", "error", err)
	}
	slog.Info("menu search service stopped")
}
