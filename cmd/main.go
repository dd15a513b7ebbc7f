package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/cache"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/events"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/http/api"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/http/swagger"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/repository"
	app "github.com/wrsmith108/love-rank-pulse-sub001/internal/app"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/config"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
	redisDialTimeout       = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	// We collect our own custom system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Local development drops overrides in a .env file; absence is fine.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Rebuild the metrics registry under the configured naming before
	// anything records or scrapes a metric.
	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
	)

	store, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "store initialization failed", logger.Error(err))
		return
	}
	lb := buildCache(ctx, cfg, log)

	var emitter app.Option
	var wsHandler http.HandlerFunc
	if cfg.WebsocketEnabled {
		hub := events.NewHub()
		emitter = app.WithEmitter(hub)
		wsHandler = hub.HandleWS
	} else {
		emitter = app.WithEmitter(events.NopEmitter{})
	}

	svc := app.New(
		app.WithServiceLogger(log),
		app.WithStore(store),
		app.WithCache(lb),
		emitter,
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithRecalcInterval(time.Duration(cfg.RecalcIntervalSeconds)*time.Second),
		app.WithServiceBurstThreshold(cfg.BurstThreshold),
		app.WithStreakWindow(cfg.StreakWindow),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	serverOpts := []api.ServerOption{}
	if cfg.JWTSecret != "" {
		serverOpts = append(serverOpts, api.WithIdentitySecret([]byte(cfg.JWTSecret)))
	}
	if wsHandler != nil {
		serverOpts = append(serverOpts, api.WithWebsocketHandler(wsHandler))
	}
	api.NewServer(svc, serverOpts...).Register(ctx, mux)
	swagger.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildStore selects postgres when a DSN is configured, otherwise the
// in-memory store.
func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	if cfg.PostgresDSN == "" {
		log.Info(ctx, "no postgres dsn configured, using in-memory store")
		return repository.NewMemStore(), nil
	}
	store, err := repository.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "connected to postgres")
	return store, nil
}

// buildCache selects redis when an address is configured and reachable;
// anything else falls back to the in-memory backend so reads keep working.
func buildCache(ctx context.Context, cfg *config.Config, log logger.Logger) *cache.Leaderboard {
	var backend cache.Backend
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DialTimeout: redisDialTimeout,
		})
		rb := cache.NewRedisBackend(client)
		if err := rb.Ping(ctx); err != nil {
			log.Warn(ctx, "redis unreachable, using in-memory cache backend",
				logger.String("addr", cfg.RedisAddr),
				logger.Error(err),
			)
			backend = cache.NewMemoryBackend()
		} else {
			log.Info(ctx, "connected to redis", logger.String("addr", cfg.RedisAddr))
			backend = rb
		}
	} else {
		log.Info(ctx, "no redis addr configured, using in-memory cache backend")
		backend = cache.NewMemoryBackend()
	}

	return cache.NewLeaderboard(backend,
		cache.WithKeyBuilder(cache.NewKeyBuilder(cfg.CacheNamespace)),
		cache.WithTTL(model.ScopeGlobal, time.Duration(cfg.GlobalTTLSeconds)*time.Second),
		cache.WithTTL(model.ScopeCountry, time.Duration(cfg.CountryTTLSeconds)*time.Second),
		cache.WithTTL(model.ScopeSession, time.Duration(cfg.SessionTTLSeconds)*time.Second),
	)
}

// startSystemMetricsUpdater updates process-level metrics on a cadence.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}

// startServiceMetricsUpdater republishes service gauges on a cadence.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := svc.GetStats()
			if queueLen, ok := stats["queueLength"].(int); ok {
				metrics.UpdateQueueSize(queueLen)
			}
		}
	}
}
