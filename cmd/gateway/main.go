package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notes-gateway/dispatch"
	"notes-gateway/dispatch/domain"
	"notes-gateway/dispatch/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := dispatch.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := dispatch.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	tmpl, err := dispatch.LoadTemplate(cfg)
	if err != nil {
		log.Fatalf("prompt error: %v", err)
	}

	providers, err := dispatch.BuildProviders(cfg)
	if err != nil {
		log.Fatalf("provider error: %v", err)
	}
	if len(providers) == 0 {
		logger.Warn("no provider credentials configured, only captions-only batches will succeed",
			"err", domain.ErrNoProviders)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infra.NewMetrics(reg)

	mem := infra.NewMemoryStatsStore()
	stats := infra.TeeStats{metrics, mem}
	if cfg.StatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.StatsRedisAddr,
			Password: cfg.StatsRedisPassword,
			DB:       cfg.StatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis stats ping error: %v", err)
		}

		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.StatsPrefix),
			infra.WithStatsTTL(cfg.StatsTTL),
			infra.WithStatsBucket(cfg.StatsBucket),
			infra.WithStatsTrackItems(cfg.StatsTrackItems),
		))
	}

	d := dispatch.NewDispatcher(cfg, providers, dispatch.Options{
		Logger:   logger,
		Observer: metrics,
		Stats:    stats,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	batches := http.Handler(&dispatch.BatchHandler{
		Dispatcher:         d,
		Template:           tmpl,
		DefaultConcurrency: cfg.BatchConcurrency,
		Logger:             logger,
	})
	batches = dispatch.AdmissionMiddleware(dispatch.AdmissionOptions{
		MaxBatches:     cfg.MaxBatches,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.BatchAcquireTimeout,
		Logger:         logger,
	})(batches)
	if cfg.ClientBatchesPerMinute > 0 {
		quota := infra.NewQuotaStore(cfg.ClientBatchesPerMinute, cfg.ClientBatchBurst)
		quota.StartJanitor(ctx)
		batches = dispatch.QuotaMiddleware(dispatch.QuotaOptions{
			Store:              quota,
			KeyHeader:          cfg.ClientKeyHeader,
			TrustXForwardedFor: cfg.TrustXFF,
			Logger:             logger,
		})(batches)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/batches", batches)
	mux.Handle("/v1/stats", dispatch.StatsHandler(mem))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	// Sem WriteTimeout: o stream SSE dura o lote inteiro. O BaseContext faz o
	// shutdown cancelar os lotes em andamento.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       90 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("gateway listening on %s (providers=%d)", cfg.ListenAddr, len(providers))
	for _, line := range cfg.Summary() {
		log.Print(line)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
