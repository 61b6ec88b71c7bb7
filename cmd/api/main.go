package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/physio/engine/internal/cache"
	"github.com/physio/engine/internal/circuitbreaker"
	"github.com/physio/engine/internal/config"
	"github.com/physio/engine/internal/ingest"
	"github.com/physio/engine/internal/metrics"
	"github.com/physio/engine/internal/store"
	"github.com/physio/engine/internal/stream"
)

// health adapts the cache/store clients to ingest.HealthChecker.
type health struct {
	cache *cache.Client
	store *store.Store
}

func (h health) PingCache(ctx context.Context) error { return h.cache.Ping(ctx) }
func (h health) PingStore(ctx context.Context) error { return h.store.Ping(ctx) }

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("api: no .env file found, relying on process environment")
	}

	cfg := config.Get()

	cacheClient, err := cache.NewClient(
		cfg.Cache.URL,
		time.Duration(cfg.Cache.DialTimeoutSec)*time.Second,
		time.Duration(cfg.Cache.ReadTimeoutSec)*time.Second,
	)
	if err != nil {
		log.Fatalf("api: cache unavailable: %v", err)
	}
	defer cacheClient.Close()

	st, err := store.Open(cfg.Store.URL, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns, cfg.Store.ConnMaxLifeMin)
	if err != nil {
		log.Fatalf("api: store unavailable: %v", err)
	}
	defer st.Close()

	breakers := circuitbreaker.NewPipelineCircuitBreakers()

	limiter := cache.NewRateLimiter(cacheClient, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowSec)*time.Second)
	idempotency := cache.NewIdempotencyFilter(cacheClient, time.Duration(cfg.Idempotency.TTLSec)*time.Second)
	publisher := stream.NewPublisher(cacheClient.Raw(), cfg.Stream.Key)

	orchestrator := ingest.NewOrchestrator(limiter, idempotency, st, publisher, breakers)
	reg := prometheus.NewRegistry()
	ingestMetrics := metrics.NewIngest(reg)
	handler := ingest.NewHandler(orchestrator, ingestMetrics)

	router := ingest.NewRouter(handler, health{cache: cacheClient, store: st}, reg)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("api: received shutdown signal, draining in-flight requests")

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSec)*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("api: shutdown error", "error", err)
		}
	}()

	slog.Info("api: starting", "port", cfg.Server.Port, "stream_key", cfg.Stream.Key)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("api: server failed: %v", err)
	}

	slog.Info("api: stopped")
}
