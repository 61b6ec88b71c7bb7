package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/physio/engine/internal/cache"
	"github.com/physio/engine/internal/circuitbreaker"
	"github.com/physio/engine/internal/config"
	"github.com/physio/engine/internal/metrics"
	"github.com/physio/engine/internal/scorer"
	"github.com/physio/engine/internal/store"
	"github.com/physio/engine/internal/stream"
	"github.com/physio/engine/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("worker: no .env file found, relying on process environment")
	}

	cfg := config.Get()

	// The model must load before anything else starts: a worker with no
	// scorer cannot do its job, so a missing or malformed artifact is
	// fatal at startup (core.ErrModelUnloadable).
	model, err := scorer.Load(cfg.Model.Path)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	cacheClient, err := cache.NewClient(
		cfg.Cache.URL,
		time.Duration(cfg.Cache.DialTimeoutSec)*time.Second,
		time.Duration(cfg.Cache.ReadTimeoutSec)*time.Second,
	)
	if err != nil {
		log.Fatalf("worker: cache unavailable: %v", err)
	}
	defer cacheClient.Close()

	st, err := store.Open(cfg.Store.URL, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns, cfg.Store.ConnMaxLifeMin)
	if err != nil {
		log.Fatalf("worker: store unavailable: %v", err)
	}
	defer st.Close()

	breakers := circuitbreaker.NewPipelineCircuitBreakers()
	reg := prometheus.NewRegistry()
	workerMetrics := metrics.NewWorker(reg)

	consumerName := "worker-" + os.Getenv("HOSTNAME") + "-" + uuid.New().String()
	consumer := stream.NewConsumer(
		cacheClient.Raw(),
		cfg.Stream.Key,
		cfg.Stream.Group,
		consumerName,
		cfg.Stream.BatchSize,
		time.Duration(cfg.Stream.BlockMs)*time.Millisecond,
		time.Duration(cfg.Stream.ClaimMinIdleS)*time.Second,
	)

	w := worker.New(consumer, st, model, breakers, workerMetrics)

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("worker: received shutdown signal, finishing current batch")
		cancel()
	}()

	go serveMetrics(cfg.Server.Port, reg)

	if err := w.Recover(ctx); err != nil {
		log.Fatalf("worker: recovery failed: %v", err)
	}

	slog.Info("worker: starting", "consumer", consumerName, "stream_key", cfg.Stream.Key, "group", cfg.Stream.Group)
	w.Run(ctx)
	slog.Info("worker: stopped")
}

func serveMetrics(port string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	addr := ":" + incrementPort(port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("worker: metrics server stopped", "error", err)
	}
}

// incrementPort offsets the worker's metrics port from the api's HTTP
// port so both binaries can run on one host without a collision.
func incrementPort(port string) string {
	n := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return "9100"
		}
		n = n*10 + int(c-'0')
	}
	return strconv.Itoa(n + 1000)
}
