package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker pings the dependencies the /health endpoint reports on.
type HealthChecker interface {
	PingStore(ctx context.Context) error
	PingCache(ctx context.Context) error
}

// NewRouter builds the ingestion front-end's HTTP surface: the ingest
// endpoint, a liveness/readiness probe, and the Prometheus scrape
// endpoint, all behind the request-timing middleware. reg must be the
// same registry the Handler's metrics.Ingest was constructed against.
func NewRouter(handler *Handler, health HealthChecker, reg *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestTiming)

	r.Handle("/ingest", handler).Methods(http.MethodPost)
	r.HandleFunc("/health", healthHandler(health)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}

func healthHandler(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		storeErr := health.PingStore(ctx)
		cacheErr := health.PingCache(ctx)

		status := "ok"
		code := http.StatusOK
		if storeErr != nil || cacheErr != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		body := map[string]string{"status": status}
		if storeErr != nil {
			body["store"] = storeErr.Error()
		}
		if cacheErr != nil {
			body["cache"] = cacheErr.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
