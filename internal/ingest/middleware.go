package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestTiming stamps every request with a correlation ID and logs
// path/status/latency, mirroring the original system's
// add_process_time_header middleware, adapted to Go's http.Handler chain.
func RequestTiming(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK, start: start, requestID: requestID}

		next.ServeHTTP(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		slog.Info("request",
			"request_id", requestID,
			"path", r.URL.Path,
			"status", rec.status,
			"latency_ms", elapsed.Milliseconds(),
		)
	})
}

// statusRecorder injects the request-ID and process-time headers at the
// moment the wrapped handler commits its own status code, since headers
// cannot be set after WriteHeader has already been called.
type statusRecorder struct {
	http.ResponseWriter
	status    int
	start     time.Time
	requestID string
	wrote     bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.wrote = true
		r.status = status
		r.Header().Set("X-Request-ID", r.requestID)
		r.Header().Set("X-Process-Time-Ms", formatMillis(time.Since(r.start)))
	}
	r.ResponseWriter.WriteHeader(status)
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
