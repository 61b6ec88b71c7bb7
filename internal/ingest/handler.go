package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/physio/engine/internal/core"
	"github.com/physio/engine/internal/metrics"
)

// requestBody is the wire shape of POST /ingest.
type requestBody struct {
	PatientID string  `json:"patient_id"`
	Timestamp string  `json:"timestamp"`
	HR        int     `json:"hr"`
	BPSys     int     `json:"bp_sys"`
	BPDia     int     `json:"bp_dia"`
	SpO2      int     `json:"spo2"`
	RR        int     `json:"rr"`
	Temp      float64 `json:"temp"`
}

type responseBody struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	DBID   int64  `json:"db_id,omitempty"`
	Detail string `json:"detail,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Handler serves POST /ingest.
type Handler struct {
	orchestrator *Orchestrator
	metrics      *metrics.Ingest
}

func NewHandler(o *Orchestrator, m *metrics.Ingest) *Handler {
	return &Handler{orchestrator: o, metrics: m}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respond(w, http.StatusUnprocessableEntity, responseBody{Status: "error", Reason: "malformed request body"}, start, "validation_error")
		return
	}

	ts, err := time.Parse(time.RFC3339, body.Timestamp)
	if err != nil {
		ts, err = time.Parse(time.RFC3339Nano, body.Timestamp)
	}
	if err != nil {
		h.respond(w, http.StatusUnprocessableEntity, responseBody{Status: "error", Reason: "timestamp must be ISO 8601"}, start, "validation_error")
		return
	}

	reading := core.Reading{
		PatientID: body.PatientID,
		Timestamp: ts,
		HR:        body.HR,
		BPSys:     body.BPSys,
		BPDia:     body.BPDia,
		SpO2:      body.SpO2,
		RR:        body.RR,
		Temp:      body.Temp,
	}

	result, err := h.orchestrator.Ingest(r.Context(), reading)
	if err != nil {
		h.respondError(w, start, err)
		return
	}

	if result.Duplicate {
		h.respond(w, http.StatusOK, responseBody{Status: "ignored", Detail: "duplicate_event_cache"}, start, "duplicate")
		return
	}

	h.respond(w, http.StatusAccepted, responseBody{
		Status: "queued",
		ID:     result.StreamPosition,
		DBID:   result.DBID,
	}, start, "queued")
}

func (h *Handler) respondError(w http.ResponseWriter, start time.Time, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		h.respond(w, http.StatusUnprocessableEntity, responseBody{Status: "error", Reason: ve.Error()}, start, "validation_error")
	case errors.Is(err, core.ErrRateLimited):
		h.respond(w, http.StatusTooManyRequests, responseBody{Status: "error", Reason: "rate limit exceeded"}, start, "rate_limited")
	case errors.Is(err, core.ErrStorageUnavailable):
		h.respond(w, http.StatusServiceUnavailable, responseBody{Status: "error", Reason: "storage unavailable"}, start, "storage_unavailable")
	case errors.Is(err, core.ErrStreamUnavailable):
		h.respond(w, http.StatusServiceUnavailable, responseBody{Status: "error", Reason: "stream unavailable"}, start, "stream_unavailable")
	default:
		h.respond(w, http.StatusInternalServerError, responseBody{Status: "error", Reason: "internal error"}, start, "internal_error")
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, body responseBody, start time.Time, result string) {
	h.metrics.Outcomes.WithLabelValues(result).Inc()
	h.metrics.RequestDuration.WithLabelValues(http.StatusText(status)).Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
