package core

import (
	"errors"
	"fmt"
)

// ValidationError carries the offending field and a human-readable reason.
// It is never retried by the caller (spec: 422, no retry).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: field=%s reason=%s", e.Field, e.Reason)
}

// Sentinel errors for the rest of the ingest/worker error taxonomy. Each
// maps to one HTTP status in the ingest orchestrator and to a specific
// retry/backoff behavior in the worker loop.
var (
	// ErrRateLimited is transient; the caller may back off and retry.
	ErrRateLimited = errors.New("rate limited")

	// ErrDuplicatePersisted is success-equivalent: the (patient_id,
	// timestamp) pair already has a row, surfaced by the store's unique
	// index rather than the idempotency cache.
	ErrDuplicatePersisted = errors.New("duplicate persisted")

	// ErrStorageUnavailable is transient; safe to retry because the
	// idempotency filter and the store's unique index dedupe replays.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStreamUnavailable is transient; safe to retry because the
	// durable write always precedes the stream publish.
	ErrStreamUnavailable = errors.New("stream unavailable")

	// ErrModelUnloadable is fatal at worker startup only.
	ErrModelUnloadable = errors.New("model unloadable")

	// ErrStreamRead is transient; the worker loop backs off and retries.
	ErrStreamRead = errors.New("stream read error")
)
