// Package ingest implements the validator (C1) and the ingest orchestrator
// (C6): the fixed commit order a reading passes through before it is
// queued for the worker.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/physio/engine/internal/cache"
	"github.com/physio/engine/internal/circuitbreaker"
	"github.com/physio/engine/internal/core"
	"github.com/physio/engine/internal/store"
	"github.com/physio/engine/internal/stream"
)

// Result is what the HTTP layer needs to build its response.
type Result struct {
	Duplicate      bool
	DBID           int64
	StreamPosition string
}

// Orchestrator runs the full ingest commit order for one reading:
// validate, rate-limit, idempotency check, durable commit, stream
// publish, idempotency mark.
type Orchestrator struct {
	limiter     *cache.RateLimiter
	idempotency *cache.IdempotencyFilter
	store       *store.Store
	publisher   *stream.Publisher
	breakers    *circuitbreaker.PipelineCircuitBreakers
}

func NewOrchestrator(
	limiter *cache.RateLimiter,
	idempotency *cache.IdempotencyFilter,
	st *store.Store,
	publisher *stream.Publisher,
	breakers *circuitbreaker.PipelineCircuitBreakers,
) *Orchestrator {
	return &Orchestrator{
		limiter:     limiter,
		idempotency: idempotency,
		store:       st,
		publisher:   publisher,
		breakers:    breakers,
	}
}

// Ingest runs the full commit order. On success (including the
// already-seen duplicate short-circuit), the returned error is nil.
func (o *Orchestrator) Ingest(ctx context.Context, r core.Reading) (Result, error) {
	if err := Validate(r, time.Now()); err != nil {
		return Result{}, err
	}

	allowed, err := o.allowRate(ctx, r.PatientID)
	if err != nil {
		return Result{}, err
	}
	if !allowed {
		return Result{}, core.ErrRateLimited
	}

	fingerprint := cache.Fingerprint(r.FingerprintSource())

	seen, err := o.checkSeen(ctx, fingerprint)
	if err != nil {
		return Result{}, err
	}
	if seen {
		return Result{Duplicate: true}, nil
	}

	dbID, err := o.commit(ctx, r)
	if err != nil {
		if errors.Is(err, core.ErrDuplicatePersisted) {
			return Result{Duplicate: true}, nil
		}
		return Result{}, err
	}

	position, err := o.publish(ctx, dbID, r)
	if err != nil {
		return Result{}, err
	}

	// The idempotency key is set only on this happy path, after the
	// stream publish succeeds — a crash before this point relies on the
	// durable store's unique index as the backstop on replay.
	if _, err := o.breakers.Cache.Execute(func() (interface{}, error) {
		return nil, o.idempotency.Mark(ctx, fingerprint)
	}); err != nil {
		return Result{}, fmt.Errorf("%w: mark idempotency: %v", core.ErrStorageUnavailable, err)
	}

	return Result{DBID: dbID, StreamPosition: position}, nil
}

func (o *Orchestrator) allowRate(ctx context.Context, patientID string) (bool, error) {
	res, err := o.breakers.Cache.Execute(func() (interface{}, error) {
		return o.limiter.Allow(ctx, patientID)
	})
	if err != nil {
		return false, fmt.Errorf("%w: rate limit check: %v", core.ErrStorageUnavailable, err)
	}
	return res.(bool), nil
}

func (o *Orchestrator) checkSeen(ctx context.Context, fingerprint string) (bool, error) {
	res, err := o.breakers.Cache.Execute(func() (interface{}, error) {
		return o.idempotency.Seen(ctx, fingerprint)
	})
	if err != nil {
		return false, fmt.Errorf("%w: idempotency check: %v", core.ErrStorageUnavailable, err)
	}
	return res.(bool), nil
}

func (o *Orchestrator) commit(ctx context.Context, r core.Reading) (int64, error) {
	res, err := o.breakers.Store.Execute(func() (interface{}, error) {
		return o.store.InsertReading(ctx, r)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return 0, fmt.Errorf("%w: durable commit: %v", core.ErrStorageUnavailable, err)
		}
		var dbID int64
		if res != nil {
			dbID = res.(int64)
		}
		return dbID, err
	}
	return res.(int64), nil
}

func (o *Orchestrator) publish(ctx context.Context, dbID int64, r core.Reading) (string, error) {
	res, err := o.breakers.Stream.Execute(func() (interface{}, error) {
		return o.publisher.Publish(ctx, dbID, r)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: stream publish: %v", core.ErrStreamUnavailable, err)
		}
		return "", err
	}
	return res.(string), nil
}
