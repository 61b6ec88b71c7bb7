// Package store implements the durable relational gateway (C4): the
// patients/vitals_events/anomalies schema and the transactional upsert
// used by the ingestion front-end and the worker.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/physio/engine/internal/core"
)

// schema is applied by cmd/verify-schema; the api and worker binaries
// assume it already exists.
const schema = `
CREATE TABLE IF NOT EXISTS patients (
	patient_id TEXT PRIMARY KEY,
	first_seen TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vitals_events (
	id BIGSERIAL PRIMARY KEY,
	patient_id TEXT NOT NULL REFERENCES patients(patient_id),
	ts TIMESTAMPTZ NOT NULL,
	hr INTEGER NOT NULL,
	bp_sys INTEGER NOT NULL,
	bp_dia INTEGER NOT NULL,
	spo2 INTEGER NOT NULL,
	rr INTEGER NOT NULL,
	temp DOUBLE PRECISION NOT NULL,
	UNIQUE (patient_id, ts)
);

CREATE TABLE IF NOT EXISTS anomalies (
	id BIGSERIAL PRIMARY KEY,
	patient_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	details JSONB,
	UNIQUE (patient_id, kind, ts)
);
`

// uniqueViolation is Postgres SQLSTATE 23505.
const uniqueViolation = "23505"

// Store wraps a connection pool to the durable store.
type Store struct {
	db *sql.DB
}

func Open(dsn string, maxOpen, maxIdle, connMaxLifeMin int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Duration(connMaxLifeMin) * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open *sql.DB, bypassing Open's dial/ping
// step. Exists for tests that substitute a mock driver.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the tables if they do not already exist. Used by
// cmd/verify-schema, not by the api/worker binaries.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// InsertReading commits a validated reading inside one transaction: the
// owning patient row is upserted first (ON CONFLICT DO NOTHING), then the
// event row is inserted and its server-assigned ID returned. A unique
// constraint violation on (patient_id, ts) is surfaced as
// core.ErrDuplicatePersisted rather than a generic storage error, per the
// durable store's role as the idempotency backstop (C4, spec §7).
func (s *Store) InsertReading(ctx context.Context, r core.Reading) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx: %v", core.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO patients (patient_id) VALUES ($1) ON CONFLICT DO NOTHING`,
		r.PatientID,
	); err != nil {
		return 0, fmt.Errorf("%w: upsert patient: %v", core.ErrStorageUnavailable, err)
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO vitals_events (patient_id, ts, hr, bp_sys, bp_dia, spo2, rr, temp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		r.PatientID, r.Timestamp.UTC(), r.HR, r.BPSys, r.BPDia, r.SpO2, r.RR, r.Temp,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, core.ErrDuplicatePersisted
		}
		return 0, fmt.Errorf("%w: insert event: %v", core.ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", core.ErrStorageUnavailable, err)
	}
	return id, nil
}

// InsertAnomaly persists a classified anomaly (C10) produced by the worker.
// Idempotent on (patient_id, kind, ts): a stream entry redelivered after a
// crash between this commit and the worker's Ack is a silent no-op rather
// than a duplicate row.
func (s *Store) InsertAnomaly(ctx context.Context, a core.AnomalyRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO anomalies (patient_id, kind, score, ts, details)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (patient_id, kind, ts) DO NOTHING`,
		a.PatientID, string(a.Kind), a.Score, a.Timestamp.UTC(), readingDetails(a.Reading),
	)
	if err != nil {
		return fmt.Errorf("%w: insert anomaly: %v", core.ErrStorageUnavailable, err)
	}
	return nil
}
