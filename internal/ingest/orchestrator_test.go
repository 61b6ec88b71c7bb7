package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physio/engine/internal/cache"
	"github.com/physio/engine/internal/circuitbreaker"
	"github.com/physio/engine/internal/core"
	"github.com/physio/engine/internal/store"
	"github.com/physio/engine/internal/stream"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, sqlmock.Sqlmock) {
	t.Helper()

	mr := miniredis.RunT(t)
	cacheClient, err := cache.NewClient("redis://"+mr.Addr(), time.Second, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { cacheClient.Close() })

	limiter := cache.NewRateLimiter(cacheClient, 20, 10*time.Second)
	idempotency := cache.NewIdempotencyFilter(cacheClient, 10*time.Minute)
	publisher := stream.NewPublisher(cacheClient.Raw(), "vitals_stream")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := store.NewWithDB(db)

	breakers := circuitbreaker.NewPipelineCircuitBreakers()

	return NewOrchestrator(limiter, idempotency, st, publisher, breakers), mock
}

func validReading() core.Reading {
	return core.Reading{
		PatientID: "patient-1",
		Timestamp: time.Now().UTC(),
		HR:        80,
		BPSys:     120,
		BPDia:     80,
		SpO2:      98,
		RR:        16,
		Temp:      37.0,
	}
}

func TestOrchestrator_Ingest_QueuesNewReading(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	r := validReading()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO patients").WithArgs(r.PatientID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO vitals_events").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	result, err := o.Ingest(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, int64(1), result.DBID)
	assert.NotEmpty(t, result.StreamPosition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestrator_Ingest_RejectsInvalidReading(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	r := validReading()
	r.HR = 10

	_, err := o.Ingest(context.Background(), r)
	require.Error(t, err)

	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestOrchestrator_Ingest_ShortCircuitsOnCachedDuplicate(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	r := validReading()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO patients").WithArgs(r.PatientID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO vitals_events").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	_, err := o.Ingest(context.Background(), r)
	require.NoError(t, err)

	// Replaying the identical reading must not touch the store a second
	// time: the idempotency cache short-circuits first.
	result, err := o.Ingest(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestrator_Ingest_StoreDuplicateMapsToDuplicateResult(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	r := validReading()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO patients").WithArgs(r.PatientID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO vitals_events").WillReturnError(core.ErrDuplicatePersisted)
	mock.ExpectRollback()

	result, err := o.Ingest(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
}

func TestOrchestrator_Ingest_RateLimitsAfterCeiling(t *testing.T) {
	mr := miniredis.RunT(t)
	cacheClient, err := cache.NewClient("redis://"+mr.Addr(), time.Second, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { cacheClient.Close() })

	limiter := cache.NewRateLimiter(cacheClient, 1, time.Minute)
	idempotency := cache.NewIdempotencyFilter(cacheClient, time.Minute)
	publisher := stream.NewPublisher(cacheClient.Raw(), "vitals_stream")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := store.NewWithDB(db)

	o := NewOrchestrator(limiter, idempotency, st, publisher, circuitbreaker.NewPipelineCircuitBreakers())

	r1 := validReading()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO patients").WithArgs(r1.PatientID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO vitals_events").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	_, err = o.Ingest(context.Background(), r1)
	require.NoError(t, err)

	r2 := validReading()
	r2.Timestamp = r2.Timestamp.Add(time.Second)
	_, err = o.Ingest(context.Background(), r2)
	require.ErrorIs(t, err, core.ErrRateLimited)
}
