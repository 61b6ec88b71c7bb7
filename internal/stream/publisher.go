// Package stream implements the Redis Streams transport: publishing
// committed readings (C5) and the worker's consumer-group read/ack/recover
// loop (C11, C12).
package stream

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/physio/engine/internal/core"
)

// field names on the stream entry.
const (
	fieldPatientID = "patient_id"
	fieldTimestamp = "timestamp"
	fieldHR        = "hr"
	fieldBPSys     = "bp_sys"
	fieldBPDia     = "bp_dia"
	fieldSpO2      = "spo2"
	fieldRR        = "rr"
	fieldTemp      = "temp"
	fieldDBID      = "db_id"
)

// Publisher appends committed readings to the stream (C5).
type Publisher struct {
	rdb *redis.Client
	key string
}

func NewPublisher(rdb *redis.Client, key string) *Publisher {
	return &Publisher{rdb: rdb, key: key}
}

// Publish appends the reading plus its assigned durable-store ID to the
// stream and returns the entry's stream position. The timestamp is
// normalized to RFC3339Nano UTC on the wire, matching the durable store's
// canonical representation.
func (p *Publisher) Publish(ctx context.Context, dbID int64, r core.Reading) (string, error) {
	values := map[string]interface{}{
		fieldPatientID: r.PatientID,
		fieldTimestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
		fieldHR:        r.HR,
		fieldBPSys:     r.BPSys,
		fieldBPDia:     r.BPDia,
		fieldSpO2:      r.SpO2,
		fieldRR:        r.RR,
		fieldTemp:      strconv.FormatFloat(r.Temp, 'f', -1, 64),
		fieldDBID:      dbID,
	}

	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.key,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("%w: xadd: %v", core.ErrStreamUnavailable, err)
	}
	return id, nil
}
