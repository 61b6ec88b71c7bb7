package stream

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/physio/engine/internal/core"
)

// Message pairs a parsed reading with the stream entry ID the worker must
// XAck once processing completes.
type Message struct {
	ID    string
	Entry core.StreamEntry
}

// Consumer wraps one worker process's membership in the stream's consumer
// group: batch reads (C11) and startup pending-entry reclaim (C12).
type Consumer struct {
	rdb          *redis.Client
	key          string
	group        string
	consumer     string
	batchSize    int64
	block        time.Duration
	claimMinIdle time.Duration
}

func NewConsumer(rdb *redis.Client, key, group, consumer string, batchSize int64, block, claimMinIdle time.Duration) *Consumer {
	return &Consumer{
		rdb:          rdb,
		key:          key,
		group:        group,
		consumer:     consumer,
		batchSize:    batchSize,
		block:        block,
		claimMinIdle: claimMinIdle,
	}
}

// EnsureGroup idempotently creates the consumer group at the start of the
// stream ("0"), tolerating the BUSYGROUP error when another worker already
// created it.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.key, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("%w: xgroup create: %v", core.ErrStreamUnavailable, err)
	}
	return nil
}

// Recover reclaims entries left pending by consumers that died mid-batch
// (crashed before XAck) and have been idle longer than claimMinIdle. This
// runs once at worker startup so a restarted worker resumes work that was
// in flight when it (or a sibling consumer) was killed.
func (c *Consumer) Recover(ctx context.Context) ([]Message, error) {
	var recovered []Message
	start := "0-0"

	for {
		claimed, cursor, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.key,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.claimMinIdle,
			Start:    start,
			Count:    c.batchSize,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: xautoclaim: %v", core.ErrStreamRead, err)
		}

		for _, m := range claimed {
			msg, ok := parseMessage(m)
			if !ok {
				continue
			}
			recovered = append(recovered, msg)
		}

		if cursor == "0-0" || len(claimed) == 0 {
			break
		}
		start = cursor
	}

	return recovered, nil
}

// ReadBatch blocks for up to the configured duration waiting for new
// entries delivered to this consumer.
func (c *Consumer) ReadBatch(ctx context.Context) ([]Message, error) {
	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.key, ">"},
		Count:    c.batchSize,
		Block:    c.block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: xreadgroup: %v", core.ErrStreamRead, err)
	}

	var out []Message
	for _, s := range streams {
		for _, m := range s.Messages {
			msg, ok := parseMessage(m)
			if !ok {
				continue
			}
			out = append(out, msg)
		}
	}
	return out, nil
}

// Ack acknowledges a successfully processed entry, removing it from the
// group's pending entries list.
func (c *Consumer) Ack(ctx context.Context, id string) error {
	if err := c.rdb.XAck(ctx, c.key, c.group, id).Err(); err != nil {
		return fmt.Errorf("%w: xack: %v", core.ErrStreamRead, err)
	}
	return nil
}

func parseMessage(m redis.XMessage) (Message, bool) {
	get := func(field string) string {
		v, _ := m.Values[field].(string)
		return v
	}

	ts, err := time.Parse(time.RFC3339Nano, get(fieldTimestamp))
	if err != nil {
		ts = time.Now().UTC()
	}

	hr, _ := strconv.Atoi(get(fieldHR))
	bpSys, _ := strconv.Atoi(get(fieldBPSys))
	bpDia, _ := strconv.Atoi(get(fieldBPDia))
	spo2, _ := strconv.Atoi(get(fieldSpO2))
	rr, _ := strconv.Atoi(get(fieldRR))
	temp, _ := strconv.ParseFloat(get(fieldTemp), 64)
	dbID, _ := strconv.ParseInt(get(fieldDBID), 10, 64)

	reading := core.Reading{
		PatientID: get(fieldPatientID),
		Timestamp: ts,
		HR:        hr,
		BPSys:     bpSys,
		BPDia:     bpDia,
		SpO2:      spo2,
		RR:        rr,
		Temp:      temp,
	}

	return Message{
		ID: m.ID,
		Entry: core.StreamEntry{
			DBID:     dbID,
			Reading:  reading,
			Position: m.ID,
		},
	}, true
}
