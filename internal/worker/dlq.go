package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces dead-letter lists: an alert that exhausts MaxAttempts
// on queue q lands on DLQPrefix+q, newest first, until an operator reads it.
const DLQPrefix = "dlq:"

// DLQEntry is a dead-lettered job plus what is needed to act on it by hand.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

// Alert decodes the payload of a dead-lettered stock alert.
func (e DLQEntry) Alert() (StockAlertPayload, error) {
	var p StockAlertPayload
	if e.JobType != "stock_alert" {
		return p, fmt.Errorf("job type %q is not a stock alert", e.JobType)
	}
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// SendToDLQ parks a job that will not be retried. Failures to park are
// logged only; the job is already off its queue.
func SendToDLQ(ctx context.Context, q Pusher, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	data, err := json.Marshal(DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
		Attempts:      attempts,
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal entry")
		return
	}
	key := DLQPrefix + queue
	if err := q.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: push failed, job lost")
		return
	}
	log.Warn().Str("queue", queue).Str("job_type", jobType).Str("reason", reason).
		Int("attempts", attempts).Msg("dlq: job dead-lettered")
}

// DeadLetterReader is the slice of the redis client used to inspect DLQs.
type DeadLetterReader interface {
	LLen(ctx context.Context, key string) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// DLQLength counts dead-lettered jobs for queue; the health endpoint reports it.
func DLQLength(ctx context.Context, r DeadLetterReader, queue string) (int64, error) {
	return r.LLen(ctx, DLQPrefix+queue).Result()
}

// ListDeadLetters returns up to limit entries for queue, newest first.
// Entries that no longer decode are skipped with a warning.
func ListDeadLetters(ctx context.Context, r DeadLetterReader, queue string, limit int64) ([]DLQEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := r.LRange(ctx, DLQPrefix+queue, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(raw))
	for _, s := range raw {
		var e DLQEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: undecodable entry skipped")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
