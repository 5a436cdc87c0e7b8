package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu     sync.Mutex
	pushed map[string][][]byte
}

func newFakeQueue() *fakeQueue { return &fakeQueue{pushed: map[string][][]byte{}} }

func (q *fakeQueue) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, v := range values {
		q.pushed[key] = append(q.pushed[key], v.([]byte))
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(q.pushed[key])))
	return cmd
}

func (q *fakeQueue) LLen(ctx context.Context, key string) *redis.IntCmd {
	q.mu.Lock()
	defer q.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(q.pushed[key])))
	return cmd
}

// LRange reads like redis after LPUSH: index 0 is the newest value.
func (q *fakeQueue) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	q.mu.Lock()
	defer q.mu.Unlock()
	vals := q.pushed[key]
	var out []string
	for i := start; i <= stop && i < int64(len(vals)); i++ {
		out = append(out, string(vals[len(vals)-1-int(i)]))
	}
	cmd := redis.NewStringSliceCmd(ctx)
	cmd.SetVal(out)
	return cmd
}

func (q *fakeQueue) pop(t *testing.T, key string) string {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	require.NotEmpty(t, q.pushed[key], key)
	v := q.pushed[key][0]
	q.pushed[key] = q.pushed[key][1:]
	return string(v)
}

type fakeNotifier struct {
	name  string
	err   error
	calls int
	last  StockAlertPayload
}

func (n *fakeNotifier) Name() string { return n.name }

func (n *fakeNotifier) Notify(_ context.Context, a StockAlertPayload) error {
	n.calls++
	n.last = a
	return n.err
}

func samplePayload() StockAlertPayload {
	return StockAlertPayload{
		MaterialID: 7,
		Code:       "FAB-1",
		Name:       "Denim",
		Unit:       "m",
		QtyOnHand:  decimal.RequireFromString("2.5"),
		MinStock:   decimal.NewFromInt(5),
		Reason:     "cutting",
		At:         time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDispatcher_EnqueueStockAlert(t *testing.T) {
	ctx := context.Background()
	q := newFakeQueue()
	d := &Dispatcher{q: q}
	require.True(t, d.Enabled())
	require.NoError(t, d.EnqueueStockAlert(ctx, samplePayload()))

	var job Job
	require.NoError(t, json.Unmarshal([]byte(q.pop(t, QueueStockAlert)), &job))
	assert.Equal(t, "stock_alert", job.Type)
	assert.Zero(t, job.Attempts)

	var got StockAlertPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	assert.Equal(t, "FAB-1", got.Code)
	assert.True(t, got.QtyOnHand.Equal(decimal.RequireFromString("2.5")))

	var disabled *Dispatcher
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.EnqueueStockAlert(ctx, samplePayload()))
	assert.NoError(t, NewDispatcher(nil).EnqueueStockAlert(ctx, samplePayload()))
}

func TestProcessJob_RetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	q := newFakeQueue()
	failing := &fakeNotifier{name: "email", err: errors.New("smtp down")}
	handlers := &WorkerHandlers{StockAlert: NewStockAlertWorker(infra.DefaultCBConfig(), failing)}

	require.NoError(t, enqueue(ctx, q, QueueStockAlert, "stock_alert", samplePayload(), 0))
	for attempt := 1; attempt < MaxAttempts; attempt++ {
		processJob(ctx, q, handlers, QueueStockAlert, q.pop(t, QueueStockAlert))
		var job Job
		require.NoError(t, json.Unmarshal([]byte(q.pushed[QueueStockAlert][0]), &job))
		assert.Equal(t, attempt, job.Attempts)
	}
	processJob(ctx, q, handlers, QueueStockAlert, q.pop(t, QueueStockAlert))

	assert.Empty(t, q.pushed[QueueStockAlert])
	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(q.pop(t, DLQPrefix+QueueStockAlert)), &entry))
	assert.Equal(t, MaxAttempts, entry.Attempts)
	assert.Equal(t, "stock_alert", entry.JobType)
	assert.Contains(t, entry.Reason, "smtp down")
	assert.Equal(t, MaxAttempts, failing.calls)
}

func TestProcessJob_UnknownAndMalformed(t *testing.T) {
	ctx := context.Background()
	q := newFakeQueue()

	processJob(ctx, q, &WorkerHandlers{}, QueueStockAlert, "{not json")
	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(q.pop(t, DLQPrefix+QueueStockAlert)), &entry))
	assert.Equal(t, "unknown", entry.JobType)

	processJob(ctx, q, &WorkerHandlers{}, QueueStockAlert, `{"type":"reindex","payload":{}}`)
	require.NoError(t, json.Unmarshal([]byte(q.pop(t, DLQPrefix+QueueStockAlert)), &entry))
	assert.Equal(t, "reindex", entry.JobType)
	assert.Equal(t, "no handler for job type", entry.Reason)
}

func TestStockAlertWorker_FanOut(t *testing.T) {
	ctx := context.Background()
	raw, err := json.Marshal(samplePayload())
	require.NoError(t, err)

	ok := &fakeNotifier{name: "telegram"}
	broken := &fakeNotifier{name: "email", err: errors.New("refused")}
	w := NewStockAlertWorker(infra.DefaultCBConfig(), broken, nil, ok)
	require.NoError(t, w.Process(ctx, raw), "one delivery is enough")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, "Critical stock: Denim (FAB-1)", ok.last.Subject())

	allBroken := NewStockAlertWorker(infra.DefaultCBConfig(), broken)
	assert.ErrorContains(t, allBroken.Process(ctx, raw), "refused")

	assert.NoError(t, w.Process(ctx, json.RawMessage("[]")), "malformed payloads are not retried")
	assert.NoError(t, NewStockAlertWorker(infra.DefaultCBConfig()).Process(ctx, raw))
}

func TestStockAlertWorker_BreakerOpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	raw, err := json.Marshal(samplePayload())
	require.NoError(t, err)

	broken := &fakeNotifier{name: "email", err: errors.New("refused")}
	w := NewStockAlertWorker(infra.CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Hour}, broken)
	for i := 0; i < 4; i++ {
		_ = w.Process(ctx, raw)
	}
	assert.Equal(t, 2, broken.calls)
	assert.ErrorIs(t, w.Process(ctx, raw), infra.ErrCircuitOpen)
}

func TestStockAlertPayload_Body(t *testing.T) {
	body := samplePayload().Body()
	assert.Contains(t, body, "On hand: 2.5 m")
	assert.Contains(t, body, "Minimum: 5 m")
	assert.Contains(t, body, "Last movement: cutting")
	assert.Contains(t, body, "At: 2024-01-02T03:04:05Z")
}

func TestDeadLetters_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	q := newFakeQueue()
	raw, err := json.Marshal(samplePayload())
	require.NoError(t, err)

	SendToDLQ(ctx, q, QueueStockAlert, "stock_alert", raw, "smtp down", MaxAttempts)
	require.NoError(t, q.LPush(ctx, DLQPrefix+QueueStockAlert, []byte("{garbled")).Err())
	SendToDLQ(ctx, q, QueueStockAlert, "reindex", json.RawMessage(`{}`), "no handler for job type", 0)

	n, err := DLQLength(ctx, q, QueueStockAlert)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	entries, err := ListDeadLetters(ctx, q, QueueStockAlert, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2, "undecodable entries are skipped")
	assert.Equal(t, "reindex", entries[0].JobType)
	_, err = entries[0].Alert()
	assert.Error(t, err)

	alert, err := entries[1].Alert()
	require.NoError(t, err)
	assert.Equal(t, "FAB-1", alert.Code)
	assert.Equal(t, MaxAttempts, entries[1].Attempts)
	assert.WithinDuration(t, time.Now(), entries[1].FailedAt, time.Minute)

	newest, err := ListDeadLetters(ctx, q, QueueStockAlert, 1)
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, "reindex", newest[0].JobType)
}
