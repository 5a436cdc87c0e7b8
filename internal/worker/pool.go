package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueStockAlert = "jobs:stock_alert"

	// MaxAttempts is how many times a job runs before it goes to the DLQ.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Pusher is the slice of the redis client the queue needs to write.
type Pusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP. A nil Dispatcher, or one built
// without a client, silently drops jobs: alerts are best effort.
type Dispatcher struct {
	q Pusher
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	if rdb == nil {
		return &Dispatcher{}
	}
	return &Dispatcher{q: rdb}
}

// Enabled reports whether jobs actually reach a queue.
func (d *Dispatcher) Enabled() bool { return d != nil && d.q != nil }

// EnqueueStockAlert pushes a stock alert job to Redis.
func (d *Dispatcher) EnqueueStockAlert(ctx context.Context, payload StockAlertPayload) error {
	if !d.Enabled() {
		return nil
	}
	if err := enqueue(ctx, d.q, QueueStockAlert, "stock_alert", payload, 0); err != nil {
		return err
	}
	infra.AlertJobs.WithLabelValues("enqueued").Inc()
	return nil
}

func enqueue(ctx context.Context, q Pusher, queue, jobType string, payload interface{}, attempts int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, q, queue, Job{Type: jobType, Payload: data, Attempts: attempts})
}

func push(ctx context.Context, q Pusher, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.LPush(ctx, queue, encoded).Err()
}

// Handler processes the payload of one job type. A non-nil error requeues
// the job until MaxAttempts is reached.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// WorkerHandlers maps job types onto their handlers.
type WorkerHandlers struct {
	StockAlert Handler
}

func (h *WorkerHandlers) forType(jobType string) Handler {
	if h == nil {
		return nil
	}
	switch jobType {
	case "stock_alert":
		return h.StockAlert
	}
	return nil
}

// StartWorkerPool launches numWorkers goroutines consuming the queues.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU. The returned
// WaitGroup completes once every worker has observed ctx cancellation.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	if rdb == nil {
		log.Warn().Msg("worker pool disabled: redis not configured")
		return wg
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, rdb, handlers, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return wg
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueueStockAlert}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
		}
		// Blocking pop: waits up to 5s then loops to check ctx
		result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("brpop failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		processJob(ctx, rdb, handlers, result[0], result[1])
	}
}

// processJob runs one raw job and decides between done, retry and DLQ.
func processJob(ctx context.Context, q Pusher, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, q, queue, "unknown", json.RawMessage(raw), "unmarshal: "+err.Error(), 0)
		return
	}

	h := handlers.forType(job.Type)
	if h == nil {
		SendToDLQ(ctx, q, queue, job.Type, job.Payload, "no handler for job type", job.Attempts)
		return
	}

	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		return
	}

	if job.Attempts >= MaxAttempts {
		infra.AlertJobs.WithLabelValues("dead").Inc()
		SendToDLQ(ctx, q, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job failed, requeueing")
	if perr := push(ctx, q, queue, job); perr != nil {
		log.Error().Err(perr).Str("queue", queue).Msg("requeue failed")
	}
}
