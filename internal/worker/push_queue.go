package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/DanielPopoola/car-rental-engine/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	pushQueueKey      = "push:queue"
	pushDeadLetterKey = "push:deadletter"
)

// ErrQueueFull is returned by Enqueue when the message was dropped.
var ErrQueueFull = errors.New("push queue is full")

// PushFailure describes a message that was never delivered.
type PushFailure struct {
	Message domain.PushMessage
	Err     error
	Dropped bool
}

type PushQueueConfig struct {
	Capacity int
	Workers  int
	// BatchSize caps how many queued messages one delivery carries.
	BatchSize   int
	PollTimeout time.Duration
	Retry       RetryPolicy
}

// PushQueue is a bounded push delivery queue. Messages live in a Redis list
// when a client is given and in a buffered channel otherwise. Enqueue never
// waits for delivery or for free capacity.
type PushQueue struct {
	sender      ports.PushSender
	redis       *redis.Client
	queue       chan domain.PushMessage
	failures    chan PushFailure
	capacity    int
	workers     int
	batchSize   int
	pollTimeout time.Duration
	retry       RetryPolicy
	logger      zerolog.Logger
}

func NewPushQueue(sender ports.PushSender, redisClient *redis.Client, cfg PushQueueConfig, logger zerolog.Logger) *PushQueue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 128
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = time.Minute
	}

	return &PushQueue{
		sender:      sender,
		redis:       redisClient,
		queue:       make(chan domain.PushMessage, cfg.Capacity),
		failures:    make(chan PushFailure, cfg.Capacity),
		capacity:    cfg.Capacity,
		workers:     cfg.Workers,
		batchSize:   cfg.BatchSize,
		pollTimeout: cfg.PollTimeout,
		retry:       cfg.Retry,
		logger:      logger.With().Str("component", "push_queue").Logger(),
	}
}

var _ ports.PushQueue = (*PushQueue)(nil)

// Failures reports dropped and dead-lettered messages. Reports are discarded
// when nobody drains the channel.
func (q *PushQueue) Failures() <-chan PushFailure {
	return q.failures
}

func (q *PushQueue) Enqueue(ctx context.Context, msg domain.PushMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if q.redis != nil {
		err := q.pushRedis(ctx, msg)
		if err == nil {
			metrics.IncPushQueue("enqueued")
			return nil
		}
		if errors.Is(err, ErrQueueFull) {
			q.drop(msg)
			return err
		}
		q.logger.Warn().Err(err).Msg("redis push failed, falling back to memory queue")
	}

	select {
	case q.queue <- msg:
		metrics.IncPushQueue("enqueued")
		return nil
	default:
		q.drop(msg)
		return ErrQueueFull
	}
}

func (q *PushQueue) pushRedis(ctx context.Context, msg domain.PushMessage) error {
	size, err := q.redis.LLen(ctx, pushQueueKey).Result()
	if err != nil {
		return err
	}
	if size >= int64(q.capacity) {
		return ErrQueueFull
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode push message: %w", err)
	}
	return q.redis.LPush(ctx, pushQueueKey, data).Err()
}

// Start runs the delivery workers until ctx is cancelled.
func (q *PushQueue) Start(ctx context.Context) {
	q.logger.Info().Int("workers", q.workers).Bool("redis", q.redis != nil).Msg("push queue started")

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.run(ctx)
		}()
	}
	wg.Wait()

	q.logger.Info().Msg("push queue stopped")
}

func (q *PushQueue) run(ctx context.Context) {
	for ctx.Err() == nil {
		msg, ok := q.next(ctx)
		if !ok {
			continue
		}
		q.deliver(ctx, q.fill(ctx, []domain.PushMessage{msg}))
	}
}

// fill tops batch up with messages that are already queued. It never waits.
func (q *PushQueue) fill(ctx context.Context, batch []domain.PushMessage) []domain.PushMessage {
	for len(batch) < q.batchSize {
		select {
		case msg := <-q.queue:
			batch = append(batch, msg)
			continue
		default:
		}
		break
	}

	if q.redis == nil || len(batch) >= q.batchSize {
		return batch
	}

	items, err := q.redis.RPopCount(ctx, pushQueueKey, q.batchSize-len(batch)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			q.logger.Error().Err(err).Msg("redis batch pop failed")
		}
		return batch
	}
	for _, item := range items {
		var msg domain.PushMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			q.logger.Error().Err(err).Msg("discarding malformed push message")
			continue
		}
		batch = append(batch, msg)
	}
	return batch
}

func (q *PushQueue) next(ctx context.Context) (domain.PushMessage, bool) {
	if q.redis == nil {
		select {
		case <-ctx.Done():
			return domain.PushMessage{}, false
		case msg := <-q.queue:
			return msg, true
		}
	}

	select {
	case msg := <-q.queue:
		return msg, true
	default:
	}

	res, err := q.redis.BRPop(ctx, q.pollTimeout, pushQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			q.logger.Error().Err(err).Msg("redis pop failed")
			sleep(ctx, q.pollTimeout)
		}
		return domain.PushMessage{}, false
	}
	if len(res) < 2 {
		return domain.PushMessage{}, false
	}

	var msg domain.PushMessage
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		q.logger.Error().Err(err).Msg("discarding malformed push message")
		return domain.PushMessage{}, false
	}
	return msg, true
}

// deliver sends batch in one call and retries it as a whole. Every message
// in a failed batch is dead-lettered with the same cause.
func (q *PushQueue) deliver(ctx context.Context, batch []domain.PushMessage) {
	for attempt := 1; ; attempt++ {
		for i := range batch {
			batch[i].Attempts++
		}
		err := q.sender.Send(ctx, batch)
		if err == nil {
			metrics.AddPushQueue("delivered", len(batch))
			return
		}

		if attempt >= q.retry.MaxRetries || ctx.Err() != nil {
			q.deadLetter(ctx, batch, err)
			return
		}

		q.logger.Warn().Err(err).Int("attempt", attempt).Int("batch", len(batch)).Msg("push delivery failed, retrying")
		if !sleep(ctx, q.retry.NextDelay(attempt)) {
			q.deadLetter(ctx, batch, ctx.Err())
			return
		}
	}
}

func (q *PushQueue) deadLetter(ctx context.Context, batch []domain.PushMessage, cause error) {
	metrics.AddPushQueue("failed", len(batch))
	q.logger.Error().Err(cause).Int("attempts", batch[0].Attempts).Int("batch", len(batch)).Msg("push delivery failed permanently")

	for _, msg := range batch {
		if q.redis != nil {
			data, err := json.Marshal(msg)
			if err == nil {
				err = q.redis.LPush(context.WithoutCancel(ctx), pushDeadLetterKey, data).Err()
			}
			if err != nil {
				q.logger.Error().Err(err).Str("to", msg.To).Msg("dead letter push failed")
			}
		}
		q.report(PushFailure{Message: msg, Err: cause})
	}
}

func (q *PushQueue) drop(msg domain.PushMessage) {
	metrics.IncPushQueue("dropped")
	q.logger.Warn().Str("to", msg.To).Msg("push queue full, message dropped")
	q.report(PushFailure{Message: msg, Err: ErrQueueFull, Dropped: true})
}

func (q *PushQueue) report(f PushFailure) {
	select {
	case q.failures <- f:
	default:
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
