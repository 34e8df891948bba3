// Package queue carries strategy submissions from the server to workers over a Redis list.
package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// DefaultName is the queue strategies are submitted to.
const DefaultName = "backtest_tasks"

// Job is one queued strategy.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source_code"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewJob wraps source in a job with a fresh id.
func NewJob(source string) Job {
	return Job{
		ID:          uuid.New(),
		Source:      source,
		SubmittedAt: time.Now().UTC(),
	}
}

// Validate reports whether the job can be queued.
func (j Job) Validate() error {
	if j.ID == uuid.Nil {
		return errors.New(errors.ErrCodeInvalidJob, "job has no id")
	}

	if j.Source == "" {
		return errors.Newf(errors.ErrCodeInvalidJob, "job %s has no source code", j.ID)
	}

	return nil
}

// Publisher submits jobs.
type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Handler processes one consumed job.
type Handler func(ctx context.Context, job Job) error

// RedisClient is the subset of the go-redis client the queue uses.
type RedisClient interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Options configures a Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Name     string
	// BlockTimeout bounds each blocking pop. Zero uses five seconds.
	BlockTimeout time.Duration
}

// RedisQueue is a durable FIFO: LPUSH to publish, BRPOP to consume.
type RedisQueue struct {
	client       RedisClient
	name         string
	blockTimeout time.Duration
	logger       *logger.Logger
}

// NewRedisQueue connects to Redis.
func NewRedisQueue(opts Options, l *logger.Logger) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return NewRedisQueueWithClient(client, opts.Name, opts.BlockTimeout, l)
}

// NewRedisQueueWithClient creates a queue over an existing client.
func NewRedisQueueWithClient(client RedisClient, name string, blockTimeout time.Duration, l *logger.Logger) *RedisQueue {
	if name == "" {
		name = DefaultName
	}

	if blockTimeout <= 0 {
		blockTimeout = 5 * time.Second
	}

	if l == nil {
		l = logger.NewNopLogger()
	}

	return &RedisQueue{
		client:       client,
		name:         name,
		blockTimeout: blockTimeout,
		logger:       l.Named("queue"),
	}
}

// Name returns the Redis key of the queue.
func (q *RedisQueue) Name() string {
	return q.name
}

// HealthCheck verifies Redis connectivity.
func (q *RedisQueue) HealthCheck(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Publish appends job to the queue.
func (q *RedisQueue) Publish(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueuePublishFailed, err, "failed to encode job %s", job.ID)
	}

	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return errors.Wrapf(errors.ErrCodeQueuePublishFailed, err, "failed to publish job %s to %s", job.ID, q.name)
	}

	q.logger.Debug("published job", zap.String("job_id", job.ID.String()), zap.String("queue", q.name))

	return nil
}

// Consume pops jobs one at a time and calls handler for each until ctx is cancelled.
// Undecodable payloads and handler failures are logged and the loop continues.
// It returns nil on clean shutdown and an error only when Redis fails.
func (q *RedisQueue) Consume(ctx context.Context, handler Handler) error {
	q.logger.Info("consuming queue", zap.String("queue", q.name))

	for {
		if ctx.Err() != nil {
			q.logger.Info("stopped consuming queue", zap.String("queue", q.name))

			return nil
		}

		res, err := q.client.BRPop(ctx, q.blockTimeout, q.name).Result()
		if err != nil {
			if stderrors.Is(err, redis.Nil) {
				continue
			}

			if ctx.Err() != nil {
				q.logger.Info("stopped consuming queue", zap.String("queue", q.name))

				return nil
			}

			return errors.Wrapf(errors.ErrCodeQueueConsumeFailed, err, "failed to pop from %s", q.name)
		}

		// BRPOP replies with [key, value]
		if len(res) != 2 {
			q.logger.Warn("unexpected pop reply", zap.Strings("reply", res))

			continue
		}

		job, err := decode(res[1])
		if err != nil {
			q.logger.Error("dropping undecodable job", zap.Error(err), zap.String("payload_preview", truncate(res[1], 200)))

			continue
		}

		q.logger.Debug("received job", zap.String("job_id", job.ID.String()))

		if err := handler(ctx, job); err != nil {
			q.logger.Error("job failed", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}
}

func decode(payload string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return Job{}, errors.Wrap(errors.ErrCodeInvalidJob, "failed to decode job", err)
	}

	if err := job.Validate(); err != nil {
		return Job{}, err
	}

	return job, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen] + "..."
}
