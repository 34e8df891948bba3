// Package worker evaluates queued strategies.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/engine"
	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/internal/metrics"
	"github.com/rxtech-lab/argo-dsl/internal/queue"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// Consumer delivers queued jobs one at a time.
type Consumer interface {
	Consume(ctx context.Context, handler queue.Handler) error
}

// Runner evaluates strategy source.
type Runner interface {
	Run(ctx context.Context, src string) (*engine.Report, error)
}

// ResultFunc receives the outcome of every job. report is nil when err is set.
type ResultFunc func(job queue.Job, report *engine.Report, err error)

// Worker pulls jobs and runs them through the engine.
type Worker struct {
	consumer Consumer
	runner   Runner
	metrics  *metrics.Collector
	logger   *logger.Logger
	onResult ResultFunc
}

// New creates a worker. metrics and onResult may be nil.
func New(consumer Consumer, runner Runner, collector *metrics.Collector, l *logger.Logger, onResult ResultFunc) *Worker {
	if l == nil {
		l = logger.NewNopLogger()
	}

	return &Worker{
		consumer: consumer,
		runner:   runner,
		metrics:  collector,
		logger:   l.Named("worker"),
		onResult: onResult,
	}
}

// Run consumes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.consumer.Consume(ctx, w.Handle)
}

// Handle evaluates one job. Strategy errors are reported and returned; they never stop the worker.
func (w *Worker) Handle(ctx context.Context, job queue.Job) error {
	start := time.Now()
	log := w.logger.With(zap.String("job_id", job.ID.String()))

	report, err := w.runner.Run(ctx, job.Source)

	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}

	if w.metrics != nil {
		w.metrics.RecordJob(status)
	}

	if w.onResult != nil {
		w.onResult(job, report, err)
	}

	if err != nil {
		log.Error("job failed",
			zap.Int("code", int(errors.GetCode(err))),
			zap.String("category", string(errors.GetCategory(err))),
			zap.Error(err),
		)

		return err
	}

	log.Info("job completed",
		zap.String("strategy", report.Strategy),
		zap.Int("signals", len(report.Signals)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Duration("queued", start.Sub(job.SubmittedAt)),
	)

	return nil
}
