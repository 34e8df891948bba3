// Package metrics exposes the prometheus metrics of the submission server and the worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission statuses.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusEnqueued = "enqueued"
)

// Pipeline stages timed by ObserveStage.
const (
	StageLex      = "lex"
	StageParse    = "parse"
	StageEvaluate = "evaluate"
)

// Collector owns a private registry so tests and embedders never collide with the default one.
type Collector struct {
	registry *prometheus.Registry

	submissions   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	jobs          *prometheus.CounterVec
	signals       prometheus.Counter
}

// NewCollector creates and registers every metric under namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "argo_dsl"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "submissions_total",
				Help:      "Strategy submissions by outcome",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"stage"},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "jobs_processed_total",
				Help:      "Queued jobs processed by outcome",
			},
			[]string{"status"},
		),
		signals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "signals_total",
				Help:      "Entry and exit signals produced by evaluated strategies",
			},
		),
	}

	c.registry.MustRegister(c.submissions, c.stageDuration, c.jobs, c.signals)

	return c
}

// RecordSubmission counts one submission with the given status.
func (c *Collector) RecordSubmission(status string) {
	c.submissions.WithLabelValues(status).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordJob counts one processed job with the given status.
func (c *Collector) RecordJob(status string) {
	c.jobs.WithLabelValues(status).Inc()
}

// AddSignals adds n produced signals.
func (c *Collector) AddSignals(n int) {
	c.signals.Add(float64(n))
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the /metrics endpoint for the private registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
