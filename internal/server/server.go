// Package server accepts strategy submissions over HTTP.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/ast"
	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/internal/metrics"
	"github.com/rxtech-lab/argo-dsl/internal/queue"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// Checker parses strategy source.
type Checker interface {
	Check(src string) (*ast.Root, error)
}

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// BacktestRequest is the body of POST /backtest.
type BacktestRequest struct {
	SourceCode string `json:"source_code" validate:"required" jsonschema:"title=Source Code,description=Strategy source text"`
}

// Response is the body of every reply.
type Response struct {
	Status  string          `json:"status"`
	JobID   string          `json:"job_id,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    errors.ErrorCode `json:"code,omitempty"`
	Line    int             `json:"line,omitempty"`
	Column  int             `json:"column,omitempty"`
}

// Config configures the HTTP server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// Server validates submitted strategies and optionally queues them for evaluation.
type Server struct {
	config    Config
	checker   Checker
	publisher queue.Publisher
	health    HealthFunc
	metrics   *metrics.Collector
	logger    *logger.Logger
	validate  *validator.Validate

	httpServer *http.Server
}

// New creates a server. publisher, health and collector may be nil.
func New(config Config, checker Checker, publisher queue.Publisher, health HealthFunc, collector *metrics.Collector, l *logger.Logger) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}

	if l == nil {
		l = logger.NewNopLogger()
	}

	return &Server{
		config:     config,
		checker:    checker,
		publisher:  publisher,
		health:     health,
		metrics:    collector,
		logger:     l.Named("server"),
		validate:   validator.New(),
		httpServer: nil,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/backtest", s.handleBacktest).Methods(http.MethodPost)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	return router
}

// Serve accepts connections on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}

	s.logger.Info("listening", zap.String("addr", listener.Addr().String()))

	if err := s.httpServer.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// ListenAndServe listens on the configured address.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", s.config.Addr)
	}

	return s.Serve(listener)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid request body", err))

		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.fail(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidRequest, "source_code is required"))

		return
	}

	if _, err := s.checker.Check(req.SourceCode); err != nil {
		s.fail(w, http.StatusBadRequest, err)

		return
	}

	enqueue, _ := strconv.ParseBool(r.URL.Query().Get("enqueue"))
	if !enqueue {
		s.record(metrics.StatusOK)
		writeJSON(w, http.StatusOK, Response{Status: metrics.StatusOK})

		return
	}

	if s.publisher == nil {
		s.fail(w, http.StatusServiceUnavailable, errors.New(errors.ErrCodeQueuePublishFailed, "no queue configured"))

		return
	}

	job := queue.NewJob(req.SourceCode)
	if err := s.publisher.Publish(r.Context(), job); err != nil {
		s.fail(w, http.StatusServiceUnavailable, err)

		return
	}

	s.record(metrics.StatusEnqueued)
	s.logger.Info("strategy enqueued", zap.String("job_id", job.ID.String()))
	writeJSON(w, http.StatusAccepted, Response{Status: metrics.StatusEnqueued, JobID: job.ID.String()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, Response{Status: metrics.StatusError, Message: err.Error()})

			return
		}
	}

	writeJSON(w, http.StatusOK, Response{Status: metrics.StatusOK})
}

func (s *Server) record(status string) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(status)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.record(metrics.StatusError)

	resp := Response{
		Status:  metrics.StatusError,
		Message: err.Error(),
		Code:    errors.GetCode(err),
	}

	var coded *errors.Error
	if errors.As(err, &coded) {
		resp.Message = coded.Message
		resp.Line = coded.Line
		resp.Column = coded.Column
	}

	s.logger.Debug("submission rejected", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
