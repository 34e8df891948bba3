// Package engine runs strategy source through the lexer, the parser and the interpreter.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/ast"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/interpreter"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/lexer"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/parser"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/internal/indicator"
	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/internal/metrics"
	"github.com/rxtech-lab/argo-dsl/internal/tradeconfig"
	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata"
)

// Option configures an Engine.
type Option func(*Engine)

// WithFetcher sets the market data source for data blocks.
func WithFetcher(fetcher marketdata.Fetcher) Option {
	return func(e *Engine) {
		e.fetcher = fetcher
	}
}

// WithFunctions sets the function registry.
func WithFunctions(functions indicator.IndicatorRegistry) Option {
	return func(e *Engine) {
		e.functions = functions
	}
}

// WithRules replaces the config rule set.
func WithRules(rules *tradeconfig.RuleSet) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithRequiredBlocks sets the strategy blocks every program must declare.
func WithRequiredBlocks(kinds ...ast.BlockKind) Option {
	return func(e *Engine) {
		e.required = kinds
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics records stage durations and signal counts on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = collector
	}
}

// WithTimeout bounds every Run. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.timeout = timeout
	}
}

// Engine is safe for concurrent use: every Run evaluates in its own environment.
type Engine struct {
	fetcher     marketdata.Fetcher
	functions   indicator.IndicatorRegistry
	rules       *tradeconfig.RuleSet
	required    []ast.BlockKind
	logger      *logger.Logger
	metrics     *metrics.Collector
	timeout     time.Duration
	interpreter *interpreter.Interpreter
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		fetcher:     nil,
		functions:   nil,
		rules:       nil,
		required:    parser.DefaultRequiredBlocks,
		logger:      logger.NewNopLogger(),
		metrics:     nil,
		timeout:     0,
		interpreter: nil,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.functions == nil {
		e.functions = indicator.NewDefaultIndicatorRegistry()
	}

	if e.rules == nil {
		e.rules = tradeconfig.DefaultRules()
	}

	e.interpreter = interpreter.New(
		interpreter.WithFunctions(e.functions),
		interpreter.WithFetcher(e.fetcher),
		interpreter.WithRules(e.rules),
		interpreter.WithLogger(e.logger.Named("interpreter")),
	)

	return e
}

// Functions returns the registry calls resolve through.
func (e *Engine) Functions() indicator.IndicatorRegistry {
	return e.functions
}

func (e *Engine) observe(stage string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveStage(stage, time.Since(start))
	}
}

// Check lexes and parses src without evaluating it.
func (e *Engine) Check(src string) (*ast.Root, error) {
	start := time.Now()

	tokens, err := lexer.Tokenize(src)
	e.observe(metrics.StageLex, start)

	if err != nil {
		return nil, err
	}

	start = time.Now()

	root, err := parser.New(tokens,
		parser.WithRequiredBlocks(e.required...),
		parser.WithLogger(e.logger.Named("parser")),
	).Parse()
	e.observe(metrics.StageParse, start)

	if err != nil {
		return nil, err
	}

	return root, nil
}

// Run checks and evaluates src.
func (e *Engine) Run(ctx context.Context, src string) (*Report, error) {
	root, err := e.Check(src)
	if err != nil {
		return nil, err
	}

	return e.Evaluate(ctx, root)
}

// Evaluate runs an already parsed program.
func (e *Engine) Evaluate(ctx context.Context, root *ast.Root) (*Report, error) {
	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "nothing to evaluate")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.interpreter.Run(ctx, root, nil)
	e.observe(metrics.StageEvaluate, start)

	if err != nil {
		e.logger.Debug("evaluation failed", zap.Error(err))

		return nil, err
	}

	report := NewReport(root, result)

	if e.metrics != nil {
		e.metrics.AddSignals(len(report.Signals))
	}

	e.logger.Info("strategy evaluated",
		zap.String("strategy", report.Strategy),
		zap.Int("bars", report.Bars),
		zap.Int("signals", len(report.Signals)),
	)

	return report, nil
}

// Report is the encodable outcome of a run.
type Report struct {
	Strategy   string              `json:"strategy" yaml:"strategy"`
	Config     *tradeconfig.Record `json:"config,omitempty" yaml:"config,omitempty"`
	Tickers    []string            `json:"tickers,omitempty" yaml:"tickers,omitempty"`
	Bars       int                 `json:"bars" yaml:"bars"`
	Entry      any                 `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit       any                 `json:"exit,omitempty" yaml:"exit,omitempty"`
	Indicators map[string]any      `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	Signals    []types.Signal      `json:"signals" yaml:"signals"`
}

// NewReport converts an interpreter result into a Report.
func NewReport(root *ast.Root, result *interpreter.Result) *Report {
	report := &Report{
		Strategy:   result.Strategy,
		Config:     result.Config,
		Tickers:    nil,
		Bars:       0,
		Entry:      nil,
		Exit:       nil,
		Indicators: map[string]any{},
		Signals:    result.Signals,
	}

	if report.Signals == nil {
		report.Signals = []types.Signal{}
	}

	if root.Data != nil {
		for _, item := range root.Data.Items {
			if node, ok := item.Get("ticker"); ok {
				if lit, ok := node.(*ast.ValueNode); ok {
					report.Tickers = append(report.Tickers, lit.Text)
				}
			}
		}
	}

	if result.Entry != nil {
		report.Entry = value.ToNative(result.Entry)
		report.Bars = value.Len(result.Entry)
	}

	if result.Exit != nil {
		report.Exit = value.ToNative(result.Exit)
		report.Bars = max(report.Bars, value.Len(result.Exit))
	}

	for name, v := range result.Indicators(root) {
		report.Indicators[name] = value.ToNative(v)
	}

	return report
}
