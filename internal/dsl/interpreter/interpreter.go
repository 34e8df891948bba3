package interpreter

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/ast"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/internal/indicator"
	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/internal/tradeconfig"
	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata"
)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithFunctions sets the registry calls resolve through.
func WithFunctions(functions indicator.IndicatorRegistry) Option {
	return func(i *Interpreter) {
		i.functions = functions
	}
}

// WithFetcher sets the source data blocks load from.
func WithFetcher(fetcher marketdata.Fetcher) Option {
	return func(i *Interpreter) {
		i.fetcher = fetcher
	}
}

// WithRules replaces the config rule set.
func WithRules(rules *tradeconfig.RuleSet) Option {
	return func(i *Interpreter) {
		i.rules = rules
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(i *Interpreter) {
		i.logger = l
	}
}

// Interpreter runs whole programs. It holds no evaluation state and may be shared.
type Interpreter struct {
	functions indicator.IndicatorRegistry
	fetcher   marketdata.Fetcher
	rules     *tradeconfig.RuleSet
	logger    *logger.Logger
}

// New creates an interpreter with the built-in functions and default config rules.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		functions: nil,
		fetcher:   nil,
		rules:     nil,
		logger:    nil,
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.functions == nil {
		i.functions = indicator.NewDefaultIndicatorRegistry()
	}

	if i.rules == nil {
		i.rules = tradeconfig.DefaultRules()
	}

	if i.logger == nil {
		i.logger = logger.NewNopLogger()
	}

	return i
}

// NewEnvironment creates a fresh environment wired to the interpreter's functions and fetcher.
func (i *Interpreter) NewEnvironment() *Environment {
	env := NewEnvironment(i.functions)
	env.Fetcher = i.fetcher
	env.Logger = i.logger.Named("eval")

	return env
}

// Result is the outcome of running a program.
type Result struct {
	Strategy string
	// Config is nil when the program has no config block.
	Config      *tradeconfig.Record
	Entry       value.Value
	Exit        value.Value
	EntryAction *ast.Action
	ExitAction  *ast.Action
	Signals     []types.Signal
	Variables   map[string]value.Value
	Flags       map[string]bool
}

// Indicators returns the values of the indicators block keyed by name.
func (r *Result) Indicators(root *ast.Root) map[string]value.Value {
	out := make(map[string]value.Value)
	if root == nil || root.Strategy == nil {
		return out
	}

	block, ok := root.Strategy.Block(ast.BlockIndicators)
	if !ok {
		return out
	}

	for _, name := range block.Keys() {
		if v, ok := r.Variables[name]; ok {
			out[name] = v
		}
	}

	return out
}

// Run evaluates root in env. A nil env gets a fresh one.
// The config block is flattened and validated before data loads and the strategy runs.
func (i *Interpreter) Run(ctx context.Context, root *ast.Root, env *Environment) (*Result, error) {
	if env == nil {
		env = i.NewEnvironment()
	}

	result := &Result{
		Strategy:    "",
		Config:      nil,
		Entry:       nil,
		Exit:        nil,
		EntryAction: nil,
		ExitAction:  nil,
		Signals:     nil,
		Variables:   env.Variables,
		Flags:       env.Flags,
	}

	if root.Config != nil {
		if _, err := EvalContext(ctx, root.Config, env); err != nil {
			return nil, err
		}

		record, err := tradeconfig.Apply(env.Config, i.rules)
		if err != nil {
			return nil, err
		}

		result.Config = &record
	}

	if root.Data != nil {
		if _, err := EvalContext(ctx, root.Data, env); err != nil {
			return nil, err
		}
	}

	if root.Strategy == nil {
		return result, nil
	}

	start := time.Now()

	if _, err := EvalContext(ctx, root.Strategy, env); err != nil {
		return nil, err
	}

	result.Strategy = root.Strategy.Name
	result.Entry = env.Variables[VariableEntry]
	result.Exit = env.Variables[VariableExit]
	result.EntryAction = ruleAction(root.Strategy, ast.BlockEntry)
	result.ExitAction = ruleAction(root.Strategy, ast.BlockExit)
	result.Signals = append(
		signals(VariableEntry, result.Entry, result.EntryAction, env),
		signals(VariableExit, result.Exit, result.ExitAction, env)...,
	)

	i.logger.Debug("strategy evaluated",
		zap.String("strategy", result.Strategy),
		zap.Int("signals", len(result.Signals)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

func ruleAction(strategy *ast.Strategy, kind ast.BlockKind) *ast.Action {
	block, ok := strategy.Block(kind)
	if !ok {
		return nil
	}

	node, ok := block.Get("Action")
	if !ok {
		return nil
	}

	action, _ := node.(*ast.Action)

	return action
}

// signals lists the bars a rule result is true on. A scalar result fires on bar 0.
func signals(name string, v value.Value, action *ast.Action, env *Environment) []types.Signal {
	if v == nil {
		return nil
	}

	fired, err := value.BoolSeries(v)
	if err != nil {
		return nil
	}

	var timestamps []float64
	if primary := env.Primary(); primary != "" {
		timestamps, _ = value.AsNumbers(env.Data[primary+"_"+types.FieldTimestamp])
	}

	signalType := types.SignalTypeNoAction
	quantity := optional.None[float64]()
	all := false

	if action != nil {
		signalType = types.SignalType(action.Type)
		quantity = action.Quantity
		all = action.All
	}

	var out []types.Signal

	for index, ok := range fired {
		if !ok {
			continue
		}

		signal := types.Signal{
			Index:    index,
			Time:     time.Time{},
			Type:     signalType,
			Name:     name,
			Quantity: quantity,
			All:      all,
			Symbol:   env.Primary(),
		}

		if index < len(timestamps) {
			signal.Time = time.UnixMilli(int64(timestamps[index])).UTC()
		}

		out = append(out, signal)
	}

	return out
}
