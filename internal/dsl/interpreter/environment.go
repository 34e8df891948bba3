package interpreter

import (
	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/internal/indicator"
	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/internal/types"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata"
)

// Variable names the interpreter writes rule results to.
const (
	VariableEntry = "Entry"
	VariableExit  = "Exit"
)

// Environment is the mutable state of one evaluation. It is not safe for concurrent use;
// parallel evaluations each get their own.
type Environment struct {
	// Variables holds parameters, indicator results, market series and rule results.
	Variables map[string]value.Value
	// Flags holds boolean parameters and config switches.
	Flags map[string]bool
	// Data holds raw market series keyed <ticker>_<field>.
	Data map[string]value.Value
	// Config holds the flattened config block for the rule engine.
	Config map[string]value.Value
	// Functions resolves function calls. It may be shared between environments.
	Functions indicator.IndicatorRegistry
	// Fetcher loads data blocks. Nil when the strategy runs on preloaded series only.
	Fetcher marketdata.Fetcher
	Logger  *logger.Logger

	// primary is the first ticker loaded, whose fields are also available unprefixed.
	primary string
}

// NewEnvironment creates an empty environment resolving calls through functions.
func NewEnvironment(functions indicator.IndicatorRegistry) *Environment {
	if functions == nil {
		functions = indicator.NewDefaultIndicatorRegistry()
	}

	return &Environment{
		Variables: make(map[string]value.Value),
		Flags:     make(map[string]bool),
		Data:      make(map[string]value.Value),
		Config:    make(map[string]value.Value),
		Functions: functions,
		Fetcher:   nil,
		Logger:    logger.NewNopLogger(),
		primary:   "",
	}
}

// SetSeries stores a numeric series as a variable.
func (e *Environment) SetSeries(name string, series []float64) {
	e.Variables[name] = value.Numbers(series)
}

// LoadBars stores every field of bars in Data and Variables as <ticker>_<field>.
// The first ticker loaded also gets unprefixed aliases (close, open, ...) unless they are already set.
func (e *Environment) LoadBars(bars *types.Bars) {
	alias := e.primary == ""
	if alias {
		e.primary = bars.Ticker
	}

	for _, field := range types.FieldNames {
		series, _ := bars.Field(field)
		key := bars.Ticker + "_" + field

		e.Data[key] = value.Numbers(series)
		e.Variables[key] = value.Numbers(series)

		if _, exists := e.Variables[field]; alias && !exists {
			e.Variables[field] = value.Numbers(series)
		}
	}
}

// Primary returns the first ticker loaded, or an empty string.
func (e *Environment) Primary() string {
	return e.primary
}

// Resolve looks up name as a variable reference. Text variables are not references and
// do not resolve. Flags resolve after variables.
func (e *Environment) Resolve(name string) (value.Value, bool) {
	if v, ok := e.Variables[name]; ok && v != nil && v.Kind() != value.KindText {
		return v, true
	}

	if flag, ok := e.Flags[name]; ok {
		return value.Bool(flag), true
	}

	return nil, false
}
