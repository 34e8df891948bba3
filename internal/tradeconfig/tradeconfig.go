// Package tradeconfig validates the flattened config block of a strategy and resolves it into a Record.
package tradeconfig

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// PositionMode selects how positionSize is interpreted.
type PositionMode string

const (
	PositionModeFixed   PositionMode = "fixed"
	PositionModePercent PositionMode = "percent"
)

// Record is the resolved trading configuration.
type Record struct {
	Equity        float64      `json:"equity" yaml:"equity" jsonschema:"title=Equity,description=Starting account equity,exclusiveMinimum=0"`
	CommissionBps float64      `json:"commissionBps" yaml:"commissionBps" jsonschema:"title=Commission,description=Commission per trade,minimum=0,exclusiveMaximum=1,default=0"`
	SlippageBps   float64      `json:"slippageBps" yaml:"slippageBps" jsonschema:"title=Slippage,description=Slippage per trade,minimum=0"`
	PositionMode  PositionMode `json:"positionMode" yaml:"positionMode" jsonschema:"title=Position Mode,enum=fixed,enum=percent,default=percent"`
	// PositionSize is an absolute amount. In percent mode it is already equity * size / 100.
	PositionSize float64 `json:"positionSize" yaml:"positionSize" jsonschema:"title=Position Size,minimum=0"`
}

// Field names understood by the default rules.
const (
	FieldEquity        = "equity"
	FieldCommissionBps = "commissionBps"
	FieldSlippageBps   = "slippageBps"
	FieldPositionMode  = "positionMode"
	FieldPositionSize  = "positionSize"
)

// Rule validates one config field and assigns it to the record.
type Rule struct {
	Field    string
	Type     value.Kind
	Required bool
	// Default is assigned through Assign when the field is absent and not required.
	Default optional.Option[value.Value]
	// DependsOn lists fields whose rules must commit first.
	DependsOn []string
	Assign    func(v value.Value, record *Record) error
}

func invalid(format string, args ...any) error {
	return errors.Newf(errors.ErrCodeInvalidConfigValue, format, args...)
}

// DefaultRules returns the standard rule set.
func DefaultRules() *RuleSet {
	return NewRuleSet(
		Rule{
			Field:     FieldEquity,
			Type:      value.KindNumber,
			Required:  true,
			Default:   optional.None[value.Value](),
			DependsOn: nil,
			Assign: func(v value.Value, record *Record) error {
				equity, _ := value.AsNumber(v)
				if equity <= 0 {
					return invalid("equity value must be > 0")
				}

				record.Equity = equity

				return nil
			},
		},
		Rule{
			Field:     FieldCommissionBps,
			Type:      value.KindNumber,
			Required:  false,
			Default:   optional.Some[value.Value](value.Number(0)),
			DependsOn: nil,
			Assign: func(v value.Value, record *Record) error {
				commission, _ := value.AsNumber(v)
				if commission < 0 || commission >= 1 {
					return invalid("commissionBps must be >= 0 and < 1")
				}

				record.CommissionBps = commission

				return nil
			},
		},
		Rule{
			Field:     FieldSlippageBps,
			Type:      value.KindNumber,
			Required:  true,
			Default:   optional.None[value.Value](),
			DependsOn: nil,
			Assign: func(v value.Value, record *Record) error {
				slippage, _ := value.AsNumber(v)
				if slippage < 0 {
					return invalid("slippageBps must be >= 0")
				}

				record.SlippageBps = slippage

				return nil
			},
		},
		Rule{
			Field:     FieldPositionMode,
			Type:      value.KindText,
			Required:  false,
			Default:   optional.Some[value.Value](value.Text(PositionModePercent)),
			DependsOn: nil,
			Assign: func(v value.Value, record *Record) error {
				mode, _ := value.AsText(v)

				switch PositionMode(mode) {
				case PositionModeFixed, PositionModePercent:
					record.PositionMode = PositionMode(mode)

					return nil
				default:
					return invalid("positionMode must be either \"fixed\" or \"percent\"")
				}
			},
		},
		Rule{
			Field:     FieldPositionSize,
			Type:      value.KindNumber,
			Required:  true,
			Default:   optional.None[value.Value](),
			DependsOn: []string{FieldEquity, FieldPositionMode},
			Assign: func(v value.Value, record *Record) error {
				size, _ := value.AsNumber(v)

				if record.PositionMode == PositionModeFixed {
					if size < 0 {
						return invalid("fixed positionSize must be >= 0")
					}

					record.PositionSize = size

					return nil
				}

				record.PositionSize = decimal.NewFromFloat(record.Equity).
					Mul(decimal.NewFromFloat(size)).
					Div(decimal.NewFromInt(100)).
					InexactFloat64()

				return nil
			},
		},
	)
}

// Apply runs every rule against env in dependency order. The first failure aborts.
func Apply(env map[string]value.Value, rules *RuleSet) (Record, error) {
	var record Record

	ordered, err := rules.Ordered()
	if err != nil {
		return Record{}, err
	}

	for _, rule := range ordered {
		v, present := env[rule.Field]
		if !present {
			if rule.Required {
				return Record{}, errors.Newf(errors.ErrCodeMissingConfigField, "Missing required field: %s", rule.Field)
			}

			if rule.Default.IsNone() {
				continue
			}

			v = rule.Default.Unwrap()
		}

		if v == nil || v.Kind() != rule.Type {
			got := "nothing"
			if v != nil {
				got = v.Kind().String()
			}

			return Record{}, errors.Newf(errors.ErrCodeInvalidConfigType, "Field %s must be a %s, got %s", rule.Field, rule.Type, got)
		}

		if err := rule.Assign(v, &record); err != nil {
			return Record{}, err
		}
	}

	return record, nil
}
