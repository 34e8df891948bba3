package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type SignalType string

const (
	// SignalTypeBuy opens or adds to a long position
	SignalTypeBuy SignalType = "buy"
	// SignalTypeSell sells out of a position
	SignalTypeSell SignalType = "sell"
	// SignalTypeClose closes the open position
	SignalTypeClose SignalType = "close"
	// SignalTypeNoAction marks a rule that fired without an action clause
	SignalTypeNoAction SignalType = "no_action"
)

type Signal struct {
	// Index is the bar index the rule fired on
	Index int `json:"index" yaml:"index"`
	// Time is the bar time, zero when the series carries no timestamps
	Time time.Time `json:"time,omitzero" yaml:"time,omitempty"`
	// Type is the type of the signal
	Type SignalType `json:"type" yaml:"type"`
	// Name is the rule that produced the signal, Entry or Exit
	Name string `json:"name" yaml:"name"`
	// Quantity is the amount to trade. None with All unset means no quantity was given
	Quantity optional.Option[float64] `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	// All trades the whole position or buying power
	All bool `json:"all,omitempty" yaml:"all,omitempty"`
	// Symbol is the ticker the signal refers to
	Symbol string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
}
