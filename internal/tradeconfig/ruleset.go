package tradeconfig

import (
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// RuleSet is an ordered collection of rules keyed by field.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet creates a rule set. Declaration order breaks ties between independent rules.
func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: append([]Rule(nil), rules...)}
}

// Rule returns the rule for field.
func (s *RuleSet) Rule(field string) (Rule, bool) {
	for _, rule := range s.rules {
		if rule.Field == field {
			return rule, true
		}
	}

	return Rule{}, false
}

// Fields returns the field names in declaration order.
func (s *RuleSet) Fields() []string {
	fields := make([]string, len(s.rules))
	for i, rule := range s.rules {
		fields[i] = rule.Field
	}

	return fields
}

// With returns a copy of the set with rule added or replacing the rule of the same field.
func (s *RuleSet) With(rule Rule) *RuleSet {
	out := NewRuleSet(s.rules...)

	for i := range out.rules {
		if out.rules[i].Field == rule.Field {
			out.rules[i] = rule

			return out
		}
	}

	out.rules = append(out.rules, rule)

	return out
}

// Optional returns a copy of the set where field is not required and falls back to def.
func (s *RuleSet) Optional(field string, def value.Value) *RuleSet {
	rule, ok := s.Rule(field)
	if !ok {
		return NewRuleSet(s.rules...)
	}

	rule.Required = false
	rule.Default = optional.Some(def)

	return s.With(rule)
}

// Ordered returns the rules sorted so every rule follows the rules it depends on.
func (s *RuleSet) Ordered() ([]Rule, error) {
	index := make(map[string]int, len(s.rules))
	for i, rule := range s.rules {
		index[rule.Field] = i
	}

	const (
		unvisited = iota
		visiting
		done
	)

	state := make([]int, len(s.rules))
	ordered := make([]Rule, 0, len(s.rules))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "config rules have a dependency cycle at %s", s.rules[i].Field)
		}

		state[i] = visiting

		for _, dep := range s.rules[i].DependsOn {
			j, ok := index[dep]
			if !ok {
				return errors.Newf(errors.ErrCodeInvalidConfiguration, "config rule %s depends on unknown field %s", s.rules[i].Field, dep)
			}

			if err := visit(j); err != nil {
				return err
			}
		}

		state[i] = done
		ordered = append(ordered, s.rules[i])

		return nil
	}

	for i := range s.rules {
		if err := visit(i); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}

// Without returns a copy of the set with the rule for field removed.
func (s *RuleSet) Without(field string) *RuleSet {
	out := &RuleSet{rules: make([]Rule, 0, len(s.rules))}

	for _, rule := range s.rules {
		if rule.Field != field {
			out.rules = append(out.rules, rule)
		}
	}

	return out
}
