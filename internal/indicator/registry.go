package indicator

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// IndicatorRegistry manages the functions callable from strategy source.
type IndicatorRegistry interface {
	RegisterIndicator(name string, fn Func) error
	GetIndicator(name string) (Func, error)
	ListIndicators() []string
	RemoveIndicator(name string) error
}

// IndicatorRegistryV1 is a registry safe for concurrent use by many evaluations.
type IndicatorRegistryV1 struct {
	indicators map[string]Func
	mu         sync.RWMutex
}

// NewIndicatorRegistry creates an empty indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		indicators: make(map[string]Func),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultIndicatorRegistry creates a registry holding the built-in indicators.
func NewDefaultIndicatorRegistry() IndicatorRegistry {
	registry := &IndicatorRegistryV1{
		indicators: Builtins(),
		mu:         sync.RWMutex{},
	}

	return registry
}

// RegisterIndicator adds a function to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(name string, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fn == nil {
		return errors.Newf(errors.ErrCodeInvalidArgument, "RegisterIndicator: indicator %s has no function", name)
	}

	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeFunctionAlreadyExists, "RegisterIndicator: indicator with name %s already registered", name)
	}

	r.indicators[name] = fn

	return nil
}

// GetIndicator retrieves a function by name.
func (r *IndicatorRegistryV1) GetIndicator(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeFunctionNotFound, "GetIndicator: indicator with name %s not found", name)
	}

	return fn, nil
}

// ListIndicators returns the registered names in sorted order.
func (r *IndicatorRegistryV1) ListIndicators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// RemoveIndicator removes a function from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeFunctionNotFound, "RemoveIndicator: indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	return nil
}
