package compare

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Func compares a search term against one declaration value and returns a
// score. Zero means no match; any positive value is a match.
type Func func(term, context string) float64

// Names of the built-in comparison strategies.
const (
	StrategyBitap      = "bitap"  // Bitap with two allowed errors
	StrategyBitap1     = "bitap1" // Bitap with one allowed error
	StrategyBitap0     = "bitap0" // Bitap without errors
	StrategyContains   = "contains"
	StrategyStartsWith = "startsWith"
	StrategyExact      = "exact"
)

// DefaultStrategy is the strategy used when none is configured.
const DefaultStrategy = StrategyBitap

// DefaultMaxErrors is the error budget of the default strategy.
const DefaultMaxErrors = 2

// BitapFunc returns a Func running Bitap with a fixed error budget.
func BitapFunc(maxErrors int) Func {
	return func(term, context string) float64 {
		return Bitap(term, context, maxErrors)
	}
}

// Contains scores 1 when context contains term, ignoring case.
func Contains(term, context string) float64 {
	if strings.Contains(strings.ToUpper(context), strings.ToUpper(term)) {
		return 1
	}
	return 0
}

// StartsWith scores 1 when context starts with term, ignoring case.
func StartsWith(term, context string) float64 {
	if strings.HasPrefix(strings.ToUpper(context), strings.ToUpper(term)) {
		return 1
	}
	return 0
}

// Exact scores 1 when term and context are equal, ignoring case.
func Exact(term, context string) float64 {
	if strings.EqualFold(term, context) {
		return 1
	}
	return 0
}

// Registry is the lookup table from strategy name to comparison function.
// Scheduler tasks and query criteria refer to strategies by name only.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns a registry preloaded with the built-in strategies.
func NewRegistry() *Registry {
	return &Registry{
		funcs: map[string]Func{
			StrategyBitap:      BitapFunc(DefaultMaxErrors),
			StrategyBitap1:     BitapFunc(1),
			StrategyBitap0:     BitapFunc(0),
			StrategyContains:   Contains,
			StrategyStartsWith: StartsWith,
			StrategyExact:      Exact,
		},
	}
}

// Register adds a named strategy. Names are never reused.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return ErrEmptyStrategyName
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilStrategy, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return fmt.Errorf("%w: %s", ErrStrategyExists, name)
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the strategy registered under name.
func (r *Registry) Lookup(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return fn, nil
}

// Names returns all registered strategy names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
