// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compare

import "fmt"

// Executor runs comparison requests for a single strategy. It is the
// execution context a scheduler keeps per strategy name; the strategy function
// is resolved once and reused across tasks.
type Executor struct {
	strategy string
	fn       Func
}

// NewExecutor creates an executor for the named strategy.
func NewExecutor(registry *Registry, strategy string) (*Executor, error) {
	fn, err := registry.Lookup(strategy)
	if err != nil {
		return nil, err
	}
	return &Executor{strategy: strategy, fn: fn}, nil
}

// Execute decodes a marshaled Request and returns one score per context as []float64.
func (e *Executor) Execute(payload []byte) (any, error) {
	req, err := UnmarshalRequest(payload)
	if err != nil {
		return nil, err
	}
	if req.Strategy != e.strategy {
		return nil, fmt.Errorf("%w: got %q, executor runs %q", ErrStrategyMismatch, req.Strategy, e.strategy)
	}
	scores := make([]float64, len(req.Contexts))
	for i, c := range req.Contexts {
		scores[i] = e.fn(req.Term, c)
	}
	return scores, nil
}

// Close releases the resolved strategy.
func (e *Executor) Close() {
	e.fn = nil
}

// AnyMatch reports whether any score denotes a match.
func AnyMatch(scores []float64) bool {
	for _, s := range scores {
		if s > 0 {
			return true
		}
	}
	return false
}

// Best returns the index and value of the highest score, or -1 when nothing matched.
// Ties keep the earliest index.
func Best(scores []float64) (int, float64) {
	best, bestScore := -1, 0.0
	for i, s := range scores {
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}
