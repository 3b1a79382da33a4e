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

package haystack

import (
	"errors"

	"github.com/poiesic/haystack/query"
)

var (
	// ErrNoIndexStrategy is returned by index-backed operations when no index is configured.
	ErrNoIndexStrategy = query.ErrNoIndexStrategy

	// ErrNoScoringStrategy is returned by FullText when no scoring function is configured.
	ErrNoScoringStrategy = errors.New("no full-text scoring strategy has been configured")

	// ErrNoSpellingStrategy is returned by CheckSpelling when no speller is configured.
	ErrNoSpellingStrategy = errors.New("no spelling strategy configured")

	// ErrNoSuchSpeller is returned by CheckSpelling for an unknown speller id.
	ErrNoSuchSpeller = errors.New("no such spelling strategy")

	// ErrInvalidConfig indicates a configuration value out of range.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrEngineClosed is returned by async operations after Close.
	ErrEngineClosed = errors.New("engine closed")
)
