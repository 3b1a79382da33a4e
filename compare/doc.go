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

// Package compare provides the comparison primitives of the search engine.
//
// Bitap is a bit-parallel bounded-error matcher. It simulates a Levenshtein
// automaton with one state word per allowed error depth and reports the best
// approximate occurrence of a term inside a context string, scored by
// Relevance.
//
// Strategies are addressed by name through a Registry. A Request names a
// strategy and carries plain data, which lets an Executor run comparisons in
// any execution context a scheduler provides.
package compare
