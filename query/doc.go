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

// Package query composes retrieval criteria into boolean result sets.
//
// A Query is a tree. Leaves are index, comparison or cluster criteria and are
// answered by a Retriever. Inner nodes combine the id sets of their children:
//
//   - And keeps the ids of its first child that every other child returned.
//   - Or returns every id once, in order of first appearance.
//   - Not returns the ids of its first child that the second did not return.
//
// Combinators only look at ids and always evaluate every child.
//
// The Planner evaluates a tree synchronously with ExecuteQuery or
// concurrently with ExecuteQueryAsync. Both return the same ids in the same
// order. Results can be memoized in an LRU cache keyed by the query
// fingerprint and the corpus generation.
package query
