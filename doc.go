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

// Package haystack is an embeddable approximate-search engine over in-memory
// collections of arbitrary records.
//
// An Engine extracts (path, value) declarations from every record, filters,
// weights and preprocesses them, and keeps the result as its corpus. The
// corpus can be searched three ways:
//
//   - Search scans every document with a comparison strategy, bounded-error
//     Bitap by default.
//   - FullText ranks the documents returned by an inverted index with a
//     scoring function such as index.CosineSimilarity.
//   - Query evaluates a boolean tree of index, comparison and cluster criteria
//     built with the query package.
//
// Each has an Async variant that fans comparison work out through a
// scheduler.Scheduler and returns the same results.
//
// Engines are not safe for concurrent mutation. Searches may run concurrently
// with each other, but SetDataset, AddItem, RemoveItem, the Set* methods and
// the Build* methods must not overlap with anything else.
package haystack
