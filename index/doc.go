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

// Package index provides an inverted index for inexact-K retrieval.
//
// An Index maps tokens to the documents and fields that contain them and
// keeps a sparse token vector per document. Retrieval ranks documents by
// weighted token overlap with the query, either by exact token equality or by
// expanding query tokens onto indexed tokens with a fuzzy comparison.
//
// Tokenization is pluggable. WordTokenizer splits on word boundaries;
// PrefixTokenizer emits every prefix of a value so prefix queries become exact
// lookups.
//
// The index never rebuilds itself. Callers run Build after replacing the
// corpus, or AddDocument and RemoveDocument for single-document changes.
package index
