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

package core

import "errors"

// Document model validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidDeclaration indicates a Declaration failed validation.
	ErrInvalidDeclaration = errors.New("invalid declaration")

	// ErrZeroDocumentID indicates a document was created without an assigned ID.
	ErrZeroDocumentID = errors.New("document id cannot be zero")

	// ErrPathMismatch indicates NormalizedPath does not match Path.
	ErrPathMismatch = errors.New("normalized path does not match path")

	// ErrWeightOutOfRange indicates a normalized weight outside [0,1].
	ErrWeightOutOfRange = errors.New("normalized weight must be between 0 and 1")

	// ErrNegativeOriginIndex indicates a document references a negative dataset position.
	ErrNegativeOriginIndex = errors.New("origin index cannot be negative")
)
