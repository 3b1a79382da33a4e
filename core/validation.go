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

import (
	"fmt"
)

// ValidateDocument validates a Document and each of its declarations.
//
// Validation rules:
//
//   - ID must be assigned (non-zero)
//   - OriginIndex must not be negative
//   - Every declaration must pass ValidateDeclaration
//
// NOT validated:
//
//   - Origin (any value, including nil, is a valid source record)
//   - Declarations may be empty when filters removed every field
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrZeroDocumentID)
	}

	if doc.OriginIndex < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrNegativeOriginIndex)
	}

	for i, decl := range doc.Declarations {
		if err := ValidateDeclaration(decl); err != nil {
			return fmt.Errorf("%w: declaration %d: %w", ErrInvalidDocument, i, err)
		}
	}

	return nil
}

// ValidateDeclaration validates a Declaration.
//
// Validation rules:
//
//   - NormalizedPath must equal NormalizePath(Path)
//   - NormalizedWeight must be within [0,1]
//
// An empty Path is valid: scalar records produce a single declaration
// with no path.
func ValidateDeclaration(decl *Declaration) error {
	if decl == nil {
		return fmt.Errorf("%w: declaration is nil", ErrInvalidDeclaration)
	}

	if decl.NormalizedPath != NormalizePath(decl.Path) {
		return fmt.Errorf("%w: %w", ErrInvalidDeclaration, ErrPathMismatch)
	}

	if decl.NormalizedWeight < 0 || decl.NormalizedWeight > 1 {
		return fmt.Errorf("%w: %w: %v", ErrInvalidDeclaration, ErrWeightOutOfRange, decl.NormalizedWeight)
	}

	return nil
}
