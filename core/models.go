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
	"strconv"
	"strings"
	"sync/atomic"
)

// DocumentID is a process-unique identifier for a Document.
// IDs are assigned from a monotonically increasing sequence and never reused.
type DocumentID uint64

// Declaration is one indexable (path, value) pair extracted from a source record.
type Declaration struct {
	Path             []string // Property names leading to the value in the source record
	NormalizedPath   string   // Canonical form of Path used as a field key
	OriginValue      any      // Value before preprocessing
	Value            any      // Value after preprocessing
	Weight           float64  // Relevance multiplier, 1 unless a weight rule matched
	NormalizedWeight float64  // Weight scaled into [0,1] against the largest configured weight
}

// NewDeclaration creates a declaration with default weights.
// Value starts out equal to originValue until preprocessing runs.
func NewDeclaration(path []string, originValue any) *Declaration {
	p := make([]string, len(path))
	copy(p, path)
	return &Declaration{
		Path:             p,
		NormalizedPath:   NormalizePath(p),
		OriginValue:      originValue,
		Value:            originValue,
		Weight:           1,
		NormalizedWeight: 1,
	}
}

// Text returns the declaration value rendered as a string.
func (d *Declaration) Text() string {
	return ValueText(d.Value)
}

// Document is the searchable unit of the corpus.
type Document struct {
	ID           DocumentID
	Origin       any // Source record, shared with the caller and never mutated
	OriginIndex  int // Position of Origin in the dataset at extraction time
	Declarations []*Declaration
}

// NewDocument creates a document.
func NewDocument(id DocumentID, origin any, originIndex int, declarations []*Declaration) *Document {
	return &Document{
		ID:           id,
		Origin:       origin,
		OriginIndex:  originIndex,
		Declarations: declarations,
	}
}

// DeclarationsForField returns the declarations whose normalized path equals field.
// An empty field returns all declarations.
func (d *Document) DeclarationsForField(field string) []*Declaration {
	if field == "" {
		return d.Declarations
	}
	var out []*Declaration
	for _, decl := range d.Declarations {
		if decl.NormalizedPath == field {
			out = append(out, decl)
		}
	}
	return out
}

// IDGenerator hands out document IDs. Safe for concurrent use.
type IDGenerator struct {
	last atomic.Uint64
}

// Next returns the next unused ID. The first ID is 1.
func (g *IDGenerator) Next() DocumentID {
	return DocumentID(g.last.Add(1))
}

// Peek returns the ID that the next call to Next will return.
func (g *IDGenerator) Peek() DocumentID {
	return DocumentID(g.last.Load() + 1)
}

var documentIDs IDGenerator

// NextID returns the next ID of the process-wide sequence shared by every
// engine.
func NextID() DocumentID {
	return documentIDs.Next()
}

// NormalizePath joins path segments with "." after dropping array indices,
// so "tags.0.name" and "tags.3.name" share the key "tags.name".
func NormalizePath(path []string) string {
	parts := make([]string, 0, len(path))
	for _, segment := range path {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		parts = append(parts, segment)
	}
	return strings.Join(parts, ".")
}

// ValueText renders an arbitrary declaration value as text.
func ValueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
