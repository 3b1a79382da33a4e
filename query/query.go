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

package query

import (
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// Kind identifies the node type of a query tree.
type Kind int

const (
	// KindIndex looks a value up in the inverted index.
	KindIndex Kind = iota + 1
	// KindComparison scans the corpus with a comparison strategy.
	KindComparison
	// KindCluster delegates to a named cluster.
	KindCluster
	// KindAnd intersects its children.
	KindAnd
	// KindOr unites its children.
	KindOr
	// KindNot subtracts its second child from its first.
	KindNot
)

var kindNames = map[Kind]string{
	KindIndex:      "index",
	KindComparison: "comparison",
	KindCluster:    "cluster",
	KindAnd:        "and",
	KindOr:         "or",
	KindNot:        "not",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidQuery, int(k))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if strings.EqualFold(name, string(text)) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidQuery, text)
}

// Query is a node of a query tree. Leaf fields are only meaningful for the
// matching Kind; combinators use Children.
type Query struct {
	Kind Kind `json:"kind"`

	// Value is the search value of index and comparison criteria and the
	// optional root value of cluster criteria.
	Value any `json:"value,omitempty"`

	// Exact disables fuzzy token expansion for index criteria.
	Exact bool `json:"exact,omitempty"`

	// Field restricts index and comparison criteria to one normalized path.
	Field string `json:"field,omitempty"`

	// Strategy names the comparison strategy. Empty uses the engine default.
	Strategy string `json:"strategy,omitempty"`

	// ClusterID names the cluster of a cluster criterion.
	ClusterID string `json:"cluster,omitempty"`

	// Options are handed to the cluster unchanged.
	Options map[string]any `json:"options,omitempty"`

	Children []*Query `json:"children,omitempty"`
}

// CriterionOption configures a leaf criterion.
type CriterionOption func(*Query)

// WithExact disables fuzzy expansion of index criteria.
func WithExact() CriterionOption {
	return func(q *Query) { q.Exact = true }
}

// WithField restricts a criterion to one normalized path.
func WithField(field string) CriterionOption {
	return func(q *Query) { q.Field = field }
}

// WithStrategy selects a comparison strategy by name.
func WithStrategy(name string) CriterionOption {
	return func(q *Query) { q.Strategy = name }
}

// WithValue sets the root search value of a cluster criterion.
func WithValue(v any) CriterionOption {
	return func(q *Query) { q.Value = v }
}

// WithOptions sets the options passed to a cluster.
func WithOptions(options map[string]any) CriterionOption {
	return func(q *Query) { q.Options = options }
}

func leaf(kind Kind, opts []CriterionOption) *Query {
	q := &Query{Kind: kind}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Index creates an index criterion.
func Index(value any, opts ...CriterionOption) *Query {
	q := leaf(KindIndex, opts)
	q.Value = value
	return q
}

// Comparison creates a comparison criterion.
func Comparison(value any, opts ...CriterionOption) *Query {
	q := leaf(KindComparison, opts)
	q.Value = value
	return q
}

// Cluster creates a cluster criterion.
func Cluster(id string, opts ...CriterionOption) *Query {
	q := leaf(KindCluster, opts)
	q.ClusterID = id
	return q
}

// And intersects the results of its children.
func And(children ...*Query) *Query {
	return &Query{Kind: KindAnd, Children: children}
}

// Or unites the results of its children.
func Or(children ...*Query) *Query {
	return &Query{Kind: KindOr, Children: children}
}

// Not returns the results of left that right did not return.
func Not(left, right *Query) *Query {
	return &Query{Kind: KindNot, Children: []*Query{left, right}}
}

// Validate checks the structure of the whole tree.
func (q *Query) Validate() error {
	if q == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidQuery)
	}
	switch q.Kind {
	case KindIndex, KindComparison:
		if q.Value == nil {
			return fmt.Errorf("%w: %s criterion without value", ErrInvalidQuery, q.Kind)
		}
	case KindCluster:
		if q.ClusterID == "" {
			return fmt.Errorf("%w: cluster criterion without id", ErrInvalidQuery)
		}
	case KindAnd, KindOr:
		if len(q.Children) == 0 {
			return fmt.Errorf("%w: %s without children", ErrInvalidQuery, q.Kind)
		}
	case KindNot:
		if len(q.Children) != 2 {
			return fmt.Errorf("%w: not needs exactly 2 children, got %d", ErrInvalidQuery, len(q.Children))
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidQuery, int(q.Kind))
	}
	for _, child := range q.Children {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsLeaf reports whether q is a criterion rather than a combinator.
func (q *Query) IsLeaf() bool {
	return q.Kind == KindIndex || q.Kind == KindComparison || q.Kind == KindCluster
}

// Fingerprint returns a 64-bit BLAKE2b digest of the canonical form of the
// tree. Equal trees have equal fingerprints.
func (q *Query) Fingerprint() uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	q.canonical(h)
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// canonical writes a length-prefixed rendition of the tree to w.
func (q *Query) canonical(w io.Writer) {
	if q == nil {
		writeField(w, "nil")
		return
	}
	writeField(w, q.Kind.String())
	if q.Value != nil {
		writeField(w, fmt.Sprintf("%T:%v", q.Value, q.Value))
	} else {
		writeField(w, "")
	}
	writeField(w, strconv.FormatBool(q.Exact))
	writeField(w, q.Field)
	writeField(w, q.Strategy)
	writeField(w, q.ClusterID)

	keys := make([]string, 0, len(q.Options))
	for k := range q.Options {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	writeField(w, strconv.Itoa(len(keys)))
	for _, k := range keys {
		writeField(w, k)
		writeField(w, fmt.Sprintf("%T:%v", q.Options[k], q.Options[k]))
	}

	writeField(w, strconv.Itoa(len(q.Children)))
	for _, child := range q.Children {
		child.canonical(w)
	}
}

func writeField(w io.Writer, s string) {
	var n [binary.MaxVarintLen64]byte
	w.Write(n[:binary.PutUvarint(n[:], uint64(len(s)))])
	io.WriteString(w, s)
}
