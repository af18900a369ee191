/*
Copyright 2024 The InfraWeave Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package backend

// Op is a comparison operator usable in a Query filter.
type Op string

const (
	OpEq         Op = "eq"
	OpStartsWith Op = "starts_with"
	OpBetween    Op = "between"
	OpGte        Op = "gte"
	OpLte        Op = "lte"
)

// Condition is one filter term: Field Op Value(s) against an index.
type Condition struct {
	Field  string
	Op     Op
	Value  interface{}
	Value2 interface{} // used for OpBetween
}

// Query is the backend-agnostic query object query builders (pkg/query)
// produce. Each backend implementation translates it into its own
// representation: a JSON filter expression for the keyed store, a
// bson.M filter for the document database (spec.md §4.C2).
type Query struct {
	// Index selects a secondary index; empty means the base table.
	Index string
	// HashKey is the mandatory equality condition on the index's
	// partition key (PK, or the index's hash attribute).
	HashKey Condition
	// RangeKey is an optional condition on the sort key.
	RangeKey *Condition
	// Limit caps the number of items returned in one page.
	Limit int
	// Cursor is an opaque continuation token from a previous Page.
	Cursor string
	// ScanIndexForward controls sort order on the range key; false
	// gives newest-first for time-ordered indexes (e.g. events).
	ScanIndexForward bool
}

// HashEq builds a Query against the base table keyed on PK.
func HashEq(pk string) Query {
	return Query{HashKey: Condition{Field: "PK", Op: OpEq, Value: pk}}
}

// HashEqOnIndex builds a Query against a named secondary index.
func HashEqOnIndex(index, hashField, hashValue string) Query {
	return Query{Index: index, HashKey: Condition{Field: hashField, Op: OpEq, Value: hashValue}}
}

// WithRangeStartsWith adds a "starts with" condition on the range key.
func (q Query) WithRangeStartsWith(field, prefix string) Query {
	q.RangeKey = &Condition{Field: field, Op: OpStartsWith, Value: prefix}
	return q
}

// WithRangeBetween adds a "between" condition on the range key.
func (q Query) WithRangeBetween(field string, from, to interface{}) Query {
	q.RangeKey = &Condition{Field: field, Op: OpBetween, Value: from, Value2: to}
	return q
}

// WithLimit sets the page size.
func (q Query) WithLimit(limit int) Query {
	q.Limit = limit
	return q
}

// WithCursor resumes from a previous page's cursor.
func (q Query) WithCursor(cursor string) Query {
	q.Cursor = cursor
	return q
}

// Descending requests newest-first ordering on the range key.
func (q Query) Descending() Query {
	q.ScanIndexForward = false
	return q
}
