// Package translator lowers a composed segment tree into a backend query
// fragment. The Parser walks the tree; an Adapter supplies the backend's
// vocabulary for the seven primitive operations.
package translator

import (
	"time"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

// Term is a single field constraint produced by a definition builder.
type Term struct {
	Field string
	Value any
}

// BuildFunc turns a selected value into the field terms it implies.
type BuildFunc func(value any) []Term

// Registry resolves a default node's name to its builder.
type Registry interface {
	Lookup(name string) (BuildFunc, bool)
}

// Adapter expresses query primitives for one backend. F is the backend's
// fragment type.
type Adapter[F any] interface {
	// Combine merges the terms of one leaf into a single fragment.
	Combine(terms []Term) F
	// Negate rewrites a term so it matches when the original does not.
	Negate(field string, value any) Term
	ComposeAnd(children []F) F
	ComposeOr(children []F) F
	// ComposeNot matches when the conjunction of children does not hold.
	ComposeNot(children []F) F
	TimePeriod(field model.TimeField, instant time.Time, op model.Operator) (F, error)
	TimeRange(field model.TimeField, start, end string) (F, error)
}
