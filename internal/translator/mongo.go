package translator

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

const dateOnlyLayout = "2006-01-02"

// MongoAdapter renders fragments as MongoDB match documents.
type MongoAdapter struct {
	paths map[model.TimeField]string
}

// NewMongoAdapter creates an adapter. paths overrides the document path a
// time field is stored under; unmapped fields use their own name.
func NewMongoAdapter(paths map[model.TimeField]string) *MongoAdapter {
	cp := make(map[model.TimeField]string, len(paths))
	for k, v := range paths {
		cp[k] = v
	}
	return &MongoAdapter{paths: cp}
}

var _ Adapter[bson.D] = (*MongoAdapter)(nil)

// Combine merges terms into one document. A later term replaces an earlier
// one on the same field.
func (a *MongoAdapter) Combine(terms []Term) bson.D {
	doc := bson.D{}
	index := make(map[string]int, len(terms))
	for _, term := range terms {
		if i, ok := index[term.Field]; ok {
			doc[i].Value = term.Value
			continue
		}
		index[term.Field] = len(doc)
		doc = append(doc, bson.E{Key: term.Field, Value: term.Value})
	}
	return doc
}

// Negate uses $ne for plain values and $not for operator expressions.
func (a *MongoAdapter) Negate(field string, value any) Term {
	if expr, ok := operatorExpr(value); ok {
		if len(expr) == 1 && expr[0].Key == "$not" {
			return Term{Field: field, Value: expr[0].Value}
		}
		return Term{Field: field, Value: bson.D{{Key: "$not", Value: expr}}}
	}
	if re, ok := value.(primitive.Regex); ok {
		return Term{Field: field, Value: bson.D{{Key: "$not", Value: re}}}
	}
	return Term{Field: field, Value: bson.D{{Key: "$ne", Value: value}}}
}

func (a *MongoAdapter) ComposeAnd(children []bson.D) bson.D {
	return bson.D{{Key: "$and", Value: toArray(children)}}
}

func (a *MongoAdapter) ComposeOr(children []bson.D) bson.D {
	return bson.D{{Key: "$or", Value: toArray(children)}}
}

// ComposeNot expresses NOT(c1 AND c2 ...) with $nor, since MongoDB has no
// top-level $not.
func (a *MongoAdapter) ComposeNot(children []bson.D) bson.D {
	if len(children) == 1 {
		return bson.D{{Key: "$nor", Value: bson.A{children[0]}}}
	}
	return bson.D{{Key: "$nor", Value: bson.A{a.ComposeAnd(children)}}}
}

func (a *MongoAdapter) TimePeriod(field model.TimeField, instant time.Time, op model.Operator) (bson.D, error) {
	cmp, err := comparison(op)
	if err != nil {
		return nil, err
	}
	path, err := a.path(field)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: path, Value: bson.D{{Key: cmp, Value: instant.UTC()}}}}, nil
}

func (a *MongoAdapter) TimeRange(field model.TimeField, start, end string) (bson.D, error) {
	path, err := a.path(field)
	if err != nil {
		return nil, err
	}
	from, _, err := parseBound(start)
	if err != nil {
		return nil, fmt.Errorf("invalid range start: %w", err)
	}
	to, dateOnly, err := parseBound(end)
	if err != nil {
		return nil, fmt.Errorf("invalid range end: %w", err)
	}
	if dateOnly {
		// a bare end date includes the whole day
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s is before start %s", end, start)
	}
	return bson.D{{Key: path, Value: bson.D{
		{Key: "$gte", Value: from},
		{Key: "$lte", Value: to},
	}}}, nil
}

func (a *MongoAdapter) path(field model.TimeField) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("unknown time field %q", field)
	}
	if p, ok := a.paths[field]; ok && p != "" {
		return p, nil
	}
	return string(field), nil
}

func comparison(op model.Operator) (string, error) {
	switch op {
	case model.OperatorGT:
		return "$gt", nil
	case model.OperatorGTE:
		return "$gte", nil
	case model.OperatorLT:
		return "$lt", nil
	case model.OperatorLTE:
		return "$lte", nil
	default:
		return "", fmt.Errorf("unsupported comparison operator %q", op)
	}
}

func parseBound(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", s)
	}
	return t.UTC(), true, nil
}

// operatorExpr reports whether value is a document made only of query operators.
func operatorExpr(value any) (bson.D, bool) {
	var doc bson.D
	switch v := value.(type) {
	case bson.D:
		doc = v
	case bson.M:
		for k, val := range v {
			doc = append(doc, bson.E{Key: k, Value: val})
		}
	default:
		return nil, false
	}
	if len(doc) == 0 {
		return nil, false
	}
	for _, e := range doc {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, false
		}
	}
	return doc, true
}

func toArray(children []bson.D) bson.A {
	arr := make(bson.A, len(children))
	for i, c := range children {
		arr[i] = c
	}
	return arr
}
