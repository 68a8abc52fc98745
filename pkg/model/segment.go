package model

// NodeType discriminates expression tree nodes.
type NodeType string

const (
	NodeDefault    NodeType = "default"
	NodeComposed   NodeType = "composed"
	NodeTimePeriod NodeType = "timeperiod"
	NodeTimeRange  NodeType = "timerange"
)

// Segment is a node of the composed expression tree. Which fields are
// meaningful depends on Type:
//
//	default:    Name, Value, Negate
//	composed:   Operator (AND, OR, NOT), Segments
//	timeperiod: Field, Value (a TimePeriod), Operator (GT, GTE, LT, LTE)
//	timerange:  Field, Start, End
type Segment struct {
	Type     NodeType   `json:"type" yaml:"type" bson:"type"`
	Operator Operator   `json:"operator,omitempty" yaml:"operator,omitempty" bson:"operator,omitempty"`
	Segments []*Segment `json:"segments,omitempty" yaml:"segments,omitempty" bson:"segments,omitempty"`
	Name     string     `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Value    any        `json:"value,omitempty" yaml:"value,omitempty" bson:"value,omitempty"`
	Negate   bool       `json:"negate,omitempty" yaml:"negate,omitempty" bson:"negate,omitempty"`
	Field    TimeField  `json:"field,omitempty" yaml:"field,omitempty" bson:"field,omitempty"`
	Start    string     `json:"start,omitempty" yaml:"start,omitempty" bson:"start,omitempty"`
	End      string     `json:"end,omitempty" yaml:"end,omitempty" bson:"end,omitempty"`
}

// Leaf builds a default node.
func Leaf(name string, value any, negate bool) *Segment {
	return &Segment{Type: NodeDefault, Name: name, Value: value, Negate: negate}
}

// Composed builds a composed node over children.
func Composed(op Operator, children ...*Segment) *Segment {
	return &Segment{Type: NodeComposed, Operator: op, Segments: children}
}

// Period builds a timeperiod node.
func Period(field TimeField, period TimePeriod, op Operator) *Segment {
	return &Segment{Type: NodeTimePeriod, Field: field, Value: period, Operator: op}
}

// Range builds a timerange node.
func Range(field TimeField, start, end string) *Segment {
	return &Segment{Type: NodeTimeRange, Field: field, Start: start, End: end}
}

// IsComposed reports whether s can stand as the root of a composed segment.
func (s *Segment) IsComposed() bool {
	return s != nil && s.Type == NodeComposed
}

// CountLeaves returns the number of default nodes under s.
func (s *Segment) CountLeaves() int {
	if s == nil {
		return 0
	}
	if s.Type == NodeDefault {
		return 1
	}
	n := 0
	for _, child := range s.Segments {
		n += child.CountLeaves()
	}
	return n
}

// Walk calls fn for s and every descendant in depth-first order.
func (s *Segment) Walk(fn func(*Segment)) {
	if s == nil {
		return
	}
	fn(s)
	for _, child := range s.Segments {
		child.Walk(fn)
	}
}
