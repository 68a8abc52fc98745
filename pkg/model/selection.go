// Package model defines the selection and expression-tree types shared by the
// segment composer, the query translator and the HTTP/NATS surfaces.
package model

// Operator is a logical or comparison operator carried by selection groups
// and expression nodes.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
	OperatorNot Operator = "NOT"
	OperatorGT  Operator = "GT"
	OperatorGTE Operator = "GTE"
	OperatorLT  Operator = "LT"
	OperatorLTE Operator = "LTE"
)

// IsLogical reports whether op may join composed nodes.
func (op Operator) IsLogical() bool {
	return op == OperatorAnd || op == OperatorOr || op == OperatorNot
}

// IsComparison reports whether op may bound a time period.
func (op Operator) IsComparison() bool {
	switch op {
	case OperatorGT, OperatorGTE, OperatorLT, OperatorLTE:
		return true
	}
	return false
}

// GroupKey identifies the category a selection group belongs to.
type GroupKey string

const (
	GroupGrowth      GroupKey = "growth"
	GroupTransaction GroupKey = "transaction"
	GroupProfile     GroupKey = "profile"
	GroupMarketing   GroupKey = "marketing events"
)

// GroupKeys lists every group in display order.
func GroupKeys() []GroupKey {
	return []GroupKey{GroupGrowth, GroupTransaction, GroupProfile, GroupMarketing}
}

// Valid reports whether g is a known group.
func (g GroupKey) Valid() bool {
	for _, k := range GroupKeys() {
		if g == k {
			return true
		}
	}
	return false
}

// NeedsEvents reports whether fields in this group live on joined event documents.
func (g GroupKey) NeedsEvents() bool {
	return g == GroupTransaction || g == GroupMarketing
}

// OptionValue is one selectable value returned by the option catalog.
// Value holds a string or a number.
type OptionValue struct {
	Value any    `json:"value" yaml:"value" bson:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty" bson:"label,omitempty"`
	Count *int64 `json:"count,omitempty" yaml:"count,omitempty" bson:"count,omitempty"`
}

// Selection is an OptionValue picked under a specific field key.
type Selection struct {
	OptionValue `yaml:",inline" bson:",inline"`
	SegmentKey  string `json:"segmentKey" yaml:"segmentKey" bson:"segmentKey"`
}

// FilterOption says whether a group's main selection is kept (AND) or negated (NOT).
type FilterOption struct {
	Name  string   `json:"name" yaml:"name" bson:"name"`
	Value Operator `json:"value" yaml:"value" bson:"value"`
}

// Negates reports whether the option negates the main selection.
func (f *FilterOption) Negates() bool {
	return f != nil && f.Value == OperatorNot
}

// SelectionGroup is one step of an in-progress segment.
type SelectionGroup struct {
	ID                   string        `json:"id" yaml:"id" bson:"id"`
	GroupKey             GroupKey      `json:"groupKey" yaml:"groupKey" bson:"groupKey"`
	MainSegmentSelection *Selection    `json:"mainSegmentSelection" yaml:"mainSegmentSelection" bson:"mainSegmentSelection"`
	ExtraSelections      []Selection   `json:"extraSelections" yaml:"extraSelections" bson:"extraSelections"`
	SegmentsRelation     Operator      `json:"segmentsRelation" yaml:"segmentsRelation" bson:"segmentsRelation"`
	FilterOption         *FilterOption `json:"filterOption" yaml:"filterOption" bson:"filterOption"`
	LogicalOperator      Operator      `json:"logicalOperator" yaml:"logicalOperator" bson:"logicalOperator"`
	DateFilter           *DateFilter   `json:"dateFilter,omitempty" yaml:"dateFilter,omitempty" bson:"dateFilter,omitempty"`
}

// Clone returns a deep copy of g. Option values are treated as immutable and shared.
func (g SelectionGroup) Clone() SelectionGroup {
	out := g
	if g.MainSegmentSelection != nil {
		main := *g.MainSegmentSelection
		out.MainSegmentSelection = &main
	}
	if g.ExtraSelections != nil {
		out.ExtraSelections = append([]Selection(nil), g.ExtraSelections...)
	}
	if g.FilterOption != nil {
		fo := *g.FilterOption
		out.FilterOption = &fo
	}
	if g.DateFilter != nil {
		df := *g.DateFilter
		out.DateFilter = &df
	}
	return out
}

// CloneGroups deep-copies a slice of groups.
func CloneGroups(groups []SelectionGroup) []SelectionGroup {
	if groups == nil {
		return nil
	}
	out := make([]SelectionGroup, len(groups))
	for i := range groups {
		out[i] = groups[i].Clone()
	}
	return out
}
