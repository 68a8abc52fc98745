// Package composer folds an ordered list of selection groups into a single
// composed segment tree.
package composer

import (
	"github.com/telhawk-systems/segmenter/pkg/model"
)

// growthSourceKey is the growth field whose date filter applies to profile creation.
const growthSourceKey = "originalsource"

// Compose folds groups left to right. Groups without a main selection are
// skipped. It returns nil when no group contributes. The input is not modified.
func Compose(groups []model.SelectionGroup) *model.Segment {
	var acc *model.Segment
	for i := range groups {
		g := &groups[i]
		if g.MainSegmentSelection == nil {
			continue
		}
		parts := groupParts(g)

		switch {
		case acc == nil:
			// the first contributing group has nothing to relate to
			acc = model.Composed(model.OperatorAnd, parts...)
		case g.LogicalOperator == model.OperatorNot:
			acc = model.Composed(model.OperatorAnd, acc, model.Composed(model.OperatorNot, parts...))
		case g.LogicalOperator == model.OperatorOr:
			acc = model.Composed(model.OperatorOr, prepend(acc, parts)...)
		default:
			acc = model.Composed(model.OperatorAnd, prepend(acc, parts)...)
		}
	}
	return acc
}

// groupParts builds the nodes one group contributes: an optional time bound,
// the main leaf and, when present, the extras joined by the group's relation.
func groupParts(g *model.SelectionGroup) []*model.Segment {
	main := g.MainSegmentSelection
	parts := make([]*model.Segment, 0, 3)

	if period, ok := g.DateFilter.ActivePeriod(); ok {
		field := TimeFieldFor(g.GroupKey, main.SegmentKey)
		parts = append(parts, model.Period(field, period, model.OperatorGTE))
	}

	parts = append(parts, model.Leaf(main.SegmentKey, main.Value, g.FilterOption.Negates()))

	if len(g.ExtraSelections) > 0 {
		extras := make([]*model.Segment, len(g.ExtraSelections))
		for i, sel := range g.ExtraSelections {
			extras[i] = model.Leaf(sel.SegmentKey, sel.Value, false)
		}
		relation := g.SegmentsRelation
		if relation != model.OperatorAnd {
			relation = model.OperatorOr
		}
		parts = append(parts, model.Composed(relation, extras...))
	}
	return parts
}

// TimeFieldFor resolves which timestamp a group's date filter constrains.
func TimeFieldFor(group model.GroupKey, segmentKey string) model.TimeField {
	if group == model.GroupGrowth {
		if segmentKey == growthSourceKey {
			return model.FieldProfileCreatedAt
		}
		return model.FieldOrderDate
	}
	return model.FieldTimestamp
}

func prepend(head *model.Segment, tail []*model.Segment) []*model.Segment {
	out := make([]*model.Segment, 0, len(tail)+1)
	out = append(out, head)
	return append(out, tail...)
}
