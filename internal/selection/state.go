// Package selection manages an in-progress list of selection groups as
// immutable snapshots. Every edit returns a new State and leaves the receiver
// untouched; callers address groups by explicit index.
package selection

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/telhawk-systems/segmenter/internal/validator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

// DefaultMaxGroups is the group limit used when none is configured.
const DefaultMaxGroups = 2

var (
	ErrIndexOutOfRange = errors.New("selection group index out of range")
	ErrUnknownGroup    = errors.New("unknown selection group")
	ErrInvalidOperator = errors.New("invalid operator")
)

// State is one snapshot of the selection list.
type State struct {
	groups    []model.SelectionGroup
	maxGroups int
}

// New returns an empty state holding at most maxGroups groups.
func New(maxGroups int) State {
	if maxGroups <= 0 {
		maxGroups = DefaultMaxGroups
	}
	return State{maxGroups: maxGroups}
}

// FromGroups starts a state from existing groups. The groups are copied.
func FromGroups(groups []model.SelectionGroup, maxGroups int) State {
	s := New(maxGroups)
	s.groups = model.CloneGroups(groups)
	return s
}

// Groups returns a copy of the current groups.
func (s State) Groups() []model.SelectionGroup {
	return model.CloneGroups(s.groups)
}

// Len returns the number of groups.
func (s State) Len() int {
	return len(s.groups)
}

// Append adds an empty group for groupKey. When the state is full the last
// group is replaced.
func (s State) Append(groupKey model.GroupKey) (State, error) {
	if !groupKey.Valid() {
		return s, fmt.Errorf("%w: %q", ErrUnknownGroup, groupKey)
	}
	next := s.clone()
	if len(next.groups) >= next.maxGroups {
		next.groups = next.groups[:len(next.groups)-1]
	}
	df := model.AllTime()
	next.groups = append(next.groups, model.SelectionGroup{
		ID:               uuid.New().String(),
		GroupKey:         groupKey,
		ExtraSelections:  []model.Selection{},
		SegmentsRelation: model.OperatorOr,
		LogicalOperator:  model.OperatorAnd,
		DateFilter:       &df,
	})
	return next, nil
}

// Select picks option under segmentKey in group i. The first pick becomes the
// main selection; later picks are extras. Picking a value twice is a no-op.
func (s State) Select(i int, segmentKey string, option model.OptionValue) (State, error) {
	return s.edit(i, func(g *model.SelectionGroup) error {
		pick := model.Selection{OptionValue: option, SegmentKey: segmentKey}
		if g.MainSegmentSelection == nil {
			g.MainSegmentSelection = &pick
			return nil
		}
		if sameSelection(*g.MainSegmentSelection, pick) {
			return nil
		}
		for _, extra := range g.ExtraSelections {
			if sameSelection(extra, pick) {
				return nil
			}
		}
		g.ExtraSelections = append(g.ExtraSelections, pick)
		return nil
	})
}

// Deselect removes value picked under segmentKey from group i. Removing the
// main selection promotes the first extra.
func (s State) Deselect(i int, segmentKey string, value any) (State, error) {
	return s.edit(i, func(g *model.SelectionGroup) error {
		target := model.Selection{OptionValue: model.OptionValue{Value: value}, SegmentKey: segmentKey}
		if g.MainSegmentSelection != nil && sameSelection(*g.MainSegmentSelection, target) {
			if len(g.ExtraSelections) == 0 {
				g.MainSegmentSelection = nil
				return nil
			}
			promoted := g.ExtraSelections[0]
			g.MainSegmentSelection = &promoted
			g.ExtraSelections = g.ExtraSelections[1:]
			return nil
		}
		kept := make([]model.Selection, 0, len(g.ExtraSelections))
		for _, extra := range g.ExtraSelections {
			if !sameSelection(extra, target) {
				kept = append(kept, extra)
			}
		}
		g.ExtraSelections = kept
		return nil
	})
}

// SetLogicalOperator sets how group i relates to the groups before it.
func (s State) SetLogicalOperator(i int, op model.Operator) (State, error) {
	if !op.IsLogical() {
		return s, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
	}
	return s.edit(i, func(g *model.SelectionGroup) error {
		g.LogicalOperator = op
		return nil
	})
}

// SetRelation sets how the main selection and extras of group i combine.
func (s State) SetRelation(i int, op model.Operator) (State, error) {
	if op != model.OperatorAnd && op != model.OperatorOr {
		return s, fmt.Errorf("%w: relation must be AND or OR, got %q", ErrInvalidOperator, op)
	}
	return s.edit(i, func(g *model.SelectionGroup) error {
		g.SegmentsRelation = op
		return nil
	})
}

// SetFilterOption sets whether group i's main selection is negated. A nil
// option clears it.
func (s State) SetFilterOption(i int, opt *model.FilterOption) (State, error) {
	if opt != nil && opt.Value != model.OperatorAnd && opt.Value != model.OperatorNot {
		return s, fmt.Errorf("%w: filter option must be AND or NOT, got %q", ErrInvalidOperator, opt.Value)
	}
	return s.edit(i, func(g *model.SelectionGroup) error {
		if opt == nil {
			g.FilterOption = nil
			return nil
		}
		cp := *opt
		g.FilterOption = &cp
		return nil
	})
}

// SetDateFilter replaces group i's date filter. Groups only take time
// periods; ranges are accepted on prebuilt trees.
func (s State) SetDateFilter(i int, df model.DateFilter) (State, error) {
	switch df.Type {
	case model.DateFilterTimePeriod:
		if !validator.SupportedDateFilter(&df) {
			return s, fmt.Errorf("unknown time period %q", df.Value)
		}
	case model.DateFilterTimeRange:
		return s, errors.New("time ranges cannot be set on a selection group")
	default:
		return s, fmt.Errorf("unknown date filter type %q", df.Type)
	}
	return s.edit(i, func(g *model.SelectionGroup) error {
		g.DateFilter = &df
		return nil
	})
}

// Remove deletes group i.
func (s State) Remove(i int) (State, error) {
	if i < 0 || i >= len(s.groups) {
		return s, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	next := s.clone()
	next.groups = append(next.groups[:i], next.groups[i+1:]...)
	return next, nil
}

func (s State) edit(i int, fn func(*model.SelectionGroup) error) (State, error) {
	if i < 0 || i >= len(s.groups) {
		return s, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	next := s.clone()
	if err := fn(&next.groups[i]); err != nil {
		return s, err
	}
	return next, nil
}

func (s State) clone() State {
	return State{groups: model.CloneGroups(s.groups), maxGroups: s.maxGroups}
}

// sameSelection compares field key and value. Numbers decoded from JSON and
// numbers built in code compare by value.
func sameSelection(a, b model.Selection) bool {
	if a.SegmentKey != b.SegmentKey {
		return false
	}
	if af, ok := toFloat(a.Value); ok {
		bf, ok := toFloat(b.Value)
		return ok && af == bf
	}
	return reflect.DeepEqual(a.Value, b.Value)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
