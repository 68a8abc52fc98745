package selection

import (
	"fmt"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

// Action names an edit operation.
type Action string

const (
	ActionAppend      Action = "append"
	ActionSelect      Action = "select"
	ActionDeselect    Action = "deselect"
	ActionSetOperator Action = "setLogicalOperator"
	ActionSetRelation Action = "setRelation"
	ActionSetFilter   Action = "setFilterOption"
	ActionSetDate     Action = "setDateFilter"
	ActionRemove      Action = "remove"
)

// Edit is a serializable state change. Index addresses the group for every
// action except append.
type Edit struct {
	Action       Action              `json:"action" yaml:"action"`
	Index        int                 `json:"index,omitempty" yaml:"index,omitempty"`
	GroupKey     model.GroupKey      `json:"groupKey,omitempty" yaml:"groupKey,omitempty"`
	SegmentKey   string              `json:"segmentKey,omitempty" yaml:"segmentKey,omitempty"`
	Option       *model.OptionValue  `json:"option,omitempty" yaml:"option,omitempty"`
	Operator     model.Operator      `json:"operator,omitempty" yaml:"operator,omitempty"`
	FilterOption *model.FilterOption `json:"filterOption,omitempty" yaml:"filterOption,omitempty"`
	DateFilter   *model.DateFilter   `json:"dateFilter,omitempty" yaml:"dateFilter,omitempty"`
}

// Apply runs edits in order. On failure it returns the original state and the
// position of the failing edit.
func Apply(s State, edits []Edit) (State, error) {
	cur := s
	for n, e := range edits {
		next, err := applyOne(cur, e)
		if err != nil {
			return s, fmt.Errorf("edit %d (%s): %w", n, e.Action, err)
		}
		cur = next
	}
	return cur, nil
}

func applyOne(s State, e Edit) (State, error) {
	switch e.Action {
	case ActionAppend:
		return s.Append(e.GroupKey)
	case ActionSelect:
		if e.Option == nil {
			return s, fmt.Errorf("option is required")
		}
		return s.Select(e.Index, e.SegmentKey, *e.Option)
	case ActionDeselect:
		if e.Option == nil {
			return s, fmt.Errorf("option is required")
		}
		return s.Deselect(e.Index, e.SegmentKey, e.Option.Value)
	case ActionSetOperator:
		return s.SetLogicalOperator(e.Index, e.Operator)
	case ActionSetRelation:
		return s.SetRelation(e.Index, e.Operator)
	case ActionSetFilter:
		return s.SetFilterOption(e.Index, e.FilterOption)
	case ActionSetDate:
		if e.DateFilter == nil {
			return s, fmt.Errorf("dateFilter is required")
		}
		return s.SetDateFilter(e.Index, *e.DateFilter)
	case ActionRemove:
		return s.Remove(e.Index)
	default:
		return s, fmt.Errorf("unknown action %q", e.Action)
	}
}
