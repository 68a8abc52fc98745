// Package validator checks selection lists and client-supplied segment trees
// before they are composed or translated.
package validator

import (
	"fmt"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

// User-facing messages, in the order they are checked.
const (
	MsgEmpty           = "Please build a query first"
	MsgMissingOperator = "Please select your logical operator"
	MsgMissingFields   = "A selection doesn't contain any fields. Please add some fields or delete that selection"
	MsgDateFilter      = "A selection has a date filter that is not a supported time period"
)

// ValidationError carries a message meant to be shown to the user verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate returns the first violation in groups, or "" when they are complete.
func Validate(groups []model.SelectionGroup) string {
	if len(groups) == 0 {
		return MsgEmpty
	}
	for i := 1; i < len(groups); i++ {
		if groups[i].LogicalOperator == "" {
			return MsgMissingOperator
		}
	}
	for i := range groups {
		if groups[i].MainSegmentSelection == nil {
			return MsgMissingFields
		}
	}
	for i := range groups {
		if !SupportedDateFilter(groups[i].DateFilter) {
			return MsgDateFilter
		}
	}
	return ""
}

// SupportedDateFilter reports whether df can be composed. Only time periods
// are; a range on a group would otherwise be dropped from the tree.
func SupportedDateFilter(df *model.DateFilter) bool {
	if df == nil {
		return true
	}
	if df.Type != model.DateFilterTimePeriod {
		return false
	}
	_, known := df.Value.Days()
	return known || df.Value == model.PeriodAll
}

// Check is Validate as an error.
func Check(groups []model.SelectionGroup) error {
	if msg := Validate(groups); msg != "" {
		return &ValidationError{Message: msg}
	}
	return nil
}

// TreeValidator bounds the shape of segment trees accepted from clients.
type TreeValidator struct {
	maxDepth  int
	maxLeaves int
}

// NewTreeValidator creates a validator with default limits.
func NewTreeValidator() *TreeValidator {
	return &TreeValidator{
		maxDepth:  32,
		maxLeaves: 256,
	}
}

// Validate checks that root is a composed node whose descendants are well formed.
func (v *TreeValidator) Validate(root *model.Segment) error {
	if !root.IsComposed() {
		return &ValidationError{Message: "segment root must be a composed node"}
	}
	if err := v.validateNode(root, 1); err != nil {
		return err
	}
	if n := root.CountLeaves(); n > v.maxLeaves {
		return &ValidationError{Message: fmt.Sprintf("segment has %d fields, maximum is %d", n, v.maxLeaves)}
	}
	return nil
}

func (v *TreeValidator) validateNode(node *model.Segment, depth int) error {
	if node == nil {
		return &ValidationError{Message: "segment contains an empty node"}
	}
	if depth > v.maxDepth {
		return &ValidationError{Message: fmt.Sprintf("segment nesting exceeds maximum depth of %d", v.maxDepth)}
	}

	switch node.Type {
	case model.NodeDefault:
		if node.Name == "" {
			return &ValidationError{Message: "segment field name is required"}
		}
	case model.NodeComposed:
		if !node.Operator.IsLogical() {
			return &ValidationError{Message: fmt.Sprintf("invalid logical operator %q", node.Operator)}
		}
		if len(node.Segments) == 0 {
			return &ValidationError{Message: "composed segment has no children"}
		}
		for _, child := range node.Segments {
			if err := v.validateNode(child, depth+1); err != nil {
				return err
			}
		}
	case model.NodeTimePeriod:
		if !node.Field.Valid() {
			return &ValidationError{Message: fmt.Sprintf("invalid time field %q", node.Field)}
		}
		if !node.Operator.IsComparison() {
			return &ValidationError{Message: fmt.Sprintf("invalid time operator %q", node.Operator)}
		}
	case model.NodeTimeRange:
		if !node.Field.Valid() {
			return &ValidationError{Message: fmt.Sprintf("invalid time field %q", node.Field)}
		}
		if node.Start == "" || node.End == "" {
			return &ValidationError{Message: "time range requires start and end"}
		}
	default:
		return &ValidationError{Message: fmt.Sprintf("invalid segment type %q", node.Type)}
	}
	return nil
}
