package service

import (
	"github.com/telhawk-systems/segmenter/internal/selection"
	"github.com/telhawk-systems/segmenter/internal/validator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

// ApplyEdits replays edits on top of groups and returns the new selection
// state. groups is never modified.
func (s *SegmentService) ApplyEdits(groups []model.SelectionGroup, edits []selection.Edit) ([]model.SelectionGroup, error) {
	state := selection.FromGroups(groups, s.limits.MaxGroups)
	next, err := selection.Apply(state, edits)
	if err != nil {
		return nil, &validator.ValidationError{Message: err.Error()}
	}
	return next.Groups(), nil
}
