package model

import "time"

// SavedSegment is a named selection state persisted per account together
// with the tree it composed to when saved.
type SavedSegment struct {
	AccountID       string           `json:"accountId" yaml:"accountId"`
	ID              string           `json:"id" yaml:"id"`
	Name            string           `json:"name" yaml:"name"`
	QueryState      []SelectionGroup `json:"queryState" yaml:"queryState"`
	ComposedSegment *Segment         `json:"composedSegment,omitempty" yaml:"composedSegment,omitempty"`
	CreatedAt       time.Time        `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt" yaml:"updatedAt"`
}
