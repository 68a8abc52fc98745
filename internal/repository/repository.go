// Package repository persists saved segments.
package repository

import (
	"context"
	"errors"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

var ErrNotFound = errors.New("saved segment not found")

// Repository stores saved segments scoped by account.
type Repository interface {
	// Save inserts s or replaces the row with the same account and id.
	Save(ctx context.Context, s *model.SavedSegment) error
	Get(ctx context.Context, accountID, id string) (*model.SavedSegment, error)
	// List returns the account's segments, most recently updated first.
	List(ctx context.Context, accountID string) ([]*model.SavedSegment, error)
	Delete(ctx context.Context, accountID, id string) error
}
