package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

type InMemoryRepository struct {
	segments map[string]*model.SavedSegment
	mu       sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{segments: make(map[string]*model.SavedSegment)}
}

func (r *InMemoryRepository) Save(ctx context.Context, s *model.SavedSegment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.segments {
		if existing.ID == s.ID && existing.AccountID != s.AccountID {
			return ErrNotFound
		}
	}
	if existing, ok := r.segments[memKey(s.AccountID, s.ID)]; ok {
		s.CreatedAt = existing.CreatedAt
	}
	r.segments[memKey(s.AccountID, s.ID)] = copySegment(s)
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, accountID, id string) (*model.SavedSegment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.segments[memKey(accountID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return copySegment(s), nil
}

func (r *InMemoryRepository) List(ctx context.Context, accountID string) ([]*model.SavedSegment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.SavedSegment{}
	for _, s := range r.segments {
		if s.AccountID == accountID {
			out = append(out, copySegment(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, accountID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memKey(accountID, id)
	if _, ok := r.segments[key]; !ok {
		return ErrNotFound
	}
	delete(r.segments, key)
	return nil
}

func memKey(accountID, id string) string {
	return accountID + "/" + id
}

func copySegment(s *model.SavedSegment) *model.SavedSegment {
	cp := *s
	cp.QueryState = model.CloneGroups(s.QueryState)
	return &cp
}
