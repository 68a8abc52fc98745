package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/telhawk-systems/segmenter/internal/composer"
	"github.com/telhawk-systems/segmenter/internal/logging"
	"github.com/telhawk-systems/segmenter/internal/repository"
	"github.com/telhawk-systems/segmenter/internal/validator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

func (s *SegmentService) requireRepo() error {
	if s.repo == nil {
		return fmt.Errorf("%w: saved segments repository not configured", ErrStoreUnavailable)
	}
	return nil
}

// SaveSegment validates and stores a named selection state.
func (s *SegmentService) SaveSegment(ctx context.Context, req *model.SaveSegmentRequest) (*model.SavedSegment, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSegment)
	}
	if err := validator.Check(req.QueryState); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	seg := &model.SavedSegment{
		AccountID:       s.accountID,
		ID:              req.ID,
		Name:            strings.TrimSpace(req.Name),
		QueryState:      model.CloneGroups(req.QueryState),
		ComposedSegment: composer.Compose(req.QueryState),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	if err := s.repo.Save(ctx, seg); err != nil {
		return nil, s.repoErr(err)
	}
	s.logger.InfoContext(ctx, "segment saved", logging.AccountID(s.accountID), logging.SegmentID(seg.ID))
	return seg, nil
}

// GetSegment returns one saved segment.
func (s *SegmentService) GetSegment(ctx context.Context, id string) (*model.SavedSegment, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	seg, err := s.repo.Get(ctx, s.accountID, id)
	if err != nil {
		return nil, s.repoErr(err)
	}
	return seg, nil
}

// ListSegments returns the account's saved segments.
func (s *SegmentService) ListSegments(ctx context.Context) (*model.SavedSegmentList, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	segs, err := s.repo.List(ctx, s.accountID)
	if err != nil {
		return nil, s.repoErr(err)
	}
	return &model.SavedSegmentList{Segments: segs}, nil
}

// DeleteSegment removes a saved segment.
func (s *SegmentService) DeleteSegment(ctx context.Context, id string) error {
	if err := s.requireRepo(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.accountID, id); err != nil {
		return s.repoErr(err)
	}
	s.logger.InfoContext(ctx, "segment deleted", logging.AccountID(s.accountID), logging.SegmentID(id))
	return nil
}

// RunSegment runs a saved segment's selection state with the paging in req.
// Any groups or tree in req are ignored.
func (s *SegmentService) RunSegment(ctx context.Context, id string, req *model.RunRequest) (*model.RunResponse, error) {
	seg, err := s.GetSegment(ctx, id)
	if err != nil {
		return nil, err
	}
	run := model.RunRequest{}
	if req != nil {
		run = *req
	}
	run.Groups = seg.QueryState
	run.Segment = nil
	return s.Run(ctx, &run)
}

func (s *SegmentService) repoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSegmentNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
