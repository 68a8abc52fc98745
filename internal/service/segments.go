package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/telhawk-systems/segmenter/internal/composer"
	"github.com/telhawk-systems/segmenter/internal/definitions"
	"github.com/telhawk-systems/segmenter/internal/logging"
	"github.com/telhawk-systems/segmenter/internal/metrics"
	"github.com/telhawk-systems/segmenter/internal/pipeline"
	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/internal/validator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

// Compose validates groups and folds them into a segment tree.
func (s *SegmentService) Compose(groups []model.SelectionGroup) (*model.ComposeResponse, error) {
	if err := validator.Check(groups); err != nil {
		return nil, err
	}
	tree := composer.Compose(groups)
	return &model.ComposeResponse{ComposedSegment: tree, LeafCount: tree.CountLeaves()}, nil
}

// Validate reports the first user-facing problem in groups.
func (s *SegmentService) Validate(groups []model.SelectionGroup) *model.ValidateResponse {
	msg := validator.Validate(groups)
	return &model.ValidateResponse{Valid: msg == "", Message: msg}
}

// Explain builds everything a run would execute without touching the store.
func (s *SegmentService) Explain(ctx context.Context, req *model.RunRequest) (*model.ExplainResponse, error) {
	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}
	parsed, err := toJSON(plan.fragment)
	if err != nil {
		return nil, err
	}
	stages := make([]json.RawMessage, len(plan.pipeline))
	for i, stage := range plan.pipeline {
		if stages[i], err = toJSON(stage); err != nil {
			return nil, err
		}
	}
	_, joins := pipeline.EventsLookup(plan.groups)
	return &model.ExplainResponse{
		ComposedSegment: plan.tree,
		ParsedQuery:     parsed,
		Pipeline:        stages,
		JoinsEvents:     joins,
	}, nil
}

// Run composes, translates and executes a segment.
func (s *SegmentService) Run(ctx context.Context, req *model.RunRequest) (*model.RunResponse, error) {
	start := time.Now()
	plan, err := s.plan(ctx, req)
	if err != nil {
		metrics.SegmentRunsTotal.WithLabelValues(string(modeOf(req)), outcomeOf(err)).Inc()
		return nil, err
	}
	mode := plan.opts.Mode

	if _, joins := pipeline.EventsLookup(plan.groups); joins {
		metrics.SegmentEventJoinsTotal.Inc()
	}

	execStart := time.Now()
	res, err := s.executor.Execute(ctx, plan.pipeline, mode)
	metrics.SegmentRunDuration.WithLabelValues(string(mode)).Observe(time.Since(execStart).Seconds())
	if err != nil {
		metrics.SegmentRunsTotal.WithLabelValues(string(mode), metrics.OutcomeError).Inc()
		s.logger.ErrorContext(ctx, "segment execution failed",
			logging.AccountID(s.accountID), logging.Mode(string(mode)), logging.Error(err))
		return nil, err
	}
	metrics.SegmentRunsTotal.WithLabelValues(string(mode), metrics.OutcomeSuccess).Inc()

	parsed, err := toJSON(plan.fragment)
	if err != nil {
		return nil, err
	}
	resp := &model.RunResponse{
		Data:            res.Rows,
		TotalCount:      res.TotalCount,
		TotalPages:      -1,
		ParsedQuery:     parsed,
		ComposedSegment: plan.tree,
		TookMs:          time.Since(start).Milliseconds(),
	}
	if resp.Data == nil {
		resp.Data = []model.Profile{}
	}
	if mode == pipeline.ModePaginated {
		resp.TotalPages = pipeline.TotalPages(res.TotalCount, plan.opts.Limit)
	}
	s.logger.DebugContext(ctx, "segment run complete",
		logging.AccountID(s.accountID), logging.Mode(string(mode)),
		logging.Count(res.TotalCount), logging.Duration(time.Since(start)))
	return resp, nil
}

type plan struct {
	tree     *model.Segment
	groups   []model.SelectionGroup
	fragment bson.D
	opts     pipeline.Options
	pipeline mongo.Pipeline
}

func (s *SegmentService) plan(ctx context.Context, req *model.RunRequest) (*plan, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrInvalidSegment)
	}
	p := &plan{}
	switch {
	case req.Segment != nil:
		if err := s.trees.Validate(req.Segment); err != nil {
			return nil, err
		}
		p.tree = req.Segment
		p.groups = s.groupsOf(req.Segment)
	default:
		if s.limits.MaxGroups > 0 && len(req.Groups) > s.limits.MaxGroups {
			return nil, &validator.ValidationError{Message: fmt.Sprintf("A segment can have at most %d selections", s.limits.MaxGroups)}
		}
		if err := validator.Check(req.Groups); err != nil {
			return nil, err
		}
		p.groups = req.Groups
		p.tree = composer.Compose(req.Groups)
	}

	fragment, err := s.parser.Parse(p.tree)
	if err != nil {
		s.logTranslateError(ctx, p.tree, err)
		return nil, err
	}
	p.fragment = fragment

	if p.opts, err = s.pageOptions(req); err != nil {
		return nil, err
	}
	scope := bson.D{{Key: "accountId", Value: s.accountID}}
	if p.pipeline, err = pipeline.Build(fragment, scope, p.groups, p.opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSegment, err)
	}
	return p, nil
}

func (s *SegmentService) pageOptions(req *model.RunRequest) (pipeline.Options, error) {
	if req.CountOnly {
		return pipeline.Options{Mode: pipeline.ModeCountOnly}, nil
	}
	if req.Page < 0 || req.PageSize < 0 {
		return pipeline.Options{}, fmt.Errorf("%w: page and page size must not be negative", ErrInvalidSegment)
	}
	size := req.PageSize
	if size == 0 {
		size = s.limits.DefaultPageSize
	}
	if s.limits.MaxPageSize > 0 && size > s.limits.MaxPageSize {
		size = s.limits.MaxPageSize
	}
	if size <= 0 {
		size = 20
	}
	if req.Page > 1 && int64(req.Page-1) > math.MaxInt64/int64(size) {
		return pipeline.Options{}, fmt.Errorf("%w: page %d is out of range", ErrInvalidSegment, req.Page)
	}
	opts := pipeline.Page(req.Page, size)
	opts.Search = req.Query
	return opts, nil
}

// groupsOf derives the groups a prebuilt tree touches so the events join is
// added only when needed. Unknown fields are left for the parser to report.
func (s *SegmentService) groupsOf(tree *model.Segment) []model.SelectionGroup {
	seen := map[model.GroupKey]bool{}
	var groups []model.SelectionGroup
	tree.Walk(func(n *model.Segment) {
		if n.Type != model.NodeDefault {
			return
		}
		g, ok := s.registry.GroupOf(definitions.FieldKey(n.Name))
		if !ok || seen[g] {
			return
		}
		seen[g] = true
		groups = append(groups, model.SelectionGroup{GroupKey: g})
	})
	return groups
}

func (s *SegmentService) logTranslateError(ctx context.Context, tree *model.Segment, err error) {
	var adapterErr *translator.AdapterError
	var fieldErr *translator.UnknownFieldError
	switch {
	case errors.As(err, &adapterErr):
		shape, _ := json.Marshal(tree)
		s.logger.ErrorContext(ctx, "segment cannot be translated",
			logging.NodeType(string(adapterErr.Node)), logging.Error(err), "segment", string(shape))
	case errors.As(err, &fieldErr):
		s.logger.ErrorContext(ctx, "segment references unknown field", "field", fieldErr.Name)
	}
}

func modeOf(req *model.RunRequest) pipeline.Mode {
	if req != nil && req.CountOnly {
		return pipeline.ModeCountOnly
	}
	return pipeline.ModePaginated
}

func outcomeOf(err error) string {
	var v *validator.ValidationError
	if errors.As(err, &v) || errors.Is(err, ErrInvalidSegment) {
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}

// toJSON renders a document as relaxed extended JSON.
func toJSON(doc bson.D) (json.RawMessage, error) {
	if doc == nil {
		doc = bson.D{}
	}
	out, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("render query: %w", err)
	}
	return out, nil
}
