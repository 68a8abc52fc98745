package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/telhawk-systems/segmenter/internal/definitions"
	"github.com/telhawk-systems/segmenter/internal/logging"
	"github.com/telhawk-systems/segmenter/internal/options"
	"github.com/telhawk-systems/segmenter/internal/repository"
	"github.com/telhawk-systems/segmenter/internal/store"
	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/internal/validator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

var (
	ErrSegmentNotFound  = errors.New("segment not found")
	ErrInvalidSegment   = errors.New("invalid segment")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Limits bounds selection lists and page sizes.
type Limits struct {
	MaxGroups       int
	DefaultPageSize int
	MaxPageSize     int
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// SegmentService composes, translates and runs segments for one account.
type SegmentService struct {
	version   string
	startedAt time.Time
	accountID string
	limits    Limits

	registry *definitions.Registry
	parser   *translator.Parser[bson.D]
	trees    *validator.TreeValidator
	executor store.Executor
	loader   *options.Loader
	repo     repository.Repository
	health   map[string]Pinger

	now    func() time.Time
	logger *logging.Logger
}

// NewSegmentService wires the translation chain to executor. loader may be
// nil when the option catalog is not served.
func NewSegmentService(version, accountID string, limits Limits, registry *definitions.Registry, adapter translator.Adapter[bson.D], executor store.Executor, loader *options.Loader) *SegmentService {
	return &SegmentService{
		version:   version,
		startedAt: time.Now().UTC(),
		accountID: accountID,
		limits:    limits,
		registry:  registry,
		parser:    translator.NewParser[bson.D](registry, adapter),
		trees:     validator.NewTreeValidator(),
		executor:  executor,
		loader:    loader,
		health:    map[string]Pinger{},
		now:       time.Now,
		logger:    logging.Default().Component("segment-service"),
	}
}

// WithRepository wires the saved segment store.
func (s *SegmentService) WithRepository(repo repository.Repository) *SegmentService {
	s.repo = repo
	return s
}

// WithHealthCheck registers a dependency reported by Health.
func (s *SegmentService) WithHealthCheck(name string, p Pinger) *SegmentService {
	s.health[name] = p
	return s
}

// WithClock fixes the instant time periods resolve against.
func (s *SegmentService) WithClock(now func() time.Time) *SegmentService {
	s.now = now
	s.parser = s.parser.WithClock(now)
	return s
}

// Groups lists the selectable groups.
func (s *SegmentService) Groups() []model.GroupKey {
	return model.GroupKeys()
}

// DateFilters lists the preset date filters.
func (s *SegmentService) DateFilters() []model.DateFilter {
	return model.DateFilterOptions()
}

// Options returns the option catalog.
func (s *SegmentService) Options(ctx context.Context) (model.Catalog, error) {
	if s.loader == nil {
		return nil, errors.Join(ErrStoreUnavailable, errors.New("option catalog not configured"))
	}
	catalog, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "option catalog load failed", logging.Error(err))
		return nil, err
	}
	return catalog, nil
}

// RefreshOptions bypasses the cache and reloads the catalog.
func (s *SegmentService) RefreshOptions(ctx context.Context) (model.Catalog, error) {
	if s.loader == nil {
		return nil, errors.Join(ErrStoreUnavailable, errors.New("option catalog not configured"))
	}
	return s.loader.Refresh(ctx)
}

// InvalidateOptions drops the cached catalog. It is a no-op without a loader.
func (s *SegmentService) InvalidateOptions(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	return s.loader.Invalidate(ctx)
}

// Health pings every registered dependency.
func (s *SegmentService) Health(ctx context.Context) *model.HealthResponse {
	resp := &model.HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Uptime:    time.Since(s.startedAt).Truncate(time.Second).String(),
		StartedAt: s.startedAt,
	}
	if len(s.health) == 0 {
		return resp
	}
	resp.Dependencies = make(map[string]string, len(s.health))
	for name, p := range s.health {
		if err := p.Ping(ctx); err != nil {
			resp.Dependencies[name] = "unavailable"
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[name] = "ok"
	}
	return resp
}
