// Package options assembles the option catalog: the selectable values of every
// field key, fetched concurrently per group and optionally cached.
package options

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/telhawk-systems/segmenter/internal/definitions"
	"github.com/telhawk-systems/segmenter/internal/logging"
	"github.com/telhawk-systems/segmenter/internal/metrics"
	"github.com/telhawk-systems/segmenter/internal/store"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

// Cache holds catalog snapshots per account.
type Cache interface {
	Get(ctx context.Context, accountID string) (model.Catalog, bool, error)
	Set(ctx context.Context, accountID string, catalog model.Catalog) error
	Invalidate(ctx context.Context, accountID string) error
}

// Loader fetches the catalog from a store.OptionSource.
type Loader struct {
	source    store.OptionSource
	registry  *definitions.Registry
	accountID string
	cache     Cache
	logger    *logging.Logger
}

func NewLoader(source store.OptionSource, registry *definitions.Registry, accountID string) *Loader {
	return &Loader{
		source:    source,
		registry:  registry,
		accountID: accountID,
		logger:    logging.Default().Component("options"),
	}
}

// WithCache returns a copy of l that reads through c.
func (l *Loader) WithCache(c Cache) *Loader {
	cp := *l
	cp.cache = c
	return &cp
}

// Load returns the catalog, from the cache when a fresh snapshot exists.
// Cache failures are logged and fall through to the store.
func (l *Loader) Load(ctx context.Context) (model.Catalog, error) {
	if l.cache != nil {
		catalog, ok, err := l.cache.Get(ctx, l.accountID)
		if err != nil {
			l.logger.WarnContext(ctx, "option cache read failed", logging.Error(err))
		}
		if ok {
			metrics.OptionLoadsTotal.WithLabelValues(metrics.SourceCache).Inc()
			return catalog, nil
		}
	}
	return l.Refresh(ctx)
}

// Refresh fetches every group from the store and replaces the cached
// snapshot. Either all groups load or the call fails.
func (l *Loader) Refresh(ctx context.Context) (model.Catalog, error) {
	start := time.Now()
	groups := model.GroupKeys()
	results := make([]model.GroupOptions, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			opts, err := l.source.GroupOptions(gctx, group)
			if err != nil {
				return fmt.Errorf("load %s options: %w", group, err)
			}
			results[i] = opts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalog := make(model.Catalog, len(groups))
	for i, group := range groups {
		keys := l.registry.Keys(group)
		names := make([]string, len(keys))
		for j, k := range keys {
			names[j] = string(k)
		}
		catalog[group] = results[i].Fill(names)
	}

	elapsed := time.Since(start)
	metrics.OptionLoadsTotal.WithLabelValues(metrics.SourceStore).Inc()
	metrics.OptionLoadDuration.Observe(elapsed.Seconds())
	l.logger.DebugContext(ctx, "option catalog loaded", logging.AccountID(l.accountID), logging.Duration(elapsed))

	if l.cache != nil {
		if err := l.cache.Set(ctx, l.accountID, catalog); err != nil {
			l.logger.WarnContext(ctx, "option cache write failed", logging.Error(err))
		}
	}
	return catalog, nil
}

// Invalidate drops the cached snapshot so the next Load hits the store.
func (l *Loader) Invalidate(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Invalidate(ctx, l.accountID)
}
