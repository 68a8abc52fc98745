package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/telhawk-systems/segmenter/internal/logging"
	"github.com/telhawk-systems/segmenter/internal/messaging"
)

// Sink stores generated documents. *store.MongoStore implements it.
type Sink interface {
	InsertProfiles(ctx context.Context, docs []bson.M) error
	InsertEvents(ctx context.Context, docs []bson.M) error
}

// Notifier announces that stored data changed.
type Notifier interface {
	PublishJSON(ctx context.Context, subject string, v any) error
}

// Stats summarizes a seeding run.
type Stats struct {
	Profiles int           `json:"profiles" yaml:"profiles"`
	Events   int           `json:"events" yaml:"events"`
	Took     time.Duration `json:"took" yaml:"took"`
}

// Runner writes generated data to a sink in batches.
type Runner struct {
	cfg       Config
	sink      Sink
	notifier  Notifier
	accountID string
	now       func() time.Time
	logger    *logging.Logger
}

// NewRunner creates a runner for accountID.
func NewRunner(cfg Config, sink Sink, accountID string) *Runner {
	return &Runner{
		cfg:       cfg,
		sink:      sink,
		accountID: accountID,
		now:       time.Now,
		logger:    logging.Default().Component("seeder"),
	}
}

// WithNotifier publishes an options-changed message after a successful run.
func (r *Runner) WithNotifier(n Notifier) *Runner {
	r.notifier = n
	return r
}

// WithClock fixes the instant generated timestamps are relative to.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run generates cfg.Profiles profiles and their events.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if err := r.cfg.Validate(); err != nil {
		return Stats{}, fmt.Errorf("seeder config: %w", err)
	}
	start := time.Now()
	gen := NewGenerator(r.cfg, r.now())

	r.logger.InfoContext(ctx, "seeding started",
		logging.AccountID(r.accountID), slog.Int("profiles", r.cfg.Profiles), slog.Int("batch_size", r.cfg.BatchSize))

	var stats Stats
	profiles := make([]bson.M, 0, r.cfg.BatchSize)
	var events []bson.M
	flush := func() error {
		if len(profiles) == 0 {
			return nil
		}
		if err := r.sink.InsertProfiles(ctx, profiles); err != nil {
			return fmt.Errorf("insert profiles: %w", err)
		}
		if len(events) > 0 {
			if err := r.sink.InsertEvents(ctx, events); err != nil {
				return fmt.Errorf("insert events: %w", err)
			}
		}
		stats.Profiles += len(profiles)
		stats.Events += len(events)
		r.logger.DebugContext(ctx, "batch written", slog.Int("profiles", stats.Profiles), slog.Int("events", stats.Events))
		profiles = profiles[:0]
		events = nil
		return nil
	}

	for i := 0; i < r.cfg.Profiles; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		b := gen.Next(i)
		profiles = append(profiles, b.Profile)
		events = append(events, b.Events...)
		if len(profiles) >= r.cfg.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	stats.Took = time.Since(start)

	if r.notifier != nil {
		msg := struct {
			AccountID string `json:"account_id"`
			Reason    string `json:"reason"`
		}{r.accountID, "seed"}
		if err := r.notifier.PublishJSON(ctx, messaging.SubjectSegmentOptionsChanged, msg); err != nil {
			r.logger.WarnContext(ctx, "failed to announce option change", logging.Error(err))
		}
	}

	r.logger.InfoContext(ctx, "seeding complete",
		slog.Int("profiles", stats.Profiles), slog.Int("events", stats.Events), logging.Duration(stats.Took))
	return stats, nil
}
