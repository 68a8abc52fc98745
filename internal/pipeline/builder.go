// Package pipeline wraps a parsed segment filter into the MongoDB aggregation
// stages that count or page through matching profiles.
package pipeline

import (
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

// Mode selects the terminal stages of a pipeline.
type Mode string

const (
	ModeCountOnly Mode = "countOnly"
	ModePaginated Mode = "paginated"
)

const (
	EventsCollection = "events"
	CountField       = "totalCount"
	FacetCountField  = "count"
)

// ProjectedFields are the profile fields returned in paginated mode.
var ProjectedFields = []string{"id", "accountId", "email", "firstname", "lastname", "lists", "lifetimeValue"}

// Options controls the terminal stages.
type Options struct {
	Mode  Mode
	Skip  int64
	Limit int64
	// Search narrows paginated rows by a case-insensitive match on email or first name.
	Search string
}

// ErrInvalidOptions is returned for unusable pagination settings.
var ErrInvalidOptions = errors.New("invalid pipeline options")

// Build assembles the pipeline for fragment restricted to scope. The events
// join is included only when a group needs event data.
func Build(fragment, scope bson.D, groups []model.SelectionGroup, opts Options) (mongo.Pipeline, error) {
	switch opts.Mode {
	case ModeCountOnly:
	case ModePaginated:
		if opts.Limit <= 0 || opts.Skip < 0 {
			return nil, fmt.Errorf("%w: skip=%d limit=%d", ErrInvalidOptions, opts.Skip, opts.Limit)
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, opts.Mode)
	}

	stages := mongo.Pipeline{}
	if lookup, ok := EventsLookup(groups); ok {
		stages = append(stages, lookup)
	}
	stages = append(stages, bson.D{{Key: "$match", Value: merge(fragment, scope)}})

	if opts.Mode == ModeCountOnly {
		return append(stages, bson.D{{Key: "$count", Value: CountField}}), nil
	}

	projection := bson.D{}
	for _, f := range ProjectedFields {
		projection = append(projection, bson.E{Key: f, Value: 1})
	}
	stages = append(stages, bson.D{{Key: "$project", Value: projection}})

	if opts.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(opts.Search), Options: "i"}
		stages = append(stages, bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "email", Value: re}},
			bson.D{{Key: "firstname", Value: re}},
		}}}}})
	}

	stages = append(stages,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "email", Value: 1}, {Key: "id", Value: 1}}}},
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "data", Value: bson.A{
				bson.D{{Key: "$skip", Value: opts.Skip}},
				bson.D{{Key: "$limit", Value: opts.Limit}},
			}},
			{Key: CountField, Value: bson.A{
				bson.D{{Key: "$count", Value: FacetCountField}},
			}},
		}}},
	)
	return stages, nil
}

// EventsLookup returns the $lookup stage joining profile events, restricted to
// the event kinds the groups reference. It returns false when no group needs it.
func EventsLookup(groups []model.SelectionGroup) (bson.D, bool) {
	var transaction, marketing bool
	for _, g := range groups {
		switch g.GroupKey {
		case model.GroupTransaction:
			transaction = true
		case model.GroupMarketing:
			marketing = true
		}
	}
	if !transaction && !marketing {
		return nil, false
	}

	filters := bson.A{}
	if transaction {
		filters = append(filters, bson.D{{Key: "event", Value: "transaction"}})
	}
	if marketing {
		present := bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}
		filters = append(filters, bson.D{
			{Key: "event", Value: primitive.Regex{Pattern: "email"}},
			{Key: "campaign", Value: present},
			{Key: "campaignId", Value: present},
		})
	}

	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: EventsCollection},
		{Key: "localField", Value: "id"},
		{Key: "foreignField", Value: "profile.id"},
		{Key: "as", Value: "events"},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: filters}}}},
		}},
	}}}, true
}

// merge returns fragment with scope's keys applied on top.
func merge(fragment, scope bson.D) bson.D {
	out := make(bson.D, 0, len(fragment)+len(scope))
	for _, e := range fragment {
		if !hasKey(scope, e.Key) {
			out = append(out, e)
		}
	}
	return append(out, scope...)
}

func hasKey(d bson.D, key string) bool {
	for _, e := range d {
		if e.Key == key {
			return true
		}
	}
	return false
}

// Page converts a 1-based page number and size into skip/limit options.
func Page(page, size int) Options {
	if page < 1 {
		page = 1
	}
	return Options{Mode: ModePaginated, Skip: int64(page-1) * int64(size), Limit: int64(size)}
}

// TotalPages returns the number of pages of size needed for total rows.
func TotalPages(total, size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
