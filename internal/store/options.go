package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/telhawk-systems/segmenter/internal/definitions"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

const (
	customersFacet = "customers"
	prospectsFacet = "prospects"
)

// ProspectWindow is how far back a profile without transactions still counts
// as a prospect.
const ProspectWindow = 12 // months

// GroupOptions runs the option aggregation for group.
func (s *MongoStore) GroupOptions(ctx context.Context, group model.GroupKey) (model.GroupOptions, error) {
	scope := s.Scope()
	switch group {
	case model.GroupGrowth:
		opts, err := s.facet(ctx, s.profiles, GrowthOptionsPipeline(scope, s.now()))
		if err != nil {
			return nil, err
		}
		return growthOptions(opts), nil
	case model.GroupProfile:
		return s.facet(ctx, s.profiles, ProfileOptionsPipeline(scope))
	case model.GroupTransaction:
		return s.facet(ctx, s.events, TransactionOptionsPipeline(scope))
	case model.GroupMarketing:
		return s.facet(ctx, s.events, MarketingOptionsPipeline(scope))
	default:
		return nil, &ExecutionError{Op: "options", Err: ErrUnknownGroup}
	}
}

func (s *MongoStore) facet(ctx context.Context, collection string, p mongo.Pipeline) (model.GroupOptions, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.db.Collection(collection).Aggregate(ctx, p)
	if err != nil {
		return nil, execErr("aggregate options", err)
	}
	defer cursor.Close(ctx)

	var docs []model.GroupOptions
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, execErr("decode options", err)
	}
	if len(docs) == 0 {
		return model.GroupOptions{}, nil
	}
	return docs[0], nil
}

// ProspectQuery matches profiles without transactions created after since.
func ProspectQuery(since time.Time) bson.D {
	return bson.D{
		{Key: "totalTransactions", Value: 0},
		{Key: "customerCreatedAt", Value: bson.D{{Key: "$gte", Value: since.UTC()}}},
	}
}

// GrowthOptionsPipeline counts profiles per distinct growth value and the
// customer and prospect totals.
func GrowthOptionsPipeline(scope bson.D, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: scope}},
		{{Key: "$facet", Value: bson.D{
			{Key: string(definitions.KeyOriginalSource), Value: countValues("originalSource")},
			{Key: string(definitions.KeyLifetimeValue), Value: countValues("lifetimeValue")},
			{Key: string(definitions.KeyTransactionCount), Value: countValues("totalTransactions")},
			{Key: customersFacet, Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "totalTransactions", Value: bson.D{{Key: "$gt", Value: 0}}}}}},
				bson.D{{Key: "$count", Value: "count"}},
			}},
			{Key: prospectsFacet, Value: bson.A{
				bson.D{{Key: "$match", Value: ProspectQuery(now.AddDate(0, -ProspectWindow, 0))}},
				bson.D{{Key: "$count", Value: "count"}},
			}},
		}}},
	}
}

// ProfileOptionsPipeline counts profiles per distinct attribute value.
// Interest and tags have no precomputed options.
func ProfileOptionsPipeline(scope bson.D) mongo.Pipeline {
	keys := []definitions.FieldKey{
		definitions.KeyUpdatedSource, definitions.KeyAddress, definitions.KeyStreet,
		definitions.KeyCity, definitions.KeyZip, definitions.KeyCountry,
		definitions.KeyCompany, definitions.KeyJobTitle, definitions.KeySector,
	}
	facets := bson.D{}
	for _, k := range keys {
		facets = append(facets, bson.E{Key: string(k), Value: countValues(definitions.ProfilePath(k))})
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: scope}},
		{{Key: "$facet", Value: facets}},
	}
}

// TransactionOptionsPipeline counts distinct purchasing profiles per value
// found on transaction events.
func TransactionOptionsPipeline(scope bson.D) mongo.Pipeline {
	match := append(bson.D{{Key: "event", Value: "transaction"}}, scope...)
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.D{
			{Key: string(definitions.KeySpend), Value: countProfiles("total", "")},
			{Key: string(definitions.KeyCurrency), Value: countProfiles("currency", "")},
			{Key: string(definitions.KeyDiscountCode), Value: countProfiles("discountcode", "")},
			{Key: string(definitions.KeyUTM), Value: countProfiles("utm", "")},
			{Key: string(definitions.KeyProductName), Value: countProfiles("line_items.name", "line_items")},
			{Key: string(definitions.KeyVariant), Value: countProfiles("line_items.variant", "line_items")},
			{Key: string(definitions.KeyVendor), Value: countProfiles("line_items.vendor", "line_items")},
			{Key: string(definitions.KeyCustomerTags), Value: countProfiles("customer.tags", "customer.tags")},
		}}},
	}
}

// MarketingOptionsPipeline lists campaigns per email event with the number
// of distinct profiles that received the event.
func MarketingOptionsPipeline(scope bson.D) mongo.Pipeline {
	present := bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}
	match := append(bson.D{
		{Key: "event", Value: primitive.Regex{Pattern: "email"}},
		{Key: "campaign", Value: present},
		{Key: "campaignId", Value: present},
	}, scope...)

	facets := bson.D{}
	for _, k := range []definitions.FieldKey{
		definitions.KeyDelivered, definitions.KeyOpened, definitions.KeyClicked,
		definitions.KeyBounced, definitions.KeyUnsubscribed,
	} {
		facets = append(facets, bson.E{Key: string(k), Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "event", Value: definitions.EmailEvents[k]}}}},
			bson.D{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: bson.D{{Key: "campaign", Value: "$campaign"}, {Key: "campaignId", Value: "$campaignId"}}},
				{Key: "profiles", Value: bson.D{{Key: "$addToSet", Value: "$profile.id"}}},
			}}},
			bson.D{{Key: "$project", Value: bson.D{
				{Key: "_id", Value: 0},
				{Key: "value", Value: "$_id.campaignId"},
				{Key: "label", Value: "$_id.campaign"},
				{Key: "count", Value: bson.D{{Key: "$size", Value: "$profiles"}}},
			}}},
			byCount,
		}})
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$project", Value: bson.D{
			{Key: "event", Value: 1}, {Key: "campaign", Value: 1}, {Key: "campaignId", Value: 1}, {Key: "profile", Value: 1},
		}}},
		{{Key: "$facet", Value: facets}},
	}
}

var byCount = bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "value", Value: 1}}}}

// countValues counts documents per distinct value of path.
func countValues(path string) bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: path, Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}}}}},
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$" + path}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}, {Key: "value", Value: "$_id"}, {Key: "count", Value: 1}}}},
		byCount,
	}
}

// countProfiles counts distinct profile ids per value of path, unwinding the
// array at unwind first when set.
func countProfiles(path, unwind string) bson.A {
	stages := bson.A{}
	if unwind != "" {
		stages = append(stages, bson.D{{Key: "$unwind", Value: "$" + unwind}})
	}
	return append(stages,
		bson.D{{Key: "$match", Value: bson.D{{Key: path, Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + path},
			{Key: "profiles", Value: bson.D{{Key: "$addToSet", Value: "$profile.id"}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "value", Value: "$_id"},
			{Key: "count", Value: bson.D{{Key: "$size", Value: "$profiles"}}},
		}}},
		byCount,
	)
}

// growthOptions folds the customer and prospect counts into the fixed-choice
// keys and adds the retention choices.
func growthOptions(raw model.GroupOptions) model.GroupOptions {
	total := func(facet string) *int64 {
		var n int64
		if rows := raw[facet]; len(rows) > 0 && rows[0].Count != nil {
			n = *rows[0].Count
		}
		return &n
	}
	out := model.GroupOptions{
		string(definitions.KeyCustomerOrProspect): {
			{Value: definitions.ValueCustomer, Count: total(customersFacet)},
			{Value: definitions.ValueProspect, Count: total(prospectsFacet)},
		},
		string(definitions.KeyRetention): {
			{Value: definitions.ValueWithTransactions},
			{Value: definitions.ValueWithoutTransactions},
		},
	}
	for _, k := range []definitions.FieldKey{
		definitions.KeyOriginalSource, definitions.KeyLifetimeValue, definitions.KeyTransactionCount,
	} {
		out[string(k)] = raw[string(k)]
	}
	return out
}
