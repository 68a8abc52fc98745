package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

var scope = bson.D{{Key: "accountId", Value: "acct-1"}}

func stageName(stage bson.D) string {
	return stage[0].Key
}

func names(stages []bson.D) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = stageName(s)
	}
	return out
}

func TestBuild_JoinConditionality(t *testing.T) {
	tests := []struct {
		name   string
		groups []model.GroupKey
		join   bool
	}{
		{"profile only", []model.GroupKey{model.GroupProfile}, false},
		{"growth and profile", []model.GroupKey{model.GroupGrowth, model.GroupProfile}, false},
		{"transaction", []model.GroupKey{model.GroupTransaction}, true},
		{"marketing with profile", []model.GroupKey{model.GroupProfile, model.GroupMarketing}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var groups []model.SelectionGroup
			for _, k := range tt.groups {
				groups = append(groups, model.SelectionGroup{GroupKey: k})
			}
			stages, err := Build(bson.D{}, scope, groups, Options{Mode: ModeCountOnly})
			require.NoError(t, err)

			hasLookup := false
			for _, s := range stages {
				if stageName(s) == "$lookup" {
					hasLookup = true
				}
			}
			assert.Equal(t, tt.join, hasLookup)
			if tt.join {
				assert.Equal(t, "$lookup", stageName(stages[0]))
			}
		})
	}
}

func TestBuild_CountOnly(t *testing.T) {
	fragment := bson.D{{Key: "city", Value: "Lagos"}}
	stages, err := Build(fragment, scope, []model.SelectionGroup{{GroupKey: model.GroupProfile}}, Options{Mode: ModeCountOnly})
	require.NoError(t, err)

	require.Len(t, stages, 2)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.D{{Key: "city", Value: "Lagos"}, {Key: "accountId", Value: "acct-1"}}}}, stages[0])
	assert.Equal(t, bson.D{{Key: "$count", Value: "totalCount"}}, stages[1])
}

func TestBuild_ScopeOverridesFragment(t *testing.T) {
	fragment := bson.D{{Key: "accountId", Value: "other"}, {Key: "zip", Value: "1"}}
	stages, err := Build(fragment, scope, nil, Options{Mode: ModeCountOnly})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "zip", Value: "1"}, {Key: "accountId", Value: "acct-1"}}, stages[0][0].Value)
}

func TestBuild_Paginated(t *testing.T) {
	groups := []model.SelectionGroup{{GroupKey: model.GroupTransaction}}
	stages, err := Build(bson.D{{Key: "events.line_items.name", Value: "Widget"}}, scope, groups, Page(3, 20))
	require.NoError(t, err)

	assert.Equal(t, []string{"$lookup", "$match", "$project", "$sort", "$facet"}, names(stages))

	facet := stages[len(stages)-1][0].Value.(bson.D)
	assert.Equal(t, bson.D{
		{Key: "data", Value: bson.A{
			bson.D{{Key: "$skip", Value: int64(40)}},
			bson.D{{Key: "$limit", Value: int64(20)}},
		}},
		{Key: "totalCount", Value: bson.A{bson.D{{Key: "$count", Value: "count"}}}},
	}, facet)

	lookup := stages[0][0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "from", Value: "events"}, lookup[0])
	assert.Equal(t, bson.E{Key: "foreignField", Value: "profile.id"}, lookup[2])
	sub := lookup[4].Value.(bson.A)[0].(bson.D)
	assert.Equal(t, bson.D{{Key: "$or", Value: bson.A{bson.D{{Key: "event", Value: "transaction"}}}}}, sub[0].Value)
}

func TestBuild_SearchBeforeSort(t *testing.T) {
	opts := Page(1, 10)
	opts.Search = "ada+"
	stages, err := Build(bson.D{}, scope, nil, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"$match", "$project", "$match", "$sort", "$facet"}, names(stages))
	re := primitive.Regex{Pattern: `ada\+`, Options: "i"}
	assert.Equal(t, bson.D{{Key: "$or", Value: bson.A{bson.D{{Key: "email", Value: re}}, bson.D{{Key: "firstname", Value: re}}}}}, stages[2][0].Value)
}

func TestEventsLookup_Marketing(t *testing.T) {
	lookup, ok := EventsLookup([]model.SelectionGroup{{GroupKey: model.GroupMarketing}, {GroupKey: model.GroupTransaction}})
	require.True(t, ok)

	sub := lookup[0].Value.(bson.D)[4].Value.(bson.A)[0].(bson.D)
	filters := sub[0].Value.(bson.D)[0].Value.(bson.A)
	require.Len(t, filters, 2)
	marketing := filters[1].(bson.D)
	assert.Equal(t, primitive.Regex{Pattern: "email"}, marketing[0].Value)
	assert.Equal(t, "campaignId", marketing[2].Key)
}

func TestBuild_InvalidOptions(t *testing.T) {
	for _, opts := range []Options{{Mode: "stream"}, {Mode: ModePaginated, Limit: 0}, {Mode: ModePaginated, Skip: -1, Limit: 5}} {
		_, err := Build(bson.D{}, scope, nil, opts)
		assert.True(t, errors.Is(err, ErrInvalidOptions))
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, int64(0), TotalPages(0, 20))
	assert.Equal(t, int64(1), TotalPages(20, 20))
	assert.Equal(t, int64(2), TotalPages(21, 20))
	assert.Equal(t, int64(0), TotalPages(5, 0))
}
