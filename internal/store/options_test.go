package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/telhawk-systems/segmenter/internal/definitions"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

var scope = bson.D{{Key: "accountId", Value: "acme"}}

func facetKeys(t *testing.T, stage bson.D) []string {
	t.Helper()
	require.Equal(t, "$facet", stage[0].Key)
	var keys []string
	for _, e := range stage[0].Value.(bson.D) {
		keys = append(keys, e.Key)
	}
	return keys
}

func TestProspectQuery(t *testing.T) {
	since := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)
	want := bson.D{
		{Key: "totalTransactions", Value: 0},
		{Key: "customerCreatedAt", Value: bson.D{{Key: "$gte", Value: since}}},
	}
	assert.Equal(t, want, ProspectQuery(since))
}

func TestGrowthOptionsPipeline(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	p := GrowthOptionsPipeline(scope, now)
	require.Len(t, p, 2)
	assert.Equal(t, bson.D{{Key: "$match", Value: scope}}, p[0])
	assert.Equal(t, []string{"originalsource", "lifetime value", "number of transactions", "customers", "prospects"}, facetKeys(t, p[1]))

	prospects := p[1][0].Value.(bson.D)[4].Value.(bson.A)
	match := prospects[0].(bson.D)[0].Value.(bson.D)
	assert.Equal(t, ProspectQuery(time.Date(2023, 6, 30, 12, 0, 0, 0, time.UTC)), match)
}

func TestProfileOptionsPipeline_UsesStoredFieldNames(t *testing.T) {
	p := ProfileOptionsPipeline(scope)
	keys := facetKeys(t, p[1])
	assert.Contains(t, keys, "jobtitle")
	assert.NotContains(t, keys, "interest")
	assert.NotContains(t, keys, "tags")

	for _, e := range p[1][0].Value.(bson.D) {
		if e.Key != "jobtitle" {
			continue
		}
		group := e.Value.(bson.A)[1].(bson.D)[0].Value.(bson.D)
		assert.Equal(t, "$jobTitle", group[0].Value)
	}
}

func TestTransactionOptionsPipeline(t *testing.T) {
	p := TransactionOptionsPipeline(scope)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.D{{Key: "event", Value: "transaction"}, {Key: "accountId", Value: "acme"}}}}, p[0])
	assert.Equal(t, []string{"spend", "currency", "discountcode", "utm", "product name", "variant", "vendor", "customer tags"}, facetKeys(t, p[1]))

	for _, e := range p[1][0].Value.(bson.D) {
		stages := e.Value.(bson.A)
		switch e.Key {
		case "product name":
			assert.Equal(t, bson.D{{Key: "$unwind", Value: "$line_items"}}, stages[0])
		case "spend":
			assert.Equal(t, "$match", stages[0].(bson.D)[0].Key)
		}
	}
}

func TestMarketingOptionsPipeline(t *testing.T) {
	p := MarketingOptionsPipeline(scope)
	require.Len(t, p, 3)
	match := p[0][0].Value.(bson.D)
	assert.Equal(t, primitive.Regex{Pattern: "email"}, match[0].Value)
	assert.Equal(t, bson.E{Key: "accountId", Value: "acme"}, match[len(match)-1])
	assert.Equal(t, []string{"delivered", "opened", "clicked", "bounced", "unsubscribed"}, facetKeys(t, p[2]))

	opened := p[2][0].Value.(bson.D)[1].Value.(bson.A)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.D{{Key: "event", Value: "email_open"}}}}, opened[0])
}

func TestGrowthOptions(t *testing.T) {
	n := func(v int64) *int64 { return &v }
	raw := model.GroupOptions{
		"originalsource": {{Value: "shopify", Count: n(3)}},
		customersFacet:   {{Count: n(7)}},
		prospectsFacet:   nil,
	}

	out := growthOptions(raw)
	cp := out[string(definitions.KeyCustomerOrProspect)]
	require.Len(t, cp, 2)
	assert.Equal(t, definitions.ValueCustomer, cp[0].Value)
	assert.Equal(t, int64(7), *cp[0].Count)
	assert.Equal(t, int64(0), *cp[1].Count)

	retention := out[string(definitions.KeyRetention)]
	require.Len(t, retention, 2)
	assert.Nil(t, retention[0].Count)
	assert.Equal(t, "shopify", out["originalsource"][0].Value)
	assert.NotContains(t, out, customersFacet)
}

func TestExecutionError(t *testing.T) {
	err := execErr("aggregate", assert.AnError)
	var target *ExecutionError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "aggregate", target.Op)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, execErr("ping", nil))
}
