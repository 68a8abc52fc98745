package translator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

type mapRegistry map[string]BuildFunc

func (m mapRegistry) Lookup(name string) (BuildFunc, bool) {
	b, ok := m[name]
	return b, ok
}

var fixedNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func testParser() *Parser[bson.D] {
	reg := mapRegistry{
		"product name": func(v any) []Term { return []Term{{Field: "events.line_items.name", Value: v}} },
		"city":         func(v any) []Term { return []Term{{Field: "city", Value: v}} },
		"opened": func(v any) []Term {
			return []Term{{Field: "events.event", Value: "email_open"}, {Field: "events.campaignId", Value: v}}
		},
		"tags": func(v any) []Term {
			return []Term{{Field: "tags", Value: bson.D{{Key: "$in", Value: bson.A{v}}}}}
		},
	}
	return NewParser[bson.D](reg, NewMongoAdapter(nil)).WithClock(func() time.Time { return fixedNow })
}

func TestParse_ProductNameWithPeriod(t *testing.T) {
	tree := model.Composed(model.OperatorAnd,
		model.Period(model.FieldTimestamp, model.Period30Days, model.OperatorGTE),
		model.Leaf("product name", "Shoe", false),
	)

	got, err := testParser().Parse(tree)
	require.NoError(t, err)

	want := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: fixedNow.AddDate(0, 0, -30)}}}},
		bson.D{{Key: "events.line_items.name", Value: "Shoe"}},
	}}}
	assert.Equal(t, want, got)
}

func TestParse_NegatedLeaf(t *testing.T) {
	p := testParser()

	t.Run("scalar uses $ne on every term", func(t *testing.T) {
		got, err := p.Parse(model.Leaf("opened", "cmp-1", true))
		require.NoError(t, err)
		assert.Equal(t, bson.D{
			{Key: "events.event", Value: bson.D{{Key: "$ne", Value: "email_open"}}},
			{Key: "events.campaignId", Value: bson.D{{Key: "$ne", Value: "cmp-1"}}},
		}, got)
	})

	t.Run("operator value uses $not", func(t *testing.T) {
		got, err := p.Parse(model.Leaf("tags", "vip", true))
		require.NoError(t, err)
		assert.Equal(t, bson.D{
			{Key: "tags", Value: bson.D{{Key: "$not", Value: bson.D{{Key: "$in", Value: bson.A{"vip"}}}}}},
		}, got)
	})
}

func TestParse_ComposedOperators(t *testing.T) {
	p := testParser()
	a := model.Leaf("city", "Lagos", false)
	b := model.Leaf("city", "Accra", false)

	tests := []struct {
		name string
		op   model.Operator
		want bson.D
	}{
		{"and", model.OperatorAnd, bson.D{{Key: "$and", Value: bson.A{bson.D{{Key: "city", Value: "Lagos"}}, bson.D{{Key: "city", Value: "Accra"}}}}}},
		{"or", model.OperatorOr, bson.D{{Key: "$or", Value: bson.A{bson.D{{Key: "city", Value: "Lagos"}}, bson.D{{Key: "city", Value: "Accra"}}}}}},
		{"not", model.OperatorNot, bson.D{{Key: "$nor", Value: bson.A{
			bson.D{{Key: "$and", Value: bson.A{bson.D{{Key: "city", Value: "Lagos"}}, bson.D{{Key: "city", Value: "Accra"}}}}},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(model.Composed(tt.op, a, b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_TimeRange(t *testing.T) {
	got, err := testParser().Parse(model.Range(model.FieldOrderDate, "2024-01-01", "2024-01-31"))
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	assert.Equal(t, bson.D{{Key: "orderdate", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}}}, got)
}

func TestParse_Errors(t *testing.T) {
	p := testParser()

	t.Run("unknown field", func(t *testing.T) {
		_, err := p.Parse(model.Composed(model.OperatorAnd, model.Leaf("shoe size", 42, false)))
		var unknown *UnknownFieldError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "shoe size", unknown.Name)
	})

	tests := []struct {
		name string
		node *model.Segment
	}{
		{"nil node", nil},
		{"empty composed", model.Composed(model.OperatorAnd)},
		{"comparison as logical", model.Composed(model.OperatorGT, model.Leaf("city", "x", false))},
		{"logical as comparison", model.Period(model.FieldTimestamp, model.Period30Days, model.OperatorAnd)},
		{"all-time period", model.Period(model.FieldTimestamp, model.PeriodAll, model.OperatorGTE)},
		{"unknown time field", model.Period("createdAt", model.Period30Days, model.OperatorGTE)},
		{"bad range", model.Range(model.FieldTimestamp, "yesterday", "today")},
		{"inverted range", model.Range(model.FieldTimestamp, "2024-02-01", "2024-01-01")},
		{"unknown node type", &model.Segment{Type: "geo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.node)
			var adapterErr *AdapterError
			assert.True(t, errors.As(err, &adapterErr), "got %v", err)
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	p := testParser()
	tree := model.Composed(model.OperatorAnd,
		model.Composed(model.OperatorAnd,
			model.Period(model.FieldProfileCreatedAt, model.Period1Year, model.OperatorGTE),
			model.Leaf("city", "Lagos", true),
		),
		model.Composed(model.OperatorNot, model.Leaf("opened", "cmp-9", false)),
	)

	first, err := p.Parse(tree)
	require.NoError(t, err)
	second, err := p.Parse(tree)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParse_TimePeriodFromJSONString(t *testing.T) {
	// trees decoded from JSON carry the period as a plain string
	node := &model.Segment{Type: model.NodeTimePeriod, Field: model.FieldLastUpdated, Value: "90days", Operator: model.OperatorLT}
	got, err := testParser().Parse(node)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "lastupdated", Value: bson.D{{Key: "$lt", Value: fixedNow.AddDate(0, 0, -90)}}}}, got)
}
