package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateFilter_ActivePeriod(t *testing.T) {
	tests := []struct {
		name   string
		filter *DateFilter
		want   TimePeriod
		active bool
	}{
		{name: "nil", filter: nil},
		{name: "all time", filter: &DateFilter{Type: DateFilterTimePeriod, Value: PeriodAll}},
		{name: "30 days", filter: &DateFilter{Type: DateFilterTimePeriod, Value: Period30Days}, want: Period30Days, active: true},
		{name: "12 months", filter: &DateFilter{Type: DateFilterTimePeriod, Value: Period1Year}, want: Period1Year, active: true},
		{name: "range is not a period", filter: &DateFilter{Type: DateFilterTimeRange, Start: "2024-01-01", End: "2024-02-01"}},
		{name: "unknown value", filter: &DateFilter{Type: DateFilterTimePeriod, Value: "7days"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.filter.ActivePeriod()
			assert.Equal(t, tt.active, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSegment_CountLeaves(t *testing.T) {
	tree := Composed(OperatorAnd,
		Composed(OperatorAnd,
			Period(FieldTimestamp, Period30Days, OperatorGTE),
			Leaf("product name", "Shoe", false),
			Composed(OperatorOr, Leaf("variant", "red", false), Leaf("variant", "blue", false)),
		),
		Composed(OperatorNot, Leaf("city", "Lagos", false)),
	)

	assert.Equal(t, 4, tree.CountLeaves())
	assert.True(t, tree.IsComposed())
	assert.False(t, Leaf("city", "x", false).IsComposed())

	var types []NodeType
	tree.Walk(func(s *Segment) { types = append(types, s.Type) })
	assert.Len(t, types, 9)
}

func TestSelectionGroup_CloneIsIndependent(t *testing.T) {
	orig := SelectionGroup{
		ID:                   "g1",
		GroupKey:             GroupProfile,
		MainSegmentSelection: &Selection{OptionValue: OptionValue{Value: "Lagos"}, SegmentKey: "city"},
		ExtraSelections:      []Selection{{OptionValue: OptionValue{Value: "Abuja"}, SegmentKey: "city"}},
		FilterOption:         &FilterOption{Name: "Include", Value: OperatorAnd},
		DateFilter:           &DateFilter{Type: DateFilterTimePeriod, Value: PeriodAll, Name: "All"},
	}

	cp := orig.Clone()
	cp.MainSegmentSelection.Value = "Accra"
	cp.ExtraSelections[0].Value = "Kano"
	cp.FilterOption.Value = OperatorNot
	cp.DateFilter.Value = Period30Days

	assert.Equal(t, "Lagos", orig.MainSegmentSelection.Value)
	assert.Equal(t, "Abuja", orig.ExtraSelections[0].Value)
	assert.Equal(t, OperatorAnd, orig.FilterOption.Value)
	assert.Equal(t, PeriodAll, orig.DateFilter.Value)
}

func TestSelection_JSONShape(t *testing.T) {
	sel := Selection{OptionValue: OptionValue{Value: "Shoe", Label: "Shoe"}, SegmentKey: "product name"}
	data, err := json.Marshal(sel)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"Shoe","label":"Shoe","segmentKey":"product name"}`, string(data))
}

func TestGroupKey(t *testing.T) {
	assert.True(t, GroupMarketing.Valid())
	assert.False(t, GroupKey("billing").Valid())
	assert.True(t, GroupTransaction.NeedsEvents())
	assert.True(t, GroupMarketing.NeedsEvents())
	assert.False(t, GroupProfile.NeedsEvents())
}
