package model

// DateFilterType discriminates DateFilter variants.
type DateFilterType string

const (
	DateFilterTimePeriod DateFilterType = "timeperiod"
	DateFilterTimeRange  DateFilterType = "timerange"
)

// TimePeriod is a relative look-back window.
type TimePeriod string

const (
	Period30Days  TimePeriod = "30days"
	Period90Days  TimePeriod = "90days"
	Period180Days TimePeriod = "180days"
	Period1Year   TimePeriod = "1year"
	PeriodAll     TimePeriod = "all"
)

// Days returns the look-back length of p. It returns false for PeriodAll and
// unknown values.
func (p TimePeriod) Days() (int, bool) {
	switch p {
	case Period30Days:
		return 30, true
	case Period90Days:
		return 90, true
	case Period180Days:
		return 180, true
	case Period1Year:
		return 365, true
	}
	return 0, false
}

// TimeField names a timestamp attribute a time node may constrain.
type TimeField string

const (
	FieldTimestamp         TimeField = "timestamp"
	FieldCustomerCreatedAt TimeField = "customerCreatedAt"
	FieldProfileCreatedAt  TimeField = "profileCreatedAt"
	FieldOrderDate         TimeField = "orderdate"
	FieldLastUpdated       TimeField = "lastupdated"
)

// Valid reports whether f is a known time field.
func (f TimeField) Valid() bool {
	switch f {
	case FieldTimestamp, FieldCustomerCreatedAt, FieldProfileCreatedAt, FieldOrderDate, FieldLastUpdated:
		return true
	}
	return false
}

// DateFilter restricts a group's contribution in time.
type DateFilter struct {
	Type  DateFilterType `json:"type" yaml:"type" bson:"type"`
	Value TimePeriod     `json:"value,omitempty" yaml:"value,omitempty" bson:"value,omitempty"`
	Start string         `json:"start,omitempty" yaml:"start,omitempty" bson:"start,omitempty"`
	End   string         `json:"end,omitempty" yaml:"end,omitempty" bson:"end,omitempty"`
	Name  string         `json:"name" yaml:"name" bson:"name"`
}

// ActivePeriod returns the period to apply, or false when the filter is absent,
// is a range, or means "all time".
func (d *DateFilter) ActivePeriod() (TimePeriod, bool) {
	if d == nil || d.Type != DateFilterTimePeriod {
		return "", false
	}
	if _, ok := d.Value.Days(); !ok {
		return "", false
	}
	return d.Value, true
}

// AllTime is the date filter new groups start with.
func AllTime() DateFilter {
	return DateFilter{Type: DateFilterTimePeriod, Value: PeriodAll, Name: "All"}
}

// DateFilterOptions lists the selectable periods with their display names.
func DateFilterOptions() []DateFilter {
	return []DateFilter{
		AllTime(),
		{Type: DateFilterTimePeriod, Value: Period30Days, Name: "30 Days"},
		{Type: DateFilterTimePeriod, Value: Period90Days, Name: "90 Days"},
		{Type: DateFilterTimePeriod, Value: Period180Days, Name: "180 Days"},
		{Type: DateFilterTimePeriod, Value: Period1Year, Name: "12 Months"},
	}
}
