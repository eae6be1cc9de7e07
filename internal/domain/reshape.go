package domain

import (
	"encoding/json"
	"sort"
)

// WideRow is one period of reshaped metrics. Values are keyed by
// "{vendor}_{field}".
type WideRow struct {
	TimePeriod string
	Values     map[string]int64
}

// MarshalJSON flattens the row so chart consumers can address series by key.
func (r WideRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	out["timePeriod"] = r.TimePeriod
	return json.Marshal(out)
}

// Get returns the value for vendor and field, and whether it was present.
func (r WideRow) Get(vendor PspVendor, field string) (int64, bool) {
	v, ok := r.Values[SeriesKey(vendor, field)]
	return v, ok
}

// SeriesKey builds the vendor-qualified key for a measurement.
func SeriesKey(vendor PspVendor, field string) string {
	return string(vendor) + "_" + field
}

// Reshape groups flat records into one row per period, sorted by period.
//
// A later record for the same (period, vendor) overwrites an earlier one.
// Periods are compared as plain strings: upstream keys are zero-padded and
// fixed-width, and may be in a non-Gregorian calendar.
func Reshape(records []MetricRecord) []WideRow {
	byPeriod := make(map[string]map[string]int64)
	for _, rec := range records {
		values, ok := byPeriod[rec.TimePeriod]
		if !ok {
			values = make(map[string]int64)
			byPeriod[rec.TimePeriod] = values
		}
		for _, m := range rec.measurements() {
			values[SeriesKey(rec.PSP, m.field)] = m.value
		}
	}

	rows := make([]WideRow, 0, len(byPeriod))
	for period, values := range byPeriod {
		rows = append(rows, WideRow{TimePeriod: period, Values: values})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].TimePeriod < rows[j].TimePeriod
	})
	return rows
}
