package domain

// Series is one vendor line within a chart.
type Series struct {
	Vendor  PspVendor `json:"name"`
	DataKey string    `json:"dataKey"`
	Color   string    `json:"stroke"`
}

// Chart describes how to plot one measurement across vendors.
type Chart struct {
	Title      string   `json:"title"`
	Field      string   `json:"field"`
	YAxisLabel string   `json:"yAxisLabel"`
	Series     []Series `json:"series"`
}

var vendorColors = map[PspVendor]string{
	VendorSaman:       "#1890ff",
	VendorSepehr:      "#52c41a",
	VendorBehpardakht: "#fa8c16",
	VendorAP:          "#eb2f96",
}

const fallbackColor = "#8c8c8c"

// VendorColor returns the palette colour for a vendor.
func VendorColor(v PspVendor) string {
	if c, ok := vendorColors[v]; ok {
		return c
	}
	return fallbackColor
}

var chartLayout = []struct {
	title, field, yAxis string
}{
	{"All APIs Down Times", FieldAllApisDownTimes, "Down Times"},
	{"All APIs Call Count", FieldAllApisCallCount, "Call Count"},
	{"Health API Down Times", FieldHealthApiDownTimes, "Down Times"},
	{"Payment Down Times", FieldPaymentDownTimes, "Down Times"},
	{"Initial Delay Average", FieldInitialDelayAverageInMillis, "Milliseconds"},
	{"Payment Delay Average", FieldPaymentDelayAverageInMillis, "Milliseconds"},
	{"Verification Delay Average", FieldVerificationDelayAverageInMillis, "Milliseconds"},
}

// Charts builds one chart per measurement with a series for each selected
// vendor.
func Charts(vendors []PspVendor) []Chart {
	charts := make([]Chart, 0, len(chartLayout))
	for _, l := range chartLayout {
		series := make([]Series, 0, len(vendors))
		for _, v := range vendors {
			series = append(series, Series{Vendor: v, DataKey: SeriesKey(v, l.field), Color: VendorColor(v)})
		}
		charts = append(charts, Chart{Title: l.title, Field: l.field, YAxisLabel: l.yAxis, Series: series})
	}
	return charts
}
