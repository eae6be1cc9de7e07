package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// PspVendor is a payment-service-provider tag. Values outside the known set
// are carried through unchanged.
type PspVendor string

const (
	VendorSaman       PspVendor = "SAMAN"
	VendorSepehr      PspVendor = "SEPEHR"
	VendorBehpardakht PspVendor = "BEHPARDAKHT"
	VendorAP          PspVendor = "AP"
)

// KnownVendors lists the vendors offered by the dashboard, in display order.
var KnownVendors = []PspVendor{VendorSaman, VendorSepehr, VendorBehpardakht, VendorAP}

// AggregationPeriod is the upstream bucketing of the time series.
type AggregationPeriod string

const (
	PeriodDay   AggregationPeriod = "DAY"
	PeriodWeek  AggregationPeriod = "WEEK"
	PeriodMonth AggregationPeriod = "MONTH"
)

// ParseAggregationPeriod accepts DAY, WEEK or MONTH in any case.
func ParseAggregationPeriod(s string) (AggregationPeriod, error) {
	switch p := AggregationPeriod(strings.ToUpper(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("aggregationPeriod must be one of DAY, WEEK, MONTH (got %q)", s)
	}
}

// MetricRecord is one flat (period, vendor) measurement row from upstream.
type MetricRecord struct {
	TimePeriod                       string    `json:"timePeriod"`
	PSP                              PspVendor `json:"psp"`
	AllApisDownTimes                 int64     `json:"allApisDownTimes"`
	AllApisCallCount                 int64     `json:"allApisCallCount"`
	HealthApiDownTimes               int64     `json:"healthApiDownTimes"`
	PaymentDownTimes                 int64     `json:"paymentDownTimes"`
	InitialDelayAverageInMillis      int64     `json:"initialDelayAverageInMillis"`
	PaymentDelayAverageInMillis      int64     `json:"paymentDelayAverageInMillis"`
	VerificationDelayAverageInMillis int64     `json:"verificationDelayAverageInMillis"`
}

// Measurement field names, as they appear upstream.
const (
	FieldAllApisDownTimes                 = "allApisDownTimes"
	FieldAllApisCallCount                 = "allApisCallCount"
	FieldHealthApiDownTimes               = "healthApiDownTimes"
	FieldPaymentDownTimes                 = "paymentDownTimes"
	FieldInitialDelayAverageInMillis      = "initialDelayAverageInMillis"
	FieldPaymentDelayAverageInMillis      = "paymentDelayAverageInMillis"
	FieldVerificationDelayAverageInMillis = "verificationDelayAverageInMillis"
)

type measurement struct {
	field string
	value int64
}

func (m MetricRecord) measurements() []measurement {
	return []measurement{
		{FieldAllApisDownTimes, m.AllApisDownTimes},
		{FieldAllApisCallCount, m.AllApisCallCount},
		{FieldHealthApiDownTimes, m.HealthApiDownTimes},
		{FieldPaymentDownTimes, m.PaymentDownTimes},
		{FieldInitialDelayAverageInMillis, m.InitialDelayAverageInMillis},
		{FieldPaymentDelayAverageInMillis, m.PaymentDelayAverageInMillis},
		{FieldVerificationDelayAverageInMillis, m.VerificationDelayAverageInMillis},
	}
}

// MetricsQuery is the body of the PSP metrics request.
type MetricsQuery struct {
	PspVendors        []PspVendor       `json:"pspVendors"`
	StartDate         string            `json:"startDate"`
	EndDate           string            `json:"endDate"`
	AggregationPeriod AggregationPeriod `json:"aggregationPeriod"`
}

// MarshalJSON always emits pspVendors as an array; an empty selection is
// meaningful upstream ("all vendors") and must not collapse to null.
func (q MetricsQuery) MarshalJSON() ([]byte, error) {
	type alias MetricsQuery
	a := alias(q)
	if a.PspVendors == nil {
		a.PspVendors = []PspVendor{}
	}
	return json.Marshal(a)
}

// MetricsResponse is the upstream envelope.
type MetricsResponse struct {
	Elements []MetricRecord `json:"elements"`
}

// Upstream is the port for the remote Hitman API.
type Upstream interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
	PspMetrics(ctx context.Context, bearer string, q MetricsQuery) ([]MetricRecord, error)
}
