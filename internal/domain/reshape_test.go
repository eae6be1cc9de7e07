package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"opspanel/internal/domain"
)

func rec(period string, psp domain.PspVendor, down int64) domain.MetricRecord {
	return domain.MetricRecord{TimePeriod: period, PSP: psp, AllApisDownTimes: down}
}

func periods(rows []domain.WideRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.TimePeriod)
	}
	return out
}

func TestReshape_Empty(t *testing.T) {
	for _, in := range [][]domain.MetricRecord{nil, {}} {
		rows := domain.Reshape(in)
		if rows == nil {
			t.Fatal("expected non-nil empty slice")
		}
		if len(rows) != 0 {
			t.Fatalf("expected 0 rows, got %d", len(rows))
		}
	}
}

func TestReshape_SortsLexicographically(t *testing.T) {
	rows := domain.Reshape([]domain.MetricRecord{
		rec("1404-09-10", domain.VendorSaman, 1),
		rec("1404-09-09", domain.VendorSaman, 2),
	})
	if diff := cmp.Diff([]string{"1404-09-09", "1404-09-10"}, periods(rows)); diff != "" {
		t.Errorf("period order mismatch (-want +got):\n%s", diff)
	}
}

func TestReshape_StringOrderNotNumeric(t *testing.T) {
	// Not zero-padded on purpose: string order puts "10" before "9".
	rows := domain.Reshape([]domain.MetricRecord{
		rec("9", domain.VendorAP, 0),
		rec("10", domain.VendorAP, 0),
	})
	if diff := cmp.Diff([]string{"10", "9"}, periods(rows)); diff != "" {
		t.Errorf("period order mismatch (-want +got):\n%s", diff)
	}
}

func TestReshape_LastWriteWinsWithinGroup(t *testing.T) {
	rows := domain.Reshape([]domain.MetricRecord{
		rec("A", domain.VendorSaman, 1),
		rec("A", domain.VendorSaman, 2),
	})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got, ok := rows[0].Get(domain.VendorSaman, domain.FieldAllApisDownTimes)
	if !ok || got != 2 {
		t.Fatalf("SAMAN_allApisDownTimes = %d (present=%v); want 2", got, ok)
	}
}

func TestReshape_OrderIndependentAcrossGroups(t *testing.T) {
	a := []domain.MetricRecord{
		rec("1404-09-09", domain.VendorSaman, 1),
		rec("1404-09-10", domain.VendorSepehr, 5),
		rec("1404-09-09", domain.VendorSepehr, 3),
	}
	b := []domain.MetricRecord{a[1], a[2], a[0]}

	if diff := cmp.Diff(domain.Reshape(a), domain.Reshape(b)); diff != "" {
		t.Errorf("reshape depends on group order (-a +b):\n%s", diff)
	}
}

func TestReshape_AllMeasurementsQualifiedByVendor(t *testing.T) {
	rows := domain.Reshape([]domain.MetricRecord{{
		TimePeriod:                       "1404-09-09",
		PSP:                              domain.VendorSaman,
		AllApisDownTimes:                 1,
		AllApisCallCount:                 195408,
		HealthApiDownTimes:               0,
		PaymentDownTimes:                 0,
		InitialDelayAverageInMillis:      247,
		PaymentDelayAverageInMillis:      69195,
		VerificationDelayAverageInMillis: 268,
	}})

	want := []domain.WideRow{{
		TimePeriod: "1404-09-09",
		Values: map[string]int64{
			"SAMAN_allApisDownTimes":                 1,
			"SAMAN_allApisCallCount":                 195408,
			"SAMAN_healthApiDownTimes":               0,
			"SAMAN_paymentDownTimes":                 0,
			"SAMAN_initialDelayAverageInMillis":      247,
			"SAMAN_paymentDelayAverageInMillis":      69195,
			"SAMAN_verificationDelayAverageInMillis": 268,
		},
	}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestReshape_AbsentVendorNotZeroFilled(t *testing.T) {
	rows := domain.Reshape([]domain.MetricRecord{
		rec("1404-09-09", domain.VendorSaman, 1),
		rec("1404-09-10", domain.VendorSepehr, 1),
	})
	if _, ok := rows[0].Get(domain.VendorSepehr, domain.FieldAllApisDownTimes); ok {
		t.Error("SEPEHR keys should be absent from the first period")
	}
	if _, ok := rows[1].Get(domain.VendorSaman, domain.FieldAllApisDownTimes); ok {
		t.Error("SAMAN keys should be absent from the second period")
	}
}

func TestReshape_UnknownVendorPassesThrough(t *testing.T) {
	rows := domain.Reshape([]domain.MetricRecord{rec("1404-09-09", "PASARGAD", 7)})
	got, ok := rows[0].Get("PASARGAD", domain.FieldAllApisDownTimes)
	if !ok || got != 7 {
		t.Fatalf("PASARGAD_allApisDownTimes = %d (present=%v); want 7", got, ok)
	}
}

func TestWideRow_MarshalJSONIsFlat(t *testing.T) {
	row := domain.WideRow{TimePeriod: "1404-09-09", Values: map[string]int64{"AP_paymentDownTimes": 3}}
	b, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{"timePeriod": "1404-09-09", "AP_paymentDownTimes": float64(3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}
}
