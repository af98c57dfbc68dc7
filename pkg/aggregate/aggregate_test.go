package aggregate

import (
	"math"
	"testing"
	"time"

	"capexrisk/pkg/correlation"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestPercentilesLinearInterpolation(t *testing.T) {
	// Order statistics 10,20,...,100 (10 values). The 0.5 quantile under
	// linear interpolation between order statistics lands exactly on the
	// midpoint between the 5th and 6th values, i.e. 55.
	totals := []float64{100, 90, 10, 80, 20, 70, 30, 60, 40, 50}
	p20, p50, p80 := Percentiles(totals)
	if !approx(p50, 55, 1e-9) {
		t.Errorf("expected p50=55, got %v", p50)
	}
	if p20 >= p50 || p50 >= p80 {
		t.Errorf("expected p20 < p50 < p80, got %v %v %v", p20, p50, p80)
	}
}

func TestPercentilesEmpty(t *testing.T) {
	p20, p50, p80 := Percentiles(nil)
	if p20 != 0 || p50 != 0 || p80 != 0 {
		t.Errorf("expected zero percentiles for empty input, got %v %v %v", p20, p50, p80)
	}
}

func TestDeterministicEstimate(t *testing.T) {
	got := DeterministicEstimate([]float64{100000}, []float64{20000}, []float64{0.3})
	want := 100000 + 20000*0.3
	if !approx(got, want, 1e-9) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDeterministicEstimateNoRisks(t *testing.T) {
	got := DeterministicEstimate([]float64{50000, 25000}, nil, nil)
	if !approx(got, 75000, 1e-9) {
		t.Errorf("expected 75000, got %v", got)
	}
}

func TestPercentChangeZeroBaseline(t *testing.T) {
	if PercentChange(0, 100) != 0 {
		t.Errorf("expected 0 change with zero baseline")
	}
}

func TestPercentChangeDecrease(t *testing.T) {
	got := PercentChange(100, 90)
	if !approx(got, -10, 1e-9) {
		t.Errorf("expected -10%%, got %v", got)
	}
}

func TestAppendRowPreservesOrder(t *testing.T) {
	var ts TimeSeries
	d1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 7)
	ts.AppendRow(Row{Date: d1, P50: 100})
	ts.AppendRow(Row{Date: d2, P50: 110})
	if len(ts.Rows) != 2 || !ts.Rows[0].Date.Equal(d1) || !ts.Rows[1].Date.Equal(d2) {
		t.Errorf("expected rows in append order, got %+v", ts.Rows)
	}
}

func TestCaptureCorrelationSummaryOnlyFirstNonTrivial(t *testing.T) {
	var ts TimeSeries
	ts.CaptureCorrelationSummary(correlation.Summary{NonTrivialCount: 0})
	if ts.CorrelationSummary != nil {
		t.Fatalf("expected trivial summary to be skipped")
	}
	ts.CaptureCorrelationSummary(correlation.Summary{NonTrivialCount: 3, MaxOffDiagonal: 0.5})
	if ts.CorrelationSummary == nil || ts.CorrelationSummary.NonTrivialCount != 3 {
		t.Fatalf("expected first non-trivial summary to be captured")
	}
	ts.CaptureCorrelationSummary(correlation.Summary{NonTrivialCount: 9})
	if ts.CorrelationSummary.NonTrivialCount != 3 {
		t.Errorf("expected later summaries not to overwrite the first, got %+v", ts.CorrelationSummary)
	}
}
