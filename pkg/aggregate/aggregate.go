// Package aggregate turns a checkpoint's simulated totals into the
// P20/P50/P80 percentile band and deterministic estimate, and assembles
// per-checkpoint rows into the run's time series together with its two
// attribution lists.
package aggregate

import (
	"math"
	"sort"
	"time"

	"capexrisk/pkg/correlation"
)

// Row is one checkpoint's aggregate, the unit the result time series is
// built from.
type Row struct {
	Date          time.Time
	P20           float64
	P50           float64
	P80           float64
	Deterministic float64
}

// ImpactEntry attributes a P50 change at a checkpoint to the actions or
// risks that became effective in that step.
type ImpactEntry struct {
	Date          time.Time
	NewP50        float64
	PercentChange float64
	TriggerIDs    []string
}

// TimeSeries is the engine's full result: one row per checkpoint in
// ascending date order, plus the two attribution lists and the
// correlation summary captured at the first checkpoint that produced a
// non-trivial one.
type TimeSeries struct {
	Rows               []Row
	MitigationImpacts  []ImpactEntry
	RiskImpacts        []ImpactEntry
	CorrelationSummary *correlation.Summary
}

// AppendRow appends a checkpoint's aggregate row, preserving ascending
// date order.
func (ts *TimeSeries) AppendRow(r Row) {
	ts.Rows = append(ts.Rows, r)
}

// CaptureCorrelationSummary records s as the run's correlation summary
// the first time a non-trivial one is produced; later checkpoints don't
// overwrite it.
func (ts *TimeSeries) CaptureCorrelationSummary(s correlation.Summary) {
	if ts.CorrelationSummary != nil {
		return
	}
	if s.NonTrivialCount == 0 {
		return
	}
	captured := s
	ts.CorrelationSummary = &captured
}

// Percentiles computes P20/P50/P80 over totals by linear interpolation
// between order statistics: the p quantile sits at rank p*(n-1) of the
// sorted totals. totals is not mutated.
func Percentiles(totals []float64) (p20, p50, p80 float64) {
	if len(totals) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), totals...)
	sort.Float64s(sorted)
	quantile := func(p float64) float64 {
		h := p * float64(len(sorted)-1)
		lo := int(math.Floor(h))
		if lo >= len(sorted)-1 {
			return sorted[len(sorted)-1]
		}
		return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
	}
	p20 = quantile(0.20)
	p50 = quantile(0.50)
	p80 = quantile(0.80)
	return p20, p50, p80
}

// DeterministicEstimate is the no-randomness point estimate for a
// checkpoint: the sum of each item's most-likely cost plus each active
// risk's most-likely impact weighted by its probability of occurring,
// both taken post-mitigation.
func DeterministicEstimate(itemMLCosts []float64, riskMLImpacts, riskProbabilities []float64) float64 {
	var total float64
	for _, c := range itemMLCosts {
		total += c
	}
	n := len(riskMLImpacts)
	if len(riskProbabilities) < n {
		n = len(riskProbabilities)
	}
	for i := 0; i < n; i++ {
		total += riskMLImpacts[i] * riskProbabilities[i]
	}
	return total
}

// PercentChange is the percentage change from prev to cur; 0 when prev
// is 0 (no baseline to compare against).
func PercentChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
