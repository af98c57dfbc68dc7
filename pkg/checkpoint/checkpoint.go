// Package checkpoint is the run's orchestrator: it computes the
// checkpoint calendar, decides per checkpoint whether to re-simulate or
// carry the previous aggregate forward, and when re-simulating, drives
// mitigation, correlation, sampling, distribution fitting and
// aggregation into one row of the result time series.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"capexrisk/pkg/aggregate"
	"capexrisk/pkg/correlation"
	"capexrisk/pkg/fit"
	"capexrisk/pkg/mitigate"
	"capexrisk/pkg/model"
	"capexrisk/pkg/sample"
)

// ErrCancelled is returned when the run's context is cancelled at a
// checkpoint boundary.
var ErrCancelled = errors.New("checkpoint: run cancelled")

// DistributionError wraps a fit failure encountered mid-run (should not
// occur on validated input, but the driver does not trust that blindly).
type DistributionError struct {
	Entity string // "item" or "risk"
	ID     string
	Err    error
}

func (e *DistributionError) Error() string {
	return fmt.Sprintf("checkpoint: invalid distribution for %s %q: %v", e.Entity, e.ID, e.Err)
}

func (e *DistributionError) Unwrap() error { return e.Err }

// State is the per-checkpoint state machine value.
type State int

const (
	InitialCheckpoint State = iota
	Unchanged
	ActionsEffective
	RisksEmergent
	Mixed
)

func (s State) String() string {
	switch s {
	case InitialCheckpoint:
		return "InitialCheckpoint"
	case Unchanged:
		return "Unchanged"
	case ActionsEffective:
		return "ActionsEffective"
	case RisksEmergent:
		return "RisksEmergent"
	case Mixed:
		return "Mixed"
	default:
		return "Unknown"
	}
}

// Config is the subset of run configuration the driver needs.
type Config struct {
	DataDate          time.Time
	Frequency         string // daily|weekly|monthly|quarterly|yearly
	HorizonOverride   *time.Time
	NSimulations      int
	EnableCorrelation bool
	CorrelationMethod string // "none"|"category"
	Seed1, Seed2      uint64
	Workers           int

	// Warn receives non-fatal observability messages (Cholesky
	// fallback, etc). May be nil.
	Warn func(format string, args ...any)
}

func (c Config) warn(format string, args ...any) {
	if c.Warn != nil {
		c.Warn(format, args...)
	}
}

// Inputs is the normalized, validated population the driver simulates
// over. All rows are frozen; the driver never mutates them.
type Inputs struct {
	Items       []model.CapexItem
	Actions     []model.CapexAction
	Risks       []model.Risk
	RiskActions []model.RiskAction
	Lookups     model.Lookups
}

// Calendar computes the ordered checkpoint dates for a run, from
// data_date to an explicit horizon override or, absent one, 28 days past
// the latest due date among all actions (or data_date itself if there
// are none).
func Calendar(cfg Config, actions []model.CapexAction, riskActions []model.RiskAction) []time.Time {
	end := deriveEnd(cfg.DataDate, actions, riskActions)
	if cfg.HorizonOverride != nil && !cfg.HorizonOverride.Before(cfg.DataDate) {
		end = *cfg.HorizonOverride
	}

	step := stepFor(cfg.Frequency)
	var out []time.Time
	cur := cfg.DataDate
	for !cur.After(end) {
		out = append(out, cur)
		next := step(cur)
		if !next.After(cur) {
			break // guard against a non-advancing step
		}
		cur = next
	}
	return out
}

func deriveEnd(dataDate time.Time, actions []model.CapexAction, riskActions []model.RiskAction) time.Time {
	max := dataDate
	found := false
	for _, a := range actions {
		if !found || a.DueDate.After(max) {
			max, found = a.DueDate, true
		}
	}
	for _, a := range riskActions {
		if !found || a.DueDate.After(max) {
			max, found = a.DueDate, true
		}
	}
	base := dataDate
	if found {
		base = max
	}
	return base.AddDate(0, 0, 28)
}

func stepFor(frequency string) func(time.Time) time.Time {
	switch frequency {
	case "daily":
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case "monthly":
		return func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	case "quarterly":
		return func(t time.Time) time.Time { return t.AddDate(0, 3, 0) }
	case "yearly":
		return func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
	default: // "weekly" and any unrecognised value, which engine.RunConfig.withDefaults already clamps
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	}
}

// Run executes the full checkpoint calendar and returns the assembled
// time series.
func Run(ctx context.Context, in Inputs, cfg Config) (aggregate.TimeSeries, error) {
	var ts aggregate.TimeSeries
	calendar := Calendar(cfg, in.Actions, in.RiskActions)

	var prevCheckpoint *time.Time
	var prevActiveRiskIDs map[string]bool
	var prevRow aggregate.Row

	for idx, checkpointDate := range calendar {
		if ctx.Err() != nil {
			return aggregate.TimeSeries{}, ErrCancelled
		}

		activeNow := mitigate.ActiveRisks(in.Risks, checkpointDate)
		activeNowIDs := riskIDSet(activeNow)

		newlyDueCapex := mitigate.NewlyDueCapex(in.Actions, prevCheckpoint, checkpointDate)
		newlyDueRisk := mitigate.NewlyDueRisk(in.RiskActions, prevCheckpoint, checkpointDate)
		newlyActiveRisks := diffNewRisks(activeNow, prevActiveRiskIDs)

		first := idx == 0
		hasNewActions := len(newlyDueCapex) > 0 || len(newlyDueRisk) > 0
		hasNewRisks := len(newlyActiveRisks) > 0

		state := stateFor(first, hasNewActions, hasNewRisks)

		var row aggregate.Row
		if state == Unchanged {
			row = prevRow
			row.Date = checkpointDate
		} else {
			if ctx.Err() != nil {
				return aggregate.TimeSeries{}, ErrCancelled
			}
			var err error
			row, err = simulateCheckpoint(checkpointDate, idx, in, cfg, &ts)
			if err != nil {
				return aggregate.TimeSeries{}, err
			}
		}

		if hasNewActions {
			ts.MitigationImpacts = append(ts.MitigationImpacts, aggregate.ImpactEntry{
				Date:          checkpointDate,
				NewP50:        row.P50,
				PercentChange: aggregate.PercentChange(prevRow.P50, row.P50),
				TriggerIDs:    triggerIDs(newlyDueCapex, newlyDueRisk),
			})
		}
		if hasNewRisks {
			ts.RiskImpacts = append(ts.RiskImpacts, aggregate.ImpactEntry{
				Date:          checkpointDate,
				NewP50:        row.P50,
				PercentChange: aggregate.PercentChange(prevRow.P50, row.P50),
				TriggerIDs:    riskTriggerIDs(newlyActiveRisks),
			})
		}

		ts.AppendRow(row)
		prevRow = row
		d := checkpointDate
		prevCheckpoint = &d
		prevActiveRiskIDs = activeNowIDs
	}

	return ts, nil
}

func stateFor(first, hasNewActions, hasNewRisks bool) State {
	switch {
	case first:
		return InitialCheckpoint
	case hasNewActions && hasNewRisks:
		return Mixed
	case hasNewActions:
		return ActionsEffective
	case hasNewRisks:
		return RisksEmergent
	default:
		return Unchanged
	}
}

func riskIDSet(risks []model.Risk) map[string]bool {
	out := make(map[string]bool, len(risks))
	for _, r := range risks {
		out[r.RiskID] = true
	}
	return out
}

func diffNewRisks(activeNow []model.Risk, prevActiveIDs map[string]bool) []model.Risk {
	var out []model.Risk
	for _, r := range activeNow {
		if !prevActiveIDs[r.RiskID] {
			out = append(out, r)
		}
	}
	return out
}

func triggerIDs(capexActions []model.CapexAction, riskActions []model.RiskAction) []string {
	var out []string
	for _, a := range capexActions {
		out = append(out, a.ActionID)
	}
	for _, a := range riskActions {
		out = append(out, a.ActionID)
	}
	return out
}

func riskTriggerIDs(risks []model.Risk) []string {
	var out []string
	for _, r := range risks {
		out = append(out, r.RiskID)
	}
	return out
}

// simulateCheckpoint runs the Monte Carlo simulation step for one
// checkpoint: build the correlation matrix over active items and risks,
// sample correlated draws, fit and sample each item's and risk's
// distribution, and aggregate into one row.
func simulateCheckpoint(checkpointDate time.Time, idx int, in Inputs, cfg Config, ts *aggregate.TimeSeries) (aggregate.Row, error) {
	mitItems := mitigate.CapexItems(in.Items, in.Actions, checkpointDate)
	mitRisks := mitigate.Risks(in.Risks, in.RiskActions, checkpointDate)
	activeRisks := mitigate.ActiveRisks(mitRisks, checkpointDate)

	numItems := len(mitItems)
	numRisks := len(activeRisks)
	k := numItems + numRisks

	var corr *mat.SymDense
	if cfg.EnableCorrelation && cfg.CorrelationMethod != "none" {
		entities := make([]model.Correlatable, 0, k)
		for _, it := range mitItems {
			entities = append(entities, model.CapexCorrelatable(it))
		}
		for _, r := range activeRisks {
			entities = append(entities, model.RiskCorrelatable(r))
		}
		var summary correlation.Summary
		corr, summary = correlation.Build(entities, in.Lookups)
		ts.CaptureCorrelationSummary(summary)
	} else {
		corr = identityMatrix(k)
	}

	sampler := sample.NewSampler(corr)
	if sampler.Degenerate() {
		cfg.warn("checkpoint %s: correlation matrix failed Cholesky factorization after regularization, falling back to independent sampling", checkpointDate.Format("2006-01-02"))
	}

	n := cfg.NSimulations
	checkpointSeed2 := cfg.Seed2 + uint64(idx)*uint64(n)
	draws := sample.DrawPaths(sampler, n, cfg.Seed1, checkpointSeed2, cfg.Workers)

	itemDists := make([]fit.Lognormal, numItems)
	itemMLCosts := make([]float64, numItems)
	for i, it := range mitItems {
		d, err := fit.Fit(it.PostMinCost, it.PostMaxCost)
		if err != nil {
			return aggregate.Row{}, &DistributionError{Entity: "item", ID: it.ItemID, Err: err}
		}
		itemDists[i] = d
		itemMLCosts[i] = it.PostMLCost
	}

	riskDists := make([]fit.Lognormal, numRisks)
	riskMLImpacts := make([]float64, numRisks)
	riskProbabilities := make([]float64, numRisks)
	for r, risk := range activeRisks {
		d, err := fit.Fit(risk.PostMinImpact, risk.PostMaxImpact)
		if err != nil {
			return aggregate.Row{}, &DistributionError{Entity: "risk", ID: risk.RiskID, Err: err}
		}
		riskDists[r] = d
		riskMLImpacts[r] = risk.PostMLImpact
		riskProbabilities[r] = risk.PostProbability
	}

	occSeed2Base := cfg.Seed2 + occurrenceSeedOffset + uint64(idx)*uint64(numRisks+1)

	totals := make([]float64, n)
	for s := 0; s < n; s++ {
		var total float64
		u := draws[s]
		for i := 0; i < numItems; i++ {
			total += itemDists[i].Sample(u[i])
		}
		totals[s] = total
	}
	for r := range activeRisks {
		rng := sample.RNGFor(cfg.Seed1, occSeed2Base, r)
		dist := riskDists[r]
		prob := riskProbabilities[r]
		for s := 0; s < n; s++ {
			v := rng.Float64()
			if v >= prob {
				continue
			}
			totals[s] += dist.Sample(draws[s][numItems+r])
		}
	}

	p20, p50, p80 := aggregate.Percentiles(totals)
	deterministic := aggregate.DeterministicEstimate(itemMLCosts, riskMLImpacts, riskProbabilities)

	return aggregate.Row{Date: checkpointDate, P20: p20, P50: p50, P80: p80, Deterministic: deterministic}, nil
}

// occurrenceSeedOffset keeps the risk-occurrence RNG streams in a
// disjoint region of seed space from the correlated-draw streams, which
// are keyed off (seed1, checkpointSeed2+path), where checkpointSeed2 is
// seed2 + checkpointIndex*nSimulations.
const occurrenceSeedOffset = 0x9E3779B97F4A7C15

func identityMatrix(n int) *mat.SymDense {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	return mat.NewSymDense(n, data)
}
