// Package engine is the top-level façade: it loads a project's four
// tables and lookup tables, normalizes and validates them, drives the
// checkpoint simulation, and collapses every possible failure into a
// single result object so callers never see a bare Go error.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"capexrisk/pkg/aggregate"
	"capexrisk/pkg/checkpoint"
	"capexrisk/pkg/correlation"
	"capexrisk/pkg/model"
	"capexrisk/pkg/normalize"
	"capexrisk/pkg/validate"
)

// TimeSeriesRow is one row of the result table: a checkpoint date with
// its simulated percentile band and deterministic estimate.
type TimeSeriesRow struct {
	Date          time.Time `json:"date"`
	P20           float64   `json:"p20"`
	P50           float64   `json:"p50"`
	P80           float64   `json:"p80"`
	Deterministic float64   `json:"deterministic"`
}

// Summary bundles the run's identifying metadata, correlation summary,
// and attribution lists alongside the time series.
type Summary struct {
	RunID              string                  `json:"run_id"`
	ProjectID          string                  `json:"project_id"`
	DataDate           time.Time               `json:"data_date"`
	CorrelationSummary *correlation.Summary    `json:"correlation_summary,omitempty"`
	MitigationImpacts  []aggregate.ImpactEntry `json:"mitigation_impacts,omitempty"`
	RiskImpacts        []aggregate.ImpactEntry `json:"risk_impacts,omitempty"`
}

// Result is what Run always returns: success with a populated Summary
// and TimeSeries, or failure with a structured Error. Run never returns
// a bare Go error.
type Result struct {
	Success    bool            `json:"success"`
	Summary    Summary         `json:"summary,omitempty"`
	TimeSeries []TimeSeriesRow `json:"timeseries,omitempty"`
	Error      *Error          `json:"error,omitempty"`
}

func failure(err *Error) Result {
	return Result{Success: false, Error: err}
}

// Run executes one full simulation for a project: load, normalize,
// validate, simulate, aggregate.
func Run(ctx context.Context, projects ProjectLoader, lookups LookupLoader, cfg RunConfig) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = failure(toolError(fmt.Errorf("panic: %v", r)))
		}
	}()

	cfg = cfg.withDefaults()
	runID := uuid.NewString()

	rawItems, rawActions, rawRisks, rawRiskActions, err := projects.LoadProject(ctx, cfg.ProjectID)
	if err != nil {
		return failure(dataSourceUnavailable(err))
	}

	rawDisciplines, rawPhases, rawLocations, rawRiskCategories, rawRiskLogs, err := lookups.LoadLookups(ctx)
	if err != nil {
		return failure(dataSourceUnavailable(err))
	}

	norm := normalize.All(rawItems, rawActions, rawRisks, rawRiskActions)
	lookupTables := model.Lookups{
		Disciplines:    normalize.Lookup(rawDisciplines),
		Phases:         normalize.Lookup(rawPhases),
		Locations:      normalize.Lookup(rawLocations),
		RiskCategories: normalize.Lookup(rawRiskCategories),
		RiskLogs:       normalize.Lookup(rawRiskLogs),
	}

	report := validate.Validate(norm.Items, norm.Actions, norm.Risks, norm.RiskActions, lookupTables)
	allIssues := append(append([]validate.Issue(nil), norm.Issues...), report.Issues...)

	if report.ItemsEmpty {
		return failure(insufficientData("project has no CAPEX items to simulate"))
	}
	if len(allIssues) > 0 {
		return failure(validationFailed(fmt.Sprintf("%d validation issue(s) found", len(allIssues)), allIssues))
	}

	ckptCfg := checkpoint.Config{
		DataDate:          cfg.DataDate,
		Frequency:         cfg.Frequency,
		HorizonOverride:   cfg.Horizon,
		NSimulations:      cfg.NSimulations,
		EnableCorrelation: cfg.Enabled(),
		CorrelationMethod: cfg.CorrelationMethod,
		Seed1:             uint64(cfg.Seed),
		Seed2:             uint64(cfg.Seed),
		Workers:           cfg.Workers,
		Warn: func(format string, args ...any) {
			fmt.Printf("[WARN] "+format+"\n", args...)
		},
	}

	ts, err := checkpoint.Run(ctx, checkpoint.Inputs{
		Items:       norm.Items,
		Actions:     norm.Actions,
		Risks:       norm.Risks,
		RiskActions: norm.RiskActions,
		Lookups:     lookupTables,
	}, ckptCfg)
	if err != nil {
		return failure(classifyCheckpointError(err))
	}

	rows := make([]TimeSeriesRow, len(ts.Rows))
	for i, r := range ts.Rows {
		rows[i] = TimeSeriesRow{Date: r.Date, P20: r.P20, P50: r.P50, P80: r.P80, Deterministic: r.Deterministic}
	}

	return Result{
		Success: true,
		Summary: Summary{
			RunID:              runID,
			ProjectID:          cfg.ProjectID,
			DataDate:           cfg.DataDate,
			CorrelationSummary: ts.CorrelationSummary,
			MitigationImpacts:  ts.MitigationImpacts,
			RiskImpacts:        ts.RiskImpacts,
		},
		TimeSeries: rows,
	}
}

func classifyCheckpointError(err error) *Error {
	if errors.Is(err, checkpoint.ErrCancelled) {
		return cancelled()
	}
	var distErr *checkpoint.DistributionError
	if errors.As(err, &distErr) {
		return invalidDistribution(distErr)
	}
	return numericalError(err)
}
