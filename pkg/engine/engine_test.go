package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"capexrisk/pkg/normalize"
)

type fakeProjects struct {
	items, actions, risks, riskActions []normalize.Row
	err                                error
}

func (f fakeProjects) LoadProject(ctx context.Context, projectID string) ([]normalize.Row, []normalize.Row, []normalize.Row, []normalize.Row, error) {
	return f.items, f.actions, f.risks, f.riskActions, f.err
}

type fakeLookups struct{}

func (fakeLookups) LoadLookups(ctx context.Context) ([]normalize.Row, []normalize.Row, []normalize.Row, []normalize.Row, []normalize.Row, error) {
	return nil, nil, nil, nil, nil, nil
}

func baseCfg() RunConfig {
	return RunConfig{
		ProjectID:    "p1",
		DataDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Frequency:    "weekly",
		NSimulations: 5000,
		Seed:         42,
	}
}

func TestRunSucceedsEndToEnd(t *testing.T) {
	projects := fakeProjects{
		items: []normalize.Row{
			{"item_id": "i1", "min_cost": 80000.0, "ml_cost": 100000.0, "max_cost": 130000.0},
		},
	}
	result := Run(context.Background(), projects, fakeLookups{}, baseCfg())
	if !result.Success {
		t.Fatalf("expected success, got error %+v", result.Error)
	}
	if result.Summary.RunID == "" {
		t.Errorf("expected a non-empty run id")
	}
	if len(result.TimeSeries) != 5 {
		t.Errorf("expected 5 checkpoints, got %d", len(result.TimeSeries))
	}
	if result.TimeSeries[0].Deterministic != 100000 {
		t.Errorf("expected deterministic=100000, got %v", result.TimeSeries[0].Deterministic)
	}
}

// An out-of-order cost triplet aborts the run before any checkpoint is
// computed.
func TestRunReportsValidationFailure(t *testing.T) {
	projects := fakeProjects{
		items: []normalize.Row{
			{"item_id": "i1", "min_cost": 100.0, "ml_cost": 50.0, "max_cost": 200.0},
		},
	}
	result := Run(context.Background(), projects, fakeLookups{}, baseCfg())
	if result.Success {
		t.Fatalf("expected failure for out-of-order triplet")
	}
	if result.Error.Code != CodeValidationFailed {
		t.Errorf("expected %s, got %s", CodeValidationFailed, result.Error.Code)
	}
}

func TestRunReportsInsufficientDataForEmptyItems(t *testing.T) {
	result := Run(context.Background(), fakeProjects{}, fakeLookups{}, baseCfg())
	if result.Success {
		t.Fatalf("expected failure for empty items table")
	}
	if result.Error.Code != CodeInsufficientData {
		t.Errorf("expected %s, got %s", CodeInsufficientData, result.Error.Code)
	}
}

func TestRunReportsDataSourceUnavailable(t *testing.T) {
	projects := fakeProjects{err: errors.New("connection refused")}
	result := Run(context.Background(), projects, fakeLookups{}, baseCfg())
	if result.Success {
		t.Fatalf("expected failure when loader errors")
	}
	if result.Error.Code != CodeDataSourceUnavailable {
		t.Errorf("expected %s, got %s", CodeDataSourceUnavailable, result.Error.Code)
	}
}

func TestRunReportsCancellation(t *testing.T) {
	projects := fakeProjects{
		items: []normalize.Row{
			{"item_id": "i1", "min_cost": 80000.0, "ml_cost": 100000.0, "max_cost": 130000.0},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := Run(ctx, projects, fakeLookups{}, baseCfg())
	if result.Success {
		t.Fatalf("expected failure for cancelled context")
	}
	if result.Error.Code != CodeCancelled {
		t.Errorf("expected %s, got %s", CodeCancelled, result.Error.Code)
	}
}

func TestConfigDefaultsClampNSimulations(t *testing.T) {
	cfg := RunConfig{NSimulations: 999999}
	out := cfg.withDefaults()
	if out.NSimulations != maxNSimulations {
		t.Errorf("expected clamp to %d, got %d", maxNSimulations, out.NSimulations)
	}
	cfg2 := RunConfig{NSimulations: 1}
	out2 := cfg2.withDefaults()
	if out2.NSimulations != minNSimulations {
		t.Errorf("expected clamp to %d, got %d", minNSimulations, out2.NSimulations)
	}
}

func TestConfigDefaultsClampUnknownCorrelationMethod(t *testing.T) {
	cfg := RunConfig{CorrelationMethod: "explicit dependencies"}
	out := cfg.withDefaults()
	if out.CorrelationMethod != defaultCorrelationMethod {
		t.Errorf("expected unknown method to clamp to %q, got %q", defaultCorrelationMethod, out.CorrelationMethod)
	}
}

func TestEnableCorrelationDefaultsTrue(t *testing.T) {
	cfg := RunConfig{}
	if !cfg.Enabled() {
		t.Errorf("expected correlation enabled by default")
	}
	disabled := false
	cfg.EnableCorrelation = &disabled
	if cfg.Enabled() {
		t.Errorf("expected correlation disabled when explicitly set false")
	}
}
