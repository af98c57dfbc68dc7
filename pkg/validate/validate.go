// Package validate enforces the structural and referential invariants of
// the project's four tables and five lookup tables before a simulation
// run is allowed to proceed.
package validate

import (
	"fmt"

	"capexrisk/pkg/model"
)

// Issue is a single offending record, reported rather than raised so the
// caller can see every problem at once instead of stopping at the first.
type Issue struct {
	Table   string
	RowID   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s[%s]: %s", i.Table, i.RowID, i.Message)
}

// Report is the accumulated result of validating the four input tables
// and the five lookup tables.
type Report struct {
	Issues     []Issue
	ItemsEmpty bool
}

// HasErrors reports whether the run must be aborted. An empty actions or
// risks table is not an error; an empty items table is reported
// separately via ItemsEmpty, since it carries a distinct error code.
func (r Report) HasErrors() bool {
	return len(r.Issues) > 0
}

func (r *Report) add(table, rowID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Table: table, RowID: rowID, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the four project tables' structural invariants,
// cross-table referential integrity between them, and referential and
// structural integrity of the five lookup tables they point into.
func Validate(items []model.CapexItem, actions []model.CapexAction, risks []model.Risk, riskActions []model.RiskAction, lookups model.Lookups) Report {
	var report Report

	disciplineIDs, phaseIDs, locationIDs, riskCategoryIDs, riskLogIDs := validateLookups(&report, lookups)

	checkLookupRef := func(table, rowID, field, value string, known map[string]bool) {
		if value != "" && !known[value] {
			report.add(table, rowID, "dangling %s %q", field, value)
		}
	}

	itemIDs := map[string]bool{}
	for _, it := range items {
		if itemIDs[it.ItemID] {
			report.add("capex_items", it.ItemID, "duplicate item_id")
		}
		itemIDs[it.ItemID] = true

		if it.MinCost <= 0 {
			report.add("capex_items", it.ItemID, "min_cost must be > 0, got %v", it.MinCost)
		}
		if !(it.MinCost <= it.MLCost && it.MLCost <= it.MaxCost) {
			report.add("capex_items", it.ItemID, "expected min_cost(%v) <= ml_cost(%v) <= max_cost(%v)", it.MinCost, it.MLCost, it.MaxCost)
		}
		checkLookupRef("capex_items", it.ItemID, "discipline_id", it.Discipline, disciplineIDs)
		checkLookupRef("capex_items", it.ItemID, "phase_id", it.Phase, phaseIDs)
		checkLookupRef("capex_items", it.ItemID, "location_id", it.Location, locationIDs)
	}
	if len(items) == 0 {
		report.ItemsEmpty = true
	}

	actionIDs := map[string]bool{}
	for _, a := range actions {
		if actionIDs[a.ActionID] {
			report.add("capex_actions", a.ActionID, "duplicate action_id")
		}
		actionIDs[a.ActionID] = true

		if a.PMMinCost <= 0 {
			report.add("capex_actions", a.ActionID, "pm_min_cost must be > 0, got %v", a.PMMinCost)
		}
		if !(a.PMMinCost <= a.PMMLCost && a.PMMLCost <= a.PMMaxCost) {
			report.add("capex_actions", a.ActionID, "expected pm_min(%v) <= pm_ml(%v) <= pm_max(%v)", a.PMMinCost, a.PMMLCost, a.PMMaxCost)
		}
		if !itemIDs[a.ItemID] {
			report.add("capex_actions", a.ActionID, "dangling item_id %q", a.ItemID)
		}
		checkLookupRef("capex_actions", a.ActionID, "discipline_id", a.Discipline, disciplineIDs)
		checkLookupRef("capex_actions", a.ActionID, "phase_id", a.Phase, phaseIDs)
		checkLookupRef("capex_actions", a.ActionID, "location_id", a.Location, locationIDs)
	}

	riskIDs := map[string]bool{}
	for _, r := range risks {
		if riskIDs[r.RiskID] {
			report.add("risks", r.RiskID, "duplicate risk_id")
		}
		riskIDs[r.RiskID] = true

		if r.MinImpact < 0 {
			report.add("risks", r.RiskID, "min_impact must be >= 0, got %v", r.MinImpact)
		}
		if !(r.MinImpact <= r.MLImpact && r.MLImpact <= r.MaxImpact) {
			report.add("risks", r.RiskID, "expected min_impact(%v) <= ml_impact(%v) <= max_impact(%v)", r.MinImpact, r.MLImpact, r.MaxImpact)
		}
		if r.Probability < 0 || r.Probability > 1 {
			report.add("risks", r.RiskID, "probability must be in [0,1], got %v", r.Probability)
		}
		checkLookupRef("risks", r.RiskID, "discipline_id", r.Discipline, disciplineIDs)
		checkLookupRef("risks", r.RiskID, "phase_id", r.Phase, phaseIDs)
		checkLookupRef("risks", r.RiskID, "location_id", r.Location, locationIDs)
		checkLookupRef("risks", r.RiskID, "risk_category_id", r.RiskCategoryID, riskCategoryIDs)
		checkLookupRef("risks", r.RiskID, "risk_log_id", r.RiskLogID, riskLogIDs)
	}

	riskActionIDs := map[string]bool{}
	for _, ra := range riskActions {
		if riskActionIDs[ra.ActionID] {
			report.add("risk_actions", ra.ActionID, "duplicate action_id")
		}
		riskActionIDs[ra.ActionID] = true

		if ra.PMMinImpact < 0 {
			report.add("risk_actions", ra.ActionID, "pm_min_impact must be >= 0, got %v", ra.PMMinImpact)
		}
		if !(ra.PMMinImpact <= ra.PMMLImpact && ra.PMMLImpact <= ra.PMMaxImpact) {
			report.add("risk_actions", ra.ActionID, "expected pm_min(%v) <= pm_ml(%v) <= pm_max(%v)", ra.PMMinImpact, ra.PMMLImpact, ra.PMMaxImpact)
		}
		if ra.PMProbability < 0 || ra.PMProbability > 1 {
			report.add("risk_actions", ra.ActionID, "pm_probability must be in [0,1], got %v", ra.PMProbability)
		}
		if !riskIDs[ra.RiskID] {
			report.add("risk_actions", ra.ActionID, "dangling risk_id %q", ra.RiskID)
		}
	}

	return report
}

// validateLookups checks the five lookup tables for duplicate ids, phase
// ordinal uniqueness, and acyclic location parent chains, returning a set
// of known ids per table for the project tables' referential checks.
func validateLookups(report *Report, lookups model.Lookups) (disciplineIDs, phaseIDs, locationIDs, riskCategoryIDs, riskLogIDs map[string]bool) {
	disciplineIDs = uniqueIDs(report, "disciplines", lookups.Disciplines)
	riskCategoryIDs = uniqueIDs(report, "risk_categories", lookups.RiskCategories)
	riskLogIDs = uniqueIDs(report, "risk_logs", lookups.RiskLogs)

	phaseIDs = uniqueIDs(report, "phases", lookups.Phases)
	seenOrdinals := map[int]string{}
	for _, p := range lookups.Phases {
		if p.Ordinal == nil {
			continue
		}
		if other, ok := seenOrdinals[*p.Ordinal]; ok {
			report.add("phases", p.ID, "ordinal %d duplicates phase %q", *p.Ordinal, other)
			continue
		}
		seenOrdinals[*p.Ordinal] = p.ID
	}

	locationIDs = uniqueIDs(report, "locations", lookups.Locations)
	parentOf := map[string]string{}
	for _, loc := range lookups.Locations {
		if loc.ParentID != nil {
			parentOf[loc.ID] = *loc.ParentID
		}
	}
	for _, loc := range lookups.Locations {
		if cycleThrough(loc.ID, parentOf) {
			report.add("locations", loc.ID, "parent_id chain forms a cycle")
		}
	}

	return disciplineIDs, phaseIDs, locationIDs, riskCategoryIDs, riskLogIDs
}

// uniqueIDs reports a duplicate-id issue for any repeated id in rows and
// returns the set of ids seen, for use as a referential-integrity lookup.
func uniqueIDs(report *Report, table string, rows []model.LookupRow) map[string]bool {
	seen := map[string]bool{}
	for _, row := range rows {
		if seen[row.ID] {
			report.add(table, row.ID, "duplicate id")
		}
		seen[row.ID] = true
	}
	return seen
}

// cycleThrough walks the parent_id chain starting at id and reports
// whether it revisits a node, i.e. does not terminate at a root.
func cycleThrough(id string, parentOf map[string]string) bool {
	visited := map[string]bool{id: true}
	cur := id
	for {
		parent, ok := parentOf[cur]
		if !ok {
			return false
		}
		if visited[parent] {
			return true
		}
		visited[parent] = true
		cur = parent
	}
}
