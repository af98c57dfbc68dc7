// Package normalize coerces external, loosely-typed rows into the
// canonical, typed records in pkg/model. It is the single place in the
// engine that tolerates column aliasing; everything downstream keys by
// the canonical field names only.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"capexrisk/pkg/model"
	"capexrisk/pkg/validate"
)

// Row is a single external record, as handed back by a loader: an
// untyped map keyed by whatever column names the source system uses.
type Row map[string]any

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// parseDate parses a date-like value at day granularity. Returns
// (time, true) on success, (zero, false) if the value is missing or
// cannot be parsed.
func parseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return truncateToDay(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return truncateToDay(parsed), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func firstOf(row Row, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(row Row, keys ...string) string {
	v, ok := firstOf(row, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func num(row Row, keys ...string) (float64, bool) {
	v, ok := firstOf(row, keys...)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func date(row Row, keys ...string) (time.Time, bool) {
	v, ok := firstOf(row, keys...)
	if !ok {
		return time.Time{}, false
	}
	return parseDate(v)
}

// Result bundles the normalized tables alongside any rows that could not
// be normalized, reported as validation issues rather than dropped
// silently.
type Result struct {
	Items       []model.CapexItem
	Actions     []model.CapexAction
	Risks       []model.Risk
	RiskActions []model.RiskAction
	Issues      []validate.Issue
}

// Items normalizes raw CAPEX item rows. Canonical columns: item_id,
// name, min_cost, ml_cost, max_cost, owner, discipline_id, phase_id,
// location_id. Aliases: id, min, ml, max.
func Items(rows []Row) ([]model.CapexItem, []validate.Issue) {
	var items []model.CapexItem
	var issues []validate.Issue
	for i, row := range rows {
		id := str(row, "item_id", "id")
		if id == "" {
			issues = append(issues, validate.Issue{Table: "capex_items", RowID: fmt.Sprintf("row[%d]", i), Message: "missing item_id"})
			continue
		}
		min, minOK := num(row, "min_cost", "min")
		ml, mlOK := num(row, "ml_cost", "ml", "most_likely_cost")
		max, maxOK := num(row, "max_cost", "max")
		if !minOK || !mlOK || !maxOK {
			issues = append(issues, validate.Issue{Table: "capex_items", RowID: id, Message: "missing or unparseable cost triplet"})
			continue
		}
		items = append(items, model.CapexItem{
			ItemID:     id,
			Name:       str(row, "name"),
			MinCost:    min,
			MLCost:     ml,
			MaxCost:    max,
			Owner:      str(row, "owner"),
			Discipline: str(row, "discipline_id", "discipline"),
			Phase:      str(row, "phase_id", "phase"),
			Location:   str(row, "location_id", "location"),
		})
	}
	return items, issues
}

// Actions normalizes raw CAPEX action rows. Canonical columns:
// action_id, item_id, name, due_date, pm_min_cost, pm_ml_cost,
// pm_max_cost. Aliases: id, due, cost_action_due (the original system's
// column name for this field), pm_min, pm_ml, pm_max.
func Actions(rows []Row) ([]model.CapexAction, []validate.Issue) {
	var actions []model.CapexAction
	var issues []validate.Issue
	for i, row := range rows {
		id := str(row, "action_id", "id")
		if id == "" {
			issues = append(issues, validate.Issue{Table: "capex_actions", RowID: fmt.Sprintf("row[%d]", i), Message: "missing action_id"})
			continue
		}
		due, dueOK := date(row, "due_date", "due", "cost_action_due")
		if !dueOK {
			issues = append(issues, validate.Issue{Table: "capex_actions", RowID: id, Message: "missing or unparseable due_date"})
			continue
		}
		min, minOK := num(row, "pm_min_cost", "pm_min")
		ml, mlOK := num(row, "pm_ml_cost", "pm_ml")
		max, maxOK := num(row, "pm_max_cost", "pm_max")
		if !minOK || !mlOK || !maxOK {
			issues = append(issues, validate.Issue{Table: "capex_actions", RowID: id, Message: "missing or unparseable post-mitigation cost triplet"})
			continue
		}
		actions = append(actions, model.CapexAction{
			ActionID:   id,
			ItemID:     str(row, "item_id"),
			Name:       str(row, "name"),
			DueDate:    due,
			PMMinCost:  min,
			PMMLCost:   ml,
			PMMaxCost:  max,
			Owner:      str(row, "owner"),
			Discipline: str(row, "discipline_id", "discipline"),
			Phase:      str(row, "phase_id", "phase"),
			Location:   str(row, "location_id", "location"),
		})
	}
	return actions, issues
}

// Risks normalizes raw risk rows. Canonical columns: risk_id, name,
// min_impact, ml_impact, max_impact, probability, log_date,
// risk_category_id, risk_log_id. Aliases: id, min, ml, max, prob,
// risk_probability, risk_log.
func Risks(rows []Row) ([]model.Risk, []validate.Issue) {
	var risks []model.Risk
	var issues []validate.Issue
	for i, row := range rows {
		id := str(row, "risk_id", "id")
		if id == "" {
			issues = append(issues, validate.Issue{Table: "risks", RowID: fmt.Sprintf("row[%d]", i), Message: "missing risk_id"})
			continue
		}
		min, minOK := num(row, "min_impact", "min")
		ml, mlOK := num(row, "ml_impact", "ml")
		max, maxOK := num(row, "max_impact", "max")
		prob, probOK := num(row, "probability", "prob", "risk_probability")
		if !minOK || !mlOK || !maxOK || !probOK {
			issues = append(issues, validate.Issue{Table: "risks", RowID: id, Message: "missing or unparseable impact triplet or probability"})
			continue
		}
		var logDate *time.Time
		if d, ok := date(row, "log_date", "risk_log"); ok {
			logDate = &d
		}
		risks = append(risks, model.Risk{
			RiskID:         id,
			Name:           str(row, "name"),
			MinImpact:      min,
			MLImpact:       ml,
			MaxImpact:      max,
			Probability:    prob,
			LogDate:        logDate,
			Owner:          str(row, "owner"),
			Discipline:     str(row, "discipline_id", "discipline"),
			Phase:          str(row, "phase_id", "phase"),
			Location:       str(row, "location_id", "location"),
			RiskCategoryID: str(row, "risk_category_id", "risk_category"),
			RiskLogID:      str(row, "risk_log_id"),
		})
	}
	return risks, issues
}

// RiskActions normalizes raw risk-action rows. Canonical columns:
// action_id, risk_id, name, due_date, pm_min_impact, pm_ml_impact,
// pm_max_impact, pm_probability. Aliases: id, due, risk_action_due,
// pm_min, pm_ml, pm_max, pm_risk_probability.
func RiskActions(rows []Row) ([]model.RiskAction, []validate.Issue) {
	var actions []model.RiskAction
	var issues []validate.Issue
	for i, row := range rows {
		id := str(row, "action_id", "id")
		if id == "" {
			issues = append(issues, validate.Issue{Table: "risk_actions", RowID: fmt.Sprintf("row[%d]", i), Message: "missing action_id"})
			continue
		}
		due, dueOK := date(row, "due_date", "due", "risk_action_due")
		if !dueOK {
			issues = append(issues, validate.Issue{Table: "risk_actions", RowID: id, Message: "missing or unparseable due_date"})
			continue
		}
		min, minOK := num(row, "pm_min_impact", "pm_min")
		ml, mlOK := num(row, "pm_ml_impact", "pm_ml")
		max, maxOK := num(row, "pm_max_impact", "pm_max")
		prob, probOK := num(row, "pm_probability", "pm_risk_probability")
		if !minOK || !mlOK || !maxOK || !probOK {
			issues = append(issues, validate.Issue{Table: "risk_actions", RowID: id, Message: "missing or unparseable post-mitigation impact triplet or probability"})
			continue
		}
		actions = append(actions, model.RiskAction{
			ActionID:      id,
			RiskID:        str(row, "risk_id"),
			Name:          str(row, "name"),
			DueDate:       due,
			PMMinImpact:   min,
			PMMLImpact:    ml,
			PMMaxImpact:   max,
			PMProbability: prob,
		})
	}
	return actions, issues
}

// All normalizes all four tables in one call.
func All(items, actions, risks, riskActions []Row) Result {
	var result Result
	var issues []validate.Issue

	normItems, itemIssues := Items(items)
	result.Items = normItems
	issues = append(issues, itemIssues...)

	normActions, actionIssues := Actions(actions)
	result.Actions = normActions
	issues = append(issues, actionIssues...)

	normRisks, riskIssues := Risks(risks)
	result.Risks = normRisks
	issues = append(issues, riskIssues...)

	normRiskActions, riskActionIssues := RiskActions(riskActions)
	result.RiskActions = normRiskActions
	issues = append(issues, riskActionIssues...)

	result.Issues = issues
	return result
}

// Lookup normalizes a single lookup table's rows (disciplines, phases,
// locations, risk_categories, risk_logs). ordinal and parent_id are
// optional; only phases use the former and only locations use the latter.
func Lookup(rows []Row) []model.LookupRow {
	var out []model.LookupRow
	for _, row := range rows {
		id := str(row, "id")
		if id == "" {
			continue
		}
		lr := model.LookupRow{ID: id, Name: str(row, "name")}
		if o, ok := num(row, "ordinal"); ok {
			oi := int(o)
			lr.Ordinal = &oi
		}
		if p, ok := firstOf(row, "parent_id"); ok {
			if ps := fmt.Sprintf("%v", p); ps != "" {
				lr.ParentID = &ps
			}
		}
		out = append(out, lr)
	}
	return out
}
