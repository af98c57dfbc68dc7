// Package mitigate folds the latest applicable mitigation action into
// each CAPEX item's or risk's post-mitigation parameters at a given
// checkpoint date. It is a pure reduction: group by parent, keep the
// action with the greatest due date (ties broken by the greatest
// action_id), overwrite; rows without a kept action keep their base
// values.
package mitigate

import (
	"time"

	"capexrisk/pkg/model"
)

// keepLatestCapex returns, keyed by parent item id, the action to apply
// at checkpoint d: due_date <= d, greatest due_date, ties broken by
// greatest action_id.
func keepLatestCapex(actions []model.CapexAction, d time.Time) map[string]model.CapexAction {
	kept := map[string]model.CapexAction{}
	for _, a := range actions {
		if a.DueDate.After(d) {
			continue
		}
		if a.ItemID == "" {
			continue
		}
		cur, ok := kept[a.ItemID]
		if !ok || a.DueDate.After(cur.DueDate) || (a.DueDate.Equal(cur.DueDate) && a.ActionID > cur.ActionID) {
			kept[a.ItemID] = a
		}
	}
	return kept
}

func keepLatestRisk(actions []model.RiskAction, d time.Time) map[string]model.RiskAction {
	kept := map[string]model.RiskAction{}
	for _, a := range actions {
		if a.DueDate.After(d) {
			continue
		}
		if a.RiskID == "" {
			continue
		}
		cur, ok := kept[a.RiskID]
		if !ok || a.DueDate.After(cur.DueDate) || (a.DueDate.Equal(cur.DueDate) && a.ActionID > cur.ActionID) {
			kept[a.RiskID] = a
		}
	}
	return kept
}

// CapexItems returns a derived copy of items with PostMinCost/MLCost/
// MaxCost set to the latest applicable action's values, or the item's
// own base triple when no action applies yet.
func CapexItems(items []model.CapexItem, actions []model.CapexAction, checkpoint time.Time) []model.CapexItem {
	kept := keepLatestCapex(actions, checkpoint)
	out := make([]model.CapexItem, len(items))
	for i, item := range items {
		item.PostMinCost, item.PostMLCost, item.PostMaxCost = item.MinCost, item.MLCost, item.MaxCost
		if a, ok := kept[item.ItemID]; ok {
			item.PostMinCost, item.PostMLCost, item.PostMaxCost = a.PMMinCost, a.PMMLCost, a.PMMaxCost
		}
		out[i] = item
	}
	return out
}

// Risks returns a derived copy of risks with PostMinImpact/MLImpact/
// MaxImpact/Probability set to the latest applicable action's values,
// or the risk's own base values when no action applies yet.
func Risks(risks []model.Risk, actions []model.RiskAction, checkpoint time.Time) []model.Risk {
	kept := keepLatestRisk(actions, checkpoint)
	out := make([]model.Risk, len(risks))
	for i, r := range risks {
		r.PostMinImpact, r.PostMLImpact, r.PostMaxImpact, r.PostProbability = r.MinImpact, r.MLImpact, r.MaxImpact, r.Probability
		if a, ok := kept[r.RiskID]; ok {
			r.PostMinImpact, r.PostMLImpact, r.PostMaxImpact, r.PostProbability = a.PMMinImpact, a.PMMLImpact, a.PMMaxImpact, a.PMProbability
		}
		out[i] = r
	}
	return out
}

// NewlyDueCapex returns the actions whose due date falls in
// (since, until] (or (-inf, until] when since is nil), the set the
// checkpoint driver uses to decide whether a re-simulation is required.
func NewlyDueCapex(actions []model.CapexAction, since *time.Time, until time.Time) []model.CapexAction {
	var out []model.CapexAction
	for _, a := range actions {
		if a.DueDate.After(until) {
			continue
		}
		if since != nil && !a.DueDate.After(*since) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// NewlyDueRisk is NewlyDueCapex for risk actions.
func NewlyDueRisk(actions []model.RiskAction, since *time.Time, until time.Time) []model.RiskAction {
	var out []model.RiskAction
	for _, a := range actions {
		if a.DueDate.After(until) {
			continue
		}
		if since != nil && !a.DueDate.After(*since) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ActiveRisks returns the risks active at the given checkpoint: those
// with a nil log_date (always active) or log_date <= checkpoint.
func ActiveRisks(risks []model.Risk, checkpoint time.Time) []model.Risk {
	var out []model.Risk
	for _, r := range risks {
		if r.LogDate == nil || !r.LogDate.After(checkpoint) {
			out = append(out, r)
		}
	}
	return out
}
