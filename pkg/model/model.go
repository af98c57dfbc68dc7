// Package model defines the canonical, typed records the engine operates
// on. Raw rows from a loader arrive as untyped maps and are converted to
// these types by pkg/normalize; nothing downstream of normalization deals
// with aliasing or missing columns again.
package model

import "time"

// CapexItem is a single CAPEX cost line.
type CapexItem struct {
	ItemID     string
	Name       string
	MinCost    float64
	MLCost     float64
	MaxCost    float64
	Owner      string // optional categorical key, "" when absent
	Discipline string // discipline_id
	Phase      string // phase_id
	Location   string // location_id

	// PostMitigation mirrors MinCost/MLCost/MaxCost but reflects the
	// latest applicable CapexAction at a given checkpoint. Populated by
	// pkg/mitigate; zero value until then.
	PostMinCost float64
	PostMLCost  float64
	PostMaxCost float64
}

// CapexAction is a mitigation action attached to a CapexItem.
type CapexAction struct {
	ActionID  string
	ItemID    string
	Name      string
	DueDate   time.Time
	PMMinCost float64
	PMMLCost  float64
	PMMaxCost float64
	Owner     string
	Discipline string
	Phase     string
	Location   string
}

// Risk is a logged risk event.
type Risk struct {
	RiskID         string
	Name           string
	MinImpact      float64
	MLImpact       float64
	MaxImpact      float64
	Probability    float64
	LogDate        *time.Time // nil means "always active"
	Owner          string
	Discipline     string
	Phase          string
	Location       string
	RiskCategoryID string
	RiskLogID      string

	PostMinImpact   float64
	PostMLImpact    float64
	PostMaxImpact   float64
	PostProbability float64
}

// RiskAction is a mitigation action attached to a Risk.
type RiskAction struct {
	ActionID       string
	RiskID         string
	Name           string
	DueDate        time.Time
	PMMinImpact    float64
	PMMLImpact     float64
	PMMaxImpact    float64
	PMProbability  float64
}

// LookupRow is a single row of any of the five lookup tables
// (disciplines, phases, locations, risk_categories, risk_logs).
type LookupRow struct {
	ID       string
	Name     string
	Ordinal  *int    // phases only
	ParentID *string // locations only
}

// Lookups bundles the five read-only, process-cacheable lookup tables.
type Lookups struct {
	Disciplines    []LookupRow
	Phases         []LookupRow
	Locations      []LookupRow
	RiskCategories []LookupRow
	RiskLogs       []LookupRow
}

// PhaseOrdinal returns the ordinal for a phase id, and whether it was found.
func (l Lookups) PhaseOrdinal(phaseID string) (int, bool) {
	if phaseID == "" {
		return 0, false
	}
	for _, p := range l.Phases {
		if p.ID == phaseID && p.Ordinal != nil {
			return *p.Ordinal, true
		}
	}
	return 0, false
}

// LocationParent returns the parent_id of a location, and whether it has one.
func (l Lookups) LocationParent(locationID string) (string, bool) {
	if locationID == "" {
		return "", false
	}
	for _, loc := range l.Locations {
		if loc.ID == locationID && loc.ParentID != nil {
			return *loc.ParentID, true
		}
	}
	return "", false
}

// RiskCategoryName returns the human-readable name of a risk category id.
func (l Lookups) RiskCategoryName(categoryID string) (string, bool) {
	if categoryID == "" {
		return "", false
	}
	for _, c := range l.RiskCategories {
		if c.ID == categoryID {
			return c.Name, true
		}
	}
	return "", false
}

// Kind distinguishes the two families of correlatable entities.
type Kind int

const (
	KindCapex Kind = iota
	KindRisk
)

// Correlatable is the polymorphic capability the correlation builder
// consumes, exposing the optional categorical keys uniformly across
// CapexItem and Risk.
type Correlatable struct {
	Kind           Kind
	ID             string
	Owner          string
	Discipline     string
	Phase          string
	Location       string
	RiskCategoryID string // zero value for CAPEX
	RiskLogID      string // zero value for CAPEX
}

// CapexCorrelatable adapts a CapexItem to the Correlatable capability.
func CapexCorrelatable(item CapexItem) Correlatable {
	return Correlatable{
		Kind:       KindCapex,
		ID:         item.ItemID,
		Owner:      item.Owner,
		Discipline: item.Discipline,
		Phase:      item.Phase,
		Location:   item.Location,
	}
}

// RiskCorrelatable adapts a Risk to the Correlatable capability.
func RiskCorrelatable(r Risk) Correlatable {
	return Correlatable{
		Kind:           KindRisk,
		ID:             r.RiskID,
		Owner:          r.Owner,
		Discipline:     r.Discipline,
		Phase:          r.Phase,
		Location:       r.Location,
		RiskCategoryID: r.RiskCategoryID,
		RiskLogID:      r.RiskLogID,
	}
}
