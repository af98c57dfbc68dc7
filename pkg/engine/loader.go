package engine

import (
	"context"

	"capexrisk/pkg/normalize"
)

// ProjectLoader is the synchronous loader contract the engine consumes.
// It does not care how the four project tables were obtained — a flat
// file, Postgres, an API — only that they come back as loose row maps.
type ProjectLoader interface {
	LoadProject(ctx context.Context, projectID string) (items, actions, risks, riskActions []normalize.Row, err error)
}

// LookupLoader supplies the five read-only, process-cacheable lookup
// tables used to resolve categorical ids to names and structure.
type LookupLoader interface {
	LoadLookups(ctx context.Context) (disciplines, phases, locations, riskCategories, riskLogs []normalize.Row, err error)
}
