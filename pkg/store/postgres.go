// Package store is the optional Postgres-backed implementation of the
// engine's loader interfaces: it fetches the four project tables and the
// five lookup tables as plain rows and hands them to pkg/normalize
// untouched, keeping the schema-aliasing concern entirely out of the
// storage layer.
package store

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"capexrisk/pkg/normalize"
)

// PostgresLoader implements engine.ProjectLoader and engine.LookupLoader
// against a pgxpool connection pool, one loader per run rather than a
// shared package-level singleton: a long-lived batch process can run
// several projects' simulations concurrently against independently
// closeable pools.
type PostgresLoader struct {
	pool *pgxpool.Pool
}

// NewPostgresLoader wraps an already-open pool.
func NewPostgresLoader(pool *pgxpool.Pool) *PostgresLoader {
	return &PostgresLoader{pool: pool}
}

// OpenPostgresLoader parses DATABASE_URL and opens a new connection pool
// for it, returning a ready-to-use loader.
func OpenPostgresLoader(ctx context.Context) (*PostgresLoader, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("opening database pool: %w", err)
	}
	return NewPostgresLoader(pool), nil
}

// Close releases the loader's connection pool.
func (l *PostgresLoader) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}

func (l *PostgresLoader) queryRows(ctx context.Context, query string, args ...any) ([]normalize.Row, error) {
	if l.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = fmt.Sprintf("%s", f.Name)
	}

	var out []normalize.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(normalize.Row, len(values))
		for i, v := range values {
			if i < len(names) {
				row[names[i]] = v
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// LoadProject fetches the four project tables for a project id. Each
// query orders by its table's natural id so that row order - and
// therefore the correlation matrix's and sample matrix's column
// assignment - is stable across calls against the same data.
func (l *PostgresLoader) LoadProject(ctx context.Context, projectID string) (items, actions, risks, riskActions []normalize.Row, err error) {
	items, err = l.queryRows(ctx, `SELECT * FROM capex_items WHERE project_id = $1 ORDER BY item_id`, projectID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading capex_items: %w", err)
	}
	actions, err = l.queryRows(ctx, `SELECT * FROM capex_actions WHERE project_id = $1 ORDER BY action_id`, projectID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading capex_actions: %w", err)
	}
	risks, err = l.queryRows(ctx, `SELECT * FROM risks WHERE project_id = $1 ORDER BY risk_id`, projectID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading risks: %w", err)
	}
	riskActions, err = l.queryRows(ctx, `SELECT * FROM risk_actions WHERE project_id = $1 ORDER BY action_id`, projectID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading risk_actions: %w", err)
	}
	return items, actions, risks, riskActions, nil
}

// LoadLookups fetches the five process-cacheable lookup tables, each
// ordered by id for the same row-stability reason as LoadProject.
func (l *PostgresLoader) LoadLookups(ctx context.Context) (disciplines, phases, locations, riskCategories, riskLogs []normalize.Row, err error) {
	disciplines, err = l.queryRows(ctx, `SELECT * FROM disciplines ORDER BY id`)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("loading disciplines: %w", err)
	}
	phases, err = l.queryRows(ctx, `SELECT * FROM phases ORDER BY id`)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("loading phases: %w", err)
	}
	locations, err = l.queryRows(ctx, `SELECT * FROM locations ORDER BY id`)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("loading locations: %w", err)
	}
	riskCategories, err = l.queryRows(ctx, `SELECT * FROM risk_categories ORDER BY id`)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("loading risk_categories: %w", err)
	}
	riskLogs, err = l.queryRows(ctx, `SELECT * FROM risk_logs ORDER BY id`)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("loading risk_logs: %w", err)
	}
	return disciplines, phases, locations, riskCategories, riskLogs, nil
}
