package sqlgen

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/annotations"
)

// RowFunc decodes the current row into an entity. The row's columns arrive
// in the compiler's Columns order.
type RowFunc[T any] func(rows *sql.Rows) (T, error)

// Select compiles the specification, executes it, and decodes the rows.
// Read-only hints are moot here; a SELECT never tracks anything.
func (c *Compiler[T]) Select(ctx context.Context, db *sql.DB, spec *queryspec.Spec[T], scan RowFunc[T]) ([]T, error) {
	return c.SelectWithHandler(ctx, db, spec, scan, nil)
}

// SelectWithHandler is Select with annotation events for the compile and
// the execution. A nil handler collects nothing.
func (c *Compiler[T]) SelectWithHandler(ctx context.Context, db *sql.DB, spec *queryspec.Spec[T], scan RowFunc[T], handler annotations.Handler) ([]T, error) {
	collector := annotations.NewCollector(handler)

	start := time.Now()
	query, params, err := c.Compile(spec)
	if err != nil {
		return nil, err
	}
	collector.AddTiming(annotations.SQLCompiled, start, map[string]interface{}{
		"sql": query,
	})

	execStart := time.Now()
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	collector.AddTiming(annotations.SQLExecuted, execStart, map[string]interface{}{
		"sql":       query,
		"row.count": len(out),
	})
	return out, nil
}
