package plugin

import (
	"context"

	"github.com/opsward/opsward/internal/dbgate"
)

// hostDB adapts a namespaced dbgate.Handle to the pluginsdk.DB interface.
// The raw connection never crosses this boundary.
type hostDB struct {
	handle *dbgate.Handle
}

func (d *hostDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.handle.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (d *hostDB) QueryRows(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := d.handle.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
