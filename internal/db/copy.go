package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into table using the PostgreSQL COPY protocol.
// table may be schema-qualified. Values are sent in binary format, so a
// PostGIS geometry column takes EWKB as []byte.
func CopyFrom(ctx context.Context, q Querier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := q.CopyFrom(ctx, TableIdentifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// CopyMappings COPYs row mappings into table. Unlike InsertRows there is no
// parameter cap, but a column missing from a mapping is loaded as NULL
// rather than its DEFAULT.
func CopyMappings(ctx context.Context, q Querier, table string, rows []map[string]any) (int64, error) {
	columns, values := MappingRows(rows)
	if len(rows) > 0 && len(columns) == 0 {
		return 0, eris.Errorf("db: COPY INTO %s: no columns", table)
	}
	return CopyFrom(ctx, q, table, columns, values)
}

// MappingRows flattens row mappings into COPY input: the sorted union of
// keys as columns, and one value slice per mapping with nil for absent keys.
func MappingRows(rows []map[string]any) ([]string, [][]any) {
	columns := unionKeys(rows)
	values := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(columns))
		for j, col := range columns {
			vals[j] = row[col]
		}
		values[i] = vals
	}
	return columns, values
}
