package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// MaxBindParams is the most placeholders one Postgres statement may carry.
const MaxBindParams = 65535

// InsertRows inserts row mappings into table with one multi-row INSERT.
// The column list is the sorted union of all mapping keys; a mapping that
// lacks a column gets DEFAULT for it. Returns the number of rows inserted.
// Large batches belong in CopyMappings: a statement is capped at
// MaxBindParams placeholders.
func InsertRows(ctx context.Context, q Querier, table string, rows []map[string]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	columns := unionKeys(rows)
	if len(columns) == 0 {
		return 0, eris.Errorf("db: insert into %s: no columns", table)
	}
	if n := len(rows) * len(columns); n > MaxBindParams {
		return 0, eris.Errorf("db: insert into %s: %d parameters exceeds %d, use CopyMappings", table, n, MaxBindParams)
	}

	args := make([]any, 0, len(rows)*len(columns))
	tuples := make([]string, len(rows))
	for i, row := range rows {
		values := make([]string, len(columns))
		for j, col := range columns {
			v, ok := row[col]
			if !ok {
				values[j] = "DEFAULT"
				continue
			}
			args = append(args, v)
			values[j] = fmt.Sprintf("$%d", len(args))
		}
		tuples[i] = "(" + strings.Join(values, ", ") + ")"
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		SanitizeTable(table), quoteAndJoin(columns), strings.Join(tuples, ", "))

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "db: insert into %s", table)
	}
	return tag.RowsAffected(), nil
}

// UpdateRows sets the columns in set on every row of table matching all of
// the equality conditions in where. Returns the number of rows updated.
func UpdateRows(ctx context.Context, q Querier, table string, set, where map[string]any) (int64, error) {
	if len(set) == 0 {
		return 0, nil
	}
	if len(where) == 0 {
		return 0, eris.Errorf("db: update %s: no conditions", table)
	}

	args := make([]any, 0, len(set)+len(where))
	setCols := sortedKeys(set)
	assignments := make([]string, len(setCols))
	for i, col := range setCols {
		args = append(args, set[col])
		assignments[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), len(args))
	}

	cond, whereArgs := WhereEqual(where, len(args))
	args = append(args, whereArgs...)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		SanitizeTable(table), strings.Join(assignments, ", "), cond)

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "db: update %s", table)
	}
	return tag.RowsAffected(), nil
}

// DeleteRows deletes every row of table matching all equality conditions in
// where. Returns the number of rows deleted.
func DeleteRows(ctx context.Context, q Querier, table string, where map[string]any) (int64, error) {
	if len(where) == 0 {
		return 0, eris.Errorf("db: delete from %s: no conditions", table)
	}
	cond, args := WhereEqual(where, 0)
	tag, err := q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", SanitizeTable(table), cond), args...)
	if err != nil {
		return 0, eris.Wrapf(err, "db: delete from %s", table)
	}
	return tag.RowsAffected(), nil
}

// Exists reports whether table holds a row matching all equality conditions in where.
func Exists(ctx context.Context, q Querier, table string, where map[string]any) (bool, error) {
	cond, args := WhereEqual(where, 0)
	var exists bool
	err := q.QueryRow(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)", SanitizeTable(table), cond),
		args...,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "db: exists in %s", table)
	}
	return exists, nil
}

// WhereEqual renders an AND of column equalities over the sorted keys of
// where, numbering placeholders after offset. It returns the clause and its args.
func WhereEqual(where map[string]any, offset int) (string, []any) {
	cols := sortedKeys(where)
	conditions := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = where[col]
		conditions[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), offset+i+1)
	}
	return strings.Join(conditions, " AND "), args
}

// Chunks splits rows into consecutive slices of at most size elements.
// A size of zero or less yields a single chunk holding every row.
func Chunks[T any](rows []T, size int) [][]T {
	if len(rows) == 0 {
		return nil
	}
	if size <= 0 || size >= len(rows) {
		return [][]T{rows}
	}
	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

func unionKeys(rows []map[string]any) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TableIdentifier splits a possibly schema-qualified name like "stac.items".
func TableIdentifier(table string) pgx.Identifier {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}
	}
	return pgx.Identifier{table}
}

// SanitizeTable quotes a table name, handling schema-qualified names like "stac.items".
func SanitizeTable(table string) string {
	return TableIdentifier(table).Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
