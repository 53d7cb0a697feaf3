// Package store implements the engine's Catalog and RowStore over SQLite
// (modernc.org/sqlite) and PostgreSQL (pgx).
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dbadmin/internal/config"
	"github.com/JonMunkholm/dbadmin/internal/core"
)

// Open connects to the database named by cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Gateway, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "":
		return OpenSQLite(ctx, cfg.URL)
	case "postgres":
		return OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// dialect captures the statement differences between drivers.
type dialect struct {
	name        string
	placeholder func(n int) string
}

var (
	sqliteDialect   = dialect{name: "sqlite", placeholder: func(int) string { return "?" }}
	postgresDialect = dialect{name: "postgres", placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
)

// quoteIdentifier safely quotes a SQL identifier to prevent injection.
// Double quotes inside the identifier are escaped by doubling them.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteColumns quotes and comma-joins column names.
func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// whereBuilder accumulates equality conditions joined with AND.
// A nil value matches with IS NULL and consumes no argument.
type whereBuilder struct {
	d          dialect
	conditions []string
	args       []any
	argIndex   int
}

// newWhereBuilder starts numbering placeholders at argIndex.
func newWhereBuilder(d dialect, argIndex int) *whereBuilder {
	return &whereBuilder{d: d, argIndex: argIndex}
}

// Add appends col = value, or col IS NULL for nil.
func (wb *whereBuilder) Add(col string, val any) {
	if val == nil {
		wb.conditions = append(wb.conditions, quoteIdentifier(col)+" IS NULL")
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = %s", quoteIdentifier(col), wb.d.placeholder(wb.argIndex)))
	wb.args = append(wb.args, val)
	wb.argIndex++
}

// Build returns " WHERE ..." and its arguments, or "" when empty.
func (wb *whereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func selectSQL(table string, cols []string, limit int) string {
	q := "SELECT " + quoteColumns(cols) + " FROM " + quoteIdentifier(table)
	if limit > 0 {
		q += " LIMIT " + strconv.Itoa(limit)
	}
	return q
}

func countSQL(table string) string {
	return "SELECT COUNT(*) FROM " + quoteIdentifier(table)
}

func insertSQL(d dialect, table string, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(table), quoteColumns(cols), strings.Join(ph, ", "))
}

// updateSQL builds UPDATE ... SET every column ... WHERE matchCols equal matchVals.
func updateSQL(d dialect, table string, cols []string, row core.Row, matchCols []string, matchVals []any) (string, []any) {
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(matchVals))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", quoteIdentifier(c), d.placeholder(i+1))
		args = append(args, row[i])
	}

	wb := newWhereBuilder(d, len(cols)+1)
	for i, c := range matchCols {
		wb.Add(c, matchVals[i])
	}
	where, whereArgs := wb.Build()

	q := "UPDATE " + quoteIdentifier(table) + " SET " + strings.Join(sets, ", ") + where
	return q, append(args, whereArgs...)
}

// deleteSQL builds DELETE ... WHERE matchCols equal matchVals.
func deleteSQL(d dialect, table string, matchCols []string, matchVals []any) (string, []any) {
	wb := newWhereBuilder(d, 1)
	for i, c := range matchCols {
		wb.Add(c, matchVals[i])
	}
	where, args := wb.Build()
	return "DELETE FROM " + quoteIdentifier(table) + where, args
}

func checkShape(table string, cols []string, row core.Row) error {
	if len(row) != len(cols) {
		return fmt.Errorf("%w: table %s has %d columns, got %d values",
			core.ErrRowShape, table, len(cols), len(row))
	}
	return nil
}

// normalizeValue converts driver values to the engine's plain types.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
