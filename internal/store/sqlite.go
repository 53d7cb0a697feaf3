package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/JonMunkholm/dbadmin/internal/core"
)

// SQLite is a Gateway over a SQLite database file.
type SQLite struct {
	db   *sql.DB
	name string
}

// OpenSQLite opens path with foreign key enforcement enabled.
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=foreign_keys(1)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if path == ":memory:" {
		name = "memory"
	}
	return NewSQLite(db, name), nil
}

// NewSQLite wraps an open database handle.
func NewSQLite(db *sql.DB, name string) *SQLite {
	return &SQLite{db: db, name: name}
}

// DB exposes the handle for schema setup.
func (s *SQLite) DB() *sql.DB { return s.db }

// Name returns the database name.
func (s *SQLite) Name() string { return s.name }

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ListTables returns user tables in creation order.
func (s *SQLite) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`)
	if err != nil {
		return nil, core.NewStorageError("list tables", "", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, core.NewStorageError("list tables", "", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("list tables", "", err)
	}
	return tables, nil
}

// DescribeTable reads PRAGMA table_info and foreign_key_list.
func (s *SQLite) DescribeTable(ctx context.Context, table string) (core.TableDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdentifier(table)+")")
	if err != nil {
		return core.TableDescriptor{}, core.NewStorageError("describe", table, err)
	}
	defer rows.Close()

	desc := core.TableDescriptor{Name: table}
	var pks []string
	for rows.Next() {
		var (
			cid      int
			name     string
			declType sql.NullString
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return core.TableDescriptor{}, core.NewStorageError("describe", table, err)
		}
		desc.Columns = append(desc.Columns, core.ColumnDescriptor{
			Name:       name,
			Ordinal:    cid,
			Type:       core.ClassifyType(declType.String),
			NotNull:    notNull != 0,
			PrimaryKey: pk > 0,
		})
		if pk > 0 {
			pks = append(pks, name)
		}
	}
	if err := rows.Err(); err != nil {
		return core.TableDescriptor{}, core.NewStorageError("describe", table, err)
	}
	if len(desc.Columns) == 0 {
		return core.TableDescriptor{}, core.UnknownTable(table)
	}
	if len(pks) == 1 {
		desc.PrimaryKey = pks[0]
	}

	fks, err := s.foreignKeys(ctx, table)
	if err != nil {
		return core.TableDescriptor{}, err
	}
	desc.ForeignKeys = fks
	return desc, nil
}

func (s *SQLite) foreignKeys(ctx context.Context, table string) ([]core.ForeignKeyInfo, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdentifier(table)+")")
	if err != nil {
		return nil, core.NewStorageError("describe", table, err)
	}
	defer rows.Close()

	var fks []core.ForeignKeyInfo
	for rows.Next() {
		var (
			id, seq                     int
			refTable, from              string
			to                          sql.NullString
			onUpdate, onDelete, matchBy string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matchBy); err != nil {
			return nil, core.NewStorageError("describe", table, err)
		}
		fks = append(fks, core.ForeignKeyInfo{Column: from, RefTable: refTable, RefColumn: to.String})
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("describe", table, err)
	}
	return fks, nil
}

// SelectAll returns every row in storage order.
func (s *SQLite) SelectAll(ctx context.Context, table string, columns []string) ([]core.Row, error) {
	return s.query(ctx, "select", table, selectSQL(table, columns, 0))
}

// SampleRows returns up to limit rows.
func (s *SQLite) SampleRows(ctx context.Context, table string, columns []string, limit int) ([]core.Row, error) {
	if limit <= 0 {
		return []core.Row{}, nil
	}
	return s.query(ctx, "sample", table, selectSQL(table, columns, limit))
}

// CountRows returns the number of rows.
func (s *SQLite) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countSQL(table)).Scan(&n); err != nil {
		return 0, core.NewStorageError("count", table, err)
	}
	return n, nil
}

// Insert adds one row.
func (s *SQLite) Insert(ctx context.Context, table string, columns []string, row core.Row) error {
	if err := checkShape(table, columns, row); err != nil {
		return err
	}
	_, err := s.exec(ctx, "insert", table, insertSQL(sqliteDialect, table, columns), row)
	return err
}

// UpdateWhereEquals overwrites every row fully equal to match.
func (s *SQLite) UpdateWhereEquals(ctx context.Context, table string, columns []string, row, match core.Row) (int64, error) {
	if err := checkShape(table, columns, row); err != nil {
		return 0, err
	}
	if err := checkShape(table, columns, match); err != nil {
		return 0, err
	}
	q, args := updateSQL(sqliteDialect, table, columns, row, columns, match)
	return s.exec(ctx, "update", table, q, args)
}

// DeleteWhereEquals removes every row fully equal to match.
func (s *SQLite) DeleteWhereEquals(ctx context.Context, table string, columns []string, match core.Row) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%w: no columns to match on", core.ErrRowShape)
	}
	if err := checkShape(table, columns, match); err != nil {
		return 0, err
	}
	q, args := deleteSQL(sqliteDialect, table, columns, match)
	return s.exec(ctx, "delete", table, q, args)
}

// UpdateByKey overwrites the row whose keyColumn equals key.
func (s *SQLite) UpdateByKey(ctx context.Context, table string, columns []string, keyColumn string, key any, row core.Row) (int64, error) {
	if err := checkShape(table, columns, row); err != nil {
		return 0, err
	}
	q, args := updateSQL(sqliteDialect, table, columns, row, []string{keyColumn}, []any{key})
	return s.exec(ctx, "update", table, q, args)
}

// DeleteByKey removes the row whose keyColumn equals key.
func (s *SQLite) DeleteByKey(ctx context.Context, table, keyColumn string, key any) (int64, error) {
	q, args := deleteSQL(sqliteDialect, table, []string{keyColumn}, []any{key})
	return s.exec(ctx, "delete", table, q, args)
}

func (s *SQLite) query(ctx context.Context, op, table, q string) ([]core.Row, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, s.classify(op, table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, core.NewStorageError(op, table, err)
	}

	out := []core.Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, core.NewStorageError(op, table, err)
		}
		row := make(core.Row, len(vals))
		for i, v := range vals {
			row[i] = normalizeValue(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError(op, table, err)
	}
	return out, nil
}

// exec runs one statement in its own transaction. Any failure rolls back.
func (s *SQLite) exec(ctx context.Context, op, table, q string, args []any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.classify(op, table, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, s.classify(op, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.classify(op, table, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, s.classify(op, table, err)
	}
	return n, nil
}

// classify maps driver errors onto *core.StorageError. A missing table
// becomes ErrUnknownTable.
func (s *SQLite) classify(op, table string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return core.UnknownTable(table)
	}
	return core.NewStorageError(op, table, err)
}
