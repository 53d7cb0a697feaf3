package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/dbadmin/internal/config"
	"github.com/JonMunkholm/dbadmin/internal/core"
)

// PostgreSQL error codes handled specially.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUndefinedTable = "42P01"
)

// Postgres is a Gateway over the current schema of a PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
	name string
}

// OpenPostgres creates a connection pool from cfg and verifies it.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool, name: poolConfig.ConnConfig.Database}, nil
}

// Name returns the database name.
func (p *Postgres) Name() string { return p.name }

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// ListTables returns base tables of the current schema by name.
func (p *Postgres) ListTables(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, classifyPg("list tables", "", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classifyPg("list tables", "", err)
	}
	return tables, nil
}

// DescribeTable reads columns, primary key and foreign keys from
// information_schema.
func (p *Postgres) DescribeTable(ctx context.Context, table string) (core.TableDescriptor, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'NO', ordinal_position
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return core.TableDescriptor{}, classifyPg("describe", table, err)
	}

	desc := core.TableDescriptor{Name: table}
	var (
		name     string
		dataType string
		notNull  bool
		ordinal  int32
	)
	_, err = pgx.ForEachRow(rows, []any{&name, &dataType, &notNull, &ordinal}, func() error {
		desc.Columns = append(desc.Columns, core.ColumnDescriptor{
			Name:    name,
			Ordinal: int(ordinal) - 1,
			Type:    core.ClassifyType(dataType),
			NotNull: notNull,
		})
		return nil
	})
	if err != nil {
		return core.TableDescriptor{}, classifyPg("describe", table, err)
	}
	if len(desc.Columns) == 0 {
		return core.TableDescriptor{}, core.UnknownTable(table)
	}

	pks, err := p.primaryKey(ctx, table)
	if err != nil {
		return core.TableDescriptor{}, err
	}
	for i := range desc.Columns {
		for _, pk := range pks {
			if desc.Columns[i].Name == pk {
				desc.Columns[i].PrimaryKey = true
			}
		}
	}
	if len(pks) == 1 {
		desc.PrimaryKey = pks[0]
	}

	fks, err := p.foreignKeys(ctx, table)
	if err != nil {
		return core.TableDescriptor{}, err
	}
	desc.ForeignKeys = fks
	return desc, nil
}

func (p *Postgres) primaryKey(ctx context.Context, table string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = current_schema()
		  AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`, table)
	if err != nil {
		return nil, classifyPg("describe", table, err)
	}
	pks, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classifyPg("describe", table, err)
	}
	return pks, nil
}

func (p *Postgres) foreignKeys(ctx context.Context, table string) ([]core.ForeignKeyInfo, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = current_schema()
		  AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`, table)
	if err != nil {
		return nil, classifyPg("describe", table, err)
	}
	fks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ForeignKeyInfo, error) {
		var fk core.ForeignKeyInfo
		err := row.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn)
		return fk, err
	})
	if err != nil {
		return nil, classifyPg("describe", table, err)
	}
	return fks, nil
}

// SelectAll returns every row in storage order.
func (p *Postgres) SelectAll(ctx context.Context, table string, columns []string) ([]core.Row, error) {
	return p.query(ctx, "select", table, selectSQL(table, columns, 0))
}

// SampleRows returns up to limit rows.
func (p *Postgres) SampleRows(ctx context.Context, table string, columns []string, limit int) ([]core.Row, error) {
	if limit <= 0 {
		return []core.Row{}, nil
	}
	return p.query(ctx, "sample", table, selectSQL(table, columns, limit))
}

// CountRows returns the number of rows.
func (p *Postgres) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, countSQL(table)).Scan(&n); err != nil {
		return 0, classifyPg("count", table, err)
	}
	return n, nil
}

// Insert adds one row.
func (p *Postgres) Insert(ctx context.Context, table string, columns []string, row core.Row) error {
	if err := checkShape(table, columns, row); err != nil {
		return err
	}
	_, err := p.exec(ctx, "insert", table, insertSQL(postgresDialect, table, columns), row)
	return err
}

// UpdateWhereEquals overwrites every row fully equal to match.
func (p *Postgres) UpdateWhereEquals(ctx context.Context, table string, columns []string, row, match core.Row) (int64, error) {
	if err := checkShape(table, columns, row); err != nil {
		return 0, err
	}
	if err := checkShape(table, columns, match); err != nil {
		return 0, err
	}
	q, args := updateSQL(postgresDialect, table, columns, row, columns, match)
	return p.exec(ctx, "update", table, q, args)
}

// DeleteWhereEquals removes every row fully equal to match.
func (p *Postgres) DeleteWhereEquals(ctx context.Context, table string, columns []string, match core.Row) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%w: no columns to match on", core.ErrRowShape)
	}
	if err := checkShape(table, columns, match); err != nil {
		return 0, err
	}
	q, args := deleteSQL(postgresDialect, table, columns, match)
	return p.exec(ctx, "delete", table, q, args)
}

// UpdateByKey overwrites the row whose keyColumn equals key.
func (p *Postgres) UpdateByKey(ctx context.Context, table string, columns []string, keyColumn string, key any, row core.Row) (int64, error) {
	if err := checkShape(table, columns, row); err != nil {
		return 0, err
	}
	q, args := updateSQL(postgresDialect, table, columns, row, []string{keyColumn}, []any{key})
	return p.exec(ctx, "update", table, q, args)
}

// DeleteByKey removes the row whose keyColumn equals key.
func (p *Postgres) DeleteByKey(ctx context.Context, table, keyColumn string, key any) (int64, error) {
	q, args := deleteSQL(postgresDialect, table, []string{keyColumn}, []any{key})
	return p.exec(ctx, "delete", table, q, args)
}

func (p *Postgres) query(ctx context.Context, op, table, q string) ([]core.Row, error) {
	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, classifyPg(op, table, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Row, error) {
		vals, err := row.Values()
		if err != nil {
			return nil, err
		}
		r := make(core.Row, len(vals))
		for i, v := range vals {
			r[i] = pgValue(v)
		}
		return r, nil
	})
	if err != nil {
		return nil, classifyPg(op, table, err)
	}
	if out == nil {
		out = []core.Row{}
	}
	return out, nil
}

// exec runs one statement in its own transaction. Any failure rolls back.
func (p *Postgres) exec(ctx context.Context, op, table, q string, args []any) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, classifyPg(op, table, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tag, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return 0, classifyPg(op, table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, classifyPg(op, table, err)
	}
	return tag.RowsAffected(), nil
}

// pgValue converts pgx result values to the engine's plain types.
func pgValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return normalizeValue(v)
	}
}

// classifyPg maps pgx errors onto *core.StorageError, keeping the server
// message and detail. An undefined table becomes ErrUnknownTable.
func classifyPg(op, table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUndefinedTable {
			return core.UnknownTable(table)
		}
		msg := pgErr.Message
		if pgErr.Detail != "" {
			msg += " (" + strings.TrimSuffix(pgErr.Detail, ".") + ")"
		}
		return &core.StorageError{Op: op, Table: table, Message: msg, Err: err}
	}
	return core.NewStorageError(op, table, err)
}
