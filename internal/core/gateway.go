package core

import "context"

// Catalog discovers tables and their columns from the live schema.
type Catalog interface {
	// ListTables returns table names in catalog order.
	ListTables(ctx context.Context) ([]string, error)
	// DescribeTable returns the table's structure or ErrUnknownTable.
	DescribeTable(ctx context.Context, table string) (TableDescriptor, error)
}

// RowStore reads and writes rows. Columns are passed explicitly so callers
// control the snapshot they validated against. Every mutation is atomic:
// on error the store is unchanged and the error is a *StorageError.
type RowStore interface {
	SelectAll(ctx context.Context, table string, columns []string) ([]Row, error)
	Insert(ctx context.Context, table string, columns []string, row Row) error

	// UpdateWhereEquals and DeleteWhereEquals affect every row whose full
	// column tuple equals match. NULL match values compare with IS NULL.
	UpdateWhereEquals(ctx context.Context, table string, columns []string, row, match Row) (int64, error)
	DeleteWhereEquals(ctx context.Context, table string, columns []string, match Row) (int64, error)

	// UpdateByKey and DeleteByKey address a single row by primary key.
	UpdateByKey(ctx context.Context, table string, columns []string, keyColumn string, key any, row Row) (int64, error)
	DeleteByKey(ctx context.Context, table, keyColumn string, key any) (int64, error)

	CountRows(ctx context.Context, table string) (int64, error)
	SampleRows(ctx context.Context, table string, columns []string, limit int) ([]Row, error)
}

// Gateway is the complete backing-store dependency of the engine.
type Gateway interface {
	Catalog
	RowStore
	// Name identifies the database in reports.
	Name() string
	Close() error
}
