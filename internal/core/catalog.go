package core

import (
	"context"
	"fmt"
)

// SchemaCatalog is the engine's view of the live schema. It holds no cache;
// each call reads the catalog again.
type SchemaCatalog struct {
	src Catalog
}

// NewSchemaCatalog wraps a catalog source.
func NewSchemaCatalog(src Catalog) *SchemaCatalog {
	return &SchemaCatalog{src: src}
}

// ListTables returns table names in catalog order.
func (c *SchemaCatalog) ListTables(ctx context.Context) ([]string, error) {
	tables, err := c.src.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// ListColumns returns the table's column names in ordinal order.
func (c *SchemaCatalog) ListColumns(ctx context.Context, table string) ([]string, error) {
	desc, err := c.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	return desc.ColumnNames(), nil
}

// Describe returns a fresh descriptor. Callers take one snapshot per
// logical operation and pass it along rather than describing twice.
func (c *SchemaCatalog) Describe(ctx context.Context, table string) (TableDescriptor, error) {
	desc, err := c.src.DescribeTable(ctx, table)
	if err != nil {
		return TableDescriptor{}, err
	}
	if len(desc.Columns) == 0 {
		return TableDescriptor{}, UnknownTable(table)
	}
	return desc, nil
}

// Has reports whether the table currently exists.
func (c *SchemaCatalog) Has(ctx context.Context, table string) (bool, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t == table {
			return true, nil
		}
	}
	return false, nil
}
