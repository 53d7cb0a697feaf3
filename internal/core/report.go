package core

import (
	"context"
	"fmt"
	"time"
)

// ReportSnapshot is a schema and sample-data snapshot of every table.
// It is built fresh on every call and never persisted by the engine.
type ReportSnapshot struct {
	Database    string          `json:"database" yaml:"database"`
	GeneratedAt time.Time       `json:"generatedAt" yaml:"generated_at"`
	Sections    []ReportSection `json:"sections" yaml:"sections"`
}

// ReportSection describes one table.
type ReportSection struct {
	Table    string     `json:"table" yaml:"table"`
	Columns  []string   `json:"columns" yaml:"columns"`
	RowCount int64      `json:"rowCount" yaml:"row_count"`
	Samples  [][]string `json:"samples" yaml:"samples"`
}

// Empty reports whether the table had no records.
func (r ReportSection) Empty() bool {
	return r.RowCount == 0
}

// BuildReport walks every table in catalog order and records its columns,
// row count and up to limit sample rows.
func BuildReport(ctx context.Context, catalog *SchemaCatalog, store RowStore, limit int) ([]ReportSection, error) {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}

	tables, err := catalog.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	sections := make([]ReportSection, 0, len(tables))
	for _, table := range tables {
		desc, err := catalog.Describe(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", table, err)
		}
		cols := desc.ColumnNames()

		count, err := store.CountRows(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("report %s: count rows: %w", table, err)
		}

		rows, err := store.SampleRows(ctx, table, cols, limit)
		if err != nil {
			return nil, fmt.Errorf("report %s: sample rows: %w", table, err)
		}

		samples := make([][]string, len(rows))
		for i, row := range rows {
			samples[i] = row.Strings()
		}

		sections = append(sections, ReportSection{
			Table:    table,
			Columns:  cols,
			RowCount: count,
			Samples:  samples,
		})
	}
	return sections, nil
}

// Report builds a snapshot of the whole database.
func (s *Service) Report(ctx context.Context) (*ReportSnapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	sections, err := BuildReport(ctx, s.catalog, s.store, s.sampleLimit)
	if err != nil {
		return nil, err
	}
	return &ReportSnapshot{
		Database:    s.store.Name(),
		GeneratedAt: s.now(),
		Sections:    sections,
	}, nil
}
