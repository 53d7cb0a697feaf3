package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AddressMode selects how Edit and Delete find the row they change.
type AddressMode string

const (
	// AddressByKey addresses rows by primary key, falling back to full-row
	// equality for tables without one.
	AddressByKey AddressMode = "key"
	// AddressByRow matches every column of the previously displayed row.
	// Duplicate rows are all affected.
	AddressByRow AddressMode = "row"
)

// DefaultSampleLimit is the number of sample rows per report section.
const DefaultSampleLimit = 5

// DefaultAuditCapacity is the number of audit entries kept in memory.
const DefaultAuditCapacity = 200

// Options configures a Service.
type Options struct {
	AddressBy     AddressMode
	SampleLimit   int
	AuditCapacity int
	Now           func() time.Time
}

// Service coordinates schema, rules, resolution and storage for every
// table of one database. Logical operations are serialized.
type Service struct {
	store    Gateway
	catalog  *SchemaCatalog
	rules    *Registry
	dispatch *Dispatcher
	resolver *Resolver
	audit    *auditLog

	addressBy   AddressMode
	sampleLimit int
	now         func() time.Time

	opMu sync.Mutex
}

// NewService creates a new Service instance. The Service owns store and
// releases it on Close.
func NewService(store Gateway, rules *Registry, opts Options) *Service {
	if rules == nil {
		rules = NewRegistry()
	}
	if opts.AddressBy == "" {
		opts.AddressBy = AddressByKey
	}
	if opts.SampleLimit <= 0 {
		opts.SampleLimit = DefaultSampleLimit
	}
	if opts.AuditCapacity == 0 {
		opts.AuditCapacity = DefaultAuditCapacity
	}
	if opts.AuditCapacity < 0 {
		opts.AuditCapacity = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		store:       store,
		catalog:     NewSchemaCatalog(store),
		rules:       rules,
		dispatch:    NewDispatcher(rules),
		resolver:    NewResolver(store),
		audit:       newAuditLog(opts.AuditCapacity),
		addressBy:   opts.AddressBy,
		sampleLimit: opts.SampleLimit,
		now:         opts.Now,
	}
}

// Catalog returns the schema catalog.
func (s *Service) Catalog() *SchemaCatalog { return s.catalog }

// Rules returns the rule registry.
func (s *Service) Rules() *Registry { return s.rules }

// Resolver returns the foreign key resolver.
func (s *Service) Resolver() *Resolver { return s.resolver }

// Database returns the name of the backing database.
func (s *Service) Database() string { return s.store.Name() }

// Close releases the backing store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Tables returns table names in catalog order.
func (s *Service) Tables(ctx context.Context) ([]string, error) {
	return s.catalog.ListTables(ctx)
}

// Describe returns a fresh descriptor for table.
func (s *Service) Describe(ctx context.Context, table string) (TableDescriptor, error) {
	return s.catalog.Describe(ctx, table)
}

// Columns returns the table's column names in order.
func (s *Service) Columns(ctx context.Context, table string) ([]string, error) {
	return s.catalog.ListColumns(ctx, table)
}

// VerifyRules checks registered rules against the live schema.
func (s *Service) VerifyRules(ctx context.Context) error {
	return s.rules.Verify(ctx, s.catalog)
}

// coerceRow converts text and JSON numbers in numeric columns to Go numbers
// so that equality predicates compare like with like. Untyped columns only
// convert text that is a plain decimal number.
func coerceRow(desc TableDescriptor, row Row) Row {
	out := row.Clone()
	for i, col := range desc.Columns {
		if i >= len(out) {
			break
		}
		switch col.Type {
		case ColumnNumeric:
			out[i] = coerceNumber(out[i])
		case ColumnAny:
			if s, ok := out[i].(string); ok && !numericRegex.MatchString(strings.TrimSpace(s)) {
				continue
			}
			out[i] = coerceNumber(out[i])
		}
	}
	return out
}

func coerceNumber(v any) any {
	var s string
	switch x := v.(type) {
	case string:
		s = strings.TrimSpace(x)
	case json.Number:
		s = x.String()
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	default:
		return v
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return v
}

// normalizeInput converts JSON numbers to float64 so rules see plain values.
func normalizeInput(row Row) Row {
	out := row.Clone()
	for i, v := range out {
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				out[i] = f
			} else {
				out[i] = n.String()
			}
		}
	}
	return out
}

func keyString(v any) string {
	return FormatValue(v)
}

func opError(op, table string, err error) error {
	return fmt.Errorf("%s %s: %w", op, table, err)
}
