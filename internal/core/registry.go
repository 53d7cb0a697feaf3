package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry maps (table, column) to a Rule. Columns without a rule pass
// through unchanged.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]map[string]Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]map[string]Rule)}
}

// Register adds a rule for table.column.
// Panics if the column already has a rule or the rule is malformed.
func (r *Registry) Register(table, column string, rule Rule) {
	if err := r.set(table, column, rule, false); err != nil {
		panic(err.Error())
	}
}

// Override sets the rule for table.column, replacing any existing one.
func (r *Registry) Override(table, column string, rule Rule) error {
	return r.set(table, column, rule, true)
}

func (r *Registry) set(table, column string, rule Rule, replace bool) error {
	if rule == nil {
		return fmt.Errorf("rule %s.%s: nil rule", table, column)
	}
	if err := rule.check(); err != nil {
		return fmt.Errorf("rule %s.%s: %w", table, column, err)
	}
	if fk, ok := rule.(ForeignKey); ok {
		fk.Binding.Table, fk.Binding.Column = table, column
		rule = fk
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cols, ok := r.rules[table]
	if !ok {
		cols = make(map[string]Rule)
		r.rules[table] = cols
	}
	if _, exists := cols[column]; exists && !replace {
		return fmt.Errorf("rule already registered: %s.%s", table, column)
	}
	cols[column] = rule
	return nil
}

// Lookup returns the rule for table.column.
func (r *Registry) Lookup(table, column string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[table][column]
	return rule, ok
}

// Binding returns the foreign key binding for table.column, if any.
func (r *Registry) Binding(table, column string) (ForeignKeyBinding, bool) {
	rule, ok := r.Lookup(table, column)
	if !ok {
		return ForeignKeyBinding{}, false
	}
	fk, ok := rule.(ForeignKey)
	return fk.Binding, ok
}

// Tables returns every table with at least one rule.
// Sorted alphabetically.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]string, 0, len(r.rules))
	for t := range r.rules {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// Columns returns the ruled columns of table.
// Sorted alphabetically.
func (r *Registry) Columns(table string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cols := make([]string, 0, len(r.rules[table]))
	for c := range r.rules[table] {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Bindings returns every foreign key binding.
// Sorted by table then column.
func (r *Registry) Bindings() []ForeignKeyBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ForeignKeyBinding
	for _, cols := range r.rules {
		for _, rule := range cols {
			if fk, ok := rule.(ForeignKey); ok {
				out = append(out, fk.Binding)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, cols := range r.rules {
		n += len(cols)
	}
	return n
}

// Verify checks the registry against the live schema: every ruled column
// must exist and every binding must target an existing table and columns.
// Returns nil or all problems joined.
func (r *Registry) Verify(ctx context.Context, catalog *SchemaCatalog) error {
	descs := make(map[string]*TableDescriptor)
	describe := func(table string) (*TableDescriptor, error) {
		if d, ok := descs[table]; ok {
			return d, nil
		}
		d, err := catalog.Describe(ctx, table)
		if err != nil {
			descs[table] = nil
			return nil, err
		}
		descs[table] = &d
		return &d, nil
	}

	var errs []error
	for _, table := range r.Tables() {
		desc, err := describe(table)
		if err != nil {
			if !errors.Is(err, ErrUnknownTable) {
				return err
			}
			errs = append(errs, fmt.Errorf("rules for %s: %w", table, err))
			continue
		}
		if desc == nil {
			continue
		}
		for _, col := range r.Columns(table) {
			if !desc.HasColumn(col) {
				errs = append(errs, fmt.Errorf("rule %s.%s: column does not exist", table, col))
			}
		}
	}

	for _, b := range r.Bindings() {
		ref, err := describe(b.RefTable)
		if err != nil {
			if !errors.Is(err, ErrUnknownTable) {
				return err
			}
			errs = append(errs, fmt.Errorf("binding %s.%s: target %w", b.Table, b.Column, err))
			continue
		}
		if ref == nil {
			errs = append(errs, fmt.Errorf("binding %s.%s: target %w", b.Table, b.Column, UnknownTable(b.RefTable)))
			continue
		}
		for _, col := range []string{b.KeyColumn, b.LabelColumn} {
			if !ref.HasColumn(col) {
				errs = append(errs, fmt.Errorf("binding %s.%s: %s has no column %s", b.Table, b.Column, b.RefTable, col))
			}
		}
	}

	return errors.Join(errs...)
}

var (
	presets   = make(map[string]func(*Registry))
	presetsMu sync.RWMutex
)

// RegisterPreset makes a named rule set available to Preset.
// Panics if a preset with the same name is already registered.
func RegisterPreset(name string, build func(*Registry)) {
	presetsMu.Lock()
	defer presetsMu.Unlock()

	if _, exists := presets[name]; exists {
		panic(fmt.Sprintf("preset already registered: %s", name))
	}
	presets[name] = build
}

// Preset builds a fresh registry from a named preset.
// "" and "none" yield an empty registry.
func Preset(name string) (*Registry, error) {
	reg := NewRegistry()
	if name == "" || name == "none" {
		return reg, nil
	}

	presetsMu.RLock()
	build, ok := presets[name]
	presetsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown rule preset %q (available: %v)", name, Presets())
	}

	build(reg)
	return reg, nil
}

// Presets returns registered preset names.
// Sorted alphabetically.
func Presets() []string {
	presetsMu.RLock()
	defer presetsMu.RUnlock()

	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
