package core

// validation.go applies registered column rules to a submitted row.
//
// Validation is all-or-nothing per row: every column is checked so the
// caller sees all problems at once, but if any column is rejected no
// transformed value is returned. Columns without a rule pass through.

import (
	"context"
	"errors"
	"fmt"
)

// Dispatcher validates and transforms rows using a Registry.
type Dispatcher struct {
	rules *Registry
}

// NewDispatcher creates a dispatcher over rules.
func NewDispatcher(rules *Registry) *Dispatcher {
	return &Dispatcher{rules: rules}
}

// ValidateRow applies the rule of each column to the matching raw value.
// original is the previously stored row on Edit and nil on Add.
// Returns the transformed row, or an error joining every *ValidationError.
func (d *Dispatcher) ValidateRow(ctx context.Context, table string, columns []string, raw, original Row) (Row, error) {
	if len(raw) != len(columns) {
		return nil, fmt.Errorf("%w: table %s has %d columns, got %d values",
			ErrRowShape, table, len(columns), len(raw))
	}
	if original != nil && len(original) != len(columns) {
		return nil, fmt.Errorf("%w: table %s has %d columns, original row has %d values",
			ErrRowShape, table, len(columns), len(original))
	}

	out := make(Row, len(columns))
	var errs []error
	for i, col := range columns {
		in := FieldInput{Table: table, Column: col, Raw: raw[i], Editing: original != nil}
		if original != nil {
			in.Original = original[i]
		}

		v, err := d.ValidateField(ctx, in)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[i] = v
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// ValidateField applies the rule registered for one column.
func (d *Dispatcher) ValidateField(_ context.Context, in FieldInput) (any, error) {
	rule, ok := d.rules.Lookup(in.Table, in.Column)
	if !ok {
		return in.Raw, nil
	}

	var (
		v      any
		reason string
		cause  error
	)
	switch r := rule.(type) {
	case PassThrough:
		v = in.Raw
	case Required:
		v, reason = r.apply(in.Raw)
	case Email:
		v, reason = r.apply(in.Raw)
	case Hash:
		v, reason = r.apply(in)
	case Phone:
		v, reason = r.apply(in.Raw)
	case Numeric:
		v, reason = r.apply(in.Raw)
	case Integer:
		v, reason = r.apply(in.Raw)
	case Date:
		v, reason = r.apply(in.Raw)
	case ForeignKey:
		v, cause = ParseSelection(r.Binding, FormatValue(in.Raw))
		if cause != nil {
			reason = fmt.Sprintf("select a value from %s", r.Binding.RefTable)
		}
	default:
		return nil, fmt.Errorf("rule %s.%s: unsupported rule kind %q", in.Table, in.Column, rule.Kind())
	}

	if reason != "" {
		value := FormatValue(in.Raw)
		if _, secret := rule.(Hash); secret {
			value = ""
		}
		return nil, &ValidationError{
			Table:  in.Table,
			Column: in.Column,
			Rule:   rule.Kind(),
			Value:  value,
			Reason: reason,
			Err:    cause,
		}
	}
	return v, nil
}

// RuleKind returns the kind of rule on table.column, or KindPassThrough.
func (d *Dispatcher) RuleKind(table, column string) string {
	if rule, ok := d.rules.Lookup(table, column); ok {
		return rule.Kind()
	}
	return KindPassThrough
}
