package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Key kinds for foreign key bindings.
const (
	KeyInteger = "integer"
	KeyText    = "text"
)

// ForeignKeyBinding links Table.Column to rows of RefTable, which are shown
// as "KeyColumn: LabelColumn".
type ForeignKeyBinding struct {
	Table       string `json:"table"`
	Column      string `json:"column"`
	RefTable    string `json:"refTable"`
	KeyColumn   string `json:"keyColumn"`
	LabelColumn string `json:"labelColumn"`
	KeyKind     string `json:"keyKind,omitempty"` // integer (default) or text
}

// Option is one selectable referenced row.
type Option struct {
	Key   any    `json:"key"`
	Label string `json:"label"`
}

// Display renders the option as "key: label".
func (o Option) Display() string {
	return FormatValue(o.Key) + ": " + o.Label
}

// Resolver maps referenced rows to display pairs and back.
type Resolver struct {
	store RowStore
}

// NewResolver creates a resolver reading through store.
func NewResolver(store RowStore) *Resolver {
	return &Resolver{store: store}
}

// ListDisplayOptions returns (key, label) for every row of the referenced
// table, in the order the store returns them.
func (r *Resolver) ListDisplayOptions(ctx context.Context, b ForeignKeyBinding) ([]Option, error) {
	rows, err := r.store.SelectAll(ctx, b.RefTable, []string{b.KeyColumn, b.LabelColumn})
	if err != nil {
		return nil, fmt.Errorf("list options for %s.%s: %w", b.Table, b.Column, err)
	}

	opts := make([]Option, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		opts = append(opts, Option{Key: row[0], Label: FormatValue(row[1])})
	}
	return opts, nil
}

// Labels returns key text to label for the referenced table.
// Use it when many values of one column need resolving.
func (r *Resolver) Labels(ctx context.Context, b ForeignKeyBinding) (map[string]string, error) {
	opts, err := r.ListDisplayOptions(ctx, b)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(opts))
	for _, o := range opts {
		k := FormatValue(o.Key)
		if _, seen := labels[k]; !seen {
			labels[k] = o.Label
		}
	}
	return labels, nil
}

// ResolveLabel returns the label for key, or an *UnresolvedKeyError.
// An unresolved key is still a legal value; the store enforces integrity.
func (r *Resolver) ResolveLabel(ctx context.Context, b ForeignKeyBinding, key any) (string, error) {
	labels, err := r.Labels(ctx, b)
	if err != nil {
		return "", err
	}
	label, ok := labels[FormatValue(key)]
	if !ok {
		return "", &UnresolvedKeyError{Table: b.RefTable, Key: key}
	}
	return label, nil
}

// DisplayValue renders key as "key: label", or the bare key when the label
// cannot be resolved.
func (r *Resolver) DisplayValue(ctx context.Context, b ForeignKeyBinding, key any) string {
	if key == nil {
		return ""
	}
	label, err := r.ResolveLabel(ctx, b, key)
	if err != nil {
		return FormatValue(key)
	}
	return Option{Key: key, Label: label}.Display()
}

// ParseSelection extracts the key from either a bare key or "key: label".
// Everything before the first colon, trimmed, is the key.
func (r *Resolver) ParseSelection(b ForeignKeyBinding, input string) (any, error) {
	return ParseSelection(b, input)
}

// ParseSelection is Resolver.ParseSelection without a store; parsing never
// touches the referenced table.
func ParseSelection(b ForeignKeyBinding, input string) (any, error) {
	keyText := input
	if i := strings.Index(input, ":"); i >= 0 {
		keyText = input[:i]
	}
	keyText = strings.TrimSpace(keyText)

	if b.KeyKind == KeyText {
		if keyText == "" {
			return nil, &InvalidSelectionError{Column: b.Column, Input: input}
		}
		return keyText, nil
	}

	n, err := strconv.ParseInt(keyText, 10, 64)
	if err != nil {
		return nil, &InvalidSelectionError{Column: b.Column, Input: input}
	}
	return n, nil
}
