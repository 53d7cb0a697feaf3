package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Column type classes reported by the catalog. Declared database types are
// folded into one of these; anything else is carried verbatim.
const (
	ColumnText    = "text"
	ColumnNumeric = "numeric"

	// ColumnAny is a column without a declared type. SQLite stores whatever
	// is bound, so numeric-looking text is bound as a number.
	ColumnAny = "any"
)

// ColumnDescriptor describes one column of a table.
// Ordinal defines the position of the column's value in a Row.
type ColumnDescriptor struct {
	Name       string `json:"name"`
	Ordinal    int    `json:"ordinal"`
	Type       string `json:"type"`
	NotNull    bool   `json:"notNull,omitempty"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
}

// ForeignKeyInfo is a foreign key as declared in the database catalog.
// It is informational; rendering and parsing are driven by registered rules.
type ForeignKeyInfo struct {
	Column    string `json:"column"`
	RefTable  string `json:"refTable"`
	RefColumn string `json:"refColumn"`
}

// TableDescriptor is a snapshot of a table's structure taken from the live
// schema. It is rebuilt on demand and never cached across operations.
type TableDescriptor struct {
	Name        string             `json:"name"`
	Columns     []ColumnDescriptor `json:"columns"`
	PrimaryKey  string             `json:"primaryKey,omitempty"`
	ForeignKeys []ForeignKeyInfo   `json:"foreignKeys,omitempty"`
}

// ColumnNames returns the column names in ordinal order.
func (t TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (t TableDescriptor) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has the named column.
func (t TableDescriptor) HasColumn(name string) bool {
	return t.Index(name) >= 0
}

// CheckRow verifies a row has exactly one value per column.
func (t TableDescriptor) CheckRow(n int) error {
	if n != len(t.Columns) {
		return fmt.Errorf("%w: table %s has %d columns, got %d values",
			ErrRowShape, t.Name, len(t.Columns), n)
	}
	return nil
}

// ClassifyType folds a declared database type into ColumnText,
// ColumnNumeric or ColumnAny (no declared type). Declarations are matched by
// whole words, so "interval" and "point" are not numeric. Unknown
// declarations are returned lower-cased.
func ClassifyType(declared string) string {
	d := strings.ToLower(strings.TrimSpace(declared))
	if d == "" {
		return ColumnAny
	}

	words := strings.FieldsFunc(d, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if numericTypes[w] {
			return ColumnNumeric
		}
	}
	for _, w := range words {
		if textTypes[w] {
			return ColumnText
		}
	}
	return d
}

var numericTypes = map[string]bool{
	"int": true, "integer": true, "int2": true, "int4": true, "int8": true,
	"tinyint": true, "smallint": true, "mediumint": true, "bigint": true,
	"serial": true, "smallserial": true, "bigserial": true, "serial4": true, "serial8": true,
	"real": true, "float": true, "float4": true, "float8": true, "double": true,
	"numeric": true, "decimal": true, "number": true,
}

var textTypes = map[string]bool{
	"text": true, "char": true, "character": true, "varchar": true,
	"nchar": true, "nvarchar": true, "clob": true, "bpchar": true, "string": true,
}

// Row is an ordered sequence of values aligned with a table's columns.
type Row []any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Strings stringifies every value positionally.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = FormatValue(v)
	}
	return out
}

// FormatValue renders a stored value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// RowFromStrings converts raw text values to a row without transformation.
func RowFromStrings(values []string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
