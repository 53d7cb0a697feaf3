package core

// rules.go defines the column rule variants applied by the Dispatcher.
//
// Rule is a closed set: every variant lives in this file and the Dispatcher
// switches on the concrete type. Adding a variant means adding a case there.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Rule kinds as they appear in rule files.
const (
	KindPassThrough = "passthrough"
	KindRequired    = "required"
	KindEmail       = "email"
	KindHash        = "hash"
	KindPhone       = "phone"
	KindNumeric     = "numeric"
	KindInteger     = "integer"
	KindForeignKey  = "foreign_key"
	KindDate        = "date"
)

// DefaultDateLayout is the layout the date-entry widget produces (dd.mm.yyyy).
const DefaultDateLayout = "02.01.2006"

// Hash algorithms.
const (
	HashSHA256 = "sha256"
	HashBcrypt = "bcrypt"
)

// numericRegex validates a decimal number after trimming.
// Matches integers, decimals, and scientific notation; rejects comma decimals.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// lower folds case for domain comparison. A Caser is stateful, so each call
// gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Rule is a validate-and-transform policy for one column.
type Rule interface {
	Kind() string
	check() error
}

// PassThrough returns the raw value unchanged.
type PassThrough struct{}

// Required rejects blank text and otherwise returns the cleaned text.
type Required struct {
	Message string
}

// Email accepts local@domain where domain is in the allow-list. Domains
// compare case-sensitively unless FoldCase is set, in which case the
// submitted domain is also stored lower-cased.
type Email struct {
	Domains  []string
	FoldCase bool
	Message  string
}

// Hash replaces the value with a one-way digest. With PreserveUnchanged set,
// an edit that resubmits the stored digest keeps it instead of hashing it again.
type Hash struct {
	Algorithm         string
	PreserveUnchanged bool
}

// Phone keeps only digits, requires exactly Digits of them, and formats
// them as "+" followed by the dash-separated Groups.
type Phone struct {
	Digits  int
	Groups  []int
	Message string
}

// Numeric parses a decimal number into float64.
type Numeric struct {
	Message string
}

// Integer parses a whole number into int64.
type Integer struct {
	Message string
}

// ForeignKey parses a "key: label" selection through the Resolver.
type ForeignKey struct {
	Binding ForeignKeyBinding
}

// Date accepts structured dates from the date-entry collaborator:
// a time.Time, or text already in Layout.
type Date struct {
	Layout string
}

func (PassThrough) Kind() string { return KindPassThrough }
func (Required) Kind() string    { return KindRequired }
func (Email) Kind() string       { return KindEmail }
func (Hash) Kind() string        { return KindHash }
func (Phone) Kind() string       { return KindPhone }
func (Numeric) Kind() string     { return KindNumeric }
func (Integer) Kind() string     { return KindInteger }
func (ForeignKey) Kind() string  { return KindForeignKey }
func (Date) Kind() string        { return KindDate }

func (PassThrough) check() error { return nil }
func (Required) check() error    { return nil }
func (Numeric) check() error     { return nil }
func (Integer) check() error     { return nil }
func (Date) check() error        { return nil }

func (r Email) check() error {
	if len(r.Domains) == 0 {
		return fmt.Errorf("email rule needs at least one domain")
	}
	return nil
}

func (r Hash) check() error {
	switch r.Algorithm {
	case "", HashSHA256, HashBcrypt:
		return nil
	default:
		return fmt.Errorf("unknown hash algorithm %q", r.Algorithm)
	}
}

func (r Phone) check() error {
	if r.Digits <= 0 {
		return fmt.Errorf("phone rule needs a positive digit count")
	}
	sum := 0
	for _, g := range r.Groups {
		if g <= 0 {
			return fmt.Errorf("phone group sizes must be positive")
		}
		sum += g
	}
	if sum != r.Digits {
		return fmt.Errorf("phone groups %v cover %d digits, want %d", r.Groups, sum, r.Digits)
	}
	return nil
}

func (r ForeignKey) check() error {
	b := r.Binding
	if b.RefTable == "" || b.KeyColumn == "" || b.LabelColumn == "" {
		return fmt.Errorf("foreign key rule needs table, key and label")
	}
	switch b.KeyKind {
	case "", KeyInteger, KeyText:
		return nil
	default:
		return fmt.Errorf("unknown key kind %q", b.KeyKind)
	}
}

// cleanText trims surrounding whitespace and normalizes to NFC so that
// visually identical input compares equal.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (r Required) apply(raw any) (any, string) {
	s := cleanText(FormatValue(raw))
	if s == "" {
		return nil, orDefault(r.Message, "value is required")
	}
	return s, ""
}

func (r Email) pattern() *regexp.Regexp {
	quoted := make([]string, len(r.Domains))
	for i, d := range r.Domains {
		if r.FoldCase {
			d = lower(d)
		}
		quoted[i] = regexp.QuoteMeta(d)
	}
	return regexp.MustCompile(`^[^@\s]+@(` + strings.Join(quoted, "|") + `)$`)
}

func (r Email) apply(raw any) (any, string) {
	s := cleanText(FormatValue(raw))
	at := strings.LastIndex(s, "@")
	if r.FoldCase && at > 0 {
		s = s[:at] + lower(s[at:])
	}
	if !r.pattern().MatchString(s) {
		msg := r.Message
		if msg == "" {
			msg = "invalid email format; allowed domains: " + strings.Join(r.Domains, ", ")
		}
		return nil, msg
	}
	return s, ""
}

func (r Hash) apply(in FieldInput) (any, string) {
	s := FormatValue(in.Raw)
	if r.PreserveUnchanged && in.Editing && in.Original != nil && s == FormatValue(in.Original) {
		return in.Original, ""
	}
	switch r.Algorithm {
	case HashBcrypt:
		digest, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
		if err != nil {
			return nil, "value cannot be hashed: " + err.Error()
		}
		return string(digest), ""
	default:
		sum := sha256.Sum256([]byte(s))
		return hex.EncodeToString(sum[:]), ""
	}
}

func (r Phone) apply(raw any) (any, string) {
	var digits strings.Builder
	for _, ch := range FormatValue(raw) {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	d := digits.String()
	if len(d) != r.Digits {
		return nil, orDefault(r.Message, fmt.Sprintf("phone number must contain exactly %d digits", r.Digits))
	}

	parts := make([]string, 0, len(r.Groups))
	pos := 0
	for _, g := range r.Groups {
		parts = append(parts, d[pos:pos+g])
		pos += g
	}
	return "+" + strings.Join(parts, "-"), ""
}

func (r Numeric) apply(raw any) (any, string) {
	switch v := raw.(type) {
	case float64:
		return v, ""
	case int64:
		return float64(v), ""
	case int:
		return float64(v), ""
	}
	s := strings.TrimSpace(FormatValue(raw))
	if !numericRegex.MatchString(s) {
		return nil, orDefault(r.Message, "value must be numeric")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, orDefault(r.Message, "value must be numeric")
	}
	return f, ""
}

func (r Integer) apply(raw any) (any, string) {
	switch v := raw.(type) {
	case int64:
		return v, ""
	case int:
		return int64(v), ""
	}
	n, err := strconv.ParseInt(strings.TrimSpace(FormatValue(raw)), 10, 64)
	if err != nil {
		return nil, orDefault(r.Message, "value must be a whole number")
	}
	return n, ""
}

func (r Date) layout() string {
	return orDefault(r.Layout, DefaultDateLayout)
}

func (r Date) apply(raw any) (any, string) {
	if t, ok := raw.(time.Time); ok {
		return t.Format(r.layout()), ""
	}
	s := strings.TrimSpace(FormatValue(raw))
	if _, err := time.Parse(r.layout(), s); err != nil {
		return nil, "date must be in format " + humanLayout(r.layout())
	}
	return s, ""
}

// humanLayout renders a Go reference layout as dd.mm.yyyy style text.
func humanLayout(layout string) string {
	return strings.NewReplacer("2006", "yyyy", "01", "mm", "02", "dd").Replace(layout)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// FieldInput is one raw column value submitted for validation.
type FieldInput struct {
	Table    string
	Column   string
	Raw      any
	Original any  // previously stored value; nil on Add
	Editing  bool // true for Edit
}
