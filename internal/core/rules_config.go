package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/dbadmin/internal/config"
)

// BuildRule converts a rule file entry into a Rule.
func BuildRule(spec config.RuleSpec) (Rule, error) {
	var rule Rule
	switch strings.ToLower(spec.Kind) {
	case KindPassThrough:
		rule = PassThrough{}
	case KindRequired:
		rule = Required{Message: spec.Message}
	case KindEmail:
		rule = Email{Domains: spec.Domains, FoldCase: spec.FoldCase, Message: spec.Message}
	case KindHash:
		rule = Hash{Algorithm: strings.ToLower(spec.Algorithm), PreserveUnchanged: spec.PreserveUnchanged}
	case KindPhone:
		groups := spec.Groups
		if len(groups) == 0 {
			groups = DefaultPhoneGroups(spec.Digits)
		}
		rule = Phone{Digits: spec.Digits, Groups: groups, Message: spec.Message}
	case KindNumeric:
		rule = Numeric{Message: spec.Message}
	case KindInteger:
		rule = Integer{Message: spec.Message}
	case KindForeignKey:
		key := spec.Key
		if key == "" {
			key = "id"
		}
		rule = ForeignKey{Binding: ForeignKeyBinding{
			RefTable:    spec.Table,
			KeyColumn:   key,
			LabelColumn: spec.Label,
		}}
	case KindDate:
		rule = Date{Layout: spec.Layout}
	default:
		return nil, fmt.Errorf("unknown rule kind %q", spec.Kind)
	}

	if err := rule.check(); err != nil {
		return nil, err
	}
	return rule, nil
}

// DefaultPhoneGroups returns the dash grouping used for common lengths:
// 11 digits as +8-999-123-45-67 and 12 as +375-29-123-45-67.
// Other lengths are a single group.
func DefaultPhoneGroups(digits int) []int {
	switch digits {
	case 11:
		return []int{1, 3, 3, 2, 2}
	case 12:
		return []int{3, 2, 3, 2, 2}
	default:
		return []int{digits}
	}
}

// Merge applies a rule file on top of the registry. Entries replace any
// rule already registered for the same column.
func (r *Registry) Merge(rf *config.RuleFile) error {
	if rf == nil {
		return nil
	}

	tables := make([]string, 0, len(rf.Tables))
	for t := range rf.Tables {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	for _, table := range tables {
		cols := rf.Tables[table]
		names := make([]string, 0, len(cols))
		for c := range cols {
			names = append(names, c)
		}
		sort.Strings(names)

		for _, col := range names {
			rule, err := BuildRule(cols[col])
			if err != nil {
				return fmt.Errorf("rule %s.%s: %w", table, col, err)
			}
			if err := r.Override(table, col, rule); err != nil {
				return err
			}
		}
	}
	return nil
}
