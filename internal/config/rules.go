package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// RulesEnvPrefix prefixes environment overrides for rule files.
// DBADMIN_RULES_TABLES.users.email.kind=email overrides tables.users.email.kind.
const RulesEnvPrefix = "DBADMIN_RULES_"

// RuleFile is the on-disk shape of a rule table.
//
//	tables:
//	  users:
//	    email: {kind: email, domains: [gmail.com, mail.ru]}
//	    password: {kind: hash}
//	  orders:
//	    user_id: {kind: foreign_key, table: users, key: id, label: name}
type RuleFile struct {
	Tables map[string]map[string]RuleSpec `koanf:"tables"`
}

// RuleSpec describes one column rule. Which fields matter depends on Kind.
type RuleSpec struct {
	Kind              string   `koanf:"kind"`
	Domains           []string `koanf:"domains"`
	FoldCase          bool     `koanf:"fold_case"`
	Digits            int      `koanf:"digits"`
	Groups            []int    `koanf:"groups"`
	Algorithm         string   `koanf:"algorithm"`
	PreserveUnchanged bool     `koanf:"preserve_unchanged"`
	Table             string   `koanf:"table"`
	Key               string   `koanf:"key"`
	Label             string   `koanf:"label"`
	Message           string   `koanf:"message"`
	Layout            string   `koanf:"layout"`
}

// LoadRules reads a YAML rule file and applies environment overrides.
// An empty path yields an empty rule table.
func LoadRules(path string) (*RuleFile, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"tables": map[string]interface{}{},
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load rule defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read rule file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(RulesEnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(s, RulesEnvPrefix)
	}), nil); err != nil {
		return nil, fmt.Errorf("load rule env overrides: %w", err)
	}

	var rf RuleFile
	if err := k.Unmarshal("", &rf); err != nil {
		return nil, fmt.Errorf("decode rule file: %w", err)
	}

	for table, cols := range rf.Tables {
		for col, spec := range cols {
			if spec.Kind == "" {
				return nil, fmt.Errorf("rule %s.%s: missing kind", table, col)
			}
		}
	}

	return &rf, nil
}
