package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dbadmin/internal/config"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register("users", "email", Email{Domains: []string{"gmail.com"}})
	reg.Register("orders", "user_id", ForeignKey{Binding: ForeignKeyBinding{RefTable: "users", KeyColumn: "id", LabelColumn: "name"}})
	reg.Register("orders", "amount", Numeric{})

	rule, ok := reg.Lookup("users", "email")
	require.True(t, ok)
	assert.Equal(t, KindEmail, rule.Kind())

	_, ok = reg.Lookup("users", "name")
	assert.False(t, ok, "unruled column")

	b, ok := reg.Binding("orders", "user_id")
	require.True(t, ok)
	assert.Equal(t, "orders", b.Table, "binding is stamped with its column")
	assert.Equal(t, "user_id", b.Column)

	_, ok = reg.Binding("orders", "amount")
	assert.False(t, ok, "numeric rule is not a binding")

	assert.Equal(t, []string{"orders", "users"}, reg.Tables())
	assert.Equal(t, []string{"amount", "user_id"}, reg.Columns("orders"))
	assert.Len(t, reg.Bindings(), 1)
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_RegisterPanics(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register("users", "name", Required{})
		assert.Panics(t, func() { reg.Register("users", "name", Required{}) })
	})

	t.Run("malformed", func(t *testing.T) {
		reg := NewRegistry()
		assert.Panics(t, func() { reg.Register("users", "email", Email{}) })
	})
}

func TestRegistry_Override(t *testing.T) {
	reg := NewRegistry()
	reg.Register("users", "name", Required{})

	require.NoError(t, reg.Override("users", "name", PassThrough{}))
	rule, _ := reg.Lookup("users", "name")
	assert.Equal(t, KindPassThrough, rule.Kind())

	assert.Error(t, reg.Override("users", "phone", Phone{Digits: 11, Groups: []int{5, 5}}))
	assert.Error(t, reg.Override("users", "x", nil))
}

func TestRegistry_Verify(t *testing.T) {
	m := newMemStore()
	m.addTable("users", "id", "id", "name", "email")
	m.addTable("orders", "id", "id", "user_id")
	catalog := NewSchemaCatalog(m)
	ctx := context.Background()

	good := NewRegistry()
	good.Register("users", "email", Email{Domains: []string{"gmail.com"}})
	good.Register("orders", "user_id", ForeignKey{Binding: ForeignKeyBinding{RefTable: "users", KeyColumn: "id", LabelColumn: "name"}})
	assert.NoError(t, good.Verify(ctx, catalog))

	bad := NewRegistry()
	bad.Register("users", "nickname", Required{})
	bad.Register("ghosts", "name", Required{})
	bad.Register("orders", "user_id", ForeignKey{Binding: ForeignKeyBinding{RefTable: "users", KeyColumn: "id", LabelColumn: "full_name"}})
	bad.Register("orders", "id", ForeignKey{Binding: ForeignKeyBinding{RefTable: "nowhere", KeyColumn: "id", LabelColumn: "name"}})

	err := bad.Verify(ctx, catalog)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTable)
	msg := err.Error()
	for _, want := range []string{"users.nickname", "ghosts", "full_name", "orders.id"} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}

	m.err = errors.New("connection refused")
	assert.Error(t, good.Verify(ctx, catalog))
}

func TestPreset(t *testing.T) {
	RegisterPreset("registry-test", func(r *Registry) {
		r.Register("t", "c", Required{})
	})
	assert.Panics(t, func() { RegisterPreset("registry-test", func(*Registry) {}) })
	assert.Contains(t, Presets(), "registry-test")

	reg, err := Preset("registry-test")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	again, err := Preset("registry-test")
	require.NoError(t, err)
	assert.NotSame(t, reg, again, "each call builds a fresh registry")

	for _, name := range []string{"", "none"} {
		empty, err := Preset(name)
		require.NoError(t, err)
		assert.Zero(t, empty.Len())
	}

	_, err = Preset("no-such-preset")
	assert.Error(t, err)
}

func TestBuildRule(t *testing.T) {
	tests := []struct {
		name     string
		spec     config.RuleSpec
		wantKind string
		wantErr  bool
	}{
		{"required", config.RuleSpec{Kind: "required"}, KindRequired, false},
		{"kind is case insensitive", config.RuleSpec{Kind: "Email", Domains: []string{"mail.ru"}}, KindEmail, false},
		{"email without domains", config.RuleSpec{Kind: "email"}, "", true},
		{"hash bcrypt", config.RuleSpec{Kind: "hash", Algorithm: "BCRYPT"}, KindHash, false},
		{"hash unknown algorithm", config.RuleSpec{Kind: "hash", Algorithm: "md5"}, "", true},
		{"phone default groups", config.RuleSpec{Kind: "phone", Digits: 12}, KindPhone, false},
		{"phone groups mismatch", config.RuleSpec{Kind: "phone", Digits: 11, Groups: []int{3, 3}}, "", true},
		{"foreign key", config.RuleSpec{Kind: "foreign_key", Table: "users", Label: "name"}, KindForeignKey, false},
		{"foreign key without label", config.RuleSpec{Kind: "foreign_key", Table: "users"}, "", true},
		{"date", config.RuleSpec{Kind: "date", Layout: "2006-01-02"}, KindDate, false},
		{"unknown", config.RuleSpec{Kind: "regex"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := BuildRule(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, rule.Kind())
		})
	}

	rule, err := BuildRule(config.RuleSpec{Kind: "foreign_key", Table: "users", Label: "name"})
	require.NoError(t, err)
	assert.Equal(t, "id", rule.(ForeignKey).Binding.KeyColumn, "key defaults to id")

	rule, err = BuildRule(config.RuleSpec{Kind: "phone", Digits: 12})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 3, 2, 2}, rule.(Phone).Groups)

	rule, err = BuildRule(config.RuleSpec{Kind: "email", Domains: []string{"mail.ru"}})
	require.NoError(t, err)
	assert.False(t, rule.(Email).FoldCase, "domain case folding is opt-in")

	rule, err = BuildRule(config.RuleSpec{Kind: "email", Domains: []string{"mail.ru"}, FoldCase: true})
	require.NoError(t, err)
	assert.True(t, rule.(Email).FoldCase)
}

func TestRegistry_Merge(t *testing.T) {
	reg := NewRegistry()
	reg.Register("users", "name", Required{})

	err := reg.Merge(&config.RuleFile{Tables: map[string]map[string]config.RuleSpec{
		"users": {
			"name":  {Kind: "passthrough"},
			"phone": {Kind: "phone", Digits: 11},
		},
	}})
	require.NoError(t, err)

	rule, _ := reg.Lookup("users", "name")
	assert.Equal(t, KindPassThrough, rule.Kind(), "file entries replace preset rules")
	_, ok := reg.Lookup("users", "phone")
	assert.True(t, ok)

	err = reg.Merge(&config.RuleFile{Tables: map[string]map[string]config.RuleSpec{
		"users": {"email": {Kind: "email"}},
	}})
	assert.ErrorContains(t, err, "users.email")

	assert.NoError(t, reg.Merge(nil))
}
