package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dbadmin/internal/core"
	"github.com/JonMunkholm/dbadmin/internal/store"
)

const serviceSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT,
	password TEXT
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id),
	created TEXT,
	amount REAL
);
CREATE TABLE notes (
	body TEXT,
	tag TEXT
);
`

func serviceRules() *core.Registry {
	reg := core.NewRegistry()
	reg.Register("users", "name", core.Required{})
	reg.Register("users", "email", core.Email{Domains: []string{"gmail.com"}, FoldCase: true})
	reg.Register("users", "password", core.Hash{})
	reg.Register("orders", "user_id", core.ForeignKey{Binding: core.ForeignKeyBinding{
		RefTable: "users", KeyColumn: "id", LabelColumn: "name",
	}})
	reg.Register("orders", "created", core.Date{})
	reg.Register("orders", "amount", core.Numeric{})
	return reg
}

func newTestService(t *testing.T, opts core.Options) *core.Service {
	t.Helper()
	ctx := context.Background()

	db, err := store.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	_, err = db.DB().ExecContext(ctx, serviceSchema)
	require.NoError(t, err)

	svc := core.NewService(db, serviceRules(), opts)
	t.Cleanup(func() { svc.Close() })
	require.NoError(t, svc.VerifyRules(ctx))
	return svc
}

// seed inserts one user and one order referencing it.
func seed(t *testing.T, svc *core.Service) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.Add(ctx, "users", core.Row{nil, "  Ivan ", "Ivan@GMAIL.com", "pw"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "orders", core.Row{nil, "1: Ivan", "01.02.2024", "12.5"})
	require.NoError(t, err)
}

func TestService_Tables(t *testing.T) {
	svc := newTestService(t, core.Options{})
	ctx := context.Background()

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders", "notes"}, tables)

	cols, err := svc.Columns(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "user_id", "created", "amount"}, cols)

	assert.Equal(t, "memory", svc.Database())
}

func TestService_AddTransformsValues(t *testing.T) {
	svc := newTestService(t, core.Options{})
	seed(t, svc)
	ctx := context.Background()

	users, err := svc.List(ctx, "users")
	require.NoError(t, err)
	require.Len(t, users.Rows, 1)
	u := users.Rows[0]
	assert.Equal(t, int64(1), u[0])
	assert.Equal(t, "Ivan", u[1], "required text is trimmed")
	assert.Equal(t, "Ivan@gmail.com", u[2], "email domain is lower-cased")
	assert.Len(t, u[3], 64, "password is stored as a sha256 digest")
	assert.NotEqual(t, "pw", u[3])

	orders, err := svc.List(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, orders.Rows, 1)
	assert.Equal(t, core.Row{int64(1), int64(1), "01.02.2024", 12.5}, orders.Rows[0])
}

func TestService_AddReturnsRefreshedTable(t *testing.T) {
	svc := newTestService(t, core.Options{})

	data, err := svc.Add(context.Background(), "notes", core.Row{"hello", nil})
	require.NoError(t, err)
	assert.Equal(t, "notes", data.Table)
	assert.Equal(t, []core.Row{{"hello", nil}}, data.Rows)
}

func TestService_RejectionLeavesStoreUnchanged(t *testing.T) {
	svc := newTestService(t, core.Options{})
	ctx := context.Background()

	_, err := svc.Add(ctx, "users", core.Row{nil, "   ", "ivan@yahoo.com", "pw"})
	require.Error(t, err)

	ves := core.ValidationErrors(err)
	require.Len(t, ves, 2, "every rejected column is reported")
	assert.Equal(t, "name", ves[0].Column)
	assert.Equal(t, "email", ves[1].Column)
	assert.False(t, core.IsRetryable(err))

	_, err = svc.Add(ctx, "orders", core.Row{nil, "Ivan", "2024-02-01", "abc"})
	assert.Len(t, core.ValidationErrors(err), 3)
	assert.ErrorIs(t, err, core.ErrInvalidSelection)

	for _, table := range []string{"users", "orders"} {
		data, err := svc.List(ctx, table)
		require.NoError(t, err)
		assert.Empty(t, data.Rows, table)
	}
}

func TestService_RowShape(t *testing.T) {
	svc := newTestService(t, core.Options{})

	_, err := svc.Add(context.Background(), "users", core.Row{"Ivan"})
	assert.ErrorIs(t, err, core.ErrRowShape)
}

func TestService_EditByKey(t *testing.T) {
	svc := newTestService(t, core.Options{})
	seed(t, svc)
	ctx := context.Background()

	users, err := svc.List(ctx, "users")
	require.NoError(t, err)
	original := users.Rows[0]

	raw := original.Clone()
	raw[1] = "Ivan Petrov"
	data, err := svc.Edit(ctx, "users", original, raw)
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "Ivan Petrov", data.Rows[0][1])

	display, err := svc.ListDisplay(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "1: Ivan Petrov", display.Rows[0][1], "labels are resolved on every read")

	stale := original.Clone()
	stale[0] = int64(42)
	_, err = svc.Edit(ctx, "users", stale, raw)
	assert.ErrorIs(t, err, core.ErrNoMatch)
}

func TestService_EditByRow(t *testing.T) {
	svc := newTestService(t, core.Options{AddressBy: core.AddressByRow})
	seed(t, svc)
	ctx := context.Background()

	orders, err := svc.List(ctx, "orders")
	require.NoError(t, err)
	original := orders.Rows[0]

	_, err = svc.Edit(ctx, "orders", original, core.Row{original[0], "1: Ivan", "03.04.2024", "20"})
	require.NoError(t, err)

	orders, err = svc.List(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, core.Row{int64(1), int64(1), "03.04.2024", float64(20)}, orders.Rows[0])

	// The displayed row no longer exists.
	_, err = svc.Edit(ctx, "orders", original, core.Row{original[0], "1", "03.04.2024", "30"})
	assert.ErrorIs(t, err, core.ErrNoMatch)
}

func TestService_DeleteRequiresConfirmation(t *testing.T) {
	svc := newTestService(t, core.Options{})
	seed(t, svc)
	ctx := context.Background()

	orders, err := svc.List(ctx, "orders")
	require.NoError(t, err)

	_, err = svc.Delete(ctx, "orders", orders.Rows[0], false)
	assert.ErrorIs(t, err, core.ErrNotConfirmed)

	orders, err = svc.List(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, orders.Rows, 1)

	data, err := svc.Delete(ctx, "orders", orders.Rows[0], true)
	require.NoError(t, err)
	assert.Empty(t, data.Rows)
}

func TestService_DeleteWithoutKeyRemovesDuplicates(t *testing.T) {
	svc := newTestService(t, core.Options{})
	ctx := context.Background()

	for _, r := range []core.Row{{"dup", "x"}, {"dup", "x"}, {"keep", nil}} {
		_, err := svc.Add(ctx, "notes", r)
		require.NoError(t, err)
	}

	data, err := svc.Delete(ctx, "notes", core.Row{"dup", "x"}, true)
	require.NoError(t, err)
	assert.Equal(t, []core.Row{{"keep", nil}}, data.Rows)

	entries := svc.RecentAudit(1)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].RowsAffected)
	assert.Equal(t, string(core.AddressByRow), entries[0].AddressedBy)

	data, err = svc.Delete(ctx, "notes", core.Row{"keep", nil}, true)
	require.NoError(t, err, "NULL cells match")
	assert.Empty(t, data.Rows)
}

func TestService_StorageFailureIsRetryable(t *testing.T) {
	svc := newTestService(t, core.Options{})
	seed(t, svc)
	ctx := context.Background()

	users, err := svc.List(ctx, "users")
	require.NoError(t, err)

	_, err = svc.Delete(ctx, "users", users.Rows[0], true)
	require.Error(t, err, "user is still referenced by an order")

	var se *core.StorageError
	assert.True(t, errors.As(err, &se))
	assert.True(t, core.IsRetryable(err))
	assert.Equal(t, "DB002", core.MapError(err).Code)

	after, err := svc.List(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, users.Rows, after.Rows)

	_, err = svc.Add(ctx, "orders", core.Row{nil, "7: Nobody", "01.02.2024", "1"})
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))
}

func TestService_Form(t *testing.T) {
	svc := newTestService(t, core.Options{})
	seed(t, svc)
	ctx := context.Background()

	fields, err := svc.Form(ctx, "orders", nil)
	require.NoError(t, err)
	require.Len(t, fields, 4)

	assert.Equal(t, core.WidgetText, fields[0].Widget)
	assert.Equal(t, core.WidgetSelect, fields[1].Widget)
	require.Len(t, fields[1].Options, 1)
	assert.Equal(t, "1: Ivan", fields[1].Options[0].Display())
	assert.Equal(t, core.WidgetDate, fields[2].Widget)
	assert.Equal(t, core.KindNumeric, fields[3].Rule)

	orders, err := svc.List(ctx, "orders")
	require.NoError(t, err)
	fields, err = svc.Form(ctx, "orders", orders.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, "1: Ivan", fields[1].Value, "current key is shown with its label")
	assert.Equal(t, "12.5", fields[3].Value)

	userFields, err := svc.Form(ctx, "users", nil)
	require.NoError(t, err)
	assert.True(t, userFields[1].Required)
	assert.Equal(t, core.WidgetSecret, userFields[3].Widget)
}

func TestService_Report(t *testing.T) {
	svc := newTestService(t, core.Options{SampleLimit: 1})
	seed(t, svc)
	ctx := context.Background()

	_, err := svc.Add(ctx, "users", core.Row{nil, "Olga", "olga@gmail.com", "x"})
	require.NoError(t, err)

	snap, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", snap.Database)
	require.Len(t, snap.Sections, 3)

	users := snap.Sections[0]
	assert.Equal(t, "users", users.Table)
	assert.Equal(t, int64(2), users.RowCount)
	assert.Len(t, users.Samples, 1, "samples are capped")

	notes := snap.Sections[2]
	assert.True(t, notes.Empty())
	assert.Empty(t, notes.Samples)
	assert.Equal(t, []string{"body", "tag"}, notes.Columns)
}

func TestService_UnknownTable(t *testing.T) {
	svc := newTestService(t, core.Options{})
	ctx := context.Background()

	_, err := svc.List(ctx, "ghosts")
	assert.ErrorIs(t, err, core.ErrUnknownTable)

	_, err = svc.Add(ctx, "ghosts", core.Row{"x"})
	assert.ErrorIs(t, err, core.ErrUnknownTable)
	assert.Equal(t, "TBL001", core.MapError(err).Code)
}

func TestService_UntypedColumnMatchesDisplayedText(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	_, err = db.DB().ExecContext(ctx, `CREATE TABLE loose (a, b TEXT); INSERT INTO loose VALUES (5, 'x'), ('abc', 'y');`)
	require.NoError(t, err)

	svc := core.NewService(db, nil, core.Options{})
	t.Cleanup(func() { svc.Close() })

	desc, err := svc.Describe(ctx, "loose")
	require.NoError(t, err)
	assert.Equal(t, core.ColumnAny, desc.Columns[0].Type)

	data, err := svc.List(ctx, "loose")
	require.NoError(t, err)
	require.Equal(t, []core.Row{{int64(5), "x"}, {"abc", "y"}}, data.Rows)

	// Clients send back what they were shown, as text.
	shown := core.RowFromStrings(data.Rows[0].Strings())
	data, err = svc.Edit(ctx, "loose", shown, core.Row{"6", "x"})
	require.NoError(t, err)
	assert.Equal(t, []core.Row{{int64(6), "x"}, {"abc", "y"}}, data.Rows)

	data, err = svc.Delete(ctx, "loose", core.RowFromStrings(data.Rows[0].Strings()), true)
	require.NoError(t, err)
	assert.Equal(t, []core.Row{{"abc", "y"}}, data.Rows)

	data, err = svc.Delete(ctx, "loose", core.RowFromStrings([]string{"abc", "y"}), true)
	require.NoError(t, err, "text stays text")
	assert.Empty(t, data.Rows)
}
