package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func dispatcherWith(table, column string, rule Rule) *Dispatcher {
	reg := NewRegistry()
	reg.Register(table, column, rule)
	return NewDispatcher(reg)
}

func TestEmailRule(t *testing.T) {
	domains := []string{"gmail.com", "mail.ru", "inbox.ru"}

	tests := []struct {
		name    string
		fold    bool
		raw     string
		want    string
		wantErr bool
	}{
		{"allowed domain unchanged", false, "a@gmail.com", "a@gmail.com", false},
		{"surrounding space trimmed", false, "  ivan@mail.ru ", "ivan@mail.ru", false},
		{"domain case is significant by default", false, "A@GMAIL.COM", "", true},
		{"domain case folded when enabled", true, "Ivan@Inbox.RU", "Ivan@inbox.ru", false},
		{"other domain rejected", false, "a@yahoo.com", "", true},
		{"other domain rejected when folding", true, "a@YAHOO.com", "", true},
		{"subdomain rejected", false, "a@x.gmail.com", "", true},
		{"missing local part", false, "@gmail.com", "", true},
		{"not an email", false, "gmail.com", "", true},
		{"empty", false, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := dispatcherWith("users", "email", Email{Domains: domains, FoldCase: tt.fold})
			got, err := d.ValidateField(context.Background(), FieldInput{Table: "users", Column: "email", Raw: tt.raw})
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
				if !strings.Contains(ve.Reason, "gmail.com") {
					t.Errorf("reason should name allowed domains: %q", ve.Reason)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPhoneRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    Phone
		raw     string
		want    string
		wantErr bool
	}{
		{"11 digits", Phone{Digits: 11, Groups: []int{1, 3, 3, 2, 2}}, "89991234567", "+8-999-123-45-67", false},
		{"11 digits with punctuation", Phone{Digits: 11, Groups: []int{1, 3, 3, 2, 2}}, "8 (999) 123-45-67", "+8-999-123-45-67", false},
		{"10 digits rejected", Phone{Digits: 11, Groups: []int{1, 3, 3, 2, 2}}, "8999123456", "", true},
		{"12 digits rejected for 11", Phone{Digits: 11, Groups: []int{1, 3, 3, 2, 2}}, "899912345678", "", true},
		{"12 digits", Phone{Digits: 12, Groups: []int{3, 2, 3, 2, 2}}, "+375 29 123 45 67", "+375-29-123-45-67", false},
		{"11 digits rejected for 12", Phone{Digits: 12, Groups: []int{3, 2, 3, 2, 2}}, "37529123456", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := dispatcherWith("t", "phone", tt.rule)
			got, err := d.ValidateField(context.Background(), FieldInput{Table: "t", Column: "phone", Raw: tt.raw})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected rejection, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNumericRule(t *testing.T) {
	d := dispatcherWith("products", "price", Numeric{Message: "price must be numeric"})

	tests := []struct {
		raw     any
		want    float64
		wantErr bool
	}{
		{"12.50", 12.5, false},
		{" 7 ", 7, false},
		{"-0.5", -0.5, false},
		{"1e3", 1000, false},
		{float64(3.25), 3.25, false},
		{"12,50", 0, true},
		{"twelve", 0, true},
		{"", 0, true},
		{"$12", 0, true},
	}

	for _, tt := range tests {
		got, err := d.ValidateField(context.Background(), FieldInput{Table: "products", Column: "price", Raw: tt.raw})
		if tt.wantErr {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("%v: expected *ValidationError, got %v", tt.raw, err)
				continue
			}
			if ve.Reason != "price must be numeric" {
				t.Errorf("%v: reason = %q", tt.raw, ve.Reason)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: unexpected error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%v: got %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestIntegerRule(t *testing.T) {
	d := dispatcherWith("t", "n", Integer{})

	got, err := d.ValidateField(context.Background(), FieldInput{Table: "t", Column: "n", Raw: " 42 "})
	if err != nil || got != int64(42) {
		t.Errorf("got %v, %v; want 42", got, err)
	}
	if _, err := d.ValidateField(context.Background(), FieldInput{Table: "t", Column: "n", Raw: "4.2"}); err == nil {
		t.Error("expected rejection of 4.2")
	}
}

func TestHashRule(t *testing.T) {
	sum := sha256.Sum256([]byte("secret"))
	want := hex.EncodeToString(sum[:])

	t.Run("sha256", func(t *testing.T) {
		d := dispatcherWith("users", "password", Hash{})
		got, err := d.ValidateField(context.Background(), FieldInput{Table: "users", Column: "password", Raw: "secret"})
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("edit re-hashes stored digest by default", func(t *testing.T) {
		d := dispatcherWith("users", "password", Hash{})
		got, err := d.ValidateField(context.Background(), FieldInput{
			Table: "users", Column: "password", Raw: want, Original: want, Editing: true,
		})
		if err != nil {
			t.Fatal(err)
		}
		if got == want {
			t.Error("expected stored digest to be hashed again")
		}
	})

	t.Run("preserve unchanged keeps stored digest", func(t *testing.T) {
		d := dispatcherWith("users", "password", Hash{PreserveUnchanged: true})
		got, err := d.ValidateField(context.Background(), FieldInput{
			Table: "users", Column: "password", Raw: want, Original: want, Editing: true,
		})
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("got %v, want stored digest", got)
		}
	})

	t.Run("bcrypt", func(t *testing.T) {
		d := dispatcherWith("users", "password", Hash{Algorithm: HashBcrypt})
		got, err := d.ValidateField(context.Background(), FieldInput{Table: "users", Column: "password", Raw: "secret"})
		if err != nil {
			t.Fatal(err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(got.(string)), []byte("secret")); err != nil {
			t.Errorf("digest does not verify: %v", err)
		}
	})
}

func TestDateRule(t *testing.T) {
	d := dispatcherWith("orders", "date", Date{})

	tests := []struct {
		name    string
		raw     any
		want    string
		wantErr bool
	}{
		{"structured time", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), "09.03.2024", false},
		{"text in layout", "09.03.2024", "09.03.2024", false},
		{"free text rejected", "March 9", "", true},
		{"iso rejected", "2024-03-09", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ValidateField(context.Background(), FieldInput{Table: "orders", Column: "date", Raw: tt.raw})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected rejection, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForeignKeyRule(t *testing.T) {
	d := dispatcherWith("orders", "user_id", ForeignKey{Binding: ForeignKeyBinding{
		RefTable: "users", KeyColumn: "id", LabelColumn: "name",
	}})

	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"3: Ivan Petrov", 3, false},
		{"3", 3, false},
		{" 12 : label: with colon", 12, false},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := d.ValidateField(context.Background(), FieldInput{Table: "orders", Column: "user_id", Raw: tt.raw})
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSelection) {
				t.Errorf("%q: expected ErrInvalidSelection, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestValidateRow(t *testing.T) {
	reg := NewRegistry()
	reg.Register("users", "email", Email{Domains: []string{"gmail.com"}})
	reg.Register("users", "phone", Phone{Digits: 11, Groups: []int{1, 3, 3, 2, 2}})
	d := NewDispatcher(reg)
	cols := []string{"name", "email", "phone"}

	t.Run("transforms ruled columns and passes the rest", func(t *testing.T) {
		raw := Row{" Ivan ", "ivan@gmail.com", "89991234567"}
		got, err := d.ValidateRow(context.Background(), "users", cols, raw, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := Row{" Ivan ", "ivan@gmail.com", "+8-999-123-45-67"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("col %s = %v, want %v", cols[i], got[i], want[i])
			}
		}
		if raw[2] != "89991234567" {
			t.Error("input row must not be modified")
		}
	})

	t.Run("all or nothing with every rejection reported", func(t *testing.T) {
		got, err := d.ValidateRow(context.Background(), "users", cols, Row{"Ivan", "a@yahoo.com", "123"}, nil)
		if got != nil {
			t.Errorf("expected no row on rejection, got %v", got)
		}
		ves := ValidationErrors(err)
		if len(ves) != 2 {
			t.Fatalf("expected 2 validation errors, got %d (%v)", len(ves), err)
		}
		if ves[0].Column != "email" || ves[1].Column != "phone" {
			t.Errorf("columns = %s, %s", ves[0].Column, ves[1].Column)
		}
	})

	t.Run("row shape", func(t *testing.T) {
		_, err := d.ValidateRow(context.Background(), "users", cols, Row{"only"}, nil)
		if !errors.Is(err, ErrRowShape) {
			t.Errorf("expected ErrRowShape, got %v", err)
		}
	})
}

func TestRuleCheck(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		ok   bool
	}{
		{"phone groups match digits", Phone{Digits: 11, Groups: []int{1, 3, 3, 2, 2}}, true},
		{"phone groups short", Phone{Digits: 12, Groups: []int{1, 3, 3, 2, 2}}, false},
		{"phone zero digits", Phone{}, false},
		{"email without domains", Email{}, false},
		{"hash unknown algorithm", Hash{Algorithm: "md5"}, false},
		{"foreign key without label", ForeignKey{Binding: ForeignKeyBinding{RefTable: "u", KeyColumn: "id"}}, false},
		{"foreign key text key", ForeignKey{Binding: ForeignKeyBinding{RefTable: "u", KeyColumn: "code", LabelColumn: "name", KeyKind: KeyText}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Override("t", "c", tt.rule)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected error")
			}
		})
	}
}
