package core

import "testing"

func TestClassifyType(t *testing.T) {
	tests := []struct {
		declared string
		want     string
	}{
		{"", ColumnAny},
		{"   ", ColumnAny},
		{"INTEGER", ColumnNumeric},
		{"int4", ColumnNumeric},
		{"unsigned big int", ColumnNumeric},
		{"numeric(10,2)", ColumnNumeric},
		{"double precision", ColumnNumeric},
		{"REAL", ColumnNumeric},
		{"bigserial", ColumnNumeric},
		{"varchar(255)", ColumnText},
		{"character varying", ColumnText},
		{"TEXT", ColumnText},
		{"interval", "interval"},
		{"point", "point"},
		{"timestamp with time zone", "timestamp with time zone"},
		{"BLOB", "blob"},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			if got := ClassifyType(tt.declared); got != tt.want {
				t.Errorf("ClassifyType(%q) = %q, want %q", tt.declared, got, tt.want)
			}
		})
	}
}

func TestCoerceRow(t *testing.T) {
	desc := TableDescriptor{Columns: []ColumnDescriptor{
		{Name: "n", Type: ColumnNumeric},
		{Name: "a", Type: ColumnAny},
		{Name: "t", Type: ColumnText},
		{Name: "i", Type: "interval"},
	}}

	tests := []struct {
		name string
		in   Row
		want Row
	}{
		{"numeric text", Row{"5", "5", "5", "5"}, Row{int64(5), int64(5), "5", "5"}},
		{"decimals", Row{"1.5", " 2.5 ", "1.5", "1 day"}, Row{1.5, 2.5, "1.5", "1 day"}},
		{"untyped keeps words", Row{"x", "NaN", "inf", nil}, Row{"x", "NaN", "inf", nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coerceRow(desc, tt.in)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("col %d = %#v, want %#v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
