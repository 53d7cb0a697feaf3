package core

import "context"

// TableData is the content of one table as the view shows it.
type TableData struct {
	Table      string   `json:"table"`
	Columns    []string `json:"columns"`
	PrimaryKey string   `json:"primaryKey,omitempty"`
	Rows       []Row    `json:"rows"`
}

// DisplayData is TableData with values rendered for display and foreign
// key columns shown as "key: label".
type DisplayData struct {
	Table      string     `json:"table"`
	Columns    []string   `json:"columns"`
	PrimaryKey string     `json:"primaryKey,omitempty"`
	Rows       [][]string `json:"rows"`
}

// Widget kinds for form fields.
const (
	WidgetText   = "text"
	WidgetSelect = "select"
	WidgetDate   = "date"
	WidgetSecret = "secret"
)

// Field describes the input widget for one column.
type Field struct {
	Column   string   `json:"column"`
	Widget   string   `json:"widget"`
	Rule     string   `json:"rule"`
	Required bool     `json:"required,omitempty"`
	Options  []Option `json:"options,omitempty"`
	Value    string   `json:"value"`
}

// List returns every row of table, verbatim from the store.
func (s *Service) List(ctx context.Context, table string) (*TableData, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	return s.list(ctx, table)
}

func (s *Service) list(ctx context.Context, table string) (*TableData, error) {
	desc, err := s.catalog.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	return s.listDesc(ctx, desc)
}

func (s *Service) listDesc(ctx context.Context, desc TableDescriptor) (*TableData, error) {
	cols := desc.ColumnNames()
	rows, err := s.store.SelectAll(ctx, desc.Name, cols)
	if err != nil {
		return nil, opError("list", desc.Name, err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return &TableData{
		Table:      desc.Name,
		Columns:    cols,
		PrimaryKey: desc.PrimaryKey,
		Rows:       rows,
	}, nil
}

// ListDisplay returns every row of table rendered for display.
func (s *Service) ListDisplay(ctx context.Context, table string) (*DisplayData, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	data, err := s.list(ctx, table)
	if err != nil {
		return nil, err
	}

	labels := make(map[int]map[string]string)
	for i, col := range data.Columns {
		b, ok := s.rules.Binding(table, col)
		if !ok {
			continue
		}
		m, err := s.resolver.Labels(ctx, b)
		if err != nil {
			return nil, err
		}
		labels[i] = m
	}

	out := &DisplayData{
		Table:      data.Table,
		Columns:    data.Columns,
		PrimaryKey: data.PrimaryKey,
		Rows:       make([][]string, len(data.Rows)),
	}
	for r, row := range data.Rows {
		cells := row.Strings()
		for i, m := range labels {
			if i >= len(row) || row[i] == nil {
				continue
			}
			if label, ok := m[cells[i]]; ok {
				cells[i] = Option{Key: row[i], Label: label}.Display()
			}
		}
		out.Rows[r] = cells
	}
	return out, nil
}

// Form describes the input fields for table. With original set, field
// values are prefilled for editing.
func (s *Service) Form(ctx context.Context, table string, original Row) ([]Field, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	desc, err := s.catalog.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	if original != nil {
		if err := desc.CheckRow(len(original)); err != nil {
			return nil, err
		}
	}

	fields := make([]Field, len(desc.Columns))
	for i, col := range desc.Columns {
		f := Field{
			Column:   col.Name,
			Widget:   WidgetText,
			Rule:     s.dispatch.RuleKind(table, col.Name),
			Required: col.NotNull && !col.PrimaryKey,
		}
		var current any
		if original != nil {
			current = original[i]
			f.Value = FormatValue(current)
		}

		rule, _ := s.rules.Lookup(table, col.Name)
		switch r := rule.(type) {
		case ForeignKey:
			f.Widget = WidgetSelect
			opts, err := s.resolver.ListDisplayOptions(ctx, r.Binding)
			if err != nil {
				return nil, err
			}
			f.Options = opts
			if current != nil {
				f.Value = s.selectionValue(opts, current)
			}
		case Date:
			f.Widget = WidgetDate
		case Hash:
			f.Widget = WidgetSecret
		case Required:
			f.Required = true
		}
		fields[i] = f
	}
	return fields, nil
}

// selectionValue renders the current key as "key: label", falling back to
// the raw key when no referenced row has it.
func (s *Service) selectionValue(opts []Option, key any) string {
	want := keyString(key)
	for _, o := range opts {
		if keyString(o.Key) == want {
			return o.Display()
		}
	}
	return want
}
