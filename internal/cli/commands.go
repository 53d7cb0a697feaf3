package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dbadmin/internal/core"
	"github.com/JonMunkholm/dbadmin/internal/report"
)

func newTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables in catalog order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := fromContext(cmd.Context())
			tables, err := a.service.Tables(cmd.Context())
			if err != nil {
				return err
			}
			if a.output == "json" {
				return writeJSON(cmd.OutOrStdout(), tables)
			}
			for _, t := range tables {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newColumnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "Describe the columns of a table and their rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			desc, err := a.service.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.output == "json" {
				return writeJSON(cmd.OutOrStdout(), desc)
			}

			rows := make([][]string, len(desc.Columns))
			for i, c := range desc.Columns {
				rows[i] = []string{
					c.Name,
					c.Type,
					yesNo(c.NotNull),
					yesNo(c.PrimaryKey),
					ruleKind(a.service.Rules(), desc.Name, c.Name),
				}
			}
			report.RowsTable(cmd.OutOrStdout(), []string{"column", "type", "not null", "key", "rule"}, rows)
			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	var display bool

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "Print every row of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			if display {
				data, err := a.service.ListDisplay(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printRows(cmd.OutOrStdout(), data.Columns, data.Rows, data)
			}

			data, err := a.service.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printTable(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().BoolVar(&display, "display", false, `show foreign keys as "key: label"`)
	return cmd
}

func newFormCommand() *cobra.Command {
	var original []string

	cmd := &cobra.Command{
		Use:   "form <table>",
		Short: "Show the input fields of a table, with choices for foreign keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			var row core.Row
			if cmd.Flags().Changed("original") {
				row = a.parseRow(original)
			}

			fields, err := a.service.Form(cmd.Context(), args[0], row)
			if err != nil {
				return err
			}
			if a.output == "json" {
				return writeJSON(cmd.OutOrStdout(), fields)
			}

			rows := make([][]string, len(fields))
			for i, f := range fields {
				choices := make([]string, len(f.Options))
				for j, o := range f.Options {
					choices[j] = o.Display()
				}
				rows[i] = []string{f.Column, f.Widget, f.Rule, yesNo(f.Required), f.Value, fmt.Sprint(choices)}
			}
			report.RowsTable(cmd.OutOrStdout(), []string{"column", "widget", "rule", "required", "value", "choices"}, rows)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&original, "original", nil, "displayed row to prefill as CSV; quote values containing commas, e.g. 1,\"Ivan, Jr\"")
	return cmd
}

func newAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <table> <value>...",
		Short: "Validate and insert one row (one value per column)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			data, err := a.service.Add(cmd.Context(), args[0], a.parseRow(args[1:]))
			if err != nil {
				return err
			}
			return a.printTable(cmd.OutOrStdout(), data)
		},
	}
}

func newEditCommand() *cobra.Command {
	var original []string

	cmd := &cobra.Command{
		Use:   "edit <table> --original <csv row> <value>...",
		Short: "Validate values and write them over a displayed row",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			data, err := a.service.Edit(cmd.Context(), args[0], a.parseRow(original), a.parseRow(args[1:]))
			if err != nil {
				return err
			}
			return a.printTable(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringSliceVar(&original, "original", nil, "displayed row as CSV; quote values containing commas, e.g. 1,\"Ivan, Jr\"")
	_ = cmd.MarkFlagRequired("original")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <table> <value>...",
		Short: "Delete a displayed row",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			data, err := a.service.Delete(cmd.Context(), args[0], a.parseRow(args[1:]), yes)
			if err != nil {
				return err
			}
			return a.printTable(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the delete")
	return cmd
}

func newReportCommand() *cobra.Command {
	var (
		out    string
		format string
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a report of every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := fromContext(cmd.Context())
			if out == "" {
				out = a.cfg.Engine.ReportFile
			}
			if format == "" {
				format = a.cfg.Engine.ReportFormat
			}
			if _, err := report.ParseFormat(format); err != nil {
				return err
			}

			snap, err := a.service.Report(cmd.Context())
			if err != nil {
				return err
			}
			if stdout {
				return report.Render(cmd.OutOrStdout(), snap, format)
			}
			if err := report.WriteFile(out, snap, format); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s (%d tables)\n", out, len(snap.Sections))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "report file (env ENGINE_REPORT_FILE, default report.txt)")
	cmd.Flags().StringVar(&format, "format", "", "text, table, json or yaml (env ENGINE_REPORT_FORMAT)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print the report instead of writing the file")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return report.Formats(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show the active column rules and check them against the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := fromContext(cmd.Context())
			reg := a.service.Rules()

			var rows [][]string
			for _, table := range reg.Tables() {
				for _, col := range reg.Columns(table) {
					target := ""
					if b, ok := reg.Binding(table, col); ok {
						target = fmt.Sprintf("%s(%s, %s)", b.RefTable, b.KeyColumn, b.LabelColumn)
					}
					rows = append(rows, []string{table, col, ruleKind(reg, table, col), target})
				}
			}
			report.RowsTable(cmd.OutOrStdout(), []string{"table", "column", "rule", "references"}, rows)

			if err := a.service.VerifyRules(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nproblems:\n%v\n", err)
			}
			return nil
		},
	}
}

// parseRow turns arguments into a row. The null marker becomes NULL.
func (a *app) parseRow(values []string) core.Row {
	row := core.RowFromStrings(values)
	for i, v := range values {
		if v == a.nullText {
			row[i] = nil
		}
	}
	return row
}

func (a *app) printTable(w io.Writer, data *core.TableData) error {
	rows := make([][]string, len(data.Rows))
	for i, r := range data.Rows {
		rows[i] = r.Strings()
	}
	return a.printRows(w, data.Columns, rows, data)
}

// printRows renders rows as a table, or v as JSON with -o json.
func (a *app) printRows(w io.Writer, columns []string, rows [][]string, v any) error {
	if a.output == "json" {
		return writeJSON(w, v)
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	report.RowsTable(w, columns, rows)
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ruleKind(reg *core.Registry, table, column string) string {
	if rule, ok := reg.Lookup(table, column); ok {
		return rule.Kind()
	}
	return core.KindPassThrough
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
