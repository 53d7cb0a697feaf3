// Package report renders database report snapshots to text, tables, JSON
// and YAML, and writes them to the report file.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/dbadmin/internal/core"
)

// Output formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// DefaultFile is the report file name used when none is configured.
const DefaultFile = "report.txt"

const ruleWidth = 80

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatTable, FormatJSON, FormatYAML}
}

// ParseFormat normalizes a format name. Empty selects text.
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	switch f {
	case "":
		return FormatText, nil
	case FormatText, FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want one of %s)", s, strings.Join(Formats(), ", "))
	}
}

// ContentType returns the HTTP content type for a format.
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render writes snap to w in the given format.
func Render(w io.Writer, snap *core.ReportSnapshot, format string) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}

	switch f {
	case FormatTable:
		return renderTable(w, snap)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderText(w, snap)
	}
}

// WriteFile renders snap and replaces the file at path with the result.
// Nothing is written if rendering fails.
func WriteFile(path string, snap *core.ReportSnapshot, format string) error {
	if path == "" {
		path = DefaultFile
	}

	var buf bytes.Buffer
	if err := Render(&buf, snap, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// renderText follows the classic report layout: one block per table,
// separated by rules.
func renderText(w io.Writer, snap *core.ReportSnapshot) error {
	var b strings.Builder

	b.WriteString("Database report\n")
	fmt.Fprintf(&b, "Database: %s\n", snap.Database)
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	for _, s := range snap.Sections {
		fmt.Fprintf(&b, "Table: %s\n", s.Table)
		fmt.Fprintf(&b, "Columns: %s\n", strings.Join(s.Columns, ", "))
		fmt.Fprintf(&b, "Records: %d\n", s.RowCount)
		if len(s.Samples) > 0 {
			b.WriteString("Sample records:\n")
			for _, row := range s.Samples {
				b.WriteString(strings.Join(row, " | ") + "\n")
			}
		} else {
			b.WriteString("No records.\n")
		}
		b.WriteString(strings.Repeat("-", ruleWidth) + "\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderTable(w io.Writer, snap *core.ReportSnapshot) error {
	if _, err := fmt.Fprintf(w, "Database: %s\n\n", snap.Database); err != nil {
		return err
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.AppendHeader(table.Row{"Table", "Columns", "Records"})
	for _, s := range snap.Sections {
		summary.AppendRow(table.Row{s.Table, len(s.Columns), strconv.FormatInt(s.RowCount, 10)})
	}
	summary.Render()

	for _, s := range snap.Sections {
		if s.Empty() {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n%s\n", s.Table); err != nil {
			return err
		}
		RowsTable(w, s.Columns, s.Samples)
	}
	return nil
}

// RowsTable renders string rows under a header with go-pretty.
func RowsTable(w io.Writer, columns []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		t.AppendRow(row)
	}
	t.Render()
}
