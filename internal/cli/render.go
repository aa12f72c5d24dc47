package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/fhir4ds/fhirsql/internal/engine"
)

// renderResult writes a query result in the requested format.
func renderResult(w io.Writer, res *engine.QueryResult, format string) error {
	switch format {
	case "", "table":
		renderTable(w, res.Columns, res.Rows)
		return nil
	case "json":
		return renderJSON(w, res.Columns, res.Rows)
	case "csv":
		renderCSV(w, res.Columns, res.Rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or csv)", format)
	}
}

func renderTable(w io.Writer, cols []string, rows [][]any) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i := range cols {
			row[i] = formatValue(r[i])
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

func renderJSON(w io.Writer, cols []string, rows [][]any) error {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		m := make(map[string]any, len(cols))
		for i, col := range cols {
			m[col] = r[i]
		}
		out = append(out, m)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderCSV(w io.Writer, cols []string, rows [][]any) {
	_, _ = fmt.Fprintln(w, strings.Join(cols, ","))
	for _, r := range rows {
		values := make([]string, len(cols))
		for i := range cols {
			values[i] = escapeCSV(formatValue(r[i]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
