package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/pgcatalog/internal/cli/config"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"gopkg.in/yaml.v3"
)

// resultSet is a fetched cursor.
type resultSet struct {
	Columns []adapter.ColumnInfo
	Rows    [][]any
	// Limit is the row cap the cursor was fetched with; 0 means none.
	Limit int
}

func (r *resultSet) truncated() bool {
	return r.Limit > 0 && len(r.Rows) >= r.Limit
}

func renderResults(w io.Writer, rs *resultSet, format string) error {
	switch format {
	case config.OutputJSON:
		return renderJSON(w, rs)
	case config.OutputYAML:
		return renderYAML(w, rs)
	case config.OutputCSV:
		return renderCSV(w, rs)
	case config.OutputMarkdown:
		return renderMarkdown(w, rs)
	default:
		return renderTable(w, rs)
	}
}

func newResultTable(w io.Writer, rs *resultSet, withGlyphs bool) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	// column names are shown as the server returned them
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(rs.Columns))
	for i, col := range rs.Columns {
		if withGlyphs {
			header[i] = fmt.Sprintf("%s %s", col.Name, col.TypeLabel)
		} else {
			header[i] = col.Name
		}
	}
	t.AppendHeader(header)

	for _, values := range rs.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}
	return t
}

func renderTable(w io.Writer, rs *resultSet) error {
	if len(rs.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	newResultTable(w, rs, true).Render()
	if rs.truncated() {
		_, _ = fmt.Fprintf(w, "(%d rows, limited)\n", len(rs.Rows))
		return nil
	}
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rs.Rows))
	return nil
}

func renderCSV(w io.Writer, rs *resultSet) error {
	newResultTable(w, rs, false).RenderCSV()
	return nil
}

func renderMarkdown(w io.Writer, rs *resultSet) error {
	if len(rs.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	newResultTable(w, rs, true).RenderMarkdown()
	return nil
}

// records converts rows into one map per row keyed by column name.
func (r *resultSet) records() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, values := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(values) {
				rec[col.Name] = plainValue(values[i])
			}
		}
		out = append(out, rec)
	}
	return out
}

func renderJSON(w io.Writer, rs *resultSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs.records())
}

func renderYAML(w io.Writer, rs *resultSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rs.records()); err != nil {
		return err
	}
	return enc.Close()
}

// plainValue converts driver values that encoders render poorly.
func plainValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return v
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05.999999999Z07:00")
	}
	return fmt.Sprintf("%v", v)
}
