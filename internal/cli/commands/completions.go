package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/pgcatalog/internal/cli/config"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/spf13/cobra"
)

// CompletionsOptions holds options for the completions command.
type CompletionsOptions struct {
	Prefix string
}

// NewCompletionsCommand creates the completions command.
func NewCompletionsCommand() *cobra.Command {
	opts := &CompletionsOptions{}

	cmd := &cobra.Command{
		Use:   "completions",
		Short: "List autocomplete candidates from the server",
		Long: `List the keywords, functions and settings the server offers for
autocompletion, in priority order.`,
		Example: `  pgcatalog completions --prefix json
  pgcatalog completions -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			conn, cleanup, err := Connect(cmd, cmdCtx)
			if err != nil {
				return err
			}
			defer cleanup()

			completions, err := conn.Completions(cmd.Context())
			if err != nil {
				return err
			}
			return renderCompletions(cmdCtx.Out, filterCompletions(completions, opts.Prefix), cmdCtx.Cfg.Output)
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "Only show candidates starting with this prefix")

	return cmd
}

// filterCompletions keeps candidates whose label starts with prefix,
// ignoring case. Order is preserved.
func filterCompletions(completions []adapter.Completion, prefix string) []adapter.Completion {
	if prefix == "" {
		return completions
	}
	prefix = strings.ToLower(prefix)
	out := make([]adapter.Completion, 0, len(completions))
	for _, c := range completions {
		if strings.HasPrefix(strings.ToLower(c.Label), prefix) {
			out = append(out, c)
		}
	}
	return out
}

func renderCompletions(w io.Writer, completions []adapter.Completion, format string) error {
	rs := &resultSet{Columns: []adapter.ColumnInfo{
		{Name: "label", TypeLabel: "s"},
		{Name: "type", TypeLabel: "s"},
		{Name: "context", TypeLabel: "s"},
		{Name: "priority", TypeLabel: "#"},
	}}
	for _, c := range completions {
		rs.Rows = append(rs.Rows, []any{c.Label, c.TypeLabel, c.Context, c.Priority})
	}

	if format != config.OutputTable {
		return renderResults(w, rs, format)
	}
	if len(completions) == 0 {
		_, _ = fmt.Fprintln(w, "(no completions)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Label", "Type", "Context", "Priority"})
	for _, row := range rs.Rows {
		t.AppendRow(row)
	}
	t.Render()
	return nil
}
