package commands

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/pgcatalog/internal/cli/config"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/leapstack-labs/pgcatalog/pkg/adapters/postgres"
	"github.com/spf13/cobra"
)

// NewOptionsCommand creates the options command.
func NewOptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the connection options",
		Long: `List every connection option the postgres adapter accepts, with its
flags, default and allowed values.

Options can be given as flags, as PGCATALOG_<NAME> environment variables,
or under "options:" in pgcatalog.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			renderOptions(cmdCtx.Out, postgres.Options)
			return nil
		},
	}
}

// optionFlags renders every command-line spelling of an option.
func optionFlags(opt adapter.Option) string {
	spellings := []string{"--" + config.OptionFlagName(opt.Name)}
	spellings = append(spellings, opt.ShortDecls...)
	return strings.Join(spellings, ", ")
}

func renderOptions(w io.Writer, options []adapter.Option) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = true
	t.AppendHeader(table.Row{"Option", "Flags", "Kind", "Default", "Choices", "Description"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, opt := range options {
		t.AppendRow(table.Row{
			opt.Name,
			optionFlags(opt),
			opt.Kind.String(),
			opt.Default,
			strings.Join(opt.Choices, ", "),
			opt.Description,
		})
	}
	t.Render()
}
