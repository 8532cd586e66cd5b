package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
	"github.com/spf13/cobra"
)

// ActionOptions holds options for the action command.
type ActionOptions struct {
	// Run executes the SQL an action produces instead of only printing it.
	Run bool
}

// NewActionCommand creates the action command.
func NewActionCommand() *cobra.Command {
	opts := &ActionOptions{}

	cmd := &cobra.Command{
		Use:   "action <path> [label]",
		Short: "Run a catalog item's interaction",
		Long: `Run one of the interactions a catalog item offers, such as
"Preview Data" on a table or "Drop Schema" on a schema.

Without a label, lists the interactions available at path. Interactions
that would open an editor buffer print their SQL; --run executes it.
Destructive interactions ask for confirmation unless --yes is given.`,
		Example: `  # What can be done with a table?
  pgcatalog action app/public/orders

  # Preview its data
  pgcatalog action app/public/orders "Preview Data" --run

  # Drop a schema without prompting
  pgcatalog action app/staging "Drop Schema" --yes`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			conn, cleanup, err := Connect(cmd, cmdCtx)
			if err != nil {
				return err
			}
			defer cleanup()

			label := ""
			if len(args) == 2 {
				label = args[1]
			}
			return runAction(cmd.Context(), cmdCtx, conn, newTerminalDriver(cmdCtx), args[0], label, opts.Run)
		},
	}

	cmd.Flags().BoolVar(&opts.Run, "run", false, "Execute the SQL the interaction produces")

	return cmd
}

// runAction resolves path and runs the interaction labelled label. An empty
// label lists the interactions instead.
func runAction(ctx context.Context, cmdCtx *CommandContext, conn adapter.Connection, d *terminalDriver, path, label string, run bool) error {
	cat, err := conn.Catalog(ctx)
	if err != nil {
		return err
	}
	node, err := findNode(ctx, cat, path)
	if err != nil {
		return err
	}

	if label == "" {
		for _, it := range node.Interactions() {
			_, _ = fmt.Fprintln(cmdCtx.Out, it.Label)
		}
		return nil
	}

	it, ok := lookupInteraction(node, label)
	if !ok {
		return fmt.Errorf("%s %s has no interaction %q; available: %s",
			node.Kind, node.Label, label, strings.Join(interactionLabels(node), ", "))
	}

	if run {
		// keep stdout for the result set
		d.out = cmdCtx.ErrOut
	}
	if err := it.Run(ctx, node, d); err != nil {
		return err
	}
	if d.refreshed {
		cmdCtx.Logger.Debug("catalog changed by interaction", slog.String("interaction", it.Label))
	}

	if !run {
		return nil
	}
	for _, text := range d.takeBuffers() {
		rs, err := runStatement(ctx, conn, text, cmdCtx.Cfg.Limit)
		if err != nil {
			return err
		}
		if err := printResult(cmdCtx, rs); err != nil {
			return err
		}
	}
	return nil
}

// lookupInteraction matches label exactly first, then case-insensitively.
func lookupInteraction(n *catalog.Node, label string) (catalog.Interaction, bool) {
	if it, ok := n.Interaction(label); ok {
		return it, true
	}
	for _, it := range n.Interactions() {
		if strings.EqualFold(it.Label, label) {
			return it, true
		}
	}
	return catalog.Interaction{}, false
}

func interactionLabels(n *catalog.Node) []string {
	its := n.Interactions()
	labels := make([]string, len(its))
	for i, it := range its {
		labels[i] = it.Label
	}
	return labels
}
