package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/leapstack-labs/pgcatalog/internal/cli/config"
	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// catalogWorkers bounds concurrent metadata queries. The pool holds five
// connections and the main connection keeps one of them.
const catalogWorkers = 4

// CatalogOptions holds options for the catalog command.
type CatalogOptions struct {
	Depth int
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand() *cobra.Command {
	opts := &CatalogOptions{}

	cmd := &cobra.Command{
		Use:   "catalog [path]",
		Short: "Show the database catalog tree",
		Long: `Show databases, schemas, relations and columns as a tree.

The tree is loaded lazily: --depth controls how many levels below the
starting point are fetched. A path such as "app/public/orders" starts the
tree at that node.`,
		Example: `  # Databases and their schemas
  pgcatalog catalog

  # Everything under one schema, as JSON
  pgcatalog catalog app/public --depth 3 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Depth, "depth", 2, "Number of tree levels to load")

	return cmd
}

func runCatalog(cmd *cobra.Command, args []string, opts *CatalogOptions) error {
	if opts.Depth < 1 {
		return fmt.Errorf("depth must be at least 1, got %d", opts.Depth)
	}
	cmdCtx := NewCommandContext(cmd)
	conn, cleanup, err := Connect(cmd, cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	cat, err := conn.Catalog(ctx)
	if err != nil {
		return err
	}

	roots := cat.Items
	if len(args) == 1 {
		node, err := findNode(ctx, cat, args[0])
		if err != nil {
			return err
		}
		roots = []*catalog.Node{node}
	}

	if err := expandCatalog(ctx, roots, opts.Depth); err != nil {
		return err
	}
	return renderCatalog(cmdCtx.Out, roots, cmdCtx.Cfg.Output)
}

// splitPath splits "db/schema/relation" into labels.
func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func findNode(ctx context.Context, cat *catalog.Catalog, path string) (*catalog.Node, error) {
	node, err := cat.Find(ctx, splitPath(path)...)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("no catalog item at %q", path)
	}
	return node, nil
}

// expandCatalog loads depth-1 levels below roots, one level at a time.
// Nodes within a level are fetched concurrently.
func expandCatalog(ctx context.Context, roots []*catalog.Node, depth int) error {
	level := roots
	for range depth - 1 {
		next := make([][]*catalog.Node, len(level))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(catalogWorkers)
		for i, n := range level {
			if n.Kind == catalog.KindColumn {
				continue
			}
			g.Go(func() error {
				children, err := n.FetchChildren(gctx)
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", strings.Join(n.Path(), "/"), err)
				}
				next[i] = children
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		level = nil
		for _, children := range next {
			level = append(level, children...)
		}
		if len(level) == 0 {
			return nil
		}
	}
	return nil
}

func renderCatalog(w io.Writer, roots []*catalog.Node, format string) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(catalogItems(roots))
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(catalogItems(roots)); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, catalogTree(roots, newStyles()).String())
		return err
	}
}

func catalogTree(roots []*catalog.Node, s *styles) *tree.Tree {
	t := tree.New().
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(s.Enumerator)
	for _, n := range roots {
		t.Child(catalogSubtree(n, s))
	}
	return t
}

func catalogSubtree(n *catalog.Node, s *styles) any {
	label := s.label(n) + " " + s.TypeLabel.Render(n.TypeLabel)
	children := n.Children()
	if len(children) == 0 {
		return label
	}
	sub := tree.Root(label).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(s.Enumerator)
	for _, c := range children {
		sub.Child(catalogSubtree(c, s))
	}
	return sub
}

// catalogItem is the serialized form of a loaded node.
type catalogItem struct {
	Label               string        `json:"label" yaml:"label"`
	Kind                string        `json:"kind" yaml:"kind"`
	TypeLabel           string        `json:"type_label" yaml:"type_label"`
	QualifiedIdentifier string        `json:"qualified_identifier" yaml:"qualified_identifier"`
	QueryName           string        `json:"query_name" yaml:"query_name"`
	Children            []catalogItem `json:"children,omitempty" yaml:"children,omitempty"`
}

func catalogItems(nodes []*catalog.Node) []catalogItem {
	items := make([]catalogItem, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, catalogItem{
			Label:               n.Label,
			Kind:                n.Kind.String(),
			TypeLabel:           n.TypeLabel,
			QualifiedIdentifier: n.QualifiedIdentifier,
			QueryName:           n.QueryName,
			Children:            catalogItems(n.Children()),
		})
	}
	return items
}
