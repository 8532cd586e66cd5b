package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Interaction is a labelled action the host offers on a node.
type Interaction struct {
	Label string
	Run   func(ctx context.Context, n *Node, d Driver) error
}

var (
	databaseInteractions = []Interaction{
		{Label: `List Relations (\d+)`, Run: showListObjects},
		{Label: `List Indexes (\di+)`, Run: showListIndexes},
		{Label: "Drop Database", Run: dropDatabase},
	}

	schemaInteractions = []Interaction{
		{Label: "Set Search Path", Run: setSearchPath},
		{Label: `List Relations (\d+)`, Run: showListObjects},
		{Label: `List Indexes (\di+)`, Run: showListIndexes},
		{Label: "Drop Schema", Run: dropSchema},
	}

	relationInteractions = []Interaction{
		{Label: "Insert Columns at Cursor", Run: insertColumnsAtCursor},
		{Label: "Preview Data", Run: showSelectStar},
		{Label: `Describe Relation (\d+)`, Run: showDescribeRelation},
	}

	tableInteractions = concat(relationInteractions,
		Interaction{Label: "Describe Indexes", Run: showDescribeTableIndexes},
		Interaction{Label: "Describe Constraints", Run: showDescribeTableConstraints},
		Interaction{Label: "Drop Table", Run: dropRelation("table")},
	)

	viewInteractions = concat(relationInteractions,
		Interaction{Label: "Show View Definition", Run: showViewDefinition},
		Interaction{Label: "Drop View", Run: dropRelation("view")},
	)

	materializedViewInteractions = concat(relationInteractions,
		Interaction{Label: "Show View Definition", Run: showViewDefinition},
		Interaction{Label: "Refresh Materialized View", Run: refreshMaterializedView},
		Interaction{Label: "Drop Materialized View", Run: dropRelation("materialized view")},
	)

	foreignTableInteractions = concat(relationInteractions,
		Interaction{Label: "Drop Table", Run: dropRelation("foreign table")},
	)
)

func concat(base []Interaction, extra ...Interaction) []Interaction {
	out := make([]Interaction, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// Interactions returns the actions legal for this node's kind.
func (n *Node) Interactions() []Interaction {
	switch n.Kind {
	case KindDatabase:
		return databaseInteractions
	case KindSchema:
		return schemaInteractions
	case KindTable, KindTempTable:
		return tableInteractions
	case KindView:
		return viewInteractions
	case KindMaterializedView:
		return materializedViewInteractions
	case KindForeignTable:
		return foreignTableInteractions
	case KindColumn:
		return nil
	}
	return nil
}

// Interaction looks up an action by label.
func (n *Node) Interaction(label string) (Interaction, bool) {
	for _, it := range n.Interactions() {
		if it.Label == label {
			return it, true
		}
	}
	return Interaction{}, false
}

func (n *Node) connected() bool {
	return n.src != nil && !n.src.Closed()
}

// hasChildren uses the cached children if loaded and fetches otherwise.
func (n *Node) hasChildren(ctx context.Context) (bool, error) {
	if n.Loaded() {
		return len(n.Children()) > 0, nil
	}
	children, err := n.FetchChildren(ctx)
	if err != nil {
		return false, err
	}
	return len(children) > 0, nil
}

func setSearchPath(ctx context.Context, n *Node, d Driver) error {
	if !n.connected() {
		return nil
	}
	if err := n.src.Exec(ctx, "set search_path to "+n.QueryName); err != nil {
		d.Notify("Could not switch context", SeverityError)
		return err
	}
	d.Notify(fmt.Sprintf("Editor context switched to %s", n.Label), SeverityInformation)
	return nil
}

// runDrop executes stmt and refreshes the catalog on success.
func runDrop(ctx context.Context, n *Node, d Driver, what, stmt string) error {
	if !n.connected() {
		return nil
	}
	if err := n.src.Exec(ctx, stmt); err != nil {
		d.Notify(fmt.Sprintf("Could not drop %s %s", what, n.Label), SeverityError)
		return err
	}
	d.Notify(fmt.Sprintf("Dropped %s %s", what, n.Label), SeverityInformation)
	d.RefreshCatalog()
	return nil
}

func dropSchema(ctx context.Context, n *Node, d Driver) error {
	drop := func(ctx context.Context) error {
		return runDrop(ctx, n, d, "schema", fmt.Sprintf("drop schema %s cascade", n.QueryName))
	}
	nonEmpty, err := n.hasChildren(ctx)
	if err != nil {
		return err
	}
	if nonEmpty {
		return d.ConfirmAndExecute(ctx, drop)
	}
	return drop(ctx)
}

// dropDatabase always confirms: schemas are only visible for the database
// the session is connected to, so emptiness cannot be checked.
func dropDatabase(ctx context.Context, n *Node, d Driver) error {
	return d.ConfirmAndExecute(ctx, func(ctx context.Context) error {
		return runDrop(ctx, n, d, "database", fmt.Sprintf("drop database %s", n.QueryName))
	})
}

func dropRelation(relationType string) func(ctx context.Context, n *Node, d Driver) error {
	return func(ctx context.Context, n *Node, d Driver) error {
		return d.ConfirmAndExecute(ctx, func(ctx context.Context) error {
			return runDrop(ctx, n, d, relationType, fmt.Sprintf("drop %s %s", relationType, n.QueryName))
		})
	}
}

func refreshMaterializedView(ctx context.Context, n *Node, d Driver) error {
	if !n.connected() {
		return nil
	}
	if err := n.src.Exec(ctx, "refresh materialized view "+n.QueryName); err != nil {
		d.Notify(fmt.Sprintf("Could not refresh %s", n.Label), SeverityError)
		return err
	}
	d.Notify(fmt.Sprintf("Refreshed materialized view %s", n.Label), SeverityInformation)
	return nil
}

func showSelectStar(_ context.Context, n *Node, d Driver) error {
	d.InsertTextInNewBuffer(fmt.Sprintf("select *\nfrom %s\nlimit 100", n.QueryName))
	return nil
}

func showListObjects(_ context.Context, n *Node, d Driver) error {
	d.InsertTextInNewBuffer(listObjectsQuery(namespaceFilter(n)))
	return nil
}

func showListIndexes(_ context.Context, n *Node, d Driver) error {
	d.InsertTextInNewBuffer(listIndexesQuery(namespaceFilter(n)))
	return nil
}

// namespaceFilter narrows psql-style listings to one schema, or excludes
// the system schemas at database level.
func namespaceFilter(n *Node) string {
	if n.Kind == KindSchema {
		return "and n.nspname = " + QuoteLiteral(n.Schema)
	}
	return "and n.nspname not in ('pg_catalog', 'pg_toast', 'information_schema')"
}

func missingSchema(n *Node, d Driver) bool {
	if n.Schema == "" {
		d.Notify(fmt.Sprintf("Could not describe %s due to missing schema reference.", n.Label), SeverityError)
		return true
	}
	return false
}

func showDescribeRelation(_ context.Context, n *Node, d Driver) error {
	if missingSchema(n, d) {
		return nil
	}
	d.InsertTextInNewBuffer(describeRelationQuery(n.Schema, n.Relation))
	return nil
}

func showDescribeTableIndexes(_ context.Context, n *Node, d Driver) error {
	if missingSchema(n, d) {
		return nil
	}
	d.InsertTextInNewBuffer(describeIndexesQuery(n.Schema, n.Relation))
	return nil
}

func showDescribeTableConstraints(_ context.Context, n *Node, d Driver) error {
	if missingSchema(n, d) {
		return nil
	}
	d.InsertTextInNewBuffer(describeConstraintsQuery(n.Schema, n.Relation))
	return nil
}

func showViewDefinition(ctx context.Context, n *Node, d Driver) error {
	if !n.connected() || n.Schema == "" {
		return nil
	}
	rows, err := n.src.QueryRows(ctx, viewDefinitionQuery(n.Schema, n.Relation))
	if err != nil {
		return err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	def, ok := rows[0][0].(string)
	if !ok {
		return nil
	}
	d.InsertTextInNewBuffer(fmt.Sprintf("-- View definition for %s\n%s", n.QueryName, def))
	return nil
}

func insertColumnsAtCursor(ctx context.Context, n *Node, d Driver) error {
	cols := n.Children()
	if !n.Loaded() {
		var err error
		cols, err = n.FetchChildren(ctx)
		if err != nil {
			return err
		}
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.QueryName)
	}
	d.InsertTextAtSelection(strings.Join(names, ",\n"))
	return nil
}
