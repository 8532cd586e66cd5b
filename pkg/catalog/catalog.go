// Package catalog implements the browsable tree of database objects
// (databases → schemas → relations → columns) that a SQL client host shows
// next to its editor.
//
// Nodes are cheap to construct and never do I/O on construction. Children
// are fetched on demand through a Source, and every FetchChildren call
// re-queries the server; invalidation is the host's job (it discards the
// whole tree and asks the connection for a new Catalog).
package catalog

import (
	"context"
	"fmt"
	"sync"
)

// Kind is the variant tag of a Node.
type Kind int

// Node kinds, from the root of the tree down.
const (
	KindDatabase Kind = iota
	KindSchema
	KindTable
	KindView
	KindMaterializedView
	KindTempTable
	KindForeignTable
	KindColumn
)

func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindSchema:
		return "schema"
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindMaterializedView:
		return "materialized view"
	case KindTempTable:
		return "temporary table"
	case KindForeignTable:
		return "foreign table"
	case KindColumn:
		return "column"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsRelation reports whether k is one of the relation variants.
func (k Kind) IsRelation() bool {
	switch k {
	case KindTable, KindView, KindMaterializedView, KindTempTable, KindForeignTable:
		return true
	case KindDatabase, KindSchema, KindColumn:
		return false
	}
	return false
}

// typeLabel is the glyph shown next to non-column nodes.
func (k Kind) typeLabel() string {
	switch k {
	case KindDatabase:
		return "db"
	case KindSchema:
		return "sch"
	case KindTable:
		return "t"
	case KindView:
		return "v"
	case KindMaterializedView:
		return "mv"
	case KindTempTable:
		return "tmp"
	case KindForeignTable:
		return "f"
	case KindColumn:
		return "?"
	}
	return "?"
}

// Relation type strings as reported by the metadata layer.
const (
	RelationTypeView             = "VIEW"
	RelationTypeLocalTemporary   = "LOCAL TEMPORARY"
	RelationTypeForeign          = "FOREIGN"
	RelationTypeMaterializedView = "MATERIALIZED VIEW"
)

// ClassifyRelation maps a raw relation type string to a relation Kind.
// Anything unrecognised is a table.
func ClassifyRelation(relationType string) Kind {
	switch relationType {
	case RelationTypeView:
		return KindView
	case RelationTypeLocalTemporary:
		return KindTempTable
	case RelationTypeForeign:
		return KindForeignTable
	case RelationTypeMaterializedView:
		return KindMaterializedView
	default:
		return KindTable
	}
}

// Node is one object in the catalog tree.
//
// A node refers to its owner and its ancestors only by name (Database,
// Schema, Relation) and to its connection through a Source handle, so a
// node never keeps either alive.
type Node struct {
	// QualifiedIdentifier is the fully quoted path, unique per connection.
	QualifiedIdentifier string
	// QueryName references the object inside a SQL statement.
	QueryName string
	Label     string
	TypeLabel string
	Kind      Kind

	// Ancestor labels; empty above the node's own level.
	Database string
	Schema   string
	Relation string

	src Source

	mu       sync.Mutex
	children []*Node
	loaded   bool
}

// NewDatabase creates a root database node.
func NewDatabase(label string, src Source) *Node {
	id := QuoteIdentifier(label)
	return &Node{
		QualifiedIdentifier: id,
		QueryName:           id,
		Label:               label,
		TypeLabel:           KindDatabase.typeLabel(),
		Kind:                KindDatabase,
		Database:            label,
		src:                 src,
	}
}

func (n *Node) newSchema(label string) *Node {
	return &Node{
		QualifiedIdentifier: QuoteIdentifier(n.Database, label),
		QueryName:           QuoteIdentifier(label),
		Label:               label,
		TypeLabel:           KindSchema.typeLabel(),
		Kind:                KindSchema,
		Database:            n.Database,
		Schema:              label,
		src:                 n.src,
	}
}

func (n *Node) newRelation(label string, kind Kind) *Node {
	return &Node{
		QualifiedIdentifier: QuoteIdentifier(n.Database, n.Schema, label),
		QueryName:           QuoteIdentifier(n.Schema, label),
		Label:               label,
		TypeLabel:           kind.typeLabel(),
		Kind:                kind,
		Database:            n.Database,
		Schema:              n.Schema,
		Relation:            label,
		src:                 n.src,
	}
}

func (n *Node) newColumn(label, typeLabel string) *Node {
	if typeLabel == "" {
		typeLabel = KindColumn.typeLabel()
	}
	return &Node{
		QualifiedIdentifier: QuoteIdentifier(n.Database, n.Schema, n.Relation, label),
		QueryName:           QuoteIdentifier(label),
		Label:               label,
		TypeLabel:           typeLabel,
		Kind:                KindColumn,
		Database:            n.Database,
		Schema:              n.Schema,
		Relation:            n.Relation,
		src:                 n.src,
		// columns are leaves
		loaded: true,
	}
}

// Children returns the result of the last fetch.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.children
}

// Loaded reports whether children have been fetched at least once.
func (n *Node) Loaded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loaded
}

// Path returns the labels from the database down to this node.
func (n *Node) Path() []string {
	switch n.Kind {
	case KindDatabase:
		return []string{n.Database}
	case KindSchema:
		return []string{n.Database, n.Schema}
	case KindTable, KindView, KindMaterializedView, KindTempTable, KindForeignTable:
		return []string{n.Database, n.Schema, n.Relation}
	case KindColumn:
		return []string{n.Database, n.Schema, n.Relation, n.Label}
	}
	return nil
}

// FetchChildren queries the server for this node's children, stores them,
// and marks the node loaded. A node whose connection is gone yields no
// children and no error.
func (n *Node) FetchChildren(ctx context.Context) ([]*Node, error) {
	if n.src == nil || n.src.Closed() {
		return nil, nil
	}

	var (
		children []*Node
		err      error
	)
	switch n.Kind {
	case KindDatabase:
		children, err = n.fetchSchemas(ctx)
	case KindSchema:
		children, err = n.fetchRelations(ctx)
	case KindTable, KindView, KindMaterializedView, KindTempTable, KindForeignTable:
		children, err = n.fetchColumns(ctx)
	case KindColumn:
		children = nil
	}
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.children = children
	n.loaded = true
	n.mu.Unlock()
	return children, nil
}

func (n *Node) fetchSchemas(ctx context.Context) ([]*Node, error) {
	names, err := n.src.Schemas(ctx, n.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas in %s: %w", n.Label, err)
	}
	children := make([]*Node, 0, len(names))
	for _, name := range names {
		children = append(children, n.newSchema(name))
	}
	return children, nil
}

func (n *Node) fetchRelations(ctx context.Context) ([]*Node, error) {
	rels, err := n.src.Relations(ctx, n.Database, n.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations in %s: %w", n.Label, err)
	}
	children := make([]*Node, 0, len(rels))
	for _, rel := range rels {
		children = append(children, n.newRelation(rel.Name, ClassifyRelation(rel.Type)))
	}
	return children, nil
}

func (n *Node) fetchColumns(ctx context.Context) ([]*Node, error) {
	cols, err := n.src.Columns(ctx, n.Database, n.Schema, n.Relation)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", n.QueryName, err)
	}
	children := make([]*Node, 0, len(cols))
	for _, col := range cols {
		children = append(children, n.newColumn(col.Name, col.TypeLabel))
	}
	return children, nil
}

// Catalog is the root of the tree: one node per database.
type Catalog struct {
	Items []*Node
}

// New builds a catalog from database names. No I/O is done.
func New(databases []string, src Source) *Catalog {
	items := make([]*Node, 0, len(databases))
	for _, db := range databases {
		items = append(items, NewDatabase(db, src))
	}
	return &Catalog{Items: items}
}

// Find walks the tree by label, fetching children of unloaded nodes on the
// way. It returns nil when a label is not present.
func (c *Catalog) Find(ctx context.Context, path ...string) (*Node, error) {
	if len(path) == 0 {
		return nil, nil
	}
	current := findLabel(c.Items, path[0])
	for _, label := range path[1:] {
		if current == nil {
			return nil, nil
		}
		children := current.Children()
		if !current.Loaded() {
			var err error
			children, err = current.FetchChildren(ctx)
			if err != nil {
				return nil, err
			}
		}
		current = findLabel(children, label)
	}
	return current, nil
}

func findLabel(nodes []*Node, label string) *Node {
	for _, n := range nodes {
		if n.Label == label {
			return n
		}
	}
	return nil
}
