package catalog

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Source is the connection-side handle a node uses to load children and
// run its actions. Implementations must report Closed once the owning
// connection is gone.
type Source interface {
	Closed() bool

	Schemas(ctx context.Context, database string) ([]string, error)
	Relations(ctx context.Context, database, schema string) ([]Relation, error)
	Columns(ctx context.Context, database, schema, relation string) ([]Column, error)

	// Exec runs a statement on the main connection and discards any result.
	Exec(ctx context.Context, query string) error
	// QueryRows runs a statement on the main connection and returns its rows.
	QueryRows(ctx context.Context, query string) ([][]any, error)
}

// Relation is a (name, kind) pair from the metadata layer.
type Relation struct {
	Name string
	Type string
}

// Column is a column of a relation. TypeLabel is the display glyph.
type Column struct {
	Name      string
	DataType  string
	TypeLabel string
}

// QuoteIdentifier double-quotes each part independently, doubling embedded
// quotes, and joins them with ".".
func QuoteIdentifier(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

// QuoteLiteral renders s as a SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
