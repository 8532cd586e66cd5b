// Package adapter defines the plugin contract between a SQL client host and
// a database adapter.
//
// The host constructs an Adapter from a connection string and named options,
// calls Connect, and from then on talks only to the returned Connection: it
// executes statements, reads cursors, asks for the catalog tree and for
// autocomplete candidates. Concrete adapters live in pkg/adapters/.
package adapter

import (
	"context"

	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
)

// Adapter is constructed by the host with connection settings and produces
// live connections.
type Adapter interface {
	// ConnectionID returns a short, stable identifier for the target server,
	// or "" if the settings cannot be parsed.
	ConnectionID() string

	// Connect opens the connection. Failures are *ConnectionError.
	Connect(ctx context.Context) (Connection, error)

	// Options declares the named options this adapter accepts.
	Options() []Option
}

// Connection is a live session with the database server.
type Connection interface {
	// Execute runs a statement on the main connection. It returns a nil
	// Cursor when the statement produced no result set.
	Execute(ctx context.Context, query string) (Cursor, error)

	// Cancel interrupts the in-flight statement, if any. It is safe to call
	// from any goroutine.
	Cancel()

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// TransactionMode returns the current mode.
	TransactionMode() TransactionMode

	// ToggleTransactionMode advances to the next mode and returns it.
	ToggleTransactionMode(ctx context.Context) (TransactionMode, error)

	// Catalog returns a fresh catalog whose root items are not yet loaded.
	Catalog(ctx context.Context) (*catalog.Catalog, error)

	// Completions returns autocomplete candidates sorted by priority.
	Completions(ctx context.Context) ([]Completion, error)

	Close() error
}

// Cursor is the result of a statement that produced a result set.
type Cursor interface {
	// Columns returns (name, type glyph) pairs in result order.
	Columns() []ColumnInfo

	// SetLimit caps the number of rows FetchAll returns.
	SetLimit(limit int) Cursor

	// FetchAll drains the result set and closes the cursor.
	FetchAll() ([][]any, error)
}

// ColumnInfo describes one result column.
type ColumnInfo struct {
	Name      string
	TypeLabel string
}

// TransactionMode is a labelled transaction behaviour. Manual modes expose
// Commit and Rollback to the host.
type TransactionMode struct {
	Label    string
	Commit   func(ctx context.Context) error
	Rollback func(ctx context.Context) error
}

// IsManual reports whether the host should offer commit/rollback controls.
func (m TransactionMode) IsManual() bool {
	return m.Commit != nil
}
