package postgres

import (
	"context"
	"database/sql"
	"slices"
	"sync"

	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
)

// Cursor reads the result set of one statement. Column descriptions are
// copied at creation so they stay available after the rows are drained.
type Cursor struct {
	conn    *Connection
	rows    *sql.Rows
	st      *statement
	columns []adapter.ColumnInfo
	oids    []uint32
	limit   int

	once sync.Once
}

func newCursor(conn *Connection, rows *sql.Rows, cols []*sql.ColumnType, st *statement) *Cursor {
	cur := &Cursor{
		conn:    conn,
		rows:    rows,
		st:      st,
		columns: make([]adapter.ColumnInfo, len(cols)),
		oids:    make([]uint32, len(cols)),
	}
	for i, ct := range cols {
		oid := columnOID(conn.types, ct)
		cur.oids[i] = oid
		cur.columns[i] = adapter.ColumnInfo{Name: ct.Name(), TypeLabel: ShortTypeLabelForOID(oid)}
	}
	return cur
}

// Columns returns (name, glyph) pairs in result order.
func (c *Cursor) Columns() []adapter.ColumnInfo {
	return slices.Clone(c.columns)
}

// SetLimit caps FetchAll at limit rows. Zero or less means no cap.
func (c *Cursor) SetLimit(limit int) adapter.Cursor {
	c.limit = limit
	return c
}

// FetchAll reads the remaining rows and closes the cursor. A cancelled
// statement yields an empty result.
func (c *Cursor) FetchAll() ([][]any, error) {
	defer c.close()

	out := [][]any{}
	n := len(c.columns)
	for (c.limit <= 0 || len(out) < c.limit) && c.rows.Next() {
		vals := make([]any, n)
		ptrs := make([]any, n)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := c.rows.Scan(ptrs...); err != nil {
			return c.failed(err)
		}
		for i, v := range vals {
			vals[i] = c.conn.decoders.Decode(c.oids[i], v)
		}
		out = append(out, vals)
	}
	if err := c.rows.Err(); err != nil {
		return c.failed(err)
	}
	return out, nil
}

func (c *Cursor) failed(err error) ([][]any, error) {
	if c.st.interrupted(err) {
		return [][]any{}, nil
	}
	// close before rolling back so the main connection is free
	c.close()
	return nil, c.conn.queryFailed(context.Background(), err)
}

func (c *Cursor) close() {
	c.once.Do(func() {
		_ = c.rows.Close()
		c.conn.finish(c.st)
		c.conn.forgetCursor(c)
	})
}

var _ adapter.Cursor = (*Cursor)(nil)
