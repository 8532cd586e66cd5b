package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
)

const listDatabasesQuery = `
select datname
from pg_database
where
    datistemplate is false
    and datallowconn is true
order by datname asc`

const listSchemasQuery = `
select schema_name
from information_schema.schemata
where
    catalog_name = $1::text
    and schema_name != 'information_schema'
    and schema_name not like 'pg_%'
order by schema_name asc`

// Materialized views are not in information_schema.tables.
const listRelationsQuery = `
select table_name, table_type
from information_schema.tables
where
    table_catalog = $1::text
    and table_schema = $2::text
union all
select matviewname, 'MATERIALIZED VIEW'
from pg_catalog.pg_matviews
where
    current_database() = $1::text
    and schemaname = $2::text
order by 1 asc`

// pg_attribute covers materialized views, which information_schema.columns
// does not.
const listColumnsQuery = `
select a.attname, pg_catalog.format_type(a.atttypid, a.atttypmod)
from pg_catalog.pg_attribute a
join pg_catalog.pg_class c on c.oid = a.attrelid
join pg_catalog.pg_namespace n on n.oid = c.relnamespace
where
    current_database() = $1::text
    and n.nspname = $2::text
    and c.relname = $3::text
    and a.attnum > 0
    and not a.attisdropped
order by a.attnum asc`

// queryStrings runs query on a pooled connection and scans every row into
// width strings. NULLs become "".
func (c *Connection) queryStrings(ctx context.Context, width int, query string, args ...any) ([][]string, error) {
	var out [][]string
	err := c.withPooledConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			vals := make([]sql.NullString, width)
			ptrs := make([]any, width)
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			row := make([]string, width)
			for i, v := range vals {
				row[i] = v.String
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}

func (c *Connection) listDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.queryStrings(ctx, 1, listDatabasesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	return firstColumn(rows), nil
}

func (c *Connection) listSchemas(ctx context.Context, database string) ([]string, error) {
	rows, err := c.queryStrings(ctx, 1, listSchemasQuery, database)
	if err != nil {
		return nil, err
	}
	return firstColumn(rows), nil
}

func (c *Connection) listRelations(ctx context.Context, database, schema string) ([]catalog.Relation, error) {
	rows, err := c.queryStrings(ctx, 2, listRelationsQuery, database, schema)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Relation, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.Relation{Name: r[0], Type: r[1]})
	}
	return out, nil
}

func (c *Connection) listColumns(ctx context.Context, database, schema, relation string) ([]catalog.Column, error) {
	rows, err := c.queryStrings(ctx, 2, listColumnsQuery, database, schema, relation)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Column, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.Column{Name: r[0], DataType: r[1], TypeLabel: ShortTypeLabel(r[1])})
	}
	return out, nil
}

func firstColumn(rows [][]string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r[0])
	}
	return out
}

// catalogSource is the handle catalog nodes hold on their connection.
type catalogSource struct {
	conn *Connection
}

func (s *catalogSource) Closed() bool {
	return s.conn.isClosed()
}

func (s *catalogSource) Schemas(ctx context.Context, database string) ([]string, error) {
	return s.conn.listSchemas(ctx, database)
}

func (s *catalogSource) Relations(ctx context.Context, database, schema string) ([]catalog.Relation, error) {
	return s.conn.listRelations(ctx, database, schema)
}

func (s *catalogSource) Columns(ctx context.Context, database, schema, relation string) ([]catalog.Column, error) {
	return s.conn.listColumns(ctx, database, schema, relation)
}

// Exec runs on the main connection so session settings such as
// search_path reach the user's editor session.
func (s *catalogSource) Exec(ctx context.Context, query string) error {
	if s.conn.isClosed() {
		return nil
	}
	s.conn.closeCursor()
	return s.conn.execMain(ctx, query)
}

func (s *catalogSource) QueryRows(ctx context.Context, query string) ([][]any, error) {
	var out [][]any
	err := s.conn.withPooledConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			out = append(out, vals)
		}
		return rows.Err()
	})
	return out, err
}

var _ catalog.Source = (*catalogSource)(nil)
