package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/pgcatalog/internal/testutil"
	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interactionLabels(n *catalog.Node) []string {
	var out []string
	for _, it := range n.Interactions() {
		out = append(out, it.Label)
	}
	return out
}

// loadNode resolves a path in the fake catalog.
func loadNode(t *testing.T, src *fakeSource, path ...string) *catalog.Node {
	t.Helper()
	cat := catalog.New([]string{"test"}, src)
	node, err := cat.Find(context.Background(), path...)
	require.NoError(t, err)
	require.NotNil(t, node, "path %v", path)
	return node
}

func TestInteractions_PerKind(t *testing.T) {
	src := newFakeSource()
	src.relations["test.one"] = append(src.relations["test.one"],
		catalog.Relation{Name: "tmp", Type: "LOCAL TEMPORARY"},
		catalog.Relation{Name: "ext", Type: "FOREIGN"},
	)

	tests := []struct {
		name     string
		path     []string
		expected []string
	}{
		{
			name:     "database",
			path:     []string{"test"},
			expected: []string{`List Relations (\d+)`, `List Indexes (\di+)`, "Drop Database"},
		},
		{
			name:     "schema",
			path:     []string{"test", "one"},
			expected: []string{"Set Search Path", `List Relations (\d+)`, `List Indexes (\di+)`, "Drop Schema"},
		},
		{
			name: "table",
			path: []string{"test", "one", "foo"},
			expected: []string{"Insert Columns at Cursor", "Preview Data", `Describe Relation (\d+)`,
				"Describe Indexes", "Describe Constraints", "Drop Table"},
		},
		{
			name: "temp table",
			path: []string{"test", "one", "tmp"},
			expected: []string{"Insert Columns at Cursor", "Preview Data", `Describe Relation (\d+)`,
				"Describe Indexes", "Describe Constraints", "Drop Table"},
		},
		{
			name: "foreign table",
			path: []string{"test", "one", "ext"},
			expected: []string{"Insert Columns at Cursor", "Preview Data", `Describe Relation (\d+)`,
				"Drop Table"},
		},
		{
			name: "view",
			path: []string{"test", "two", "qux"},
			expected: []string{"Insert Columns at Cursor", "Preview Data", `Describe Relation (\d+)`,
				"Show View Definition", "Drop View"},
		},
		{
			name: "materialized view",
			path: []string{"test", "four", "foo"},
			expected: []string{"Insert Columns at Cursor", "Preview Data", `Describe Relation (\d+)`,
				"Show View Definition", "Refresh Materialized View", "Drop Materialized View"},
		},
		{
			name:     "column",
			path:     []string{"test", "one", "foo", "a"},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := loadNode(t, src, tt.path...)
			assert.Equal(t, tt.expected, interactionLabels(node))
		})
	}
}

func TestInteraction_PreviewData(t *testing.T) {
	src := newFakeSource()
	node := loadNode(t, src, "test", "one", "foo")
	drv := testutil.NewRecordingDriver()

	it, ok := node.Interaction("Preview Data")
	require.True(t, ok)
	require.NoError(t, it.Run(context.Background(), node, drv))
	assert.Equal(t, "select *\nfrom \"one\".\"foo\"\nlimit 100", drv.LastBuffer())
}

func TestInteraction_InsertColumnsAtCursor(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	node := loadNode(t, src, "test", "one", "foo")
	drv := testutil.NewRecordingDriver()

	it, ok := node.Interaction("Insert Columns at Cursor")
	require.True(t, ok)

	// unloaded: fetches
	require.NoError(t, it.Run(ctx, node, drv))
	assert.True(t, node.Loaded())
	require.Len(t, drv.Inserted, 1)
	assert.Equal(t, "\"a\",\n\"b\"", drv.Inserted[0])

	// loaded: reuses children
	before := len(src.calls)
	require.NoError(t, it.Run(ctx, node, drv))
	assert.Len(t, src.calls, before)
	assert.Equal(t, drv.Inserted[0], drv.Inserted[1])
}

func TestInteraction_SetSearchPath(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	node := loadNode(t, src, "test", "one")
	drv := testutil.NewRecordingDriver()

	it, _ := node.Interaction("Set Search Path")
	require.NoError(t, it.Run(ctx, node, drv))
	assert.Equal(t, []string{`set search_path to "one"`}, src.execs)
	require.Len(t, drv.Notifications, 1)
	assert.Equal(t, "Editor context switched to one", drv.Notifications[0].Message)

	src.execErr = errors.New("permission denied")
	err := it.Run(ctx, node, drv)
	require.Error(t, err)
	assert.Equal(t, catalog.SeverityError, drv.Notifications[1].Severity)
}

func TestInteraction_DropSchema(t *testing.T) {
	tests := []struct {
		name          string
		schema        string
		confirm       bool
		confirmations int
		execs         []string
		refreshes     int
	}{
		{
			name:          "non-empty schema confirms and drops",
			schema:        "one",
			confirm:       true,
			confirmations: 1,
			execs:         []string{`drop schema "one" cascade`},
			refreshes:     1,
		},
		{
			name:          "non-empty schema declined",
			schema:        "one",
			confirm:       false,
			confirmations: 1,
			execs:         nil,
			refreshes:     0,
		},
		{
			name:          "empty schema drops without asking",
			schema:        "three",
			confirm:       false,
			confirmations: 0,
			execs:         []string{`drop schema "three" cascade`},
			refreshes:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			node := loadNode(t, src, "test", tt.schema)
			drv := testutil.NewRecordingDriver()
			drv.Confirm = tt.confirm

			it, _ := node.Interaction("Drop Schema")
			require.NoError(t, it.Run(context.Background(), node, drv))
			assert.Equal(t, tt.confirmations, drv.Confirmations)
			assert.Equal(t, tt.execs, src.execs)
			assert.Equal(t, tt.refreshes, drv.Refreshes)
		})
	}
}

func TestInteraction_DropDatabase(t *testing.T) {
	tests := []struct {
		name     string
		database string
		confirm  bool
		execs    []string
	}{
		{name: "current database confirmed", database: "test", confirm: true, execs: []string{`drop database "test"`}},
		{name: "other database confirmed", database: "other", confirm: true, execs: []string{`drop database "other"`}},
		{name: "other database declined", database: "other", confirm: false, execs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			cat := catalog.New([]string{"test", "other"}, src)
			node, err := cat.Find(context.Background(), tt.database)
			require.NoError(t, err)
			drv := testutil.NewRecordingDriver()
			drv.Confirm = tt.confirm

			it, ok := node.Interaction("Drop Database")
			require.True(t, ok)
			require.NoError(t, it.Run(context.Background(), node, drv))
			// schemas of another database are invisible, so the drop always asks
			assert.Equal(t, 1, drv.Confirmations)
			assert.Equal(t, tt.execs, src.execs)
		})
	}
}

func TestInteraction_DropRelations(t *testing.T) {
	tests := []struct {
		path     []string
		label    string
		expected string
	}{
		{[]string{"test", "one", "foo"}, "Drop Table", `drop table "one"."foo"`},
		{[]string{"test", "two", "qux"}, "Drop View", `drop view "two"."qux"`},
		{[]string{"test", "four", "foo"}, "Drop Materialized View", `drop materialized view "four"."foo"`},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			src := newFakeSource()
			node := loadNode(t, src, tt.path...)
			drv := testutil.NewRecordingDriver()

			it, ok := node.Interaction(tt.label)
			require.True(t, ok)
			require.NoError(t, it.Run(context.Background(), node, drv))
			assert.Equal(t, 1, drv.Confirmations)
			assert.Equal(t, []string{tt.expected}, src.execs)
			assert.Equal(t, 1, drv.Refreshes)
		})
	}
}

func TestInteraction_DropFailureNotifies(t *testing.T) {
	src := newFakeSource()
	src.execErr = errors.New("in use")
	node := loadNode(t, src, "test", "one", "foo")
	drv := testutil.NewRecordingDriver()

	it, _ := node.Interaction("Drop Table")
	err := it.Run(context.Background(), node, drv)
	require.Error(t, err)
	require.Len(t, drv.Notifications, 1)
	assert.Equal(t, "Could not drop table foo", drv.Notifications[0].Message)
	assert.Zero(t, drv.Refreshes)
}

func TestInteraction_ShowViewDefinition(t *testing.T) {
	src := newFakeSource()
	src.rows = [][]any{{" SELECT foo.a,\n    foo.b\n   FROM one.foo;"}}
	node := loadNode(t, src, "test", "two", "qux")
	drv := testutil.NewRecordingDriver()

	it, _ := node.Interaction("Show View Definition")
	require.NoError(t, it.Run(context.Background(), node, drv))
	assert.Equal(t, "-- View definition for \"two\".\"qux\"\n SELECT foo.a,\n    foo.b\n   FROM one.foo;", drv.LastBuffer())
	assert.Contains(t, src.calls[len(src.calls)-1], "n.nspname = 'two'")
}

func TestInteraction_ShowViewDefinition_NoRows(t *testing.T) {
	src := newFakeSource()
	node := loadNode(t, src, "test", "two", "qux")
	drv := testutil.NewRecordingDriver()

	it, _ := node.Interaction("Show View Definition")
	require.NoError(t, it.Run(context.Background(), node, drv))
	assert.Empty(t, drv.Buffers)
}

func TestInteraction_DescribeQueries(t *testing.T) {
	src := newFakeSource()
	node := loadNode(t, src, "test", "one", "foo")

	tests := []struct {
		label    string
		contains []string
	}{
		{`Describe Relation (\d+)`, []string{"pg_catalog.format_type", "c.relname = 'foo'", "n.nspname = 'one'"}},
		{"Describe Indexes", []string{"\"Index Name\"", "c.relname = 'foo'", "n.nspname = 'one'"}},
		{"Describe Constraints", []string{"\"Constraint name\"", "c.relname = 'foo'", "n.nspname = 'one'"}},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			drv := testutil.NewRecordingDriver()
			it, ok := node.Interaction(tt.label)
			require.True(t, ok)
			require.NoError(t, it.Run(context.Background(), node, drv))
			for _, s := range tt.contains {
				assert.Contains(t, drv.LastBuffer(), s)
			}
		})
	}
}

func TestInteraction_ListObjectsScope(t *testing.T) {
	src := newFakeSource()
	ctx := context.Background()

	schema := loadNode(t, src, "test", "one")
	drv := testutil.NewRecordingDriver()
	it, _ := schema.Interaction(`List Relations (\d+)`)
	require.NoError(t, it.Run(ctx, schema, drv))
	assert.Contains(t, drv.LastBuffer(), "and n.nspname = 'one'")

	db := loadNode(t, src, "test")
	it, _ = db.Interaction(`List Indexes (\di+)`)
	require.NoError(t, it.Run(ctx, db, drv))
	assert.Contains(t, drv.LastBuffer(), "not in ('pg_catalog', 'pg_toast', 'information_schema')")
	assert.Contains(t, drv.LastBuffer(), "c.relkind in ('i', 'I')")
}

func TestInteraction_ClosedSourceIsNoop(t *testing.T) {
	src := newFakeSource()
	node := loadNode(t, src, "test", "one")
	src.closed = true
	drv := testutil.NewRecordingDriver()

	it, _ := node.Interaction("Set Search Path")
	require.NoError(t, it.Run(context.Background(), node, drv))
	assert.Empty(t, src.execs)
	assert.Empty(t, drv.Notifications)
}

func TestInteraction_RefreshMaterializedView(t *testing.T) {
	src := newFakeSource()
	node := loadNode(t, src, "test", "four", "foo")
	drv := testutil.NewRecordingDriver()

	it, ok := node.Interaction("Refresh Materialized View")
	require.True(t, ok)
	require.NoError(t, it.Run(context.Background(), node, drv))
	assert.Equal(t, []string{`refresh materialized view "four"."foo"`}, src.execs)
}
