package commands

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/leapstack-labs/pgcatalog/internal/cli/config"
	"github.com/leapstack-labs/pgcatalog/internal/testutil"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
)

// fakeCursor serves canned rows.
type fakeCursor struct {
	columns []adapter.ColumnInfo
	rows    [][]any
	limit   int
}

func (c *fakeCursor) Columns() []adapter.ColumnInfo { return c.columns }

func (c *fakeCursor) SetLimit(limit int) adapter.Cursor {
	c.limit = limit
	return c
}

func (c *fakeCursor) FetchAll() ([][]any, error) {
	if c.limit > 0 && len(c.rows) > c.limit {
		return c.rows[:c.limit], nil
	}
	return c.rows, nil
}

// fakeConn is an adapter.Connection over canned results and a fixed
// in-memory catalog.
type fakeConn struct {
	mu          sync.Mutex
	results     map[string]func() *fakeCursor
	execErr     error
	executed    []string
	mode        int
	commits     int
	rollbacks   int
	cancels     int
	closed      bool
	completions []adapter.Completion
	src         *fakeSource
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		results: make(map[string]func() *fakeCursor),
		src:     newFakeSource(),
	}
}

func (f *fakeConn) addResult(query string, cols []adapter.ColumnInfo, rows [][]any) {
	f.results[query] = func() *fakeCursor { return &fakeCursor{columns: cols, rows: rows} }
}

func (f *fakeConn) Execute(_ context.Context, query string) (adapter.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, query)
	if f.execErr != nil {
		return nil, f.execErr
	}
	if res, ok := f.results[query]; ok {
		return res(), nil
	}
	return nil, nil
}

func (f *fakeConn) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeConn) Commit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return nil
}

func (f *fakeConn) Rollback(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbacks++
	return nil
}

func (f *fakeConn) modes() []adapter.TransactionMode {
	return []adapter.TransactionMode{
		{Label: "Auto"},
		{Label: "Manual", Commit: f.Commit, Rollback: f.Rollback},
	}
}

func (f *fakeConn) TransactionMode() adapter.TransactionMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modes()[f.mode]
}

func (f *fakeConn) ToggleTransactionMode(context.Context) (adapter.TransactionMode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = (f.mode + 1) % 2
	return f.modes()[f.mode], nil
}

func (f *fakeConn) Catalog(context.Context) (*catalog.Catalog, error) {
	return catalog.New([]string{"app", "other"}, f.src), nil
}

func (f *fakeConn) Completions(context.Context) ([]adapter.Completion, error) {
	return f.completions, nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) executedQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

var _ adapter.Connection = (*fakeConn)(nil)

// fakeSource is a catalog.Source over one database with a public schema.
type fakeSource struct {
	mu    sync.Mutex
	execs []string
}

func newFakeSource() *fakeSource { return &fakeSource{} }

func (s *fakeSource) Closed() bool { return false }

func (s *fakeSource) Schemas(_ context.Context, database string) ([]string, error) {
	if database != "app" {
		return nil, nil
	}
	return []string{"public", "staging"}, nil
}

func (s *fakeSource) Relations(_ context.Context, _, schema string) ([]catalog.Relation, error) {
	if schema != "public" {
		return nil, nil
	}
	return []catalog.Relation{
		{Name: "orders", Type: "BASE TABLE"},
		{Name: "recent", Type: "VIEW"},
	}, nil
}

func (s *fakeSource) Columns(_ context.Context, _, _, relation string) ([]catalog.Column, error) {
	return []catalog.Column{
		{Name: "id", DataType: "integer", TypeLabel: "#"},
		{Name: relation + "_at", DataType: "timestamp with time zone", TypeLabel: "ts"},
	}, nil
}

func (s *fakeSource) Exec(_ context.Context, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs = append(s.execs, query)
	return nil
}

func (s *fakeSource) QueryRows(context.Context, string) ([][]any, error) {
	return [][]any{{" SELECT 1;"}}, nil
}

func (s *fakeSource) executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.execs...)
}

// testCommandContext returns a context writing to buffers.
func testCommandContext(t *testing.T, cfg *config.Config) (*CommandContext, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{Output: config.OutputTable}
	}
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	return &CommandContext{
		Cfg:    cfg,
		Logger: testutil.NewTestLogger(t),
		Out:    out,
		ErrOut: errOut,
		In:     strings.NewReader(""),
	}, out, errOut
}
