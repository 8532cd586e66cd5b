package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/leapstack-labs/pgcatalog/internal/cli/config"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"app"}, splitPath("app"))
	assert.Equal(t, []string{"app", "public", "orders"}, splitPath("/app/public/orders/"))
}

func TestExpandCatalog(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	cat, err := conn.Catalog(ctx)
	require.NoError(t, err)

	require.NoError(t, expandCatalog(ctx, cat.Items, 1))
	assert.False(t, cat.Items[0].Loaded())

	require.NoError(t, expandCatalog(ctx, cat.Items, 3))
	app := cat.Items[0]
	require.True(t, app.Loaded())
	schemas := app.Children()
	require.Len(t, schemas, 2)
	assert.Len(t, schemas[0].Children(), 2)
	assert.Empty(t, schemas[1].Children())

	// the third level is not fetched at depth 3
	assert.False(t, schemas[0].Children()[0].Loaded())
}

func TestFindNode(t *testing.T) {
	ctx := context.Background()
	cat, err := newFakeConn().Catalog(ctx)
	require.NoError(t, err)

	node, err := findNode(ctx, cat, "app/public/orders")
	require.NoError(t, err)
	assert.Equal(t, catalog.KindTable, node.Kind)

	_, err = findNode(ctx, cat, "app/public/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no catalog item at "app/public/missing"`)
}

func TestRenderCatalog(t *testing.T) {
	ctx := context.Background()
	cat, err := newFakeConn().Catalog(ctx)
	require.NoError(t, err)
	require.NoError(t, expandCatalog(ctx, cat.Items, 3))

	t.Run("tree", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderCatalog(&buf, cat.Items, config.OutputTable))
		out := buf.String()
		assert.Contains(t, out, "app db")
		assert.Contains(t, out, "public sch")
		assert.Contains(t, out, "orders t")
		assert.Contains(t, out, "recent v")
		assert.Contains(t, out, "other db")
		assert.Contains(t, out, "╰──")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderCatalog(&buf, cat.Items, config.OutputJSON))

		var items []catalogItem
		require.NoError(t, json.Unmarshal(buf.Bytes(), &items))
		require.Len(t, items, 2)
		assert.Equal(t, "app", items[0].Label)
		assert.Equal(t, "database", items[0].Kind)
		require.Len(t, items[0].Children, 2)
		orders := items[0].Children[0].Children[0]
		assert.Equal(t, "orders", orders.Label)
		assert.Equal(t, `"public"."orders"`, orders.QueryName)
		assert.Empty(t, items[1].Children)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderCatalog(&buf, cat.Items[:1], config.OutputYAML))
		assert.Contains(t, buf.String(), "label: app")
		assert.Contains(t, buf.String(), "type_label: sch")
	})
}

func TestCatalogCommand(t *testing.T) {
	conn := newFakeConn()

	out, _, err := runWithFakeConn(t, NewCatalogCommand(), conn, nil, "app/public", "--depth", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "public sch")
	assert.Contains(t, out, "orders_at")
	assert.NotContains(t, out, "other db")

	_, _, err = runWithFakeConn(t, NewCatalogCommand(), newFakeConn(), nil, "--depth", "0")
	require.Error(t, err)
}

func TestTerminalDriver(t *testing.T) {
	ctx := context.Background()

	newDriver := func(in string, interactive, yes bool) (*terminalDriver, *bytes.Buffer) {
		errOut := new(bytes.Buffer)
		return &terminalDriver{
			out:         new(bytes.Buffer),
			errOut:      errOut,
			in:          bufioReader(in),
			interactive: interactive,
			yes:         yes,
			styles:      newStyles(),
		}, errOut
	}

	t.Run("yes skips the prompt", func(t *testing.T) {
		d, errOut := newDriver("", false, true)
		ran := false
		require.NoError(t, d.ConfirmAndExecute(ctx, func(context.Context) error { ran = true; return nil }))
		assert.True(t, ran)
		assert.Empty(t, errOut.String())
	})

	t.Run("non-interactive refuses", func(t *testing.T) {
		d, _ := newDriver("", false, false)
		err := d.ConfirmAndExecute(ctx, func(context.Context) error {
			t.Fatal("callback must not run")
			return nil
		})
		assert.ErrorIs(t, err, errNotConfirmed)
	})

	t.Run("answer yes", func(t *testing.T) {
		d, errOut := newDriver("y\n", true, false)
		ran := false
		require.NoError(t, d.ConfirmAndExecute(ctx, func(context.Context) error { ran = true; return nil }))
		assert.True(t, ran)
		assert.Contains(t, errOut.String(), "[y/N]")
	})

	t.Run("answer no", func(t *testing.T) {
		d, errOut := newDriver("n\n", true, false)
		ran := false
		require.NoError(t, d.ConfirmAndExecute(ctx, func(context.Context) error { ran = true; return nil }))
		assert.False(t, ran)
		assert.Contains(t, errOut.String(), "Cancelled.")
	})

	t.Run("buffers", func(t *testing.T) {
		d, errOut := newDriver("", false, false)
		d.InsertTextInNewBuffer("select 1")
		d.Notify("Dropped table t", catalog.SeverityInformation)
		d.RefreshCatalog()

		assert.Equal(t, []string{"select 1"}, d.takeBuffers())
		assert.Empty(t, d.takeBuffers())
		assert.True(t, d.refreshed)
		assert.Contains(t, errOut.String(), "Dropped table t")
	})
}

func TestRunAction(t *testing.T) {
	ctx := context.Background()

	t.Run("lists interactions", func(t *testing.T) {
		conn := newFakeConn()
		cmdCtx, out, _ := testCommandContext(t, nil)
		require.NoError(t, runAction(ctx, cmdCtx, conn, newTerminalDriver(cmdCtx), "app/public/orders", "", false))
		assert.Contains(t, out.String(), "Preview Data")
		assert.Contains(t, out.String(), "Drop Table")
	})

	t.Run("prints buffer text", func(t *testing.T) {
		conn := newFakeConn()
		cmdCtx, out, _ := testCommandContext(t, nil)
		require.NoError(t, runAction(ctx, cmdCtx, conn, newTerminalDriver(cmdCtx), "app/public/orders", "preview data", false))
		assert.Contains(t, out.String(), `from "public"."orders"`)
		assert.Empty(t, conn.executedQueries())
	})

	t.Run("runs buffer text", func(t *testing.T) {
		conn := newFakeConn()
		conn.addResult("select *\nfrom \"public\".\"orders\"\nlimit 100",
			[]adapter.ColumnInfo{{Name: "id", TypeLabel: "#"}}, [][]any{{int64(1)}})
		cmdCtx, out, errOut := testCommandContext(t, nil)

		require.NoError(t, runAction(ctx, cmdCtx, conn, newTerminalDriver(cmdCtx), "app/public/orders", "Preview Data", true))
		assert.Len(t, conn.executedQueries(), 1)
		assert.Contains(t, out.String(), "(1 rows)")
		assert.Contains(t, errOut.String(), "select *")
	})

	t.Run("unknown label", func(t *testing.T) {
		cmdCtx, _, _ := testCommandContext(t, nil)
		err := runAction(ctx, cmdCtx, newFakeConn(), newTerminalDriver(cmdCtx), "app/public/recent", "Drop Table", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Drop View")
	})

	t.Run("destructive without confirmation", func(t *testing.T) {
		conn := newFakeConn()
		cmdCtx, _, _ := testCommandContext(t, nil)
		err := runAction(ctx, cmdCtx, conn, newTerminalDriver(cmdCtx), "app/public/orders", "Drop Table", false)
		assert.ErrorIs(t, err, errNotConfirmed)
		assert.Empty(t, conn.src.executed())
	})

	t.Run("destructive with yes", func(t *testing.T) {
		conn := newFakeConn()
		cmdCtx, _, errOut := testCommandContext(t, &config.Config{Output: config.OutputTable, Yes: true})
		require.NoError(t, runAction(ctx, cmdCtx, conn, newTerminalDriver(cmdCtx), "app/public", "Drop Schema", false))
		assert.Equal(t, []string{`drop schema "public" cascade`}, conn.src.executed())
		assert.Contains(t, errOut.String(), "Dropped schema public")
	})
}

func TestREPLDotCommands(t *testing.T) {
	ctx := context.Background()

	newSession := func(t *testing.T) (*replSession, *fakeConn, *bytes.Buffer, *bytes.Buffer) {
		conn := newFakeConn()
		cmdCtx, out, errOut := testCommandContext(t, nil)
		return &replSession{cmdCtx: cmdCtx, conn: conn, driver: newTerminalDriver(cmdCtx)}, conn, out, errOut
	}

	t.Run("quit", func(t *testing.T) {
		s, _, _, _ := newSession(t)
		assert.True(t, s.handleDotCommand(ctx, ".quit"))
		assert.True(t, s.handleDotCommand(ctx, ".EXIT"))
	})

	t.Run("mode and commit", func(t *testing.T) {
		s, conn, out, errOut := newSession(t)

		assert.False(t, s.handleDotCommand(ctx, ".commit"))
		assert.Contains(t, errOut.String(), "only available in manual transaction mode")
		assert.Equal(t, 0, conn.commits)

		s.handleDotCommand(ctx, ".mode")
		assert.Contains(t, out.String(), "Transaction mode: Manual")
		assert.Equal(t, promptManual, prompt(conn))

		s.handleDotCommand(ctx, ".commit")
		s.handleDotCommand(ctx, ".rollback")
		assert.Equal(t, 1, conn.commits)
		assert.Equal(t, 1, conn.rollbacks)
	})

	t.Run("catalog", func(t *testing.T) {
		s, _, out, _ := newSession(t)
		s.handleDotCommand(ctx, ".catalog app/public")
		assert.Contains(t, out.String(), "orders t")
	})

	t.Run("action", func(t *testing.T) {
		s, _, out, errOut := newSession(t)
		s.handleDotCommand(ctx, ".action")
		assert.Contains(t, errOut.String(), "Usage: .action")

		s.handleDotCommand(ctx, ".action app/public/orders Preview Data")
		assert.Contains(t, out.String(), "limit 100")
	})

	t.Run("unknown", func(t *testing.T) {
		s, _, _, errOut := newSession(t)
		assert.False(t, s.handleDotCommand(ctx, ".bogus"))
		assert.Contains(t, errOut.String(), "Unknown command: .bogus")
	})

	t.Run("execute", func(t *testing.T) {
		s, conn, out, errOut := newSession(t)
		conn.addResult("select 1", []adapter.ColumnInfo{{Name: "n", TypeLabel: "#"}}, [][]any{{1}})
		s.execute(ctx, "select 1")
		assert.Contains(t, out.String(), "(1 rows)")

		conn.execErr = &adapter.QueryError{Msg: "syntax error"}
		s.execute(ctx, "select")
		assert.Contains(t, errOut.String(), "Error: syntax error")
	})
}

func TestSQLCompleter(t *testing.T) {
	c := newCompleterFromCandidates([]adapter.Completion{
		{Value: "select"},
		{Value: "select"},
		{Value: "sequence"},
		{Value: "work_mem"},
	})
	assert.Equal(t, []string{"select", "sequence", "work_mem"}, c.words)

	line := []rune("SEL")
	got, length := c.Do(line, len(line))
	assert.Equal(t, 3, length)
	assert.Equal(t, [][]rune{[]rune("ect")}, got)

	line = []rune("show work_")
	got, length = c.Do(line, len(line))
	assert.Equal(t, 5, length)
	assert.Equal(t, [][]rune{[]rune("mem")}, got)

	line = []rune(".co")
	got, _ = c.Do(line, len(line))
	assert.Equal(t, [][]rune{[]rune("mmit")}, got)

	line = []rune("select ")
	got, _ = c.Do(line, len(line))
	assert.Empty(t, got)
}

func bufioReader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

// scriptedReader replays lines and errors in order, then reports EOF.
type scriptedReader struct {
	steps   []readStep
	prompts []string
	reads   int
}

type readStep struct {
	line string
	err  error
}

func (r *scriptedReader) Readline() (string, error) {
	r.reads++
	if len(r.steps) == 0 {
		return "", io.EOF
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	return step.line, step.err
}

func (r *scriptedReader) SetPrompt(p string) { r.prompts = append(r.prompts, p) }

func TestREPLLoop(t *testing.T) {
	ctx := context.Background()

	newSession := func(t *testing.T) (*replSession, *fakeConn, *bytes.Buffer) {
		conn := newFakeConn()
		cmdCtx, out, _ := testCommandContext(t, nil)
		return &replSession{cmdCtx: cmdCtx, conn: conn, driver: newTerminalDriver(cmdCtx)}, conn, out
	}

	t.Run("multi-line statement", func(t *testing.T) {
		s, conn, out := newSession(t)
		conn.addResult("select 1\nfrom t", []adapter.ColumnInfo{{Name: "n", TypeLabel: "#"}}, [][]any{{1}})
		rl := &scriptedReader{steps: []readStep{{line: "select 1"}, {line: "from t;"}}}

		require.NoError(t, s.loop(ctx, rl))
		assert.Equal(t, []string{"select 1\nfrom t"}, conn.executedQueries())
		assert.Contains(t, out.String(), "(1 rows)")
		assert.Equal(t, []string{promptCont, promptAuto}, rl.prompts)
	})

	t.Run("interrupt clears the buffer", func(t *testing.T) {
		s, conn, _ := newSession(t)
		rl := &scriptedReader{steps: []readStep{
			{line: "select broken"},
			{err: readline.ErrInterrupt},
			{line: ".quit"},
			{line: "select never;"},
		}}

		require.NoError(t, s.loop(ctx, rl))
		assert.Empty(t, conn.executedQueries())
		assert.Equal(t, 3, rl.reads)
	})

	t.Run("terminal error ends the session", func(t *testing.T) {
		s, _, _ := newSession(t)
		rl := &scriptedReader{steps: []readStep{
			{err: errors.New("bad file descriptor")},
			{line: "select 1;"},
		}}

		err := s.loop(ctx, rl)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad file descriptor")
		assert.Equal(t, 1, rl.reads)
	})
}
