package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errQueryCancelled is returned when the user interrupts a statement.
var errQueryCancelled = errors.New("query cancelled")

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input  string
	Manual bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run a statement against the server",
		Long: `Run one SQL statement on the main connection and print its result set.

The statement is taken from the arguments, from --file, or from stdin when
stdin is not a terminal. Press Ctrl-C to cancel a running statement; the
server is sent a cancel request and the connection stays usable.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  pgcatalog query "select * from pg_stat_activity"

  # Read SQL from a file and print JSON
  pgcatalog query -f report.sql -o json

  # Run inside a transaction that is committed on success
  pgcatalog query --manual "update accounts set active = false where id = 7"

  # Interactive mode
  pgcatalog query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "file", "f", "", "Read SQL from file")
	cmd.Flags().BoolVar(&opts.Manual, "manual", false, "Run in a transaction and commit it when the statement succeeds")
	cmd.Flags().Int("limit", 0, "Maximum rows to fetch (0 for no limit)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx := NewCommandContext(cmd)

	sqlQuery, interactive, err := readQuery(cmdCtx.In, args, opts.Input)
	if err != nil {
		return err
	}

	conn, cleanup, err := Connect(cmd, cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	if interactive {
		return runREPL(cmd.Context(), cmdCtx, conn)
	}

	ctx := cmd.Context()
	if opts.Manual {
		if err := setManual(ctx, conn, true); err != nil {
			return err
		}
	}

	rs, err := runStatement(ctx, conn, sqlQuery, cmdCtx.Cfg.Limit)
	if err != nil {
		return err
	}

	if opts.Manual {
		if err := conn.Commit(ctx); err != nil {
			return err
		}
	}
	return printResult(cmdCtx, rs)
}

// readQuery determines the SQL source. interactive is true when no SQL was
// given and stdin is a terminal.
func readQuery(in io.Reader, args []string, file string) (query string, interactive bool, err error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), false, nil
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), false, nil
	case !isTerminal(in):
		// Read from stdin (piped input)
		content, err := io.ReadAll(in)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		if strings.TrimSpace(string(content)) == "" {
			return "", false, errors.New("no SQL given on stdin")
		}
		return string(content), false, nil
	default:
		return "", true, nil
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// setManual toggles the transaction mode until it matches manual.
func setManual(ctx context.Context, conn adapter.Connection, manual bool) error {
	for range 2 {
		if conn.TransactionMode().IsManual() == manual {
			return nil
		}
		if _, err := conn.ToggleTransactionMode(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runStatement executes query and fetches up to limit rows. An interrupt
// received while the statement runs cancels it.
func runStatement(ctx context.Context, conn adapter.Connection, query string, limit int) (*resultSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty statement")
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var interrupted atomic.Bool
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCtx.Done():
			if ctx.Err() == nil {
				interrupted.Store(true)
				conn.Cancel()
			}
		case <-done:
		}
	}()

	cur, err := conn.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		if interrupted.Load() {
			return nil, errQueryCancelled
		}
		return nil, nil
	}
	if limit > 0 {
		cur = cur.SetLimit(limit)
	}
	rows, err := cur.FetchAll()
	if err != nil {
		return nil, err
	}
	if interrupted.Load() {
		return nil, errQueryCancelled
	}
	return &resultSet{Columns: cur.Columns(), Rows: rows, Limit: limit}, nil
}

func printResult(cmdCtx *CommandContext, rs *resultSet) error {
	if rs == nil {
		_, _ = fmt.Fprintln(cmdCtx.ErrOut, "OK (no result set)")
		return nil
	}
	cmdCtx.Logger.Debug("fetched rows", slog.Int("rows", len(rs.Rows)), slog.Int("columns", len(rs.Columns)))
	return renderResults(cmdCtx.Out, rs, cmdCtx.Cfg.Output)
}
