package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
)

const (
	queryErrorTitle = "Postgres returned an error while executing your query."
	reconnectHint   = "\n\nYou may need to reconnect to the database."

	// SQLSTATE query_canceled
	codeQueryCanceled = "57014"
)

// Transaction mode labels.
const (
	ModeAuto   = "Auto"
	ModeManual = "Manual"
)

type connConfig struct {
	acquireTimeout time.Duration
	decoders       DecoderTable
	logger         *slog.Logger
}

// Connection is a live Postgres session. User statements run on a single
// main connection checked out for the lifetime of the session; metadata
// and completion queries borrow short-lived connections from the pool.
type Connection struct {
	db             *sql.DB
	pool           *pgxpool.Pool
	main           *sql.Conn
	acquireTimeout time.Duration
	decoders       DecoderTable
	types          *pgtype.Map
	logger         *slog.Logger
	modes          []adapter.TransactionMode

	mu       sync.Mutex
	closed   bool
	mode     int
	inTx     bool // used when the driver cannot report transaction status
	inflight *statement
	cursor   *Cursor
}

// statement is the cancel handle of the statement running on the main
// connection.
type statement struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// interrupted reports whether err ended st because the user cancelled it.
func (st *statement) interrupted(err error) bool {
	return st.cancelled.Load() || isCanceled(err)
}

// newConnection checks out the main connection from db.
func newConnection(ctx context.Context, db *sql.DB, cfg connConfig) (*Connection, error) {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.acquireTimeout <= 0 {
		cfg.acquireTimeout = defaultConnectTimeout
	}

	actx, cancel := context.WithTimeout(ctx, cfg.acquireTimeout)
	defer cancel()
	main, err := db.Conn(actx)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		db:             db,
		main:           main,
		acquireTimeout: cfg.acquireTimeout,
		decoders:       cfg.decoders,
		types:          pgtype.NewMap(),
		logger:         cfg.logger,
	}
	c.modes = []adapter.TransactionMode{
		{Label: ModeAuto},
		{Label: ModeManual, Commit: c.Commit, Rollback: c.Rollback},
	}
	return c, nil
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) manual() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modes[c.mode].IsManual()
}

// Execute runs query on the main connection. Any cursor left open by a
// previous statement is closed first. A cancelled statement returns a nil
// cursor and no error.
func (c *Connection) Execute(ctx context.Context, query string) (adapter.Cursor, error) {
	if c.isClosed() {
		return nil, adapter.ErrConnectionClosed
	}
	c.closeCursor()

	if c.manual() {
		idle, err := c.txIdle()
		if err != nil {
			return nil, c.queryFailed(ctx, err)
		}
		if idle {
			if err := c.execMain(ctx, "begin"); err != nil {
				return nil, c.queryFailed(ctx, err)
			}
			c.setInTx(true)
		}
	}

	qctx, cancel := context.WithCancel(ctx)
	st := &statement{cancel: cancel}
	c.mu.Lock()
	c.inflight = st
	c.mu.Unlock()

	c.logger.Debug("executing statement", slog.Int("length", len(query)))

	rows, err := c.main.QueryContext(qctx, query)
	if err != nil {
		c.finish(st)
		if st.interrupted(err) {
			c.logger.Debug("statement cancelled")
			return nil, nil
		}
		return nil, c.queryFailed(ctx, err)
	}

	cols, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		c.finish(st)
		return nil, c.queryFailed(ctx, err)
	}

	if len(cols) == 0 {
		for rows.Next() {
		}
		err := rows.Err()
		_ = rows.Close()
		c.finish(st)
		if err != nil {
			if st.interrupted(err) {
				return nil, nil
			}
			return nil, c.queryFailed(ctx, err)
		}
		return nil, nil
	}

	cur := newCursor(c, rows, cols, st)
	c.mu.Lock()
	c.cursor = cur
	c.mu.Unlock()
	return cur, nil
}

// Cancel interrupts the running statement. The server is sent a cancel
// request; the main connection survives.
func (c *Connection) Cancel() {
	c.mu.Lock()
	st := c.inflight
	c.mu.Unlock()
	if st != nil {
		c.logger.Debug("cancelling statement")
		st.cancelled.Store(true)
		st.cancel()
	}
}

// finish releases st's context and clears it if it is still the running
// statement.
func (c *Connection) finish(st *statement) {
	st.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == st {
		c.inflight = nil
	}
}

func (c *Connection) closeCursor() {
	c.mu.Lock()
	cur := c.cursor
	c.cursor = nil
	c.mu.Unlock()
	if cur != nil {
		cur.close()
	}
}

func (c *Connection) forgetCursor(cur *Cursor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cursor == cur {
		c.cursor = nil
	}
}

// queryFailed turns a driver error into a QueryError. In manual mode the
// aborted transaction is rolled back first; if that fails too the
// connection is probably gone and the message says so.
func (c *Connection) queryFailed(ctx context.Context, err error) error {
	msg := err.Error()
	if c.manual() {
		if rbErr := c.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			c.logger.Warn("rollback after failed statement failed", slog.String("error", rbErr.Error()))
			msg += reconnectHint
		}
	}
	return &adapter.QueryError{Title: queryErrorTitle, Msg: msg, Err: err}
}

func (c *Connection) execMain(ctx context.Context, stmt string) error {
	_, err := c.main.ExecContext(ctx, stmt)
	return err
}

func (c *Connection) setInTx(v bool) {
	c.mu.Lock()
	c.inTx = v
	c.mu.Unlock()
}

// txIdle reports whether the main connection is outside a transaction. The
// pgx driver knows the server's status; other drivers fall back to the
// transactions this connection opened itself.
func (c *Connection) txIdle() (bool, error) {
	var (
		status byte
		known  bool
	)
	err := c.main.Raw(func(driverConn any) error {
		if sc, ok := driverConn.(*stdlib.Conn); ok {
			status = sc.Conn().PgConn().TxStatus()
			known = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if known {
		return status == 'I', nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inTx, nil
}

// Commit commits the open transaction on the main connection.
func (c *Connection) Commit(ctx context.Context) error {
	return c.endTx(ctx, "commit")
}

// Rollback rolls back the open transaction on the main connection.
func (c *Connection) Rollback(ctx context.Context) error {
	return c.endTx(ctx, "rollback")
}

func (c *Connection) endTx(ctx context.Context, stmt string) error {
	if c.isClosed() {
		return adapter.ErrConnectionClosed
	}
	c.closeCursor()
	if err := c.execMain(ctx, stmt); err != nil {
		return &adapter.QueryError{Title: fmt.Sprintf("Could not %s the transaction.", stmt), Msg: err.Error(), Err: err}
	}
	c.setInTx(false)
	c.logger.Debug("transaction ended", slog.String("statement", stmt))
	return nil
}

// TransactionMode returns the current mode.
func (c *Connection) TransactionMode() adapter.TransactionMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modes[c.mode]
}

// ToggleTransactionMode cycles Auto -> Manual -> Auto. Switching to Auto
// commits any open transaction.
func (c *Connection) ToggleTransactionMode(ctx context.Context) (adapter.TransactionMode, error) {
	c.mu.Lock()
	c.mode = (c.mode + 1) % len(c.modes)
	mode := c.modes[c.mode]
	c.mu.Unlock()

	c.logger.Info("transaction mode changed", slog.String("mode", mode.Label))

	if mode.IsManual() {
		return mode, nil
	}
	idle, err := c.txIdle()
	if err != nil {
		return mode, err
	}
	if !idle {
		return mode, c.Commit(ctx)
	}
	return mode, nil
}

// Catalog lists the databases on the server. Everything below the
// database level is fetched lazily.
func (c *Connection) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	dbs, err := c.listDatabases(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.New(dbs, &catalogSource{conn: c}), nil
}

// Completions returns keywords, routines and settings sorted by priority.
func (c *Connection) Completions(ctx context.Context) ([]adapter.Completion, error) {
	var out []adapter.Completion
	err := c.withPooledConn(ctx, func(conn *sql.Conn) error {
		var err error
		out, err = completions(ctx, conn)
		return err
	})
	return out, err
}

// Close cancels any running statement and releases every connection. It
// is safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	st := c.inflight
	cur := c.cursor
	c.cursor = nil
	c.mu.Unlock()

	if st != nil {
		st.cancel()
	}
	if cur != nil {
		cur.close()
	}

	err := errors.Join(c.main.Close(), c.db.Close())
	if c.pool != nil {
		c.pool.Close()
	}
	c.logger.Debug("connection closed")
	return err
}

// withPooledConn borrows a connection for fn. Acquisition is bounded by
// the connect timeout.
func (c *Connection) withPooledConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	if c.isClosed() {
		return adapter.ErrConnectionClosed
	}
	actx, cancel := context.WithTimeout(ctx, c.acquireTimeout)
	conn, err := c.db.Conn(actx)
	cancel()
	if err != nil {
		return &adapter.ConnectionError{Title: "Could not acquire a connection from the pool.", Msg: err.Error(), Err: err}
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

func isCanceled(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeQueryCanceled
}

var _ adapter.Connection = (*Connection)(nil)
