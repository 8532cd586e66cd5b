// Package postgres provides the PostgreSQL adapter: connection setup,
// statement execution with cancellation, transaction modes, the catalog
// metadata queries and autocomplete candidates.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgconn/ctxwatch"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
)

// Pool bounds. The main connection holds one slot for the whole session.
const (
	minPoolConns = 2
	maxPoolConns = 5
)

const (
	connectErrorTitle       = "Could not connect to Postgres."
	invalidConnStringTitle  = "Could not connect to Postgres. Invalid connection string."
	invalidConnTimeoutTitle = "Could not connect to Postgres. Invalid value for connect_timeout."
)

// Adapter implements adapter.Adapter for PostgreSQL.
type Adapter struct {
	connStr []string
	options map[string]string
	logger  *slog.Logger
}

// New creates a PostgreSQL adapter from at most one connection string and
// the named options. Unknown option names are ignored. Nothing is parsed
// or dialled until Connect.
// If logger is nil, a discard logger is used.
func New(connStr []string, options map[string]string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	known := make(map[string]string, len(Options))
	for k, v := range options {
		if _, ok := LookupOption(k); ok {
			known[k] = v
		}
	}
	return &Adapter{
		connStr: append([]string(nil), connStr...),
		options: known,
		logger:  logger,
	}
}

// Options declares the options New accepts.
func (a *Adapter) Options() []adapter.Option {
	return Options
}

// ConnectionID returns host:port/dbname for the merged settings, or "" if
// the connection string cannot be parsed.
func (a *Adapter) ConnectionID() string {
	settings, err := mergeSettings(a.connStr, a.options)
	if err != nil {
		return ""
	}
	return connectionID(settings)
}

// Connect validates the settings, opens the pool and checks out the main
// connection. Every failure is an *adapter.ConnectionError.
func (a *Adapter) Connect(ctx context.Context) (adapter.Connection, error) {
	if len(a.connStr) > 1 {
		return nil, &adapter.ConnectionError{
			Msg: fmt.Sprintf("Cannot provide multiple connection strings to the Postgres adapter. %v", a.connStr),
		}
	}

	for name, value := range a.options {
		opt, _ := LookupOption(name)
		if err := opt.Validate(value); err != nil {
			return nil, &adapter.ConnectionError{Title: invalidConnStringTitle, Msg: err.Error(), Err: err}
		}
	}

	settings, err := mergeSettings(a.connStr, a.options)
	if err != nil {
		return nil, &adapter.ConnectionError{Title: invalidConnStringTitle, Msg: err.Error(), Err: err}
	}
	timeout, err := connectTimeout(settings)
	if err != nil {
		return nil, &adapter.ConnectionError{Title: invalidConnTimeoutTitle, Msg: err.Error(), Err: err}
	}
	for _, name := range []string{OptRequireAuth, OptChannelBinding} {
		if v := settings[name]; v != "" {
			a.logger.Warn("option is not negotiated by the driver and will be ignored",
				slog.String("option", name), slog.String("value", v))
		}
	}

	cfg, err := poolConfig(settings, timeout)
	if err != nil {
		return nil, &adapter.ConnectionError{Title: invalidConnStringTitle, Msg: err.Error(), Err: err}
	}

	a.logger.Debug("connecting to postgres",
		slog.String("host", cfg.ConnConfig.Host),
		slog.String("database", cfg.ConnConfig.Database))

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &adapter.ConnectionError{Title: connectErrorTitle, Msg: err.Error(), Err: err}
	}
	db := stdlib.OpenDBFromPool(pool)
	db.SetMaxOpenConns(maxPoolConns)

	conn, err := newConnection(ctx, db, connConfig{
		acquireTimeout: timeout,
		decoders:       InfinityDecoders(),
		logger:         a.logger,
	})
	if err != nil {
		_ = db.Close()
		pool.Close()
		return nil, &adapter.ConnectionError{Title: connectErrorTitle, Msg: err.Error(), Err: err}
	}
	conn.pool = pool

	a.logger.Info("connected to postgres", slog.String("id", connectionID(settings)))
	return conn, nil
}

// poolConfig builds the pgxpool configuration. A cancelled context sends
// the server a cancel request instead of closing the socket, so Cancel
// leaves the main connection usable.
func poolConfig(settings map[string]string, timeout time.Duration) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(renderDSN(settings))
	if err != nil {
		return nil, err
	}
	cfg.MinConns = minPoolConns
	cfg.MaxConns = maxPoolConns
	cfg.ConnConfig.ConnectTimeout = timeout
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeDescribeExec
	cfg.ConnConfig.BuildContextWatcherHandler = func(pgConn *pgconn.PgConn) ctxwatch.Handler {
		return &pgconn.CancelRequestContextWatcherHandler{
			Conn:          pgConn,
			DeadlineDelay: timeout,
		}
	}
	return cfg, nil
}

var _ adapter.Adapter = (*Adapter)(nil)
