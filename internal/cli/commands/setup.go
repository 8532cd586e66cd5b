package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/pgcatalog/internal/cli/config"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/spf13/cobra"

	// Register the postgres adapter.
	_ "github.com/leapstack-labs/pgcatalog/pkg/adapters/postgres"
)

// adapterName is the registry name of the adapter every command drives.
const adapterName = "postgres"

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Out    io.Writer
	ErrOut io.Writer
	In     io.Reader
}

// NewCommandContext collects the config and logger stored on the command
// context by the root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    config.GetConfig(cmd.Context()),
		Logger: config.GetLogger(cmd.Context()),
		Out:    cmd.OutOrStdout(),
		ErrOut: cmd.ErrOrStderr(),
		In:     cmd.InOrStdin(),
	}
}

// connectFunc opens a connection for a command. Tests replace it.
var connectFunc = connect

func connect(cmd *cobra.Command, cmdCtx *CommandContext) (adapter.Connection, error) {
	adp, err := adapter.NewAdapter(adapterName, cmdCtx.Cfg.Conn, cmdCtx.Cfg.Options, cmdCtx.Logger)
	if err != nil {
		return nil, err
	}
	cmdCtx.Logger.Debug("connecting", slog.String("connection_id", adp.ConnectionID()))
	return adp.Connect(cmd.Context())
}

// Connect opens a connection with the configured settings. Returns the
// connection and a cleanup function that must be called (typically via defer).
func Connect(cmd *cobra.Command, cmdCtx *CommandContext) (adapter.Connection, func(), error) {
	conn, err := connectFunc(cmd, cmdCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	cleanup := func() {
		if err := conn.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close connection", slog.String("error", err.Error()))
		}
	}
	return conn, cleanup, nil
}
