package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
	"github.com/spf13/cobra"
)

const (
	promptAuto   = "pgcatalog> "
	promptManual = "pgcatalog*> "
	promptCont   = "      ...> "

	// maxCompletions caps the candidates offered for one word.
	maxCompletions = 50
)

var dotCommands = []string{
	".help", ".mode", ".commit", ".rollback", ".catalog", ".action", ".clear", ".quit", ".exit",
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive SQL session",
		Long: `Start an interactive session on one connection.

Statements end with a semicolon. Tab completes keywords, functions and
settings offered by the server. Ctrl-C cancels a running statement.
Type .help for the dot-commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			conn, cleanup, err := Connect(cmd, cmdCtx)
			if err != nil {
				return err
			}
			defer cleanup()
			return runREPL(cmd.Context(), cmdCtx, conn)
		},
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pgcatalog_history")
}

func prompt(conn adapter.Connection) string {
	if conn.TransactionMode().IsManual() {
		return promptManual
	}
	return promptAuto
}

func runREPL(ctx context.Context, cmdCtx *CommandContext, conn adapter.Connection) error {
	completer := newSQLCompleter(ctx, cmdCtx.Logger, conn)

	// Configure readline
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt(conn),
		HistoryFile:     historyFile(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmdCtx.Out,
		Stderr:          cmdCtx.ErrOut,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmdCtx.Out, "pgcatalog REPL (transaction mode: %s)\n", conn.TransactionMode().Label)
	_, _ = fmt.Fprintln(cmdCtx.Out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmdCtx.Out)

	session := &replSession{cmdCtx: cmdCtx, conn: conn, driver: newTerminalDriver(cmdCtx)}
	return session.loop(ctx, rl)
}

// lineReader is the part of *readline.Instance the REPL loop uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// loop reads statements until EOF or a quit command. Terminal errors other
// than an interrupt end the session.
func (s *replSession) loop(ctx context.Context, rl lineReader) error {
	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt(prompt(s.conn))
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Handle dot-commands
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := s.handleDotCommand(ctx, line); quit {
				return nil
			}
			rl.SetPrompt(prompt(s.conn))
			continue
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString("\n")
			rl.SetPrompt(promptCont)
			continue
		}

		query := strings.TrimSuffix(multiLineBuffer.String(), ";")
		multiLineBuffer.Reset()

		s.execute(ctx, query)
		rl.SetPrompt(prompt(s.conn))
		_, _ = fmt.Fprintln(s.cmdCtx.Out)
	}
}

// replSession holds the state shared by REPL statements and dot-commands.
type replSession struct {
	cmdCtx *CommandContext
	conn   adapter.Connection
	driver *terminalDriver
}

func (s *replSession) reportError(err error) {
	_, _ = fmt.Fprintf(s.cmdCtx.ErrOut, "Error: %v\n", err)
}

func (s *replSession) execute(ctx context.Context, query string) {
	rs, err := runStatement(ctx, s.conn, query, s.cmdCtx.Cfg.Limit)
	if errors.Is(err, errQueryCancelled) {
		_, _ = fmt.Fprintln(s.cmdCtx.ErrOut, "Query cancelled.")
		return
	}
	if err != nil {
		s.reportError(err)
		return
	}
	if err := printResult(s.cmdCtx, rs); err != nil {
		s.reportError(err)
	}
}

// handleDotCommand runs a dot-command and reports whether the REPL should
// exit.
func (s *replSession) handleDotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	out, errOut := s.cmdCtx.Out, s.cmdCtx.ErrOut

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(out)

	case ".mode":
		mode, err := s.conn.ToggleTransactionMode(ctx)
		if err != nil {
			s.reportError(err)
		}
		_, _ = fmt.Fprintf(out, "Transaction mode: %s\n", mode.Label)

	case ".commit", ".rollback":
		mode := s.conn.TransactionMode()
		if !mode.IsManual() {
			_, _ = fmt.Fprintf(errOut, "%s is only available in manual transaction mode (use .mode)\n", command)
			return false
		}
		end := mode.Commit
		if command == ".rollback" {
			end = mode.Rollback
		}
		if err := end(ctx); err != nil {
			s.reportError(err)
			return false
		}
		_, _ = fmt.Fprintln(out, "OK")

	case ".catalog":
		if err := s.showCatalog(ctx, parts[1:]); err != nil {
			s.reportError(err)
		}

	case ".action":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .action <path> [label]")
			return false
		}
		label := strings.Join(parts[2:], " ")
		if err := runAction(ctx, s.cmdCtx, s.conn, s.driver, parts[1], label, false); err != nil {
			s.reportError(err)
		}

	case ".clear":
		_, _ = fmt.Fprint(out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func (s *replSession) showCatalog(ctx context.Context, args []string) error {
	cat, err := s.conn.Catalog(ctx)
	if err != nil {
		return err
	}
	roots := cat.Items
	if len(args) > 0 {
		node, err := findNode(ctx, cat, args[0])
		if err != nil {
			return err
		}
		roots = []*catalog.Node{node}
	}
	if err := expandCatalog(ctx, roots, 2); err != nil {
		return err
	}
	return renderCatalog(s.cmdCtx.Out, roots, "")
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                   Show this help message
  .mode                   Toggle between Auto and Manual transaction mode
  .commit                 Commit the open transaction (Manual mode)
  .rollback               Roll back the open transaction (Manual mode)
  .catalog [path]         Show the catalog tree, optionally from db/schema/relation
  .action <path> [label]  List or run a catalog item's interactions
  .clear                  Clear the screen
  .quit / .exit           Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completes keywords, functions and settings
  - Ctrl-C cancels a running statement`
	_, _ = fmt.Fprintln(w, help)
}

// sqlCompleter completes the word under the cursor from the connection's
// completion candidates, and dot-commands at the start of a line.
type sqlCompleter struct {
	words []string
}

func newSQLCompleter(ctx context.Context, logger *slog.Logger, conn adapter.Connection) *sqlCompleter {
	completions, err := conn.Completions(ctx)
	if err != nil {
		logger.Warn("failed to load completions", slog.String("error", err.Error()))
	}
	return newCompleterFromCandidates(completions)
}

func newCompleterFromCandidates(completions []adapter.Completion) *sqlCompleter {
	seen := make(map[string]bool, len(completions))
	words := make([]string, 0, len(completions))
	for _, c := range completions {
		if seen[c.Value] {
			continue
		}
		seen[c.Value] = true
		words = append(words, c.Value)
	}
	return &sqlCompleter{words: words}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Do implements readline.AutoCompleter.
func (c *sqlCompleter) Do(line []rune, pos int) ([][]rune, int) {
	head := string(line[:pos])
	if strings.HasPrefix(head, ".") && !strings.ContainsRune(head, ' ') {
		return complete(dotCommands, head)
	}

	start := pos
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}
	return complete(c.words, prefix)
}

// complete returns the suffixes of candidates that extend prefix,
// matching case-insensitively.
func complete(candidates []string, prefix string) ([][]rune, int) {
	lower := strings.ToLower(prefix)
	prefixLen := len([]rune(prefix))
	var out [][]rune
	for _, w := range candidates {
		if len(out) == maxCompletions {
			break
		}
		r := []rune(w)
		if len(r) > prefixLen && strings.HasPrefix(strings.ToLower(w), lower) {
			out = append(out, r[prefixLen:])
		}
	}
	return out, prefixLen
}

var (
	_ readline.AutoCompleter = (*sqlCompleter)(nil)
	_ lineReader             = (*readline.Instance)(nil)
)
