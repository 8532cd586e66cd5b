// Package cli provides the command-line interface for pgcatalog.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/pgcatalog/internal/cli/commands"
	"github.com/leapstack-labs/pgcatalog/internal/cli/config"
	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/leapstack-labs/pgcatalog/pkg/adapters/postgres"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgcatalog",
		Short: "pgcatalog - Postgres catalog, query and completion client",
		Long: `pgcatalog connects to a Postgres server and lets you browse its catalog,
run statements, drive catalog interactions and list autocomplete candidates.

Connection settings come from a connection string (--conn, a URI or
keyword/value string), from the connection option flags, from
PGCATALOG_* environment variables and from pgcatalog.yaml.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			if cfg.NoColor {
				lipgloss.SetColorProfile(termenv.Ascii)
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", slog.String("path", configFile))
			}

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go and pgx
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./pgcatalog.yaml)")
	flags.StringArrayP("conn", "c", nil, "Connection string: a postgresql:// URI or key=value pairs")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (table|json|csv|md|yaml)")
	flags.Bool("no-color", false, "Disable colored output")
	flags.BoolP("yes", "y", false, "Answer yes to confirmation prompts")
	// -h belongs to --host, so help gets no shorthand
	flags.Bool("help", false, "Help for pgcatalog")
	addOptionFlags(rootCmd, postgres.Options)

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewCatalogCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewActionCommand())
	rootCmd.AddCommand(commands.NewCompletionsCommand())
	rootCmd.AddCommand(commands.NewOptionsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger builds the CLI logger: warnings and errors on stderr, debug
// output with --verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// addOptionFlags declares one persistent flag per adapter option. Extra
// spellings from the option declaration become shorthands ("-h") or hidden
// alias flags ("--username").
func addOptionFlags(cmd *cobra.Command, options []adapter.Option) {
	flags := cmd.PersistentFlags()
	for _, opt := range options {
		name := config.OptionFlagName(opt.Name)

		var shorts, aliases []string
		for _, decl := range opt.ShortDecls {
			switch {
			case strings.HasPrefix(decl, "--"):
				aliases = append(aliases, decl[2:])
			case len(decl) == 2 && decl[0] == '-':
				shorts = append(shorts, decl[1:])
			}
		}

		flags.StringP(name, first(shorts), opt.Default, opt.Description)
		for i, alias := range aliases {
			short := ""
			if i+1 < len(shorts) {
				short = shorts[i+1]
			}
			flags.StringP(alias, short, "", "Alias for --"+name)
			_ = flags.MarkHidden(alias)
		}

		switch opt.Kind {
		case adapter.OptionSelect:
			choices := opt.Choices
			_ = cmd.RegisterFlagCompletionFunc(name, func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
				return choices, cobra.ShellCompDirectiveNoFileComp
			})
		case adapter.OptionPath:
			_ = cmd.MarkPersistentFlagFilename(name)
		case adapter.OptionText:
			_ = cmd.RegisterFlagCompletionFunc(name, cobra.NoFileCompletions)
		}
	}
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for pgcatalog.

To load completions:

Bash:
  $ source <(pgcatalog completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ pgcatalog completion bash > /etc/bash_completion.d/pgcatalog
  # macOS:
  $ pgcatalog completion bash > $(brew --prefix)/etc/bash_completion.d/pgcatalog

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ pgcatalog completion zsh > "${fpath[1]}/_pgcatalog"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ pgcatalog completion fish | source

  # To load completions for each session, execute once:
  $ pgcatalog completion fish > ~/.config/fish/completions/pgcatalog.fish

PowerShell:
  PS> pgcatalog completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> pgcatalog completion powershell > pgcatalog.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
	return cmd
}
