// Package cli provides the command-line interface for leapshell.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/leapshell/internal/cli/commands"
	"github.com/leapstack-labs/leapshell/internal/cli/config"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Process exit statuses that do not come from a statement.
const (
	ExitUsage     = 1
	ExitBadOption = 2
	ExitIO        = 3
)

// ExitError carries a process exit status out of the root command. Err is
// printed when set; statement failures have already been reported and carry
// only the status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// options holds the flags consumed by the CLI itself rather than the
// configuration layer.
type options struct {
	cfgFile   string
	execute   string
	file      string
	initFiles []string
	database  string
	defines   []string
	hivevars  []string
	confs     []string
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "leapshell [flags]",
		Short: "leapshell - interactive SQL shell",
		Long: `leapshell is an interactive SQL shell for SQLite, DuckDB and PostgreSQL.

Statements end with ';'. Use '\;' for a literal semicolon, 'source <file>'
to run a script, '!<command>' to run a host shell command, and 'quit' or
'exit' to leave. Variables defined with --define can be referenced as
${name} or ${hivevar:name}.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitBadOption, Err: err}
	})

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.execute, "execute", "e", "", "SQL from command line")
	flags.StringVarP(&opts.file, "file", "f", "", "SQL from file")
	flags.StringArrayVarP(&opts.initFiles, "init", "i", nil, "Initialization SQL file (repeatable)")
	flags.StringVar(&opts.database, "database", "", "Specify the database to use")
	flags.StringArrayVarP(&opts.defines, "define", "d", nil, "Variable substitution to apply to statements, e.g. -d A=B")
	flags.StringArrayVar(&opts.hivevars, "hivevar", nil, "Variable substitution to apply to statements, e.g. --hivevar A=B")
	flags.StringArrayVar(&opts.confs, "conf", nil, "Use value for given property, e.g. --conf print_header=true")
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default: ./leapshell.yaml)")

	flags.BoolP("silent", "S", false, "Silent mode in interactive shell")
	flags.BoolP("verbose", "v", false, "Verbose mode (echo executed SQL to the console)")
	flags.Bool("print-header", false, "Print column names before result rows")
	flags.Bool("ignore-errors", false, "Keep running the statements of a line after a failure")
	flags.Bool("print-current-db", false, "Show the current database in the prompt")
	flags.String("prompt", "", "Prompt text (variables are substituted)")
	flags.StringP("output", "o", "", "Output format (tsv|csv|table|json|yaml)")
	flags.Int("max-retries", 0, "Give up after this many retries of one statement (0 is unlimited)")
	flags.Int("fetch-size", 0, "Rows fetched per batch")
	flags.String("history-file", "", "Interactive history file")
	flags.String("log-file", "", "Write the diagnostic log to this file")
	flags.StringP("target", "t", "", "Backend type (sqlite|duckdb|postgres)")
	flags.String("dsn", "", "Backend connection string")

	rootCmd.MarkFlagsMutuallyExclusive("execute", "file")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"sqlite", "duckdb", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	rootCmd := NewRootCmd()
	return ExitCode(rootCmd.Execute(), os.Stderr)
}

// ExitCode maps the error returned by the root command to a process exit
// status, reporting it on w.
func ExitCode(err error, w io.Writer) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return ExitUsage
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leapshell.

To load completions:

Bash:
  $ source <(leapshell completion bash)

Zsh:
  $ leapshell completion zsh > "${fpath[1]}/_leapshell"

Fish:
  $ leapshell completion fish | source

PowerShell:
  PS> leapshell completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
