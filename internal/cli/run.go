package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapshell/internal/backend"
	"github.com/leapstack-labs/leapshell/internal/cli/config"
	localcmds "github.com/leapstack-labs/leapshell/internal/commands"
	"github.com/leapstack-labs/leapshell/internal/linereader"
	"github.com/leapstack-labs/leapshell/internal/shell"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ConfDirEnv names the directory searched for a global rc file.
const ConfDirEnv = "LEAPSHELL_CONF_DIR"

// isTerminal reports whether r is an interactive terminal. Replaced in tests.
var isTerminal = func(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newTerminalReader opens the interactive line editor. Replaced in tests.
var newTerminalReader = func(opts linereader.Options) (lineReader, error) {
	return linereader.NewTerminal(opts)
}

type lineReader interface {
	shell.LineReader
	io.Closer
}

func run(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, used, err := config.Load(opts.cfgFile, cmd.Flags())
	if err != nil {
		return &ExitError{Code: ExitBadOption, Err: err}
	}
	if err := applyOverrides(cfg, opts); err != nil {
		return &ExitError{Code: ExitBadOption, Err: err}
	}

	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return &ExitError{Code: ExitIO, Err: err}
	}
	defer func() { _ = closeLog() }()
	ctx = config.WithLogger(ctx, logger)
	if used != "" {
		logger.Debug("using config file", "path", used)
	}

	in := cmd.InOrStdin()
	sess := shell.NewSession(cfg, shell.Streams{
		In:   in,
		Out:  cmd.OutOrStdout(),
		Info: cmd.ErrOrStderr(),
		Err:  cmd.ErrOrStderr(),
	}, logger)
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("closing session", "error", err)
		}
	}()

	b, err := backend.Open(ctx, *cfg.Target, logger)
	if err != nil {
		sess.PrintError(fmt.Sprintf("Failed to connect to %s target: %v", cfg.Target.Type, err))
		return &ExitError{Code: ExitIO}
	}
	sess.AddCloser(b)
	if name, err := b.CurrentDatabase(ctx); err == nil {
		sess.CurrentDB = name
	}

	reg := shell.NewHandlerRegistry(b.Factory())
	localcmds.Register(reg, b)
	driver := shell.NewDriver(sess, reg, shell.WithHostShell(shell.ExecShell{Path: cfg.Shell}))

	return statusError(runDriver(ctx, driver, b, reg, opts, in))
}

// runDriver selects the database, runs the init files and then the main
// input: -e, -f, an interactive terminal or piped stdin, in that order.
func runDriver(ctx context.Context, d *shell.Driver, b *backend.Backend, reg *shell.HandlerRegistry, opts *options, in io.Reader) int {
	sess := d.Session()

	if rc := d.ProcessSelectDatabase(ctx, opts.database); rc != 0 || d.Quit() {
		return rc
	}
	if rc := d.ProcessInitFiles(ctx, initFiles(opts.initFiles)); rc != 0 || d.Quit() {
		return rc
	}

	if opts.execute != "" {
		return d.ProcessLine(ctx, opts.execute, false)
	}

	if opts.file != "" {
		rc, err := d.ProcessFile(ctx, opts.file)
		if err != nil {
			sess.PrintError(fmt.Sprintf("Could not open input file for reading. (%v)", err))
			return ExitIO
		}
		return rc
	}

	if !isTerminal(in) {
		rc, err := d.ProcessReader(ctx, in)
		if err != nil {
			sess.PrintError(fmt.Sprintf("Could not read standard input. (%v)", err))
			return ExitIO
		}
		return rc
	}

	words := append(config.KnownKeys(), reg.Tokens()...)
	words = append(words, b.Tables(ctx)...)
	reader, err := newTerminalReader(linereader.Options{
		HistoryFile: sess.Conf.HistoryFile,
		Words:       words,
	})
	if err != nil {
		sess.PrintError(err.Error())
		return ExitIO
	}
	sess.AddCloser(reader)
	return d.Run(ctx, reader)
}

// applyOverrides folds --define, --hivevar and --conf into cfg.
func applyOverrides(cfg *config.Config, opts *options) error {
	for _, kv := range append(append([]string{}, opts.defines...), opts.hivevars...) {
		k, v, err := splitAssignment(kv)
		if err != nil {
			return err
		}
		cfg.Vars[k] = v
	}
	for _, kv := range opts.confs {
		k, v, err := splitAssignment(kv)
		if err != nil {
			return err
		}
		if err := cfg.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

func splitAssignment(kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", fmt.Errorf("invalid assignment %q (expected key=value)", kv)
	}
	return k, v, nil
}

// initFiles returns the files to run before the main input. Without -i the
// rc files $LEAPSHELL_CONF_DIR/.leapshellrc and ~/.leapshellrc are used when
// they exist.
func initFiles(explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	var files []string
	if dir := os.Getenv(ConfDirEnv); dir != "" {
		if rc := filepath.Join(dir, config.RCFileName); isFile(rc) {
			files = append(files, rc)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if rc := filepath.Join(home, config.RCFileName); isFile(rc) {
			files = append(files, rc)
		}
	}
	return files
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// statusError turns a final statement status into the root command's error.
func statusError(status int) error {
	if status == 0 {
		return nil
	}
	return &ExitError{Code: status}
}

