package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/leapstack-labs/leapshell/internal/linereader"
	"github.com/mattn/go-runewidth"
)

// LineReader reads one line of interactive input. It returns io.EOF at end
// of input and linereader.ErrInterrupt when the user cancels the line.
type LineReader interface {
	Readline(prompt string) (string, error)
}

// HostShell runs a command on the host command interpreter.
type HostShell interface {
	Execute(ctx context.Context, command string, stdout, stderr io.Writer) (int, error)
}

// ExecShell runs commands as `<Path> -c <command>`.
type ExecShell struct {
	Path string
}

// Execute implements HostShell.
func (s ExecShell) Execute(ctx context.Context, command string, stdout, stderr io.Writer) (int, error) {
	path := s.Path
	if path == "" {
		path = "/bin/sh"
	}
	c := exec.CommandContext(ctx, path, "-c", command)
	c.Stdout = stdout
	c.Stderr = stderr
	err := c.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code, nil
		}
		return 1, nil
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}

// Driver is the session driver: it turns input text into a sequence of
// classified, dispatched and streamed statements.
type Driver struct {
	sess     *Session
	registry Registry
	exec     *Executor
	signals  SignalSource
	exit     func(int)
	host     HostShell
	quit     bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithSignalSource replaces the SIGINT source used while statements run.
func WithSignalSource(src SignalSource) Option {
	return func(d *Driver) { d.signals = src }
}

// WithExit replaces the function used to terminate the process on a second interrupt.
func WithExit(exit func(int)) Option {
	return func(d *Driver) { d.exit = exit }
}

// WithHostShell replaces the host command interpreter.
func WithHostShell(h HostShell) Option {
	return func(d *Driver) { d.host = h }
}

// NewDriver creates a driver over sess using registry for handler lookup.
func NewDriver(sess *Session, registry Registry, opts ...Option) *Driver {
	d := &Driver{
		sess:     sess,
		registry: registry,
		exec:     NewExecutor(sess),
		signals:  OSSignals(),
		exit:     os.Exit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Session returns the driver's session.
func (d *Driver) Session() *Session { return d.sess }

// Quit reports whether a quit or exit statement has been processed.
func (d *Driver) Quit() bool { return d.quit }

// ProcessCmd classifies and dispatches a single statement and returns its status.
func (d *Driver) ProcessCmd(ctx context.Context, stmt string) int {
	sess := d.sess
	sess.LastCommand = stmt
	// Flush the error stream so it doesn't include output from the last command.
	_ = sess.Err.Flush()

	cmd := Classify(stmt)
	sess.Logger.Debug("processing statement", "kind", cmd.Kind.String(), "token", cmd.FirstToken())

	var ret int
	switch cmd.Kind {
	case KindEmpty:
		return 0

	case KindQuit:
		// Either every previous statement succeeded or this is the command
		// line; both count as a successful run.
		d.quit = true
		if err := sess.Close(); err != nil {
			sess.Logger.Warn("closing session", "error", err)
		}
		return 0

	case KindSource:
		ret = d.processSource(ctx, cmd)

	case KindShell:
		ret = d.processShell(ctx, cmd)

	default:
		h, err := d.registry.Lookup(cmd.Tokens[0], sess)
		if err != nil {
			sess.PrintError(fmt.Sprintf("Failed processing command %s %v", cmd.Tokens[0], err), fmt.Sprintf("%+v", err))
			return 1
		}
		ret = d.exec.Execute(ctx, stmt, h).Status
	}

	_ = sess.Out.Flush()
	return ret
}

func (d *Driver) processSource(ctx context.Context, cmd Command) int {
	sess := d.sess
	path, err := sess.Substitute(cmd.Rest)
	if err != nil {
		sess.PrintError(fmt.Sprintf("Failed processing file %s %v", cmd.Rest, err))
		return 1
	}

	if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
		sess.PrintError("File: " + path + " is not a file.")
		return 1
	}

	ret, err := d.ProcessFile(ctx, path)
	if err != nil {
		sess.PrintError(fmt.Sprintf("Failed processing file %s %v", path, err), fmt.Sprintf("%+v", err))
		return 1
	}
	return ret
}

func (d *Driver) processShell(ctx context.Context, cmd Command) int {
	sess := d.sess
	command, err := sess.Substitute(cmd.Rest)
	if err != nil {
		sess.PrintError(fmt.Sprintf("Exception raised from Shell command %v", err))
		return 1
	}

	host := d.host
	if host == nil {
		host = ExecShell{Path: sess.Conf.Shell}
	}

	// Shell output is written straight to the sinks; flush pending rows first.
	_ = sess.Out.Flush()
	ret, err := host.Execute(ctx, command, sess.Out, sess.Err)
	if err != nil {
		sess.PrintError(fmt.Sprintf("Exception raised from Shell command %v", err), fmt.Sprintf("%+v", err))
		return 1
	}
	if ret != 0 {
		sess.PrintError(fmt.Sprintf("Command failed with exit code = %d", ret))
	}
	return ret
}

// ProcessLine executes every statement in line in order. Unless
// ignore_errors is set, processing stops at the first failing statement and
// its status is returned. With ignore_errors the remaining statements still
// run and the status of the first failing one is returned.
//
// When allowInterrupting is true an interrupt request cancels the running
// statement, and a second request terminates the process.
func (d *Driver) ProcessLine(ctx context.Context, line string, allowInterrupting bool) int {
	var guard *InterruptGuard
	if allowInterrupting {
		var gctx context.Context
		guard, gctx = installInterruptGuard(ctx, d.sess, d.signals, d.exit)
		defer guard.Release()
		ctx = gctx
	}

	firstFailure := 0
	for _, stmt := range SplitStatements(line) {
		if guard != nil {
			guard.setStatement(stmt)
		}
		ret := d.ProcessCmd(ctx, stmt)
		if d.quit {
			return ret
		}
		if ret == 0 {
			continue
		}
		if !d.sess.Conf.IgnoreErrors {
			return ret
		}
		if firstFailure == 0 {
			firstFailure = ret
		}
		if ctx.Err() != nil {
			// The line was interrupted; the rest of it is abandoned.
			break
		}
	}
	return firstFailure
}

// ProcessReader executes the comment-stripped content of r as one batch.
func (d *Driver) ProcessReader(ctx context.Context, r io.Reader) (int, error) {
	text, err := StripComments(r)
	if err != nil {
		return 1, fmt.Errorf("read statements: %w", err)
	}
	return d.ProcessLine(ctx, text, false), nil
}

// ProcessFile executes the statements in the file at path.
func (d *Driver) ProcessFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 1, err
	}
	defer func() { _ = f.Close() }()

	d.sess.Logger.Debug("processing file", "path", path)
	return d.ProcessReader(ctx, f)
}

// ProcessInitFiles runs each file silently. The first failing file stops
// initialization and its status is returned.
func (d *Driver) ProcessInitFiles(ctx context.Context, files []string) int {
	saved := d.sess.Silent
	d.sess.Silent = true
	defer func() { d.sess.Silent = saved }()

	for _, file := range files {
		rc, err := d.ProcessFile(ctx, file)
		if err != nil {
			d.sess.PrintError(fmt.Sprintf("Could not process init file %s: %v", file, err))
			return 1
		}
		if rc != 0 || d.quit {
			return rc
		}
	}
	return 0
}

// ProcessSelectDatabase switches to db before any user statement runs.
func (d *Driver) ProcessSelectDatabase(ctx context.Context, db string) int {
	if db == "" {
		return 0
	}
	return d.ProcessLine(ctx, "use "+db+";", false)
}

// prompts returns the primary and continuation prompt bases for the
// current state, without the trailing "> ".
func (d *Driver) prompts(base string) (primary, continuation string) {
	db := d.formattedDB()
	return base + db, spacesFor(base) + spacesFor(db)
}

func (d *Driver) formattedDB() string {
	if !d.sess.Conf.PrintCurrentDB || d.sess.CurrentDB == "" {
		return ""
	}
	return " (" + d.sess.CurrentDB + ")"
}

// spacesFor returns whitespace as wide as s is on a terminal.
func spacesFor(s string) string {
	return strings.Repeat(" ", runewidth.StringWidth(s))
}

// Run is the interactive loop. It reads lines until end of input or quit,
// accumulating them until a line completes a statement, and returns the
// status of the last processed line.
func (d *Driver) Run(ctx context.Context, r LineReader) int {
	sess := d.sess
	base, err := sess.Substitute(sess.Conf.Prompt)
	if err != nil {
		sess.Logger.Warn("prompt substitution failed", "error", err)
		base = sess.Conf.Prompt
	}

	ret := 0
	var prefix strings.Builder
	primary, continuation := d.prompts(base)
	current := primary

	for {
		line, err := r.Readline(current + "> ")
		if errors.Is(err, linereader.ErrInterrupt) {
			// Ctrl+C at the prompt discards the pending statement.
			prefix.Reset()
			current = primary
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sess.PrintError(fmt.Sprintf("Error reading input: %v", err))
			break
		}

		if prefix.Len() > 0 {
			prefix.WriteByte('\n')
		}
		if !IsComplete(line) {
			prefix.WriteString(line)
			current = continuation
			continue
		}

		prefix.WriteString(line)
		stmt := prefix.String()
		prefix.Reset()

		ret = d.ProcessLine(ctx, stmt, true)
		if d.quit {
			return 0
		}
		primary, continuation = d.prompts(base)
		current = primary
	}
	return ret
}
