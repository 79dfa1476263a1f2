package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapshell/internal/cli/config"
	"github.com/leapstack-labs/leapshell/internal/shell/vars"
)

// Streams are the raw input and output streams a session is attached to.
type Streams struct {
	In   io.Reader
	Out  io.Writer
	Info io.Writer
	Err  io.Writer
}

// StdStreams returns the process standard streams. Informational messages
// go to stderr so that result rows on stdout stay machine readable.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Info: os.Stderr, Err: os.Stderr}
}

// Session is the mutable state shared by every statement of one shell
// invocation. It is owned by the Driver and passed explicitly to every
// component that needs it.
type Session struct {
	ID     string
	Conf   *config.Config
	In     io.Reader
	Out    *Sink
	Info   io.Writer
	Err    *CachingWriter
	Logger *slog.Logger
	Hooks  *CancelHooks

	// Vars holds session variables, addressed as ${name} or ${hivevar:name}.
	Vars map[string]string

	LastCommand string
	CurrentDB   string
	Silent      bool
	Verbose     bool

	initial *config.Config
	subst   *vars.Substitution

	// console guards the raw streams, which the interrupt listener
	// writes to concurrently with statement output.
	console sync.Mutex

	mu      sync.Mutex
	closers []io.Closer
	closed  bool
}

// NewSession creates a session over cfg. cfg is owned by the session from
// here on; a snapshot is kept so `reset` can restore it.
func NewSession(cfg *config.Config, streams Streams, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if streams.Info == nil {
		streams.Info = io.Discard
	}
	if streams.Err == nil {
		streams.Err = io.Discard
	}
	if streams.Out == nil {
		streams.Out = io.Discard
	}

	id := uuid.NewString()
	s := &Session{
		ID:      id,
		Conf:    cfg,
		In:      streams.In,
		Logger:  logger.With("session", id),
		Hooks:   NewCancelHooks(),
		Vars:    make(map[string]string, len(cfg.Vars)),
		Silent:  cfg.Silent,
		Verbose: cfg.Verbose,
		initial: cfg.Clone(),
	}
	s.Out = NewSink(consoleWriter{&s.console, streams.Out})
	s.Info = consoleWriter{&s.console, streams.Info}
	s.Err = NewCachingWriter(consoleWriter{&s.console, streams.Err})
	for k, v := range cfg.Vars {
		s.Vars[k] = v
	}

	s.subst = vars.New(s.Vars, cfg.Get)
	s.syncSubstitution()
	return s
}

// Substitute expands variable references in text.
func (s *Session) Substitute(text string) (string, error) {
	return s.subst.Substitute(text)
}

// SetConf sets a configuration value for the rest of the session.
func (s *Session) SetConf(key, value string) error {
	if err := s.Conf.Set(key, value); err != nil {
		return err
	}
	s.Silent = s.Conf.Silent
	s.Verbose = s.Conf.Verbose
	s.syncSubstitution()
	return nil
}

// ResetConf restores the configuration to its state at session start.
// Session variables are kept.
func (s *Session) ResetConf() {
	*s.Conf = *s.initial.Clone()
	s.Silent = s.Conf.Silent
	s.Verbose = s.Conf.Verbose
	s.syncSubstitution()
}

func (s *Session) syncSubstitution() {
	s.subst.Depth = s.Conf.SubstituteDepth
	s.subst.Disabled = !s.Conf.Substitute
}

// PrintInfo writes an informational message unless the session is silent.
func (s *Session) PrintInfo(format string, args ...any) {
	if s.Silent {
		return
	}
	_, _ = fmt.Fprintf(s.Info, format+"\n", args...)
}

// PrintError writes msg to the error stream. detail, typically a wrapped
// error chain, is only logged.
func (s *Session) PrintError(msg string, detail ...string) {
	_, _ = fmt.Fprintln(s.Err, msg)
	if len(detail) > 0 {
		s.Logger.Debug(msg, "detail", strings.Join(detail, "\n"))
	}
}

// AddCloser registers c to be closed with the session.
func (s *Session) AddCloser(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, c)
}

// Close flushes the output streams and closes registered resources in
// reverse order. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error
	if err := s.Out.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush output: %w", err))
	}
	if err := s.Err.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush errors: %w", err))
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.Logger.Debug("session closed", "last_command", s.LastCommand)
	return errors.Join(errs...)
}
