package shell

import (
	"strings"
)

// Kind is the dispatch path chosen for a statement.
type Kind int

const (
	// KindDispatch routes the statement to a registered handler.
	KindDispatch Kind = iota
	// KindQuit ends the session.
	KindQuit
	// KindSource executes the statements of a file.
	KindSource
	// KindShell runs the statement through the host command interpreter.
	KindShell
	// KindEmpty is a blank statement; nothing runs.
	KindEmpty
)

// ShellEscape prefixes a statement that runs on the host shell.
const ShellEscape = "!"

func (k Kind) String() string {
	switch k {
	case KindDispatch:
		return "dispatch"
	case KindQuit:
		return "quit"
	case KindSource:
		return "source"
	case KindShell:
		return "shell"
	case KindEmpty:
		return "empty"
	}
	return "unknown"
}

// Command is a classified statement.
type Command struct {
	Kind Kind
	// Text is the trimmed statement.
	Text string
	// Tokens is Text split on whitespace.
	Tokens []string
	// Rest is the trimmed text after the first token, or after the shell
	// escape marker for KindShell.
	Rest string
}

// FirstToken returns the lower-cased leading token, or "" for an empty statement.
func (c Command) FirstToken() string {
	if len(c.Tokens) == 0 {
		return ""
	}
	return strings.ToLower(c.Tokens[0])
}

// Classify decides the dispatch path of stmt.
func Classify(stmt string) Command {
	trimmed := strings.TrimSpace(stmt)
	cmd := Command{Text: trimmed, Tokens: Tokenize(trimmed)}

	switch {
	case len(cmd.Tokens) == 0:
		cmd.Kind = KindEmpty
	case strings.EqualFold(trimmed, "quit") || strings.EqualFold(trimmed, "exit"):
		cmd.Kind = KindQuit
	case strings.EqualFold(cmd.Tokens[0], "source"):
		cmd.Kind = KindSource
		cmd.Rest = restAfter(trimmed, cmd.Tokens[0])
	case strings.HasPrefix(trimmed, ShellEscape):
		cmd.Kind = KindShell
		cmd.Rest = strings.TrimPrefix(trimmed, ShellEscape)
	default:
		cmd.Kind = KindDispatch
		cmd.Rest = restAfter(trimmed, cmd.Tokens[0])
	}
	return cmd
}

func restAfter(trimmed, token string) string {
	return strings.TrimSpace(trimmed[len(token):])
}
