package linereader

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/chzyer/readline"
)

// Keywords are offered for completion in every session.
var Keywords = []string{
	"SELECT", "FROM", "WHERE", "GROUP", "BY", "ORDER", "HAVING", "LIMIT",
	"INSERT", "INTO", "VALUES", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER",
	"TABLE", "VIEW", "DATABASE", "SCHEMA", "JOIN", "LEFT", "RIGHT", "INNER",
	"OUTER", "ON", "AS", "AND", "OR", "NOT", "NULL", "IS", "IN", "LIKE",
	"DISTINCT", "UNION", "ALL", "WITH", "CASE", "WHEN", "THEN", "ELSE", "END",
	"SET", "RESET", "USE", "SOURCE", "QUIT", "EXIT",
}

// Options configures a terminal reader.
type Options struct {
	HistoryFile string
	Words       []string
	Stdin       io.ReadCloser
	Stdout      io.Writer
	Stderr      io.Writer
}

// Terminal reads lines from a terminal with editing, history and tab
// completion.
type Terminal struct {
	rl *readline.Instance
}

// NewTerminal creates a terminal reader.
func NewTerminal(opts Options) (*Terminal, error) {
	cfg := &readline.Config{
		HistoryFile:     opts.HistoryFile,
		AutoComplete:    NewWordCompleter(opts.Words),
		InterruptPrompt: "^C",
		EOFPrompt:       "",
		Stdin:           opts.Stdin,
		Stdout:          opts.Stdout,
		Stderr:          opts.Stderr,
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize line editor: %w", err)
	}
	return &Terminal{rl: rl}, nil
}

// Readline shows prompt and returns the next line.
func (t *Terminal) Readline(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	line, err := t.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrInterrupt
	}
	return line, err
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	return t.rl.Close()
}

// WordCompleter completes the word under the cursor from a fixed word list,
// case-insensitively. Completions keep the case of the typed prefix when it is
// all lower case.
type WordCompleter struct {
	words []string
}

// NewWordCompleter returns a completer over words and Keywords. Duplicates are
// removed.
func NewWordCompleter(words []string) *WordCompleter {
	seen := make(map[string]bool)
	var all []string
	for _, w := range append(append([]string{}, Keywords...), words...) {
		key := strings.ToLower(w)
		if w == "" || seen[key] {
			continue
		}
		seen[key] = true
		all = append(all, w)
	}
	sort.Strings(all)
	return &WordCompleter{words: all}
}

// Do implements readline.AutoCompleter.
func (c *WordCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	lower := prefix == strings.ToLower(prefix)
	var out [][]rune
	for _, w := range c.Complete(prefix) {
		if lower {
			w = strings.ToLower(w)
		}
		out = append(out, []rune(w[len(prefix):]))
	}
	return out, len([]rune(prefix))
}

// Complete returns the words that start with prefix, ignoring case.
func (c *WordCompleter) Complete(prefix string) []string {
	p := strings.ToLower(prefix)
	var out []string
	for _, w := range c.words {
		if len(w) > len(p) && strings.HasPrefix(strings.ToLower(w), p) {
			out = append(out, w)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == ':'
}
