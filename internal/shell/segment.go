package shell

import (
	"bufio"
	"io"
	"strings"
)

const (
	// Terminator ends a statement.
	Terminator = ";"
	// Escape placed immediately before the terminator makes it literal.
	Escape = `\`
	// CommentPrefix marks a batch-file line that is skipped entirely.
	CommentPrefix = "--"
)

// SplitStatements splits text into statements on unescaped terminators.
// An escaped terminator loses its escape character and stays in the
// current statement. Blank statements are dropped. A trailing fragment
// without a terminator is returned as the last statement; a trailing
// fragment ending in an escaped terminator is incomplete and dropped.
func SplitStatements(text string) []string {
	var stmts []string
	var current strings.Builder

	pieces := strings.Split(text, Terminator)
	// A terminator at the very end leaves one empty piece behind. Only that
	// one is dropped: earlier empty pieces may close an escaped statement.
	if n := len(pieces); n > 1 && pieces[n-1] == "" {
		pieces = pieces[:n-1]
	}

	for _, piece := range pieces {
		if strings.HasSuffix(piece, Escape) {
			current.WriteString(strings.TrimSuffix(piece, Escape))
			current.WriteString(Terminator)
			continue
		}
		current.WriteString(piece)

		stmt := current.String()
		current.Reset()
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// IsComplete reports whether an input line finishes a statement: once
// trimmed it ends with a terminator that is not escaped.
func IsComplete(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasSuffix(trimmed, Terminator) && !strings.HasSuffix(trimmed, Escape+Terminator)
}

// StripComments reads r and returns its content without comment lines.
// Every kept line is terminated by a newline.
func StripComments(r io.Reader) (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, CommentPrefix) {
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Tokenize splits a trimmed statement on runs of whitespace.
func Tokenize(stmt string) []string {
	return strings.Fields(stmt)
}
