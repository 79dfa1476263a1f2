package linereader

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Plain reads newline-terminated lines from an io.Reader. The prompt is
// written to Prompt when it is set.
type Plain struct {
	r      *bufio.Reader
	prompt io.Writer
}

// NewPlain returns a reader over r. prompt may be nil.
func NewPlain(r io.Reader, prompt io.Writer) *Plain {
	return &Plain{r: bufio.NewReader(r), prompt: prompt}
}

// Readline implements the shell line reader.
func (p *Plain) Readline(prompt string) (string, error) {
	if p.prompt != nil {
		_, _ = io.WriteString(p.prompt, prompt)
	}
	line, err := p.r.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		// A final line without a trailing newline is still a line.
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
