package shell

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
)

// Sink is a buffered output stream that remembers the first write failure.
// Once a write fails every subsequent write fails with the same error, so
// callers may write freely and consult CheckError at convenient points.
type Sink struct {
	mu  sync.Mutex
	w   *bufio.Writer
	err error
}

// NewSink wraps w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: bufio.NewWriter(w)}
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

// Flush writes any buffered data to the underlying writer.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if err := s.w.Flush(); err != nil {
		s.err = err
	}
	return s.err
}

// CheckError flushes the sink and reports whether any write has failed.
func (s *Sink) CheckError() bool {
	return s.Flush() != nil
}

// Err returns the first write failure, if any.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// CachingWriter passes writes through to an underlying writer and keeps the
// complete lines written so far for later inspection.
type CachingWriter struct {
	mu      sync.Mutex
	w       io.Writer
	partial bytes.Buffer
	lines   []string
}

// NewCachingWriter wraps w.
func NewCachingWriter(w io.Writer) *CachingWriter {
	return &CachingWriter{w: w}
}

// Write implements io.Writer.
func (c *CachingWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.partial.Write(p)
	for {
		data := c.partial.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		c.lines = append(c.lines, string(data[:i]))
		c.partial.Next(i + 1)
	}
	return c.w.Write(p)
}

// Flush flushes the underlying writer when it supports flushing.
func (c *CachingWriter) Flush() error {
	if f, ok := c.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Output returns the cached lines.
func (c *CachingWriter) Output() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// String returns the cached lines joined by newlines.
func (c *CachingWriter) String() string {
	return strings.Join(c.Output(), "\n")
}

// Reset discards the cached lines.
func (c *CachingWriter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.partial.Reset()
}

// consoleWriter serializes writes to a stream shared by the dispatching
// path and the interrupt listener.
type consoleWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (c consoleWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

func (c consoleWriter) Flush() error {
	f, ok := c.w.(interface{ Flush() error })
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return f.Flush()
}
