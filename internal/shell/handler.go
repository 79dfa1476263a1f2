package shell

import (
	"context"
	"errors"
)

// ErrNeedRetry is returned by a handler's Run to ask for the statement to be
// submitted again with an incremented try count. It is not a failure.
var ErrNeedRetry = errors.New("statement needs retry")

// Response is the result of a handler run. Code 0 means success.
type Response struct {
	Code         int
	ErrorMessage string
	SQLState     string
}

// OK is the successful response.
var OK = Response{}

// Failure returns a response with a non-zero code.
func Failure(code int, msg string) Response {
	return Response{Code: code, ErrorMessage: msg}
}

// Field describes one column of a result schema.
type Field struct {
	Name string
	Type string
}

// Row is one result row, already rendered to strings.
type Row []string

// StreamingHandler runs a statement and then exposes a schema plus an
// incrementally fetched row sequence.
type StreamingHandler interface {
	// Run executes the statement. Returning ErrNeedRetry requests a retry.
	Run(ctx context.Context, stmt string) (Response, error)
	// Schema describes the rows of the last successful Run.
	Schema() []Field
	// Fetch returns up to max rows. more is false once the stream is exhausted.
	Fetch(ctx context.Context, max int) (rows []Row, more bool, err error)
	// Close releases the statement's resources and reports a status code.
	Close() int
}

// SimpleHandler runs a statement and returns a single response.
type SimpleHandler interface {
	// Run executes the statement arguments (the text after the first token).
	Run(ctx context.Context, args string) (Response, error)
}

// TryCounter is implemented by handlers that want to know which attempt
// they are serving. SetTryCount is called before every invocation.
type TryCounter interface {
	SetTryCount(n int)
}

// Handler is a tagged union over the two handler shapes. Exactly one of
// Stream and Simple is set.
type Handler struct {
	Stream StreamingHandler
	Simple SimpleHandler
}

// Streaming wraps a streaming handler.
func Streaming(h StreamingHandler) Handler {
	return Handler{Stream: h}
}

// Simple wraps a simple handler.
func Simple(h SimpleHandler) Handler {
	return Handler{Simple: h}
}

// IsZero reports whether h wraps no handler.
func (h Handler) IsZero() bool {
	return h.Stream == nil && h.Simple == nil
}

func (h Handler) setTryCount(n int) {
	var target any = h.Simple
	if h.Stream != nil {
		target = h.Stream
	}
	if tc, ok := target.(TryCounter); ok {
		tc.SetTryCount(n)
	}
}
