package shell

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome is the result of executing one statement through a handler.
type Outcome struct {
	Status       int
	ErrorMessage string
	Rows         int
	Elapsed      time.Duration
	Tries        int
	Interrupted  bool
}

// Executor drives handlers to completion and retries on ErrNeedRetry.
type Executor struct {
	sess *Session
}

// NewExecutor returns an executor bound to sess.
func NewExecutor(sess *Session) *Executor {
	return &Executor{sess: sess}
}

// Execute runs stmt on h. The attempt counter starts at 0 and grows by one
// per ErrNeedRetry; retries are unbounded unless max_retries is set.
func (e *Executor) Execute(ctx context.Context, stmt string, h Handler) Outcome {
	tryCount := 0
	for {
		h.setTryCount(tryCount)
		out, err := e.executeOnce(ctx, stmt, h)
		out.Tries = tryCount + 1
		if !errors.Is(err, ErrNeedRetry) {
			return out
		}

		limit := e.sess.Conf.MaxRetries
		if limit > 0 && tryCount >= limit {
			e.sess.PrintError(fmt.Sprintf("Statement still requested a retry after %d retries, giving up", limit))
			return Outcome{Status: 1, ErrorMessage: "retry limit exceeded", Tries: out.Tries}
		}

		e.sess.PrintInfo("Retry query with a different approach...")
		e.sess.Logger.Debug("retrying statement", "try", tryCount+1)
		tryCount++
	}
}

// executeOnce performs one attempt. The only error it returns is ErrNeedRetry.
func (e *Executor) executeOnce(ctx context.Context, stmt string, h Handler) (Outcome, error) {
	if h.Stream != nil {
		return e.executeStreaming(ctx, stmt, h.Stream)
	}
	return e.executeSimple(ctx, stmt, h.Simple)
}

func (e *Executor) executeStreaming(ctx context.Context, stmt string, h StreamingHandler) (Outcome, error) {
	sess := e.sess
	start := time.Now()
	if sess.Verbose {
		_, _ = fmt.Fprintln(sess.Out, stmt)
	}

	resp, err := h.Run(ctx, stmt)
	if errors.Is(err, ErrNeedRetry) {
		return Outcome{}, err
	}
	if err != nil {
		h.Close()
		return e.failed(ctx, err), nil
	}
	if resp.Code != 0 {
		h.Close()
		return Outcome{Status: resp.Code, ErrorMessage: resp.ErrorMessage, Interrupted: ctx.Err() != nil}, nil
	}

	elapsed := time.Since(start)
	out := Outcome{Elapsed: elapsed}

	counter, err := streamResults(ctx, sess, h)
	out.Rows = counter
	if err != nil {
		if interrupted(ctx, err) {
			sess.PrintError("Interrupted")
			out.Interrupted = true
		} else {
			sess.PrintError(fmt.Sprintf("Failed with exception %v", err), fmt.Sprintf("%+v", err))
		}
		out.Status = 1
		out.ErrorMessage = err.Error()
	}

	if cret := h.Close(); out.Status == 0 {
		out.Status = cret
	}

	info := fmt.Sprintf("Time taken: %.3f seconds", elapsed.Seconds())
	if counter > 0 {
		info += fmt.Sprintf(", Fetched: %d row(s)", counter)
	}
	sess.PrintInfo("%s", info)
	return out, nil
}

func (e *Executor) executeSimple(ctx context.Context, stmt string, h SimpleHandler) (Outcome, error) {
	sess := e.sess
	cmd := Classify(stmt)
	if len(cmd.Tokens) == 0 {
		return Outcome{}, nil
	}
	if sess.Verbose {
		_, _ = fmt.Fprintln(sess.Out, cmd.Tokens[0]+" "+cmd.Rest)
	}

	resp, err := h.Run(ctx, cmd.Rest)
	if errors.Is(err, ErrNeedRetry) {
		return Outcome{}, err
	}
	if err != nil {
		return e.failed(ctx, err), nil
	}
	if resp.Code != 0 {
		_, _ = fmt.Fprintf(sess.Out, "Query returned non-zero code: %d, cause: %s\n", resp.Code, resp.ErrorMessage)
		_ = sess.Out.Flush()
	}
	return Outcome{Status: resp.Code, ErrorMessage: resp.ErrorMessage}, nil
}

// failed converts a handler error into a failed outcome, telling apart
// cancellation from ordinary failure.
func (e *Executor) failed(ctx context.Context, err error) Outcome {
	if interrupted(ctx, err) {
		e.sess.PrintError("Interrupted")
		return Outcome{Status: 1, ErrorMessage: "interrupted", Interrupted: true}
	}
	e.sess.PrintError(fmt.Sprintf("FAILED: %v", err), fmt.Sprintf("%+v", err))
	return Outcome{Status: 1, ErrorMessage: err.Error()}
}

func interrupted(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || (ctx.Err() != nil && err != nil)
}
