package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapshell/internal/shell"
)

// MaxTries is the number of attempts a statement gets when the engine
// reports a transient failure.
const MaxTries = 3

// RetryBackoff is the pause before a repeated attempt, multiplied by the
// attempt number.
var RetryBackoff = 100 * time.Millisecond

// TimeFormat renders date and time values.
const TimeFormat = "2006-01-02 15:04:05.999999999"

// Handler runs one SQL statement on a backend and streams its rows.
type Handler struct {
	b        *Backend
	sess     *shell.Session
	tryCount int

	rows   *sql.Rows
	schema []shell.Field
	cancel context.CancelFunc
	remove func()
}

// NewHandler returns a handler for one statement of sess.
func NewHandler(b *Backend, sess *shell.Session) *Handler {
	return &Handler{b: b, sess: sess}
}

// SetTryCount implements shell.TryCounter.
func (h *Handler) SetTryCount(n int) { h.tryCount = n }

// Run implements shell.StreamingHandler.
func (h *Handler) Run(ctx context.Context, stmt string) (shell.Response, error) {
	sess := h.sess
	query, err := sess.Substitute(stmt)
	if err != nil {
		sess.PrintError(fmt.Sprintf("FAILED: %v", err))
		return shell.Failure(1, err.Error()), nil
	}

	if h.tryCount > 0 {
		select {
		case <-time.After(time.Duration(h.tryCount) * RetryBackoff):
		case <-ctx.Done():
			return shell.Response{}, ctx.Err()
		}
	}

	qctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.remove = sess.Hooks.Add(cancel)

	sess.Logger.Debug("executing statement", "query", query, "try", h.tryCount)
	//nolint:rowserrcheck // rows.Err() is checked by Fetch once iteration completes
	rows, err := h.b.db.QueryContext(qctx, query)
	if err != nil {
		h.release()
		if ctx.Err() != nil {
			return shell.Response{}, ctx.Err()
		}
		if h.b.retryable(err) && h.tryCount < MaxTries-1 {
			sess.Logger.Debug("transient failure", "error", err)
			return shell.Response{}, shell.ErrNeedRetry
		}
		sess.PrintError(fmt.Sprintf("FAILED: %v", err), fmt.Sprintf("%+v", err))
		return shell.Response{Code: 1, ErrorMessage: err.Error(), SQLState: sqlState(err)}, nil
	}
	h.rows = rows

	types, err := rows.ColumnTypes()
	if err != nil {
		h.release()
		sess.PrintError(fmt.Sprintf("FAILED: %v", err))
		return shell.Failure(1, err.Error()), nil
	}
	h.schema = make([]shell.Field, len(types))
	for i, ct := range types {
		h.schema[i] = shell.Field{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}

	sess.PrintInfo("OK")
	return shell.OK, nil
}

// Schema implements shell.StreamingHandler.
func (h *Handler) Schema() []shell.Field { return h.schema }

// Fetch implements shell.StreamingHandler.
func (h *Handler) Fetch(_ context.Context, max int) ([]shell.Row, bool, error) {
	if h.rows == nil {
		return nil, false, nil
	}

	n := len(h.schema)
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}

	var out []shell.Row
	for len(out) < max {
		if !h.rows.Next() {
			// The query context carries the interrupt, so a cancelled
			// statement surfaces here as context.Canceled.
			return out, false, h.rows.Err()
		}
		if err := h.rows.Scan(ptrs...); err != nil {
			return out, false, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(shell.Row, n)
		for i, v := range values {
			row[i] = FormatValue(v)
		}
		out = append(out, row)
	}
	return out, true, nil
}

// Close implements shell.StreamingHandler.
func (h *Handler) Close() int {
	ret := 0
	if h.rows != nil {
		if err := h.rows.Close(); err != nil {
			h.sess.Logger.Debug("closing rows", "error", err)
			ret = 1
		}
		h.rows = nil
	}
	h.release()
	return ret
}

func (h *Handler) release() {
	if h.remove != nil {
		h.remove()
		h.remove = nil
	}
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// FormatValue renders a scanned column value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.Format(TimeFormat)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
