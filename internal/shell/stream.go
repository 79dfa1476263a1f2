package shell

import (
	"context"
)

// LinesToFetch is the default number of rows requested per fetch.
const LinesToFetch = 40

// newFormatter builds the formatter for a result stream.
var newFormatter = NewFormatter

// streamResults prints the optional header and then every row the handler
// produces, stopping early when the output sink reports a write failure.
// It returns the number of rows written.
func streamResults(ctx context.Context, sess *Session, h StreamingHandler) (int, error) {
	fetchSize := sess.Conf.FetchSize
	if fetchSize <= 0 {
		fetchSize = LinesToFetch
	}

	schema := h.Schema()
	columns := make([]string, len(schema))
	for i, f := range schema {
		columns[i] = f.Name
	}

	f := newFormatter(sess.Conf.Output, sess.Out)
	_ = f.Begin(columns, sess.Conf.PrintHeader)

	counter := 0
	var writeErr error
	for writeErr == nil {
		rows, more, err := h.Fetch(ctx, fetchSize)
		if err != nil {
			return counter, err
		}
		for _, r := range rows {
			if writeErr = f.Row(r); writeErr == nil {
				writeErr = sess.Out.Err()
			}
			if writeErr != nil {
				break
			}
			counter++
		}
		if sess.Out.CheckError() || !more {
			break
		}
	}
	if writeErr != nil {
		sess.Logger.Debug("formatter failed", "error", writeErr, "rows", counter)
	}

	_ = f.End()
	if err := sess.Out.Flush(); err != nil {
		sess.Logger.Debug("output sink failed", "error", err, "rows", counter)
	}
	return counter, nil
}
