// Package linereader provides the line sources of the interactive shell: a
// readline-backed terminal reader with history and completion, and a plain
// reader for non-terminal input.
package linereader

import "errors"

// ErrInterrupt is returned by Readline when the user cancels the current
// line with Ctrl+C.
var ErrInterrupt = errors.New("line interrupted")
