package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/leapstack-labs/leapshell/internal/cli/config"
	"github.com/leapstack-labs/leapshell/internal/testutil"
)

type testStreams struct {
	out, info, err bytes.Buffer
}

func newTestSession(t *testing.T, cfg *config.Config) (*Session, *testStreams) {
	t.Helper()
	if cfg == nil {
		cfg = config.New()
	}
	s := &testStreams{}
	sess := NewSession(cfg, Streams{Out: &s.out, Info: &s.info, Err: &s.err}, testutil.NewTestLogger(t))
	return sess, s
}

// fakeStream is a scripted streaming handler.
type fakeStream struct {
	mu sync.Mutex

	schema    []Field
	rows      []Row
	retries   int // ErrNeedRetry answers before the first real run
	code      int
	runErr    error
	fetchErr  error
	closeCode int
	block     bool // Run waits for ctx cancellation
	started   chan struct{}

	tries   []int
	stmts   []string
	fetches int
	closed  int
	pos     int
}

func (f *fakeStream) SetTryCount(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tries = append(f.tries, n)
}

func (f *fakeStream) Run(ctx context.Context, stmt string) (Response, error) {
	f.mu.Lock()
	f.stmts = append(f.stmts, stmt)
	if f.retries > 0 {
		f.retries--
		f.mu.Unlock()
		return Response{}, ErrNeedRetry
	}
	block, started := f.block, f.started
	f.mu.Unlock()

	if block {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return Response{}, ctx.Err()
	}
	if f.runErr != nil {
		return Response{}, f.runErr
	}
	return Response{Code: f.code, ErrorMessage: "scripted failure"}, nil
}

func (f *fakeStream) Schema() []Field { return f.schema }

func (f *fakeStream) Fetch(_ context.Context, max int) ([]Row, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, false, f.fetchErr
	}
	end := min(f.pos+max, len(f.rows))
	out := f.rows[f.pos:end]
	f.pos = end
	return out, f.pos < len(f.rows), nil
}

func (f *fakeStream) Close() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeCode
}

// fakeSimple records the arguments of every run.
type fakeSimple struct {
	args []string
	resp Response
	err  error
}

func (f *fakeSimple) Run(_ context.Context, args string) (Response, error) {
	f.args = append(f.args, args)
	return f.resp, f.err
}

// fakeSignals is a SignalSource driven by the test.
type fakeSignals struct {
	mu       sync.Mutex
	ch       chan<- os.Signal
	notified int
	stopped  int
}

func (f *fakeSignals) Notify(c chan<- os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = c
	f.notified++
}

func (f *fakeSignals) Stop(c chan<- os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == c {
		f.ch = nil
	}
	f.stopped++
}

func (f *fakeSignals) send() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == nil {
		return false
	}
	f.ch <- os.Interrupt
	return true
}

func (f *fakeSignals) listening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch != nil
}

// scriptedReader replays lines and errors, then reports io.EOF.
type scriptedReader struct {
	steps   []any
	prompts []string
}

func (r *scriptedReader) Readline(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.steps) == 0 {
		return "", io.EOF
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	if err, ok := step.(error); ok {
		return "", err
	}
	return step.(string), nil
}

// failingWriter fails every write.
type failingWriter struct{}

var errBrokenPipe = errors.New("broken pipe")

func (failingWriter) Write([]byte) (int, error) { return 0, errBrokenPipe }

func newTestConfig() *config.Config {
	return config.New()
}
