package shell

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// KillExitCode is the process exit status after a second interrupt.
const KillExitCode = 127

// SignalSource delivers interrupt requests. The default source is the
// process SIGINT; tests substitute their own.
type SignalSource interface {
	Notify(c chan<- os.Signal)
	Stop(c chan<- os.Signal)
}

type osSignals struct{}

func (osSignals) Notify(c chan<- os.Signal) { signal.Notify(c, os.Interrupt) }
func (osSignals) Stop(c chan<- os.Signal)   { signal.Stop(c) }

// OSSignals returns the SIGINT signal source.
func OSSignals() SignalSource { return osSignals{} }

// CancelHooks is a set of callbacks that cancel in-flight backend work.
// Backends add a hook when work starts and remove it when the work ends.
type CancelHooks struct {
	mu    sync.Mutex
	next  int
	hooks map[int]func()
}

// NewCancelHooks returns an empty hook set.
func NewCancelHooks() *CancelHooks {
	return &CancelHooks{hooks: make(map[int]func())}
}

// Add registers fn and returns a function that removes it.
func (h *CancelHooks) Add(fn func()) (remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.hooks[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.hooks, id)
	}
}

// Len returns the number of registered hooks.
func (h *CancelHooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}

// CancelAll runs every registered hook. Hooks stay registered; their owners
// remove them while unwinding.
func (h *CancelHooks) CancelAll() {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.hooks))
	for _, fn := range h.hooks {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// InterruptState tracks interrupt requests during one statement line.
type InterruptState int32

const (
	InterruptNone InterruptState = iota
	InterruptRequested
	InterruptKilled
)

func (s InterruptState) String() string {
	switch s {
	case InterruptNone:
		return "none"
	case InterruptRequested:
		return "requested"
	case InterruptKilled:
		return "killed"
	}
	return "unknown"
}

// InterruptGuard turns interrupt requests into cancellation of the context
// handed to the running statement for as long as it is installed.
//
// The listener runs on its own goroutine and only touches session state
// that is safe for concurrent use.
type InterruptGuard struct {
	sess   *Session
	src    SignalSource
	exit   func(int)
	cancel context.CancelFunc
	silent bool

	statement atomic.Pointer[string]

	sigs    chan os.Signal
	done    chan struct{}
	stopped chan struct{}
	state   atomic.Int32
	once    sync.Once
}

// installInterruptGuard starts listening on src and returns the guard and
// the context the statement must run under. Release must be called when
// the statement line finishes.
func installInterruptGuard(parent context.Context, sess *Session, src SignalSource, exit func(int)) (*InterruptGuard, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	g := &InterruptGuard{
		sess:    sess,
		src:     src,
		exit:    exit,
		cancel:  cancel,
		silent:  sess.Silent,
		sigs:    make(chan os.Signal, 2),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	src.Notify(g.sigs)
	go g.loop()
	return g, ctx
}

func (g *InterruptGuard) loop() {
	defer close(g.stopped)
	for {
		select {
		case <-g.sigs:
			g.handle()
		case <-g.done:
			return
		}
	}
}

// setStatement records the statement now running. It is called from the
// dispatching goroutine.
func (g *InterruptGuard) setStatement(stmt string) {
	g.statement.Store(&stmt)
}

func (g *InterruptGuard) currentStatement() string {
	if p := g.statement.Load(); p != nil {
		return *p
	}
	return ""
}

func (g *InterruptGuard) print(msg string) {
	if g.silent {
		return
	}
	_, _ = fmt.Fprintln(g.sess.Info, msg)
}

func (g *InterruptGuard) handle() {
	if g.state.CompareAndSwap(int32(InterruptNone), int32(InterruptRequested)) {
		g.print("Interrupting... Be patient, this might take some time.")
		g.print("Press Ctrl+C again to kill the shell")
		g.sess.Logger.Info("interrupt requested", "statement", g.currentStatement())
		g.sess.Hooks.CancelAll()
		g.cancel()
		return
	}
	g.state.Store(int32(InterruptKilled))
	g.print("Exiting the shell")
	g.exit(KillExitCode)
}

// State returns the current interrupt state.
func (g *InterruptGuard) State() InterruptState {
	return InterruptState(g.state.Load())
}

// Release stops listening for interrupts and restores the previous signal
// disposition. It is idempotent and waits for the listener to exit.
func (g *InterruptGuard) Release() {
	g.once.Do(func() {
		g.src.Stop(g.sigs)
		close(g.done)
		<-g.stopped
		g.cancel()
	})
}
