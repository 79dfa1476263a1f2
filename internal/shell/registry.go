package shell

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry finds the handler for a statement's leading token.
type Registry interface {
	Lookup(token string, sess *Session) (Handler, error)
}

// Factory builds a handler for one statement.
type Factory func(sess *Session) (Handler, error)

// HandlerRegistry maps leading tokens to handler factories. Tokens without a
// registered factory go to the fallback factory, typically the SQL backend.
type HandlerRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	fallback  Factory
}

// NewHandlerRegistry creates a registry. fallback may be nil, in which case
// unknown tokens fail lookup.
func NewHandlerRegistry(fallback Factory) *HandlerRegistry {
	return &HandlerRegistry{
		factories: make(map[string]Factory),
		fallback:  fallback,
	}
}

// Register adds a factory for token. Tokens are matched case-insensitively.
func (r *HandlerRegistry) Register(token string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(token)] = f
}

// SetFallback replaces the fallback factory.
func (r *HandlerRegistry) SetFallback(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = f
}

// Lookup implements Registry.
func (r *HandlerRegistry) Lookup(token string, sess *Session) (Handler, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(token)]
	if !ok {
		f = r.fallback
	}
	r.mu.RUnlock()

	if f == nil {
		return Handler{}, &UnknownHandlerError{Token: token, Available: r.Tokens()}
	}
	h, err := f(sess)
	if err != nil {
		return Handler{}, fmt.Errorf("create handler for %q: %w", token, err)
	}
	if h.IsZero() {
		return Handler{}, fmt.Errorf("create handler for %q: factory returned no handler", token)
	}
	return h, nil
}

// Tokens returns the registered tokens (sorted).
func (r *HandlerRegistry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tokens := make([]string, 0, len(r.factories))
	for t := range r.factories {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// UnknownHandlerError is returned when no handler serves a token.
type UnknownHandlerError struct {
	Token     string
	Available []string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("no handler for command %q (available: %s)", e.Token, strings.Join(e.Available, ", "))
}
