// Package backend connects the shell to SQL engines through database/sql and
// serves every statement that is not a local command.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Conn is the subset of *sql.DB a dialect needs.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect describes how one SQL engine is reached and how its session state
// is managed.
type Dialect struct {
	// Name is the target type, e.g. "sqlite".
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// DefaultDSN is used when the target has no DSN.
	DefaultDSN string
	// DefaultDatabase is the database a fresh connection starts in, for
	// engines that cannot report it.
	DefaultDatabase string
	// ListTables returns one table name per row, for completion.
	ListTables string

	// Use switches the connection to database name.
	Use func(ctx context.Context, c Conn, name string) error
	// Current reports the connection's current database. Nil means the
	// backend tracks it itself.
	Current func(ctx context.Context, c Conn) (string, error)
	// Retryable reports whether err is transient and the statement may be
	// submitted again.
	Retryable func(err error) bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Dialect)
)

// Register adds a dialect. Called by dialect files in their init() functions.
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(d.Name)] = d
}

// Get retrieves a dialect by target type.
func Get(name string) (Dialect, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[strings.ToLower(name)]
	return d, ok
}

// List returns all registered target types (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownBackendError is returned when an unknown target type is requested.
type UnknownBackendError struct {
	Type      string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown target type %q\nAvailable targets: %v\nHint: Check --target or target.type in leapshell.yaml", e.Type, e.Available)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
