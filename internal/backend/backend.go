package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapshell/internal/cli/config"
	"github.com/leapstack-labs/leapshell/internal/shell"
)

// Backend is an open connection to one SQL engine.
type Backend struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger

	mu      sync.Mutex
	current string
	closed  bool
}

// Open connects to the target described by cfg.
func Open(ctx context.Context, cfg config.TargetConfig, logger *slog.Logger) (*Backend, error) {
	d, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownBackendError{Type: cfg.Type, Available: List()}
	}

	dsn := cfg.DSN
	if dsn == "" {
		dsn = d.DefaultDSN
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("connecting to backend", slog.String("type", d.Name), slog.String("driver", d.Driver))

	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", d.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.Name, err)
	}

	b := New(db, d, logger)
	if cfg.Database != "" {
		if err := b.UseDatabase(ctx, cfg.Database); err != nil {
			_ = b.Close()
			return nil, err
		}
	}
	return b, nil
}

// New wraps an already open database. The pool is limited to a single
// connection: statements of one session run one at a time, and per
// connection state such as the current database must survive between them.
func New(db *sql.DB, d Dialect, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Backend{
		db:      db,
		dialect: d,
		logger:  logger.With("backend", d.Name),
		current: d.DefaultDatabase,
	}
}

// Dialect returns the backend's dialect.
func (b *Backend) Dialect() Dialect { return b.dialect }

// DB returns the underlying database handle.
func (b *Backend) DB() *sql.DB { return b.db }

// Close closes the database connection. It is safe to call more than once.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.logger.Debug("closing database connection")
	return b.db.Close()
}

// UseDatabase switches the session to database name.
func (b *Backend) UseDatabase(ctx context.Context, name string) error {
	if b.dialect.Use == nil {
		return fmt.Errorf("%s does not support switching databases", b.dialect.Name)
	}
	if err := b.dialect.Use(ctx, b.db, name); err != nil {
		return err
	}
	b.mu.Lock()
	b.current = name
	b.mu.Unlock()
	b.logger.Debug("switched database", slog.String("database", name))
	return nil
}

// CurrentDatabase reports the session's current database.
func (b *Backend) CurrentDatabase(ctx context.Context) (string, error) {
	if b.dialect.Current != nil {
		name, err := b.dialect.Current(ctx, b.db)
		if err != nil {
			return "", fmt.Errorf("failed to query current database: %w", err)
		}
		return name, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, nil
}

// Tables lists the tables of the current database, for completion. Errors
// yield an empty list.
func (b *Backend) Tables(ctx context.Context) []string {
	if b.dialect.ListTables == "" {
		return nil
	}
	rows, err := b.db.QueryContext(ctx, b.dialect.ListTables)
	if err != nil {
		b.logger.Debug("listing tables failed", "error", err)
		return nil
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			names = append(names, name)
		}
	}
	// Ignore rows.Err() as this is for completion, not critical
	_ = rows.Err()
	return names
}

// Factory returns the handler factory for SQL statements.
func (b *Backend) Factory() shell.Factory {
	return func(sess *shell.Session) (shell.Handler, error) {
		b.mu.Lock()
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return shell.Handler{}, errors.New("database connection is closed")
		}
		return shell.Streaming(NewHandler(b, sess)), nil
	}
}

func (b *Backend) retryable(err error) bool {
	return b.dialect.Retryable != nil && b.dialect.Retryable(err)
}
