package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// Transient PostgreSQL error classes.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func init() {
	Register(Dialect{
		Name:       "postgres",
		Driver:     "pgx",
		DefaultDSN: "postgres://localhost:5432/postgres?sslmode=disable",
		ListTables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema()
			ORDER BY table_name`,
		// A PostgreSQL connection is bound to one database; `use` selects
		// the schema search path instead.
		Use: func(ctx context.Context, c Conn, name string) error {
			if _, err := c.ExecContext(ctx, "SET search_path TO "+quoteIdent(name)); err != nil {
				return fmt.Errorf("failed to switch schema: %w", err)
			}
			return nil
		},
		Current: func(ctx context.Context, c Conn) (string, error) {
			var name string
			err := c.QueryRowContext(ctx, "SELECT current_schema()").Scan(&name)
			return name, err
		},
		Retryable: func(err error) bool {
			var pe *pgconn.PgError
			if !errors.As(err, &pe) {
				return false
			}
			return pe.Code == pgSerializationFailure || pe.Code == pgDeadlockDetected
		},
	})
}

// sqlState extracts the SQLSTATE of a PostgreSQL error.
func sqlState(err error) string {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
