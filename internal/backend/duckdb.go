package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcboeker/go-duckdb"
)

func init() {
	Register(Dialect{
		Name:       "duckdb",
		Driver:     "duckdb",
		DefaultDSN: "",
		ListTables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema()
			ORDER BY table_name`,
		Use: func(ctx context.Context, c Conn, name string) error {
			if _, err := c.ExecContext(ctx, "USE "+quoteIdent(name)); err != nil {
				return fmt.Errorf("failed to switch database: %w", err)
			}
			return nil
		},
		Current: func(ctx context.Context, c Conn) (string, error) {
			var name string
			err := c.QueryRowContext(ctx, "SELECT current_database()").Scan(&name)
			return name, err
		},
		Retryable: func(err error) bool {
			var de *duckdb.Error
			return errors.As(err, &de) && de.Type == duckdb.ErrorTypeTransaction
		},
	})
}
