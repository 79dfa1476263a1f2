package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	Register(Dialect{
		Name:            "sqlite",
		Driver:          "sqlite",
		DefaultDSN:      ":memory:",
		DefaultDatabase: "main",
		ListTables: `SELECT name FROM sqlite_master
			WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
			ORDER BY name`,
		Use:       sqliteUse,
		Retryable: sqliteRetryable,
	})
}

// sqliteUse accepts the name of any attached schema. SQLite has no session
// level default schema, so the switch only changes the prompt.
func sqliteUse(ctx context.Context, c Conn, name string) error {
	var found int
	err := c.QueryRowContext(ctx, "SELECT 1 FROM pragma_database_list WHERE name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("database %s does not exist", name)
	}
	if err != nil {
		return fmt.Errorf("failed to look up database %s: %w", name, err)
	}
	return nil
}

func sqliteRetryable(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
