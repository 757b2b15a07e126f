// Package sqlstore is the database/sql implementation of the message store.
// It speaks Postgres through lib/pq and SQLite through modernc.org/sqlite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case Postgres, SQLite:
		return Dialect(driver), nil
	}
	return "", fmt.Errorf("unsupported sql driver %q", driver)
}

var placeholder = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $n placeholders for drivers that take positional ?.
// Queries in this package use each $n once and in ascending order.
func (d Dialect) Rebind(query string) string {
	if d == SQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

// Open connects and pings the database.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, err
	}
	if d == SQLite {
		// One writer keeps in-memory databases shared and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
