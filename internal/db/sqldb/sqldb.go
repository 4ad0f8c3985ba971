// Package sqldb opens database/sql handles for the catalog and graph stores.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// Driver is a registered database/sql driver name.
type Driver string

const (
	// Postgres is github.com/lib/pq.
	Postgres Driver = "postgres"
	// SQLite is github.com/mattn/go-sqlite3.
	SQLite Driver = "sqlite3"
)

// ParseDriver accepts "postgres", "postgresql", "sqlite3" and "sqlite".
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", s)
	}
}

// DB is a pooled handle that knows its dialect.
type DB struct {
	*sql.DB
	driver Driver
}

// Open opens a pool for driver. SQLite pools are pinned to one connection
// so that in-memory databases are shared by every query.
func Open(driver Driver, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if driver != Postgres && driver != SQLite {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	pool, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == SQLite {
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(20)
		pool.SetMaxIdleConns(5)
		pool.SetConnMaxIdleTime(5 * time.Minute)
	}

	return &DB{DB: pool, driver: driver}, nil
}

// Driver returns the dialect.
func (d *DB) Driver() Driver { return d.driver }

// Rebind rewrites ? placeholders to $n for postgres. Quoted literals are left alone.
func (d *DB) Rebind(query string) string {
	if d.driver != Postgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// WaitForReady pings until the database answers or timeout expires.
func (d *DB) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := d.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s: %w", d.driver, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Ping checks the database answers.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", d.driver, err)
	}
	return nil
}
