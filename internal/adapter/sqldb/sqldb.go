// Package sqldb implements the progress repository on a relational database.
// PostgreSQL (lib/pq) is the production target; SQLite (modernc) serves
// single-host deployments and tests.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and schema flavour.
type Dialect string

// Supported dialects. The values double as database/sql driver names.
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Options bounds the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions mirrors the pool sizing used in production.
func DefaultOptions() Options {
	return Options{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute}
}

// DB wraps a *sql.DB and implements domain.ProgressRepository.
type DB struct {
	sql     *sql.DB
	dialect Dialect
}

// SQLiteDSN builds a modernc DSN for the database file at path.
func SQLiteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open connects, pings, and provisions the schema.
func Open(dialect Dialect, dsn string, opts Options) (*DB, error) {
	switch dialect {
	case Postgres, SQLite:
	default:
		return nil, fmt.Errorf("sqldb: unsupported dialect %q", dialect)
	}
	s, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open: %w", err)
	}
	s.SetMaxOpenConns(opts.MaxOpenConns)
	s.SetMaxIdleConns(opts.MaxIdleConns)
	s.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if dialect == SQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY
		// between the pool's own connections.
		s.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("sqldb: ping: %w", err)
	}

	d := &DB{sql: s, dialect: dialect}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection pool.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Dialect reports which SQL flavour d speaks.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) migrate(ctx context.Context) error {
	var stmts []string
	switch d.dialect {
	case Postgres:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS progress_entries (
				id BIGINT PRIMARY KEY,
				date TEXT NOT NULL,
				weight NUMERIC(6,2) NOT NULL CHECK (weight > 0),
				body_fat NUMERIC(5,2) NOT NULL CHECK (body_fat > 0 AND body_fat < 100),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);`,
		}
	case SQLite:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS progress_entries (
				id INTEGER PRIMARY KEY,
				date TEXT NOT NULL,
				weight NUMERIC NOT NULL CHECK (weight > 0),
				body_fat NUMERIC NOT NULL CHECK (body_fat > 0 AND body_fat < 100),
				created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
		}
	}
	stmts = append(stmts,
		"CREATE UNIQUE INDEX IF NOT EXISTS "+dateIndex+" ON progress_entries(date);",
	)

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
