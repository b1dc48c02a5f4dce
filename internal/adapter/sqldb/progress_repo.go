package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"dietprogress/internal/domain"
)

const dateIndex = "idx_progress_entries_date"

var _ domain.ProgressRepository = (*DB)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetAll returns every entry, newest date first.
func (d *DB) GetAll(ctx context.Context) ([]domain.ProgressEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, date, weight, body_fat FROM progress_entries ORDER BY date DESC, id DESC;")
	if err != nil {
		return nil, fmt.Errorf("sqldb: list entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProgressEntry, 0)
	for rows.Next() {
		var e domain.ProgressEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Weight, &e.BodyFat); err != nil {
			return nil, fmt.Errorf("sqldb: scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: list entries: %w", err)
	}
	return out, nil
}

// Add inserts a single entry. A clash on the date index is reported as
// domain.ErrDuplicateDate.
func (d *DB) Add(ctx context.Context, e domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	if err := d.insert(ctx, d.sql, e); err != nil {
		return nil, err
	}
	return d.GetAll(ctx)
}

// Delete removes the entry with the given id.
func (d *DB) Delete(ctx context.Context, id int64) ([]domain.ProgressEntry, error) {
	res, err := d.sql.ExecContext(ctx, d.rebind("DELETE FROM progress_entries WHERE id = ?;"), id)
	if err != nil {
		return nil, fmt.Errorf("sqldb: delete entry %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqldb: delete entry %d: %w", id, err)
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}
	return d.GetAll(ctx)
}

// ReplaceAll clears the table and inserts entries in one transaction. Any
// failure, including two entries sharing a date, leaves prior state intact.
func (d *DB) ReplaceAll(ctx context.Context, entries []domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqldb: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM progress_entries;"); err != nil {
		return nil, fmt.Errorf("sqldb: clear entries: %w", err)
	}
	for _, e := range entries {
		if err := d.insert(ctx, tx, e); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqldb: commit: %w", err)
	}
	return d.GetAll(ctx)
}

func (d *DB) insert(ctx context.Context, q querier, e domain.ProgressEntry) error {
	_, err := q.ExecContext(ctx,
		d.rebind("INSERT INTO progress_entries (id, date, weight, body_fat) VALUES (?, ?, ?, ?);"),
		e.ID, e.Date, e.Weight, e.BodyFat,
	)
	if err == nil {
		return nil
	}
	if isDuplicateDate(err) {
		return fmt.Errorf("insert %s: %w", e.Date, domain.ErrDuplicateDate)
	}
	return fmt.Errorf("sqldb: insert %s: %w", e.Date, err)
}

// isDuplicateDate reports whether err is a unique violation on the date
// index, as opposed to a primary key clash on id.
func isDuplicateDate(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == dateIndex
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() != sqlite3lib.SQLITE_CONSTRAINT_UNIQUE {
			return false
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed: progress_entries.date")
}
