package sqldb

import (
	"context"
	"fmt"
	"log"

	"dietprogress/internal/domain"
)

var _ domain.BulkImporter = (*DB)(nil)

// Import clears the table and inserts entries inside one transaction. Each
// row runs under its own savepoint so a rejected row is logged and skipped
// without aborting the rest; PostgreSQL would otherwise poison the whole
// transaction after the first error.
func (d *DB) Import(ctx context.Context, entries []domain.ProgressEntry) (domain.ImportReport, error) {
	report := domain.ImportReport{Read: len(entries)}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("import: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM progress_entries;"); err != nil {
		return report, fmt.Errorf("import: clear entries: %w", err)
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT import_row;"); err != nil {
			return report, fmt.Errorf("import: savepoint: %w", err)
		}
		if insErr := d.insert(ctx, tx, e); insErr != nil {
			log.Printf("import: skipping entry %s: %v", e.Date, insErr)
			report.Failed = append(report.Failed, domain.ImportFailure{Entry: e, Err: insErr})
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT import_row;"); err != nil {
				return report, fmt.Errorf("import: rollback row: %w", err)
			}
		} else {
			report.Inserted++
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT import_row;"); err != nil {
			return report, fmt.Errorf("import: release savepoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("import: commit: %w", err)
	}
	return report, nil
}
