package app

import (
	"context"
	"fmt"
	"log"

	"dietprogress/internal/domain"
)

// Importer copies every entry from one backend into another in a single
// best-effort pass. It is not a reconciliation engine: rows the destination
// rejects are reported, not retried.
type Importer struct {
	src domain.ProgressRepository
	dst domain.BulkImporter
	ids *IDGenerator
}

// NewImporter creates an Importer reading src and loading dst.
func NewImporter(src domain.ProgressRepository, dst domain.BulkImporter, ids *IDGenerator) *Importer {
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	return &Importer{src: src, dst: dst, ids: ids}
}

// Run performs the import. An empty source leaves the destination untouched.
func (im *Importer) Run(ctx context.Context) (domain.ImportReport, error) {
	entries, err := im.src.GetAll(ctx)
	if err != nil {
		return domain.ImportReport{}, fmt.Errorf("import: read source: %w", err)
	}
	log.Printf("import: found %d entries in source", len(entries))
	if len(entries) == 0 {
		return domain.ImportReport{}, nil
	}

	for _, e := range entries {
		im.ids.Observe(e.ID)
	}
	for i := range entries {
		if entries[i].ID <= 0 {
			entries[i].ID = im.ids.Next()
		}
	}

	report, err := im.dst.Import(ctx, entries)
	if err != nil {
		return report, err
	}
	log.Printf("import: inserted %d of %d entries (%d failed)", report.Inserted, report.Read, len(report.Failed))
	return report, nil
}
