package app

import (
	"context"
	"fmt"
	"log"

	"github.com/example/atelier/internal/core/filededup"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
)

// DedupServiceImpl implements the DedupService interface: a batch
// maintenance sweep that restores one live row per (project, file_key).
type DedupServiceImpl struct {
	fileRepo  secondary.FileRepository
	logWriter secondary.LogWriter
	batchSize int
}

// NewDedupService creates a new DedupService with injected dependencies.
func NewDedupService(fileRepo secondary.FileRepository, logWriter secondary.LogWriter, batchSize int) *DedupServiceImpl {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DedupServiceImpl{
		fileRepo:  fileRepo,
		logWriter: logWriter,
		batchSize: batchSize,
	}
}

// Sweep resolves duplicate keys until none remain in scope, merging one
// key per transaction. The duplicate query always restarts from the
// beginning of the remaining set: resolved keys drop out of it, so
// there is no pagination cursor to drift. Keys whose merge fails are
// skipped and left in place for the next sweep.
func (s *DedupServiceImpl) Sweep(ctx context.Context, req primary.SweepRequest) (*primary.SweepReport, error) {
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	scope := secondary.DedupScope{ProjectID: req.ProjectID, FileKey: req.FileKey}

	report := &primary.SweepReport{}
	failed := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		keys, err := s.fileRepo.ListDuplicateKeys(ctx, scope, batchSize)
		if err != nil {
			return report, fmt.Errorf("failed to list duplicate keys: %w", err)
		}

		resolvedThisBatch := 0
		for _, key := range keys {
			id := key.ProjectID + "\x00" + key.FileKey
			if failed[id] {
				continue
			}
			if err := s.resolveKey(ctx, key, report); err != nil {
				log.Printf("dedup: skipping key %s in project %s: %v", key.FileKey, key.ProjectID, err)
				failed[id] = true
				report.KeysSkipped++
				continue
			}
			resolvedThisBatch++
		}

		// Only failed keys remain when a full pass resolves nothing.
		if resolvedThisBatch == 0 {
			return report, nil
		}
	}
}

// resolveKey merges one duplicate group: pick the survivor, repair the
// directory flag, re-point children, soft-delete the rest - all in one
// repository transaction.
func (s *DedupServiceImpl) resolveKey(ctx context.Context, key secondary.DuplicateKey, report *primary.SweepReport) error {
	records, err := s.fileRepo.ListByKey(ctx, key.ProjectID, key.FileKey)
	if err != nil {
		return fmt.Errorf("failed to load key group: %w", err)
	}

	// Only live rows participate; already-deleted rows are history.
	rows := make([]*models.FileRecord, 0, len(records))
	for _, r := range records {
		if r.DeletedAt == nil {
			rows = append(rows, recordToFile(r))
		}
	}

	plan := filededup.PlanMerge(rows)
	if plan == nil {
		return nil // resolved concurrently
	}

	supersededIDs := make([]string, 0, len(plan.Superseded))
	for _, r := range plan.Superseded {
		supersededIDs = append(supersededIDs, r.ID)
	}

	repointed, err := s.fileRepo.MergeKey(ctx, plan.Survivor.ID, supersededIDs, plan.RepairIsDir, plan.IsDir)
	if err != nil {
		return fmt.Errorf("failed to merge key: %w", err)
	}

	report.KeysResolved++
	report.RowsDeleted += len(supersededIDs)
	report.RowsRepointed += repointed
	if plan.RepairIsDir {
		report.FlagsRepaired++
	}

	for _, id := range supersededIDs {
		_ = s.logWriter.LogDelete(ctx, "file", id)
	}
	return nil
}
