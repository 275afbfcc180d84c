package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/atelier/internal/core/fork"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
)

// ForkServiceImpl implements the ForkService interface. A fork is a
// resumable batch copy of a project's file tree: every batch commits the
// copied rows and the checkpoint atomically, so a crash resumes from the
// last committed cursor instead of starting over.
type ForkServiceImpl struct {
	forkRepo  secondary.ForkRepository
	fileRepo  secondary.FileRepository
	topicRepo secondary.TopicRepository
	notifier  secondary.Notifier
	logWriter secondary.LogWriter
	batchSize int
}

// NewForkService creates a new ForkService with injected dependencies.
func NewForkService(
	forkRepo secondary.ForkRepository,
	fileRepo secondary.FileRepository,
	topicRepo secondary.TopicRepository,
	notifier secondary.Notifier,
	logWriter secondary.LogWriter,
	batchSize int,
) *ForkServiceImpl {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &ForkServiceImpl{
		forkRepo:  forkRepo,
		fileRepo:  fileRepo,
		topicRepo: topicRepo,
		notifier:  notifier,
		logWriter: logWriter,
		batchSize: batchSize,
	}
}

// StartFork creates a new running fork job for a source project. The
// copy itself runs in RunFork; TotalFiles is a best-effort snapshot for
// progress reporting only.
func (s *ForkServiceImpl) StartFork(ctx context.Context, req primary.StartForkRequest) (*models.ProjectFork, error) {
	if req.SourceProjectID == "" || req.ForkProjectID == "" {
		return nil, fmt.Errorf("source and fork project IDs must not be empty")
	}

	running, err := s.forkRepo.GetRunningForSource(ctx, req.UserID, req.SourceProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check running forks: %w", err)
	}

	guardCtx := fork.StartForkContext{
		UserID:          req.UserID,
		SourceProjectID: req.SourceProjectID,
	}
	if running != nil {
		guardCtx.RunningForkID = running.ID
	}
	if err := fork.CanStartFork(guardCtx).Error(); err != nil {
		return nil, err
	}

	nextID, err := s.forkRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate fork ID: %w", err)
	}

	record := &secondary.ForkRecord{
		ID:              nextID,
		SourceProjectID: req.SourceProjectID,
		ForkProjectID:   req.ForkProjectID,
		WorkspaceID:     req.WorkspaceID,
		UserID:          req.UserID,
		Status:          string(models.ForkStatusRunning),
	}
	if err := s.forkRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create fork: %w", err)
	}

	total, err := s.fileRepo.CountByProject(ctx, req.SourceProjectID)
	if err != nil {
		log.Printf("fork: failed to snapshot source size for %s: %v", nextID, err)
	} else if err := s.forkRepo.SetTotalFiles(ctx, nextID, total); err != nil {
		log.Printf("fork: failed to store total files for %s: %v", nextID, err)
	}

	_ = s.logWriter.LogCreate(ctx, "fork", nextID)

	created, err := s.forkRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created fork: %w", err)
	}
	s.publishProgress(ctx, created)
	return recordToFork(created), nil
}

// ResumeFork creates a new fork job that continues a failed fork into
// the same destination project, carrying over the checkpoint. The failed
// row itself is never resurrected.
func (s *ForkServiceImpl) ResumeFork(ctx context.Context, failedForkID string) (*models.ProjectFork, error) {
	failed, err := s.forkRepo.GetByID(ctx, failedForkID)
	if err != nil {
		return nil, err
	}
	if err := fork.CanResumeFork(models.ForkStatus(failed.Status)).Error(); err != nil {
		return nil, err
	}

	running, err := s.forkRepo.GetRunningForSource(ctx, failed.UserID, failed.SourceProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check running forks: %w", err)
	}
	if running != nil {
		return nil, fmt.Errorf("fork %s is already running for project %s", running.ID, failed.SourceProjectID)
	}

	nextID, err := s.forkRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate fork ID: %w", err)
	}

	record := &secondary.ForkRecord{
		ID:              nextID,
		SourceProjectID: failed.SourceProjectID,
		ForkProjectID:   failed.ForkProjectID,
		WorkspaceID:     failed.WorkspaceID,
		UserID:          failed.UserID,
		Status:          string(models.ForkStatusRunning),
		Progress:        failed.Progress,
		TotalFiles:      failed.TotalFiles,
		ProcessedFiles:  failed.ProcessedFiles,
		CurrentFileID:   failed.CurrentFileID,
	}
	if err := s.forkRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create resume fork: %w", err)
	}

	_ = s.logWriter.LogCreate(ctx, "fork", nextID)

	created, err := s.forkRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resume fork: %w", err)
	}
	return recordToFork(created), nil
}

// RunFork executes the batch copy loop for a fork until it reaches a
// terminal status or the context is cancelled. Cancellation via context
// leaves the fork running so a worker restart picks it up again;
// CancelFork is the way to abandon one.
func (s *ForkServiceImpl) RunFork(ctx context.Context, forkID string) error {
	record, err := s.forkRepo.GetByID(ctx, forkID)
	if err != nil {
		return err
	}
	if models.ForkStatus(record.Status) != models.ForkStatusRunning {
		return nil
	}

	parentMap, err := s.rebuildParentMap(ctx, record)
	if err != nil {
		s.fail(ctx, forkID, fmt.Sprintf("failed to rebuild parent map: %v", err))
		return err
	}

	cursor := record.CurrentFileID
	processed := record.ProcessedFiles
	total := record.TotalFiles

	for {
		if err := ctx.Err(); err != nil {
			return err // shutdown; the fork stays running for resume
		}

		page, err := s.fileRepo.ListPageAfter(ctx, record.SourceProjectID, cursor, s.batchSize)
		if err != nil {
			s.fail(ctx, forkID, fmt.Sprintf("failed to read source page: %v", err))
			return fmt.Errorf("failed to read source page: %w", err)
		}
		if len(page) == 0 {
			return s.finish(ctx, forkID, cursor, processed)
		}

		files := make([]*models.FileRecord, 0, len(page))
		for _, r := range page {
			files = append(files, recordToFile(r))
		}
		plan := fork.PlanBatch(files)

		rows, err := s.buildRows(ctx, record.ForkProjectID, plan.Ops, parentMap)
		if err != nil {
			s.fail(ctx, forkID, fmt.Sprintf("failed to allocate destination rows: %v", err))
			return err
		}

		processed += len(plan.Ops)
		progress := fork.Progress(processed, total)
		err = s.forkRepo.CommitBatch(ctx, forkID, rows, plan.LastSourceID, processed, progress)
		if errors.Is(err, secondary.ErrConflict) {
			return nil // cancelled underneath us; nothing from this batch landed
		}
		if err != nil {
			s.fail(ctx, forkID, fmt.Sprintf("failed to commit batch: %v", err))
			return fmt.Errorf("failed to commit batch: %w", err)
		}
		cursor = plan.LastSourceID

		current, err := s.forkRepo.GetByID(ctx, forkID)
		if err == nil {
			s.publishProgress(ctx, current)
		}
	}
}

// buildRows allocates destination IDs for one batch plan, resolving each
// row's parent through the parent map and extending the map with the
// directories the batch creates. Pages arrive in ID order, so a parent
// directory is always mapped before its children - including children in
// the same batch. A source parent absent from the map (deleted mid-copy)
// attaches the copy to the destination root rather than failing the fork.
func (s *ForkServiceImpl) buildRows(ctx context.Context, forkProjectID string, ops []fork.CopyOp, parentMap map[string]string) ([]*secondary.FileRecordRow, error) {
	baseID, err := s.fileRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate file ID: %w", err)
	}
	var seq int
	if _, err := fmt.Sscanf(baseID, "FILE-%06d", &seq); err != nil {
		return nil, fmt.Errorf("unexpected file ID format %q: %w", baseID, err)
	}

	rows := make([]*secondary.FileRecordRow, 0, len(ops))
	for i, op := range ops {
		destID := fmt.Sprintf("FILE-%06d", seq+i)
		destParentID := ""
		if op.SourceParentID != "" {
			destParentID = parentMap[op.SourceParentID]
		}
		rows = append(rows, &secondary.FileRecordRow{
			ID:        destID,
			ProjectID: forkProjectID,
			TopicID:   op.TopicID,
			ParentID:  destParentID,
			Name:      op.Name,
			FileKey:   op.FileKey,
			IsDir:     op.IsDir,
			Sort:      op.Sort,
			Size:      op.Size,
		})
		if op.IsDir {
			parentMap[op.SourceID] = destID
		}
	}
	return rows, nil
}

// rebuildParentMap reconstructs the source-to-destination directory
// mapping for a resumed fork by walking the already-copied prefix of the
// source tree and matching directories into the destination by file key.
// A fresh fork (empty cursor) has nothing to rebuild.
func (s *ForkServiceImpl) rebuildParentMap(ctx context.Context, record *secondary.ForkRecord) (map[string]string, error) {
	parentMap := make(map[string]string)
	if record.CurrentFileID == "" {
		return parentMap, nil
	}

	after := ""
	for {
		page, err := s.fileRepo.ListPageAfter(ctx, record.SourceProjectID, after, s.batchSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return parentMap, nil
		}
		for _, f := range page {
			if f.ID > record.CurrentFileID {
				return parentMap, nil
			}
			if !f.IsDir {
				continue
			}
			copies, err := s.fileRepo.ListByKey(ctx, record.ForkProjectID, f.FileKey)
			if err != nil {
				return nil, err
			}
			for _, c := range copies {
				if c.DeletedAt == nil {
					parentMap[f.ID] = c.ID
					break
				}
			}
		}
		after = page[len(page)-1].ID
	}
}

// finish writes the terminal checkpoint and flips the fork to finished.
// The final checkpoint forces progress to 100 even when the total
// snapshot drifted from the actual copy count.
func (s *ForkServiceImpl) finish(ctx context.Context, forkID, cursor string, processed int) error {
	err := s.forkRepo.CommitBatch(ctx, forkID, nil, cursor, processed, 100)
	if errors.Is(err, secondary.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to write final checkpoint: %w", err)
	}

	if record, err := s.forkRepo.GetByID(ctx, forkID); err == nil {
		if err := s.copyTopics(ctx, record); err != nil {
			log.Printf("fork: failed to copy topics for %s: %v", forkID, err)
		}
	}

	err = s.forkRepo.SetStatus(ctx, forkID, string(models.ForkStatusFinished), "")
	if errors.Is(err, secondary.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to finish fork: %w", err)
	}

	_ = s.logWriter.LogUpdate(ctx, "fork", forkID, "status",
		string(models.ForkStatusRunning), string(models.ForkStatusFinished))
	if record, err := s.forkRepo.GetByID(ctx, forkID); err == nil {
		s.publishProgress(ctx, record)
	}
	return nil
}

// copyTopics recreates the source project's topics in the destination
// once the file copy completes. Copies start clean: no current task, no
// sandbox session, empty queue. Skipped when the destination already has
// topics, so a re-run cannot duplicate them.
func (s *ForkServiceImpl) copyTopics(ctx context.Context, record *secondary.ForkRecord) error {
	existing, err := s.topicRepo.List(ctx, secondary.TopicFilters{ProjectID: record.ForkProjectID, Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	topics, err := s.topicRepo.List(ctx, secondary.TopicFilters{ProjectID: record.SourceProjectID})
	if err != nil {
		return err
	}

	// List returns newest first; walk backwards to preserve creation order.
	for i := len(topics) - 1; i >= 0; i-- {
		src := topics[i]
		nextID, err := s.topicRepo.GetNextID(ctx)
		if err != nil {
			return err
		}
		clone := &secondary.TopicRecord{
			ID:        nextID,
			ProjectID: record.ForkProjectID,
			UserID:    src.UserID,
			Title:     src.Title,
		}
		if err := s.topicRepo.Create(ctx, clone); err != nil {
			return err
		}
		_ = s.logWriter.LogCreate(ctx, "topic", nextID)
	}
	return nil
}

// fail flips the fork to failed. A conflict means it already reached a
// terminal status some other way, which is fine.
func (s *ForkServiceImpl) fail(ctx context.Context, forkID, errMsg string) {
	err := s.forkRepo.SetStatus(ctx, forkID, string(models.ForkStatusFailed), errMsg)
	if err != nil && !errors.Is(err, secondary.ErrConflict) {
		log.Printf("fork: failed to mark %s failed: %v", forkID, err)
		return
	}
	_ = s.logWriter.LogUpdate(ctx, "fork", forkID, "status",
		string(models.ForkStatusRunning), string(models.ForkStatusFailed))
	if record, err := s.forkRepo.GetByID(ctx, forkID); err == nil {
		s.publishProgress(ctx, record)
	}
}

// CancelFork flips a running fork to failed; an in-flight batch writer
// aborts at its next commit because the checkpoint condition no longer
// holds.
func (s *ForkServiceImpl) CancelFork(ctx context.Context, forkID string) error {
	err := s.forkRepo.SetStatus(ctx, forkID, string(models.ForkStatusFailed), "cancelled")
	if errors.Is(err, secondary.ErrConflict) {
		return fmt.Errorf("fork %s is not running", forkID)
	}
	if err != nil {
		return err
	}

	_ = s.logWriter.LogUpdate(ctx, "fork", forkID, "status",
		string(models.ForkStatusRunning), string(models.ForkStatusFailed))
	if record, err := s.forkRepo.GetByID(ctx, forkID); err == nil {
		s.publishProgress(ctx, record)
	}
	return nil
}

// GetFork retrieves a fork job by ID.
func (s *ForkServiceImpl) GetFork(ctx context.Context, forkID string) (*models.ProjectFork, error) {
	record, err := s.forkRepo.GetByID(ctx, forkID)
	if err != nil {
		return nil, err
	}
	return recordToFork(record), nil
}

// ListForks lists a user's fork jobs, newest first.
func (s *ForkServiceImpl) ListForks(ctx context.Context, userID string, limit int) ([]*models.ProjectFork, error) {
	records, err := s.forkRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	forks := make([]*models.ProjectFork, 0, len(records))
	for _, r := range records {
		forks = append(forks, recordToFork(r))
	}
	return forks, nil
}

func (s *ForkServiceImpl) publishProgress(ctx context.Context, record *secondary.ForkRecord) {
	s.notifier.PublishForkProgress(ctx, secondary.ForkProgressEvent{
		ForkID:         record.ID,
		ForkProjectID:  record.ForkProjectID,
		Status:         record.Status,
		Progress:       record.Progress,
		ProcessedFiles: record.ProcessedFiles,
		TotalFiles:     record.TotalFiles,
	})
}
