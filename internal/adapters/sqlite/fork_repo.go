package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/atelier/internal/ports/secondary"
)

// ForkRepository implements secondary.ForkRepository with SQLite.
type ForkRepository struct {
	db *sql.DB
}

// NewForkRepository creates a new SQLite fork repository.
func NewForkRepository(db *sql.DB) *ForkRepository {
	return &ForkRepository{db: db}
}

const forkSelectCols = "id, source_project_id, fork_project_id, workspace_id, user_id, status, progress, total_files, processed_files, current_file_id, err_msg, created_at, updated_at"

// scanFork scans a fork row into a ForkRecord.
func scanFork(scanner interface {
	Scan(dest ...any) error
}) (*secondary.ForkRecord, error) {
	record := &secondary.ForkRecord{}
	err := scanner.Scan(
		&record.ID, &record.SourceProjectID, &record.ForkProjectID, &record.WorkspaceID,
		&record.UserID, &record.Status, &record.Progress, &record.TotalFiles,
		&record.ProcessedFiles, &record.CurrentFileID, &record.ErrMsg,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Create persists a new fork job (already running).
func (r *ForkRepository) Create(ctx context.Context, fork *secondary.ForkRecord) error {
	now := time.Now().UTC()
	if fork.CreatedAt.IsZero() {
		fork.CreatedAt = now
	}
	if fork.UpdatedAt.IsZero() {
		fork.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO project_forks (id, source_project_id, fork_project_id, workspace_id, user_id, status, progress, total_files, processed_files, current_file_id, err_msg, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		fork.ID, fork.SourceProjectID, fork.ForkProjectID, fork.WorkspaceID, fork.UserID,
		fork.Status, fork.Progress, fork.TotalFiles, fork.ProcessedFiles,
		fork.CurrentFileID, fork.ErrMsg, fork.CreatedAt, fork.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create fork: %w", err)
	}
	return nil
}

// GetByID retrieves a fork by its ID.
func (r *ForkRepository) GetByID(ctx context.Context, id string) (*secondary.ForkRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+forkSelectCols+" FROM project_forks WHERE id = ?",
		id,
	)

	record, err := scanFork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fork %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fork: %w", err)
	}
	return record, nil
}

// GetRunningForSource returns the running fork for a (user, source
// project) pair, or nil when there is none.
func (r *ForkRepository) GetRunningForSource(ctx context.Context, userID, sourceProjectID string) (*secondary.ForkRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+forkSelectCols+" FROM project_forks WHERE user_id = ? AND source_project_id = ? AND status = 'running' LIMIT 1",
		userID, sourceProjectID,
	)

	record, err := scanFork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get running fork: %w", err)
	}
	return record, nil
}

// ListRunning returns all running fork jobs.
func (r *ForkRepository) ListRunning(ctx context.Context) ([]*secondary.ForkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+forkSelectCols+" FROM project_forks WHERE status = 'running' ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list running forks: %w", err)
	}
	defer rows.Close()

	var forks []*secondary.ForkRecord
	for rows.Next() {
		record, err := scanFork(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fork: %w", err)
		}
		forks = append(forks, record)
	}
	return forks, rows.Err()
}

// ListByUser returns a user's fork jobs, newest first.
func (r *ForkRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*secondary.ForkRecord, error) {
	query := "SELECT " + forkSelectCols + " FROM project_forks WHERE user_id = ? ORDER BY id DESC"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list forks: %w", err)
	}
	defer rows.Close()

	var forks []*secondary.ForkRecord
	for rows.Next() {
		record, err := scanFork(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fork: %w", err)
		}
		forks = append(forks, record)
	}
	return forks, rows.Err()
}

// SetTotalFiles records the best-effort source snapshot count.
func (r *ForkRepository) SetTotalFiles(ctx context.Context, id string, total int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE project_forks SET total_files = ?, updated_at = ? WHERE id = ?",
		total, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set total files: %w", err)
	}
	return nil
}

// CommitBatch atomically inserts one batch of destination file rows and
// advances the fork checkpoint, conditioned on the fork still running.
// The condition is checked inside the same transaction as the inserts,
// so a cancelled fork commits nothing.
func (r *ForkRepository) CommitBatch(ctx context.Context, id string, files []*secondary.FileRecordRow, cursor string, processed, progress int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE project_forks SET current_file_id = ?, processed_files = ?, progress = ?, updated_at = ? WHERE id = ? AND status = 'running'",
		cursor, processed, progress, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to checkpoint fork: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check fork checkpoint: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("fork %s is no longer running: %w", id, secondary.ErrConflict)
	}

	for _, f := range files {
		createdAt := f.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO project_files (id, project_id, topic_id, parent_id, name, file_key, is_dir, sort, size, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			f.ID, f.ProjectID, f.TopicID, f.ParentID, f.Name, f.FileKey, f.IsDir, f.Sort, f.Size, createdAt, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert forked file %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fork batch: %w", err)
	}
	return nil
}

// SetStatus moves the fork to a terminal status, conditioned on it
// still being running.
func (r *ForkRepository) SetStatus(ctx context.Context, id, status, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE project_forks SET status = ?, err_msg = ?, updated_at = ? WHERE id = ? AND status = 'running'",
		status, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set fork status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check fork status update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("fork %s is not running: %w", id, secondary.ErrConflict)
	}
	return nil
}

// GetNextID returns the next available fork ID.
func (r *ForkRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM project_forks",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next fork ID: %w", err)
	}
	return fmt.Sprintf("FORK-%06d", maxID+1), nil
}
