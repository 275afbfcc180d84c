// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/atelier/internal/ports/secondary"
)

// TaskRepository implements secondary.TaskRepository with SQLite.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskSelectCols = "id, topic_id, project_id, sandbox_task_id, status, err_msg, created_at, updated_at, deleted_at"

// scanTask scans a task row into a TaskRecord.
func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*secondary.TaskRecord, error) {
	var deletedAt sql.NullTime

	record := &secondary.TaskRecord{}
	err := scanner.Scan(
		&record.ID, &record.TopicID, &record.ProjectID, &record.SandboxTaskID,
		&record.Status, &record.ErrMsg, &record.CreatedAt, &record.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		record.DeletedAt = &deletedAt.Time
	}
	return record, nil
}

// Create persists a new task.
func (r *TaskRepository) Create(ctx context.Context, task *secondary.TaskRecord) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tasks (id, topic_id, project_id, sandbox_task_id, status, err_msg, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		task.ID, task.TopicID, task.ProjectID, task.SandboxTaskID, task.Status, task.ErrMsg, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*secondary.TaskRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+taskSelectCols+" FROM tasks WHERE id = ? AND deleted_at IS NULL",
		id,
	)

	record, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return record, nil
}

// GetBySandboxTaskID retrieves a task by its sandbox-assigned ID.
func (r *TaskRepository) GetBySandboxTaskID(ctx context.Context, sandboxTaskID string) (*secondary.TaskRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+taskSelectCols+" FROM tasks WHERE sandbox_task_id = ? AND deleted_at IS NULL",
		sandboxTaskID,
	)

	record, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task with sandbox id %s: %w", sandboxTaskID, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task by sandbox id: %w", err)
	}
	return record, nil
}

// UpdateStatusIfMatch updates status/err_msg conditioned on the
// previously read status and updated_at. Zero rows affected means
// another writer advanced the task first.
func (r *TaskRepository) UpdateStatusIfMatch(ctx context.Context, id, fromStatus string, readUpdatedAt time.Time, toStatus, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET status = ?, err_msg = ?, updated_at = ? WHERE id = ? AND status = ? AND updated_at = ? AND deleted_at IS NULL",
		toStatus, errMsg, time.Now().UTC(), id, fromStatus, readUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check task update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s status %s -> %s: %w", id, fromStatus, toStatus, secondary.ErrConflict)
	}
	return nil
}

// SetSandboxTaskID records the sandbox-assigned external ID.
func (r *TaskRepository) SetSandboxTaskID(ctx context.Context, id, sandboxTaskID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET sandbox_task_id = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		sandboxTaskID, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set sandbox task id: %w", err)
	}
	return nil
}

// ListStaleRunning returns running tasks not updated since before.
func (r *TaskRepository) ListStaleRunning(ctx context.Context, before time.Time) ([]*secondary.TaskRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+taskSelectCols+" FROM tasks WHERE status = 'running' AND updated_at < ? AND deleted_at IS NULL ORDER BY updated_at",
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*secondary.TaskRecord
	for rows.Next() {
		record, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, record)
	}
	return tasks, rows.Err()
}

// ListByTopic returns a topic's tasks, newest first.
func (r *TaskRepository) ListByTopic(ctx context.Context, topicID string, limit int) ([]*secondary.TaskRecord, error) {
	query := "SELECT " + taskSelectCols + " FROM tasks WHERE topic_id = ? AND deleted_at IS NULL ORDER BY id DESC"
	args := []any{topicID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*secondary.TaskRecord
	for rows.Next() {
		record, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, record)
	}
	return tasks, rows.Err()
}

// SoftDelete marks a task deleted without removing the row.
func (r *TaskRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete task: %w", err)
	}
	return nil
}

// GetNextID returns the next available task ID.
func (r *TaskRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM tasks",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next task ID: %w", err)
	}
	return fmt.Sprintf("TASK-%06d", maxID+1), nil
}
