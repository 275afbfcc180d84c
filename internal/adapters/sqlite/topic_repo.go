package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/atelier/internal/ports/secondary"
)

// TopicRepository implements secondary.TopicRepository with SQLite.
type TopicRepository struct {
	db *sql.DB
}

// NewTopicRepository creates a new SQLite topic repository.
func NewTopicRepository(db *sql.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

const topicSelectCols = "id, project_id, user_id, title, current_task_id, current_task_status, sandbox_session_id, created_at, updated_at, deleted_at"

// scanTopic scans a topic row into a TopicRecord.
func scanTopic(scanner interface {
	Scan(dest ...any) error
}) (*secondary.TopicRecord, error) {
	var deletedAt sql.NullTime

	record := &secondary.TopicRecord{}
	err := scanner.Scan(
		&record.ID, &record.ProjectID, &record.UserID, &record.Title,
		&record.CurrentTaskID, &record.CurrentTaskStatus, &record.SandboxSessionID,
		&record.CreatedAt, &record.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		record.DeletedAt = &deletedAt.Time
	}
	return record, nil
}

// Create persists a new topic.
func (r *TopicRepository) Create(ctx context.Context, topic *secondary.TopicRecord) error {
	now := time.Now().UTC()
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = now
	}
	if topic.UpdatedAt.IsZero() {
		topic.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO topics (id, project_id, user_id, title, current_task_id, current_task_status, sandbox_session_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		topic.ID, topic.ProjectID, topic.UserID, topic.Title,
		topic.CurrentTaskID, topic.CurrentTaskStatus, topic.SandboxSessionID,
		topic.CreatedAt, topic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}

// GetByID retrieves a topic by its ID.
func (r *TopicRepository) GetByID(ctx context.Context, id string) (*secondary.TopicRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+topicSelectCols+" FROM topics WHERE id = ? AND deleted_at IS NULL",
		id,
	)

	record, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return record, nil
}

// List retrieves topics matching the given filters.
func (r *TopicRepository) List(ctx context.Context, filters secondary.TopicFilters) ([]*secondary.TopicRecord, error) {
	query := "SELECT " + topicSelectCols + " FROM topics WHERE deleted_at IS NULL"
	var args []any

	if filters.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filters.ProjectID)
	}
	if filters.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filters.UserID)
	}
	query += " ORDER BY id DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []*secondary.TopicRecord
	for rows.Next() {
		record, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, record)
	}
	return topics, rows.Err()
}

// SetCurrentTaskIfMatch points the topic at a new current task,
// conditioned on the previously read updated_at. Zero rows affected
// means another dispatcher won the race.
func (r *TopicRepository) SetCurrentTaskIfMatch(ctx context.Context, id string, readUpdatedAt time.Time, taskID, taskStatus string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE topics SET current_task_id = ?, current_task_status = ?, updated_at = ? WHERE id = ? AND updated_at = ? AND deleted_at IS NULL",
		taskID, taskStatus, time.Now().UTC(), id, readUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set current task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check topic update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("topic %s current task -> %s: %w", id, taskID, secondary.ErrConflict)
	}
	return nil
}

// SetCurrentTaskStatus refreshes the denormalized status mirror,
// conditioned on taskID still being the topic's current task. A write
// for a superseded task affects no rows and is silently dropped.
func (r *TopicRepository) SetCurrentTaskStatus(ctx context.Context, id, taskID, taskStatus string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE topics SET current_task_status = ?, updated_at = ? WHERE id = ? AND current_task_id = ? AND deleted_at IS NULL",
		taskStatus, time.Now().UTC(), id, taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to set current task status: %w", err)
	}
	return nil
}

// SetSandboxSessionID records the sandbox session for the topic.
func (r *TopicRepository) SetSandboxSessionID(ctx context.Context, id, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE topics SET sandbox_session_id = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		sessionID, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set sandbox session id: %w", err)
	}
	return nil
}

// SoftDelete marks a topic deleted without removing the row.
func (r *TopicRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		"UPDATE topics SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete topic: %w", err)
	}
	return nil
}

// GetNextID returns the next available topic ID.
func (r *TopicRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM topics",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next topic ID: %w", err)
	}
	return fmt.Sprintf("TOP-%06d", maxID+1), nil
}
