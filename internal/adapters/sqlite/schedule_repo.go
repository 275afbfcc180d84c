package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/atelier/internal/ports/secondary"
)

// ScheduleRepository implements secondary.ScheduleRepository with SQLite.
type ScheduleRepository struct {
	db *sql.DB
}

// NewScheduleRepository creates a new SQLite schedule repository.
func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleSelectCols = "id, user_id, topic_id, project_id, workspace_id, payload, time_spec, one_shot, enabled, completed, crontab_trigger_id, created_at, updated_at, deleted_at"

// scanSchedule scans a schedule row into a ScheduleRecord.
func scanSchedule(scanner interface {
	Scan(dest ...any) error
}) (*secondary.ScheduleRecord, error) {
	var deletedAt sql.NullTime

	record := &secondary.ScheduleRecord{}
	err := scanner.Scan(
		&record.ID, &record.UserID, &record.TopicID, &record.ProjectID, &record.WorkspaceID,
		&record.Payload, &record.TimeSpec, &record.OneShot, &record.Enabled, &record.Completed,
		&record.CrontabTriggerID, &record.CreatedAt, &record.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		record.DeletedAt = &deletedAt.Time
	}
	return record, nil
}

// Create persists a new schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *secondary.ScheduleRecord) error {
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	if schedule.UpdatedAt.IsZero() {
		schedule.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO message_schedules (id, user_id, topic_id, project_id, workspace_id, payload, time_spec, one_shot, enabled, completed, crontab_trigger_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		schedule.ID, schedule.UserID, schedule.TopicID, schedule.ProjectID, schedule.WorkspaceID,
		schedule.Payload, schedule.TimeSpec, schedule.OneShot, schedule.Enabled, schedule.Completed,
		schedule.CrontabTriggerID, schedule.CreatedAt, schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

// GetByID retrieves a schedule by its ID.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*secondary.ScheduleRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+scheduleSelectCols+" FROM message_schedules WHERE id = ? AND deleted_at IS NULL",
		id,
	)

	record, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return record, nil
}

// Update updates payload, time spec and enabled flag.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *secondary.ScheduleRecord) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE message_schedules SET payload = ?, time_spec = ?, enabled = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		schedule.Payload, schedule.TimeSpec, schedule.Enabled, time.Now().UTC(), schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

// SetCompleted marks a one-shot schedule as fired.
func (r *ScheduleRepository) SetCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE message_schedules SET completed = 1, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete schedule: %w", err)
	}
	return nil
}

// SetCrontabTriggerID stores the external trigger registration.
func (r *ScheduleRepository) SetCrontabTriggerID(ctx context.Context, id, triggerID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE message_schedules SET crontab_trigger_id = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		triggerID, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set crontab trigger id: %w", err)
	}
	return nil
}

// ListEnabled returns enabled, not-completed schedules for a user.
// An empty userID returns all of them.
func (r *ScheduleRepository) ListEnabled(ctx context.Context, userID string) ([]*secondary.ScheduleRecord, error) {
	query := "SELECT " + scheduleSelectCols + " FROM message_schedules WHERE enabled = 1 AND completed = 0 AND deleted_at IS NULL"
	var args []any

	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*secondary.ScheduleRecord
	for rows.Next() {
		record, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, record)
	}
	return schedules, rows.Err()
}

// SoftDelete marks a schedule deleted without removing the row.
func (r *ScheduleRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		"UPDATE message_schedules SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete schedule: %w", err)
	}
	return nil
}

// GetNextID returns the next available schedule ID.
func (r *ScheduleRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 7) AS INTEGER)), 0) FROM message_schedules",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next schedule ID: %w", err)
	}
	return fmt.Sprintf("SCHED-%06d", maxID+1), nil
}
