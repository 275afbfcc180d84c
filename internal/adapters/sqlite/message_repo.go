package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/atelier/internal/ports/secondary"
)

// MessageRepository implements secondary.MessageRepository with SQLite.
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new SQLite message repository.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageSelectCols = "id, topic_id, project_id, user_id, payload, status, except_execute_time, err_msg, created_at, updated_at, deleted_at"

// scanMessage scans a queued-message row into a MessageRecord.
func scanMessage(scanner interface {
	Scan(dest ...any) error
}) (*secondary.MessageRecord, error) {
	var deletedAt sql.NullTime

	record := &secondary.MessageRecord{}
	err := scanner.Scan(
		&record.ID, &record.TopicID, &record.ProjectID, &record.UserID,
		&record.Payload, &record.Status, &record.ExceptExecuteTime, &record.ErrMsg,
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

// Create persists a new queued message.
func (r *MessageRepository) Create(ctx context.Context, msg *secondary.MessageRecord) error {
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = now
	}
	if msg.ExceptExecuteTime.IsZero() {
		msg.ExceptExecuteTime = now
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO queued_messages (id, topic_id, project_id, user_id, payload, status, except_execute_time, err_msg, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		msg.ID, msg.TopicID, msg.ProjectID, msg.UserID, msg.Payload, msg.Status,
		msg.ExceptExecuteTime, msg.ErrMsg, msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create queued message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by its ID.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*secondary.MessageRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+messageSelectCols+" FROM queued_messages WHERE id = ? AND deleted_at IS NULL",
		id,
	)

	record, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return record, nil
}

// List retrieves messages matching the given filters, in processing order.
func (r *MessageRepository) List(ctx context.Context, filters secondary.MessageFilters) ([]*secondary.MessageRecord, error) {
	query := "SELECT " + messageSelectCols + " FROM queued_messages WHERE deleted_at IS NULL"
	var args []any

	if filters.TopicID != "" {
		query += " AND topic_id = ?"
		args = append(args, filters.TopicID)
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	query += " ORDER BY except_execute_time, id"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*secondary.MessageRecord
	for rows.Next() {
		record, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, record)
	}
	return msgs, rows.Err()
}

// EarliestEligible returns the topic's oldest pending message with
// except_execute_time <= now, or nil when none is due.
func (r *MessageRepository) EarliestEligible(ctx context.Context, topicID string, now time.Time) (*secondary.MessageRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+messageSelectCols+" FROM queued_messages WHERE topic_id = ? AND status = 'pending' AND except_execute_time <= ? AND deleted_at IS NULL ORDER BY except_execute_time, id LIMIT 1",
		topicID, now.UTC(),
	)

	record, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get earliest eligible message: %w", err)
	}
	return record, nil
}

// UpdateStatusIfMatch moves a message between statuses conditioned on
// its current status. Zero rows affected means another worker moved the
// message first.
func (r *MessageRepository) UpdateStatusIfMatch(ctx context.Context, id, fromStatus, toStatus, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE queued_messages SET status = ?, err_msg = ?, updated_at = ? WHERE id = ? AND status = ? AND deleted_at IS NULL",
		toStatus, errMsg, time.Now().UTC(), id, fromStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check message update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("message %s status %s -> %s: %w", id, fromStatus, toStatus, secondary.ErrConflict)
	}
	return nil
}

// ResetForRetry resets a failed message to pending with a fresh
// except_execute_time.
func (r *MessageRepository) ResetForRetry(ctx context.Context, id string, notBefore time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE queued_messages SET status = 'pending', err_msg = '', except_execute_time = ?, updated_at = ? WHERE id = ? AND status = 'failed' AND deleted_at IS NULL",
		notBefore.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to reset message for retry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check message retry: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("message %s is not failed: %w", id, secondary.ErrConflict)
	}
	return nil
}

// DelayPending shifts except_execute_time forward for every pending
// message in the topic. Overdue messages shift from now so nothing
// lands in the past.
func (r *MessageRepository) DelayPending(ctx context.Context, topicID string, now time.Time, delay time.Duration) (int, error) {
	seconds := int64(delay.Seconds())
	res, err := r.db.ExecContext(ctx,
		`UPDATE queued_messages
		 SET except_execute_time = datetime(MAX(except_execute_time, ?), '+' || ? || ' seconds'),
		     updated_at = ?
		 WHERE topic_id = ? AND status = 'pending' AND deleted_at IS NULL`,
		now.UTC(), seconds, time.Now().UTC(), topicID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delay pending messages: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delayed messages: %w", err)
	}
	return int(affected), nil
}

// ListCompensationTopics returns distinct topic IDs that have at least
// one eligible pending message, oldest work first.
func (r *MessageRepository) ListCompensationTopics(ctx context.Context, limit int, now time.Time, projectID string) ([]string, error) {
	query := `SELECT topic_id FROM queued_messages
	 WHERE status = 'pending' AND except_execute_time <= ? AND deleted_at IS NULL`
	args := []any{now.UTC()}

	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " GROUP BY topic_id ORDER BY MIN(except_execute_time), topic_id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list compensation topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topicID string
		if err := rows.Scan(&topicID); err != nil {
			return nil, fmt.Errorf("failed to scan topic id: %w", err)
		}
		topics = append(topics, topicID)
	}
	return topics, rows.Err()
}

// GetNextID returns the next available message ID.
func (r *MessageRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM queued_messages",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next message ID: %w", err)
	}
	return fmt.Sprintf("MSG-%06d", maxID+1), nil
}
