package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/atelier/internal/ports/secondary"
)

// FileRepository implements secondary.FileRepository with SQLite.
type FileRepository struct {
	db *sql.DB
}

// NewFileRepository creates a new SQLite file repository.
func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileSelectCols = "id, project_id, topic_id, parent_id, name, file_key, is_dir, sort, size, created_at, updated_at, deleted_at"

// scanFile scans a file row into a FileRecordRow.
func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*secondary.FileRecordRow, error) {
	var deletedAt sql.NullTime

	record := &secondary.FileRecordRow{}
	err := scanner.Scan(
		&record.ID, &record.ProjectID, &record.TopicID, &record.ParentID,
		&record.Name, &record.FileKey, &record.IsDir, &record.Sort, &record.Size,
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

// Create persists a new file record.
func (r *FileRepository) Create(ctx context.Context, file *secondary.FileRecordRow) error {
	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	if file.UpdatedAt.IsZero() {
		file.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO project_files (id, project_id, topic_id, parent_id, name, file_key, is_dir, sort, size, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		file.ID, file.ProjectID, file.TopicID, file.ParentID, file.Name, file.FileKey,
		file.IsDir, file.Sort, file.Size, file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

// GetByID retrieves a file record by its ID, including soft-deleted rows.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*secondary.FileRecordRow, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+fileSelectCols+" FROM project_files WHERE id = ?",
		id,
	)

	record, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return record, nil
}

// CountByProject counts live records under a project.
func (r *FileRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM project_files WHERE project_id = ? AND deleted_at IS NULL",
		projectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count project files: %w", err)
	}
	return count, nil
}

// ListPageAfter returns the next page of live records for a project,
// ordered by ID ascending, strictly after afterID. Keyset pagination:
// concurrent inserts and deletes elsewhere never skip or repeat rows.
func (r *FileRepository) ListPageAfter(ctx context.Context, projectID, afterID string, limit int) ([]*secondary.FileRecordRow, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+fileSelectCols+" FROM project_files WHERE project_id = ? AND id > ? AND deleted_at IS NULL ORDER BY id LIMIT ?",
		projectID, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to page project files: %w", err)
	}
	defer rows.Close()

	var files []*secondary.FileRecordRow
	for rows.Next() {
		record, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, record)
	}
	return files, rows.Err()
}

// ListChildren returns live records whose parent is parentID.
func (r *FileRepository) ListChildren(ctx context.Context, parentID string) ([]*secondary.FileRecordRow, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+fileSelectCols+" FROM project_files WHERE parent_id = ? AND deleted_at IS NULL ORDER BY sort, id",
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	var files []*secondary.FileRecordRow
	for rows.Next() {
		record, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, record)
	}
	return files, rows.Err()
}

// ListDuplicateKeys returns up to limit keys with more than one live
// row, always from the start of the remaining set. Resolved keys drop
// out of the result, so repeated calls walk the whole set without
// pagination drift.
func (r *FileRepository) ListDuplicateKeys(ctx context.Context, scope secondary.DedupScope, limit int) ([]secondary.DuplicateKey, error) {
	query := `SELECT project_id, file_key, COUNT(*) AS cnt FROM project_files
	 WHERE deleted_at IS NULL`
	var args []any

	if scope.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, scope.ProjectID)
	}
	if scope.FileKey != "" {
		query += " AND file_key = ?"
		args = append(args, scope.FileKey)
	}
	query += " GROUP BY project_id, file_key HAVING COUNT(*) > 1 ORDER BY project_id, file_key"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate keys: %w", err)
	}
	defer rows.Close()

	var keys []secondary.DuplicateKey
	for rows.Next() {
		var key secondary.DuplicateKey
		if err := rows.Scan(&key.ProjectID, &key.FileKey, &key.Count); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ListByKey returns all rows (including soft-deleted) for a
// (project, file_key) pair, ordered by ID.
func (r *FileRepository) ListByKey(ctx context.Context, projectID, fileKey string) ([]*secondary.FileRecordRow, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+fileSelectCols+" FROM project_files WHERE project_id = ? AND file_key = ? ORDER BY id",
		projectID, fileKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files by key: %w", err)
	}
	defer rows.Close()

	var files []*secondary.FileRecordRow
	for rows.Next() {
		record, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, record)
	}
	return files, rows.Err()
}

// MergeKey applies one key's merge in a single short transaction:
// repair the survivor's is_dir flag, re-point live children of the
// superseded rows at the survivor, soft-delete the superseded rows.
// Any failure rolls back the whole merge, so rows are never deleted
// while other rows still reference them as parents.
func (r *FileRepository) MergeKey(ctx context.Context, survivorID string, supersededIDs []string, repairIsDir, isDir bool) (int, error) {
	if len(supersededIDs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if repairIsDir {
		if _, err := tx.ExecContext(ctx,
			"UPDATE project_files SET is_dir = ?, updated_at = ? WHERE id = ?",
			isDir, now, survivorID,
		); err != nil {
			return 0, fmt.Errorf("failed to repair is_dir on %s: %w", survivorID, err)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(supersededIDs)), ",")
	args := make([]any, 0, len(supersededIDs)+2)
	args = append(args, survivorID, now)
	for _, id := range supersededIDs {
		args = append(args, id)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE project_files SET parent_id = ?, updated_at = ? WHERE parent_id IN ("+placeholders+") AND deleted_at IS NULL",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to re-point children: %w", err)
	}
	repointed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count re-pointed children: %w", err)
	}

	delArgs := make([]any, 0, len(supersededIDs)+2)
	delArgs = append(delArgs, now, now)
	for _, id := range supersededIDs {
		delArgs = append(delArgs, id)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE project_files SET deleted_at = ?, updated_at = ? WHERE id IN ("+placeholders+")",
		delArgs...,
	); err != nil {
		return 0, fmt.Errorf("failed to delete superseded rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit merge: %w", err)
	}
	return int(repointed), nil
}

// GetNextID returns the next available file ID.
func (r *FileRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM project_files",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next file ID: %w", err)
	}
	return fmt.Sprintf("FILE-%06d", maxID+1), nil
}
