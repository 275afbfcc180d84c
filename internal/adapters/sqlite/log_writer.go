package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/atelier/internal/ctxutil"
)

// LogWriter implements secondary.LogWriter by appending rows to the
// audit_log table. The acting identity is taken from the context.
type LogWriter struct {
	db *sql.DB
}

// NewLogWriter creates a new SQLite audit log writer.
func NewLogWriter(db *sql.DB) *LogWriter {
	return &LogWriter{db: db}
}

// LogCreate logs a create operation for an entity.
func (w *LogWriter) LogCreate(ctx context.Context, entityType, entityID string) error {
	_, err := w.db.ExecContext(ctx,
		"INSERT INTO audit_log (entity_type, entity_id, operation, actor_id) VALUES (?, ?, 'create', ?)",
		entityType, entityID, ctxutil.ActorFromContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to log create: %w", err)
	}
	return nil
}

// LogUpdate logs an update operation for an entity field.
func (w *LogWriter) LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error {
	_, err := w.db.ExecContext(ctx,
		"INSERT INTO audit_log (entity_type, entity_id, operation, field_name, old_value, new_value, actor_id) VALUES (?, ?, 'update', ?, ?, ?, ?)",
		entityType, entityID, fieldName, oldValue, newValue, ctxutil.ActorFromContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to log update: %w", err)
	}
	return nil
}

// LogDelete logs a delete operation for an entity.
func (w *LogWriter) LogDelete(ctx context.Context, entityType, entityID string) error {
	_, err := w.db.ExecContext(ctx,
		"INSERT INTO audit_log (entity_type, entity_id, operation, actor_id) VALUES (?, ?, 'delete', ?)",
		entityType, entityID, ctxutil.ActorFromContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to log delete: %w", err)
	}
	return nil
}
