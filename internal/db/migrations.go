package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "add_workspace_id_to_message_schedules",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_audit_log_table",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_ordering_index_on_queued_messages",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "add_actor_id_to_audit_log",
		Up:      migrationV4,
	},
}

// RunMigrations applies all pending migrations in order
func RunMigrations() error {
	db, err := GetDB()
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	for _, m := range migrations {
		var applied int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", m.Version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if applied > 0 {
			continue
		}

		if err := m.Up(db); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}

		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func migrationV1(db *sql.DB) error {
	_, err := db.Exec("ALTER TABLE message_schedules ADD COLUMN workspace_id TEXT NOT NULL DEFAULT ''")
	return err
}

func migrationV2(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			operation TEXT NOT NULL CHECK(operation IN ('create', 'update', 'delete')),
			field_name TEXT NOT NULL DEFAULT '',
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id)")
	return err
}

func migrationV3(db *sql.DB) error {
	_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_topic_order ON queued_messages(topic_id, except_execute_time, id)")
	return err
}

func migrationV4(db *sql.DB) error {
	_, err := db.Exec("ALTER TABLE audit_log ADD COLUMN actor_id TEXT NOT NULL DEFAULT ''")
	return err
}
