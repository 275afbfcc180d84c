package db

// SchemaSQL is the complete schema for fresh Atelier installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All
// repository tests load it via GetSchemaSQL() so test schemas can never
// drift from production: a repository referencing a column missing here
// fails immediately with "no such column".
//
// Keep this in sync with migrations when adding columns or tables:
//  1. Add a migration in internal/db/migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Topics (conversation threads inside a project)
CREATE TABLE IF NOT EXISTS topics (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	current_task_id TEXT NOT NULL DEFAULT '',
	current_task_status TEXT NOT NULL DEFAULT '',
	sandbox_session_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	deleted_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_topics_project ON topics(project_id);

-- Tasks (sandbox execution attempts; soft-deleted only, never removed)
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	topic_id TEXT NOT NULL,
	project_id TEXT NOT NULL,
	sandbox_task_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK(status IN ('pending', 'running', 'finished', 'error')) DEFAULT 'pending',
	err_msg TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	deleted_at DATETIME,
	FOREIGN KEY (topic_id) REFERENCES topics(id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_topic ON tasks(topic_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status_updated ON tasks(status, updated_at);
CREATE INDEX IF NOT EXISTS idx_tasks_sandbox ON tasks(sandbox_task_id);

-- Queued messages (pending task triggers)
CREATE TABLE IF NOT EXISTS queued_messages (
	id TEXT PRIMARY KEY,
	topic_id TEXT NOT NULL,
	project_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK(status IN ('pending', 'in_progress', 'completed', 'failed')) DEFAULT 'pending',
	except_execute_time DATETIME NOT NULL,
	err_msg TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	deleted_at DATETIME,
	FOREIGN KEY (topic_id) REFERENCES topics(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_topic_order ON queued_messages(topic_id, except_execute_time, id);
CREATE INDEX IF NOT EXISTS idx_messages_status_time ON queued_messages(status, except_execute_time);

-- Message schedules (recurring/one-shot producers of queued messages)
CREATE TABLE IF NOT EXISTS message_schedules (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	topic_id TEXT NOT NULL,
	project_id TEXT NOT NULL,
	workspace_id TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '',
	time_spec TEXT NOT NULL,
	one_shot INTEGER NOT NULL DEFAULT 0,
	enabled INTEGER NOT NULL DEFAULT 1,
	completed INTEGER NOT NULL DEFAULT 0,
	crontab_trigger_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	deleted_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_schedules_user ON message_schedules(user_id);

-- Project forks (resumable copy jobs; created already running)
CREATE TABLE IF NOT EXISTS project_forks (
	id TEXT PRIMARY KEY,
	source_project_id TEXT NOT NULL,
	fork_project_id TEXT NOT NULL,
	workspace_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK(status IN ('running', 'finished', 'failed')) DEFAULT 'running',
	progress INTEGER NOT NULL DEFAULT 0,
	total_files INTEGER NOT NULL DEFAULT 0,
	processed_files INTEGER NOT NULL DEFAULT 0,
	current_file_id TEXT NOT NULL DEFAULT '',
	err_msg TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_forks_user_source ON project_forks(user_id, source_project_id, status);

-- Project files (file-tree nodes; file_key is content addressed and NOT
-- unique under concurrent writers - the dedup sweep repairs that)
CREATE TABLE IF NOT EXISTS project_files (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	topic_id TEXT NOT NULL DEFAULT '',
	parent_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	file_key TEXT NOT NULL,
	is_dir INTEGER NOT NULL DEFAULT 0,
	sort INTEGER NOT NULL DEFAULT 0,
	size INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	deleted_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_files_project_id ON project_files(project_id, id);
CREATE INDEX IF NOT EXISTS idx_files_project_key ON project_files(project_id, file_key);
CREATE INDEX IF NOT EXISTS idx_files_parent ON project_files(parent_id);

-- Audit log (operational trail written by the services)
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	operation TEXT NOT NULL CHECK(operation IN ('create', 'update', 'delete')),
	field_name TEXT NOT NULL DEFAULT '',
	old_value TEXT NOT NULL DEFAULT '',
	new_value TEXT NOT NULL DEFAULT '',
	actor_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
`

// InitSchema creates the database schema
func InitSchema() error {
	db, err := GetDB()
	if err != nil {
		return err
	}

	// Fresh installs get the modern schema directly; existing databases
	// run any pending migrations.
	var tableCount int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		if _, err := db.Exec(SchemaSQL); err != nil {
			return err
		}
		_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`)
		if err != nil {
			return err
		}
		// Mark all migrations as applied for fresh installs
		for _, m := range migrations {
			if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	return RunMigrations()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
