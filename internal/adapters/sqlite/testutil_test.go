// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/atelier/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
// Uses db.GetSchemaSQL() to prevent test schemas from drifting.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedTopic inserts a test topic and returns its ID.
func seedTopic(t *testing.T, db *sql.DB, id, projectID string) string {
	t.Helper()
	if id == "" {
		id = "TOP-000001"
	}
	if projectID == "" {
		projectID = "PROJ-001"
	}
	now := time.Now().UTC()
	_, err := db.Exec(
		"INSERT INTO topics (id, project_id, user_id, title, created_at, updated_at) VALUES (?, ?, 'user-1', 'Test Topic', ?, ?)",
		id, projectID, now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed topic: %v", err)
	}
	return id
}

// seedFile inserts a live project file row and returns its ID.
func seedFile(t *testing.T, db *sql.DB, id, projectID, parentID, fileKey string, isDir bool) string {
	t.Helper()
	if projectID == "" {
		projectID = "PROJ-001"
	}
	now := time.Now().UTC()
	_, err := db.Exec(
		"INSERT INTO project_files (id, project_id, parent_id, name, file_key, is_dir, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, projectID, parentID, "node-"+id, fileKey, isDir, now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}
	return id
}
