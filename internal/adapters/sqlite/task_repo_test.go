package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/example/atelier/internal/adapters/sqlite"
	"github.com/example/atelier/internal/ports/secondary"
)

// setupTaskTestDB creates the test database with required seed data.
func setupTaskTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB := setupTestDB(t)
	seedTopic(t, testDB, "TOP-000001", "PROJ-001")
	return testDB
}

// createTestTask is a helper that creates a pending task with a generated ID.
func createTestTask(t *testing.T, repo *sqlite.TaskRepository, ctx context.Context, topicID string) *secondary.TaskRecord {
	t.Helper()

	nextID, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}

	task := &secondary.TaskRecord{
		ID:        nextID,
		TopicID:   topicID,
		ProjectID: "PROJ-001",
		Status:    "pending",
	}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return task
}

func TestTaskRepository_Create(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	task := &secondary.TaskRecord{
		ID:        "TASK-000001",
		TopicID:   "TOP-000001",
		ProjectID: "PROJ-001",
		Status:    "pending",
	}

	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, "TASK-000001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retrieved.Status != "pending" {
		t.Errorf("expected status 'pending', got '%s'", retrieved.Status)
	}
	if retrieved.TopicID != "TOP-000001" {
		t.Errorf("expected topic 'TOP-000001', got '%s'", retrieved.TopicID)
	}
	if retrieved.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}
}

func TestTaskRepository_GetByID_NotFound(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)

	_, err := repo.GetByID(context.Background(), "TASK-999999")
	if !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_UpdateStatusIfMatch(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	task := createTestTask(t, repo, ctx, "TOP-000001")

	err := repo.UpdateStatusIfMatch(ctx, task.ID, "pending", task.UpdatedAt, "running", "")
	if err != nil {
		t.Fatalf("UpdateStatusIfMatch failed: %v", err)
	}

	retrieved, _ := repo.GetByID(ctx, task.ID)
	if retrieved.Status != "running" {
		t.Errorf("expected status 'running', got '%s'", retrieved.Status)
	}
}

func TestTaskRepository_UpdateStatusIfMatch_StaleRead(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	task := createTestTask(t, repo, ctx, "TOP-000001")

	// First writer wins.
	if err := repo.UpdateStatusIfMatch(ctx, task.ID, "pending", task.UpdatedAt, "running", ""); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// Second writer still holds the stale read and must lose.
	err := repo.UpdateStatusIfMatch(ctx, task.ID, "pending", task.UpdatedAt, "error", "stale")
	if !errors.Is(err, secondary.ErrConflict) {
		t.Errorf("expected ErrConflict for stale update, got %v", err)
	}

	retrieved, _ := repo.GetByID(ctx, task.ID)
	if retrieved.Status != "running" {
		t.Errorf("loser overwrote winner: status is '%s'", retrieved.Status)
	}
}

func TestTaskRepository_UpdateStatusIfMatch_WrongStatus(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	task := createTestTask(t, repo, ctx, "TOP-000001")

	err := repo.UpdateStatusIfMatch(ctx, task.ID, "running", task.UpdatedAt, "finished", "")
	if !errors.Is(err, secondary.ErrConflict) {
		t.Errorf("expected ErrConflict when current status differs, got %v", err)
	}
}

func TestTaskRepository_GetBySandboxTaskID(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	task := createTestTask(t, repo, ctx, "TOP-000001")
	if err := repo.SetSandboxTaskID(ctx, task.ID, "sbx-abc-123"); err != nil {
		t.Fatalf("SetSandboxTaskID failed: %v", err)
	}

	retrieved, err := repo.GetBySandboxTaskID(ctx, "sbx-abc-123")
	if err != nil {
		t.Fatalf("GetBySandboxTaskID failed: %v", err)
	}
	if retrieved.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, retrieved.ID)
	}
}

func TestTaskRepository_ListStaleRunning(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	stale := &secondary.TaskRecord{
		ID:        "TASK-000001",
		TopicID:   "TOP-000001",
		ProjectID: "PROJ-001",
		Status:    "running",
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		UpdatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	fresh := &secondary.TaskRecord{
		ID:        "TASK-000002",
		TopicID:   "TOP-000001",
		ProjectID: "PROJ-001",
		Status:    "running",
	}
	terminal := &secondary.TaskRecord{
		ID:        "TASK-000003",
		TopicID:   "TOP-000001",
		ProjectID: "PROJ-001",
		Status:    "finished",
		CreatedAt: time.Now().UTC().Add(-3 * time.Hour),
		UpdatedAt: time.Now().UTC().Add(-3 * time.Hour),
	}
	for _, task := range []*secondary.TaskRecord{stale, fresh, terminal} {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	tasks, err := repo.ListStaleRunning(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListStaleRunning failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 stale task, got %d", len(tasks))
	}
	if tasks[0].ID != "TASK-000001" {
		t.Errorf("expected TASK-000001, got %s", tasks[0].ID)
	}
}

func TestTaskRepository_SoftDelete(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	task := createTestTask(t, repo, ctx, "TOP-000001")
	if err := repo.SoftDelete(ctx, task.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	_, err := repo.GetByID(ctx, task.ID)
	if !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound after soft delete, got %v", err)
	}
}

func TestTaskRepository_GetNextID(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	id, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "TASK-000001" {
		t.Errorf("expected TASK-000001, got %s", id)
	}

	createTestTask(t, repo, ctx, "TOP-000001")

	id, err = repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "TASK-000002" {
		t.Errorf("expected TASK-000002, got %s", id)
	}
}
