package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/atelier/internal/adapters/sqlite"
	"github.com/example/atelier/internal/ports/secondary"
)

func createTestTopic(t *testing.T, repo *sqlite.TopicRepository, ctx context.Context, projectID string) *secondary.TopicRecord {
	t.Helper()

	nextID, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}

	topic := &secondary.TopicRecord{
		ID:        nextID,
		ProjectID: projectID,
		UserID:    "user-1",
		Title:     "Test Topic",
	}
	if err := repo.Create(ctx, topic); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return topic
}

func TestTopicRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTopicRepository(db)
	ctx := context.Background()

	topic := createTestTopic(t, repo, ctx, "PROJ-001")

	retrieved, err := repo.GetByID(ctx, topic.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retrieved.Title != "Test Topic" {
		t.Errorf("expected title 'Test Topic', got '%s'", retrieved.Title)
	}
	if retrieved.CurrentTaskID != "" {
		t.Errorf("expected no current task, got '%s'", retrieved.CurrentTaskID)
	}
}

func TestTopicRepository_List_FilterByProject(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTopicRepository(db)
	ctx := context.Background()

	createTestTopic(t, repo, ctx, "PROJ-001")
	createTestTopic(t, repo, ctx, "PROJ-001")
	createTestTopic(t, repo, ctx, "PROJ-002")

	topics, err := repo.List(ctx, secondary.TopicFilters{ProjectID: "PROJ-001"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(topics) != 2 {
		t.Errorf("expected 2 topics, got %d", len(topics))
	}
}

func TestTopicRepository_SetCurrentTaskIfMatch(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTopicRepository(db)
	ctx := context.Background()

	topic := createTestTopic(t, repo, ctx, "PROJ-001")

	err := repo.SetCurrentTaskIfMatch(ctx, topic.ID, topic.UpdatedAt, "TASK-000001", "pending")
	if err != nil {
		t.Fatalf("SetCurrentTaskIfMatch failed: %v", err)
	}

	retrieved, _ := repo.GetByID(ctx, topic.ID)
	if retrieved.CurrentTaskID != "TASK-000001" {
		t.Errorf("expected current task 'TASK-000001', got '%s'", retrieved.CurrentTaskID)
	}
	if retrieved.CurrentTaskStatus != "pending" {
		t.Errorf("expected current task status 'pending', got '%s'", retrieved.CurrentTaskStatus)
	}
}

func TestTopicRepository_SetCurrentTaskIfMatch_RaceLoser(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTopicRepository(db)
	ctx := context.Background()

	topic := createTestTopic(t, repo, ctx, "PROJ-001")

	// Two dispatchers read the same topic; the first claim wins.
	if err := repo.SetCurrentTaskIfMatch(ctx, topic.ID, topic.UpdatedAt, "TASK-000001", "pending"); err != nil {
		t.Fatalf("winner claim failed: %v", err)
	}

	err := repo.SetCurrentTaskIfMatch(ctx, topic.ID, topic.UpdatedAt, "TASK-000002", "pending")
	if !errors.Is(err, secondary.ErrConflict) {
		t.Errorf("expected ErrConflict for losing dispatcher, got %v", err)
	}

	retrieved, _ := repo.GetByID(ctx, topic.ID)
	if retrieved.CurrentTaskID != "TASK-000001" {
		t.Errorf("loser overwrote winner: current task is '%s'", retrieved.CurrentTaskID)
	}
}

func TestTopicRepository_SetCurrentTaskStatus_StaleMirrorDropped(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTopicRepository(db)
	ctx := context.Background()

	topic := createTestTopic(t, repo, ctx, "PROJ-001")
	if err := repo.SetCurrentTaskIfMatch(ctx, topic.ID, topic.UpdatedAt, "TASK-000002", "running"); err != nil {
		t.Fatalf("SetCurrentTaskIfMatch failed: %v", err)
	}

	// A callback for a superseded task must not touch the mirror.
	if err := repo.SetCurrentTaskStatus(ctx, topic.ID, "TASK-000001", "finished"); err != nil {
		t.Fatalf("SetCurrentTaskStatus failed: %v", err)
	}

	retrieved, _ := repo.GetByID(ctx, topic.ID)
	if retrieved.CurrentTaskStatus != "running" {
		t.Errorf("stale mirror write landed: status is '%s'", retrieved.CurrentTaskStatus)
	}

	// The current task's own update goes through.
	if err := repo.SetCurrentTaskStatus(ctx, topic.ID, "TASK-000002", "finished"); err != nil {
		t.Fatalf("SetCurrentTaskStatus failed: %v", err)
	}
	retrieved, _ = repo.GetByID(ctx, topic.ID)
	if retrieved.CurrentTaskStatus != "finished" {
		t.Errorf("expected status 'finished', got '%s'", retrieved.CurrentTaskStatus)
	}
}

func TestTopicRepository_SetSandboxSessionID(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTopicRepository(db)
	ctx := context.Background()

	topic := createTestTopic(t, repo, ctx, "PROJ-001")
	if err := repo.SetSandboxSessionID(ctx, topic.ID, "sess-42"); err != nil {
		t.Fatalf("SetSandboxSessionID failed: %v", err)
	}

	retrieved, _ := repo.GetByID(ctx, topic.ID)
	if retrieved.SandboxSessionID != "sess-42" {
		t.Errorf("expected session 'sess-42', got '%s'", retrieved.SandboxSessionID)
	}
}

func TestTopicRepository_SoftDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTopicRepository(db)
	ctx := context.Background()

	topic := createTestTopic(t, repo, ctx, "PROJ-001")
	if err := repo.SoftDelete(ctx, topic.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	_, err := repo.GetByID(ctx, topic.ID)
	if !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound after soft delete, got %v", err)
	}
}
