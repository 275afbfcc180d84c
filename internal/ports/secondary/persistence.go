package secondary

import (
	"context"
	"time"
)

// TaskRecord represents a task as stored in persistence.
type TaskRecord struct {
	ID            string
	TopicID       string
	ProjectID     string
	SandboxTaskID string
	Status        string
	ErrMsg        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// TaskRepository defines the secondary port for task persistence.
// Tasks are never physically deleted, only soft-deleted.
type TaskRepository interface {
	// Create persists a new task.
	Create(ctx context.Context, task *TaskRecord) error

	// GetByID retrieves a task by its ID.
	GetByID(ctx context.Context, id string) (*TaskRecord, error)

	// GetBySandboxTaskID retrieves a task by its sandbox-assigned ID.
	GetBySandboxTaskID(ctx context.Context, sandboxTaskID string) (*TaskRecord, error)

	// UpdateStatusIfMatch updates status and err_msg conditioned on the
	// previously read status and updated_at. Returns ErrConflict when
	// another writer advanced the row first.
	UpdateStatusIfMatch(ctx context.Context, id, fromStatus string, readUpdatedAt time.Time, toStatus, errMsg string) error

	// SetSandboxTaskID records the sandbox-assigned external ID.
	SetSandboxTaskID(ctx context.Context, id, sandboxTaskID string) error

	// ListStaleRunning returns running tasks not updated since before.
	ListStaleRunning(ctx context.Context, before time.Time) ([]*TaskRecord, error)

	// ListByTopic returns a topic's tasks, newest first.
	ListByTopic(ctx context.Context, topicID string, limit int) ([]*TaskRecord, error)

	// SoftDelete marks a task deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error

	// GetNextID returns the next available task ID.
	GetNextID(ctx context.Context) (string, error)
}

// TopicRecord represents a topic as stored in persistence.
type TopicRecord struct {
	ID                string
	ProjectID         string
	UserID            string
	Title             string
	CurrentTaskID     string
	CurrentTaskStatus string
	SandboxSessionID  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// TopicFilters contains filter options for querying topics.
type TopicFilters struct {
	ProjectID string
	UserID    string
	Limit     int
}

// TopicRepository defines the secondary port for topic persistence.
type TopicRepository interface {
	// Create persists a new topic.
	Create(ctx context.Context, topic *TopicRecord) error

	// GetByID retrieves a topic by its ID.
	GetByID(ctx context.Context, id string) (*TopicRecord, error)

	// List retrieves topics matching the given filters.
	List(ctx context.Context, filters TopicFilters) ([]*TopicRecord, error)

	// SetCurrentTaskIfMatch points the topic at a new current task,
	// conditioned on the previously read updated_at. This is the
	// single-flight race breaker: when two dispatchers race, only one
	// update persists and the loser receives ErrConflict.
	SetCurrentTaskIfMatch(ctx context.Context, id string, readUpdatedAt time.Time, taskID, taskStatus string) error

	// SetCurrentTaskStatus refreshes the denormalized status mirror,
	// conditioned on taskID still being the topic's current task. A
	// stale mirror write (for a superseded task) affects no rows and is
	// silently dropped.
	SetCurrentTaskStatus(ctx context.Context, id, taskID, taskStatus string) error

	// SetSandboxSessionID records the sandbox session for the topic.
	SetSandboxSessionID(ctx context.Context, id, sessionID string) error

	// SoftDelete marks a topic deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error

	// GetNextID returns the next available topic ID.
	GetNextID(ctx context.Context) (string, error)
}

// MessageRecord represents a queued message as stored in persistence.
type MessageRecord struct {
	ID                string
	TopicID           string
	ProjectID         string
	UserID            string
	Payload           string
	Status            string
	ExceptExecuteTime time.Time
	ErrMsg            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// MessageFilters contains filter options for querying queued messages.
type MessageFilters struct {
	TopicID string
	Status  string
	Limit   int
}

// MessageRepository defines the secondary port for queued-message
// persistence. Per-topic processing order is (except_execute_time, id)
// ascending.
type MessageRepository interface {
	// Create persists a new queued message.
	Create(ctx context.Context, msg *MessageRecord) error

	// GetByID retrieves a message by its ID.
	GetByID(ctx context.Context, id string) (*MessageRecord, error)

	// List retrieves messages matching the given filters, in processing order.
	List(ctx context.Context, filters MessageFilters) ([]*MessageRecord, error)

	// EarliestEligible returns the topic's oldest pending message with
	// except_execute_time <= now, or nil when none is due. Peek only.
	EarliestEligible(ctx context.Context, topicID string, now time.Time) (*MessageRecord, error)

	// UpdateStatusIfMatch moves a message between statuses conditioned
	// on its current status. Racing dispatchers agree through this:
	// only one pending->in_progress transition can win; the loser
	// receives ErrConflict.
	UpdateStatusIfMatch(ctx context.Context, id, fromStatus, toStatus, errMsg string) error

	// ResetForRetry resets a failed message to pending with a fresh
	// except_execute_time.
	ResetForRetry(ctx context.Context, id string, notBefore time.Time) error

	// DelayPending shifts except_execute_time forward for every pending
	// message in the topic and returns how many rows moved.
	DelayPending(ctx context.Context, topicID string, now time.Time, delay time.Duration) (int, error)

	// ListCompensationTopics returns distinct topic IDs that have at
	// least one eligible pending message, oldest work first. projectID
	// optionally scopes the scan.
	ListCompensationTopics(ctx context.Context, limit int, now time.Time, projectID string) ([]string, error)

	// GetNextID returns the next available message ID.
	GetNextID(ctx context.Context) (string, error)
}

// ScheduleRecord represents a message schedule as stored in persistence.
type ScheduleRecord struct {
	ID               string
	UserID           string
	TopicID          string
	ProjectID        string
	WorkspaceID      string
	Payload          string
	TimeSpec         string
	OneShot          bool
	Enabled          bool
	Completed        bool
	CrontabTriggerID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// ScheduleRepository defines the secondary port for schedule persistence.
type ScheduleRepository interface {
	// Create persists a new schedule.
	Create(ctx context.Context, schedule *ScheduleRecord) error

	// GetByID retrieves a schedule by its ID.
	GetByID(ctx context.Context, id string) (*ScheduleRecord, error)

	// Update updates payload, time spec and enabled flag.
	Update(ctx context.Context, schedule *ScheduleRecord) error

	// SetCompleted marks a one-shot schedule as fired.
	SetCompleted(ctx context.Context, id string) error

	// SetCrontabTriggerID stores the external trigger registration.
	SetCrontabTriggerID(ctx context.Context, id, triggerID string) error

	// ListEnabled returns enabled, not-completed schedules for a user.
	// An empty userID returns all of them.
	ListEnabled(ctx context.Context, userID string) ([]*ScheduleRecord, error)

	// SoftDelete marks a schedule deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error

	// GetNextID returns the next available schedule ID.
	GetNextID(ctx context.Context) (string, error)
}

// ForkRecord represents a fork job as stored in persistence.
type ForkRecord struct {
	ID              string
	SourceProjectID string
	ForkProjectID   string
	WorkspaceID     string
	UserID          string
	Status          string
	Progress        int
	TotalFiles      int
	ProcessedFiles  int
	CurrentFileID   string
	ErrMsg          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ForkRepository defines the secondary port for fork-job persistence.
type ForkRepository interface {
	// Create persists a new fork job (already running).
	Create(ctx context.Context, fork *ForkRecord) error

	// GetByID retrieves a fork by its ID.
	GetByID(ctx context.Context, id string) (*ForkRecord, error)

	// GetRunningForSource returns the running fork for a
	// (user, source project) pair, or nil when there is none.
	GetRunningForSource(ctx context.Context, userID, sourceProjectID string) (*ForkRecord, error)

	// ListRunning returns all running fork jobs (worker restart resume).
	ListRunning(ctx context.Context) ([]*ForkRecord, error)

	// ListByUser returns a user's fork jobs, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*ForkRecord, error)

	// SetTotalFiles records the best-effort source snapshot count.
	SetTotalFiles(ctx context.Context, id string, total int) error

	// CommitBatch atomically inserts one batch of destination file rows
	// and advances the fork checkpoint (current_file_id,
	// processed_files, progress), conditioned on the fork still being
	// running. Returns ErrConflict when the fork was cancelled or
	// failed underneath the writer, committing nothing.
	CommitBatch(ctx context.Context, id string, files []*FileRecordRow, cursor string, processed, progress int) error

	// SetStatus moves the fork to a terminal status with an optional
	// error message, conditioned on it still being running.
	SetStatus(ctx context.Context, id, status, errMsg string) error

	// GetNextID returns the next available fork ID.
	GetNextID(ctx context.Context) (string, error)
}

// FileRecordRow represents a file-tree node as stored in persistence.
type FileRecordRow struct {
	ID        string
	ProjectID string
	TopicID   string
	ParentID  string
	Name      string
	FileKey   string
	IsDir     bool
	Sort      int
	Size      int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// DuplicateKey identifies a file_key with more than one live row in a
// project.
type DuplicateKey struct {
	ProjectID string
	FileKey   string
	Count     int
}

// DedupScope optionally narrows a duplicate sweep.
type DedupScope struct {
	ProjectID string
	FileKey   string
}

// FileRepository defines the secondary port for file-tree persistence,
// shared by the fork engine (reads, writes via ForkRepository.CommitBatch)
// and the duplicate resolver.
type FileRepository interface {
	// Create persists a new file record.
	Create(ctx context.Context, file *FileRecordRow) error

	// GetByID retrieves a file record by its ID (including soft-deleted).
	GetByID(ctx context.Context, id string) (*FileRecordRow, error)

	// CountByProject counts live records under a project.
	CountByProject(ctx context.Context, projectID string) (int, error)

	// ListPageAfter returns the next page of live records for a project,
	// ordered by ID ascending, strictly after afterID (empty starts from
	// the beginning). Keyset pagination: deleting or inserting rows
	// elsewhere never skips or repeats a row here.
	ListPageAfter(ctx context.Context, projectID, afterID string, limit int) ([]*FileRecordRow, error)

	// ListChildren returns live records whose parent is parentID.
	ListChildren(ctx context.Context, parentID string) ([]*FileRecordRow, error)

	// ListDuplicateKeys returns up to limit keys that currently have
	// more than one live row, always from the start of the remaining
	// set: resolved keys drop out of the result, so repeated calls walk
	// the whole set without pagination drift.
	ListDuplicateKeys(ctx context.Context, scope DedupScope, limit int) ([]DuplicateKey, error)

	// ListByKey returns all rows (including soft-deleted) for a
	// (project, file_key) pair.
	ListByKey(ctx context.Context, projectID, fileKey string) ([]*FileRecordRow, error)

	// MergeKey applies one key's merge in a single transaction: repairs
	// the survivor's is_dir flag if requested, re-points live children
	// of the superseded rows at the survivor, then soft-deletes the
	// superseded rows. A failure anywhere rolls the whole merge back so
	// rows are never deleted with dangling parent references. Returns
	// how many child rows were re-pointed.
	MergeKey(ctx context.Context, survivorID string, supersededIDs []string, repairIsDir, isDir bool) (int, error)

	// GetNextID returns the next available file ID.
	GetNextID(ctx context.Context) (string, error)
}
