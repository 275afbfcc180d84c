package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/atelier/internal/ports/secondary"
)

// In-memory fakes for the secondary ports. They reproduce the
// conditional-update semantics of the SQLite adapters (ErrConflict on a
// lost race) so service tests can exercise the race-handling paths.

var _ secondary.TaskRepository = (*mockTaskRepo)(nil)

type mockTaskRepo struct {
	tasks  map[string]*secondary.TaskRecord
	nextID int
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]*secondary.TaskRecord)}
}

func (m *mockTaskRepo) Create(ctx context.Context, task *secondary.TaskRecord) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id string) (*secondary.TaskRecord, error) {
	t, ok := m.tasks[id]
	if !ok || t.DeletedAt != nil {
		return nil, fmt.Errorf("task %s: %w", id, secondary.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskRepo) GetBySandboxTaskID(ctx context.Context, sandboxTaskID string) (*secondary.TaskRecord, error) {
	for _, t := range m.tasks {
		if t.SandboxTaskID == sandboxTaskID && t.DeletedAt == nil {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("sandbox task %s: %w", sandboxTaskID, secondary.ErrNotFound)
}

func (m *mockTaskRepo) UpdateStatusIfMatch(ctx context.Context, id, fromStatus string, readUpdatedAt time.Time, toStatus, errMsg string) error {
	t, ok := m.tasks[id]
	if !ok || t.DeletedAt != nil || t.Status != fromStatus || !t.UpdatedAt.Equal(readUpdatedAt) {
		return fmt.Errorf("task %s: %w", id, secondary.ErrConflict)
	}
	t.Status = toStatus
	t.ErrMsg = errMsg
	// Guarantee the timestamp advances even within one wall-clock tick.
	t.UpdatedAt = laterOf(time.Now().UTC(), t.UpdatedAt.Add(time.Nanosecond))
	return nil
}

func (m *mockTaskRepo) SetSandboxTaskID(ctx context.Context, id, sandboxTaskID string) error {
	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, secondary.ErrNotFound)
	}
	t.SandboxTaskID = sandboxTaskID
	return nil
}

func (m *mockTaskRepo) ListStaleRunning(ctx context.Context, before time.Time) ([]*secondary.TaskRecord, error) {
	var out []*secondary.TaskRecord
	for _, t := range m.tasks {
		if t.Status == "running" && t.UpdatedAt.Before(before) && t.DeletedAt == nil {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockTaskRepo) ListByTopic(ctx context.Context, topicID string, limit int) ([]*secondary.TaskRecord, error) {
	var out []*secondary.TaskRecord
	for _, t := range m.tasks {
		if t.TopicID == topicID && t.DeletedAt == nil {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockTaskRepo) SoftDelete(ctx context.Context, id string) error {
	if t, ok := m.tasks[id]; ok {
		now := time.Now().UTC()
		t.DeletedAt = &now
	}
	return nil
}

func (m *mockTaskRepo) GetNextID(ctx context.Context) (string, error) {
	m.nextID++
	return fmt.Sprintf("TASK-%06d", m.nextID), nil
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

var _ secondary.TopicRepository = (*mockTopicRepo)(nil)

type mockTopicRepo struct {
	topics map[string]*secondary.TopicRecord
	nextID int
}

func newMockTopicRepo() *mockTopicRepo {
	return &mockTopicRepo{topics: make(map[string]*secondary.TopicRecord)}
}

// addTopic seeds a topic directly, bypassing Create.
func (m *mockTopicRepo) addTopic(id, projectID string) *secondary.TopicRecord {
	now := time.Now().UTC()
	t := &secondary.TopicRecord{
		ID:        id,
		ProjectID: projectID,
		UserID:    "user-1",
		Title:     "Test Topic",
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.topics[id] = t
	return t
}

func (m *mockTopicRepo) Create(ctx context.Context, topic *secondary.TopicRecord) error {
	now := time.Now().UTC()
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = now
	}
	if topic.UpdatedAt.IsZero() {
		topic.UpdatedAt = now
	}
	cp := *topic
	m.topics[topic.ID] = &cp
	return nil
}

func (m *mockTopicRepo) GetByID(ctx context.Context, id string) (*secondary.TopicRecord, error) {
	t, ok := m.topics[id]
	if !ok || t.DeletedAt != nil {
		return nil, fmt.Errorf("topic %s: %w", id, secondary.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *mockTopicRepo) List(ctx context.Context, filters secondary.TopicFilters) ([]*secondary.TopicRecord, error) {
	var out []*secondary.TopicRecord
	for _, t := range m.topics {
		if t.DeletedAt != nil {
			continue
		}
		if filters.ProjectID != "" && t.ProjectID != filters.ProjectID {
			continue
		}
		if filters.UserID != "" && t.UserID != filters.UserID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (m *mockTopicRepo) SetCurrentTaskIfMatch(ctx context.Context, id string, readUpdatedAt time.Time, taskID, taskStatus string) error {
	t, ok := m.topics[id]
	if !ok || t.DeletedAt != nil || !t.UpdatedAt.Equal(readUpdatedAt) {
		return fmt.Errorf("topic %s: %w", id, secondary.ErrConflict)
	}
	t.CurrentTaskID = taskID
	t.CurrentTaskStatus = taskStatus
	t.UpdatedAt = laterOf(time.Now().UTC(), t.UpdatedAt.Add(time.Nanosecond))
	return nil
}

func (m *mockTopicRepo) SetCurrentTaskStatus(ctx context.Context, id, taskID, taskStatus string) error {
	t, ok := m.topics[id]
	if !ok {
		return nil
	}
	if t.CurrentTaskID != taskID {
		return nil // stale mirror write, silently dropped
	}
	t.CurrentTaskStatus = taskStatus
	t.UpdatedAt = laterOf(time.Now().UTC(), t.UpdatedAt.Add(time.Nanosecond))
	return nil
}

func (m *mockTopicRepo) SetSandboxSessionID(ctx context.Context, id, sessionID string) error {
	if t, ok := m.topics[id]; ok {
		t.SandboxSessionID = sessionID
	}
	return nil
}

func (m *mockTopicRepo) SoftDelete(ctx context.Context, id string) error {
	if t, ok := m.topics[id]; ok {
		now := time.Now().UTC()
		t.DeletedAt = &now
	}
	return nil
}

func (m *mockTopicRepo) GetNextID(ctx context.Context) (string, error) {
	m.nextID++
	return fmt.Sprintf("TOP-%06d", m.nextID), nil
}

var _ secondary.MessageRepository = (*mockMessageRepo)(nil)

type mockMessageRepo struct {
	msgs   map[string]*secondary.MessageRecord
	nextID int
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{msgs: make(map[string]*secondary.MessageRecord)}
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *secondary.MessageRecord) error {
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
	cp := *msg
	m.msgs[msg.ID] = &cp
	return nil
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id string) (*secondary.MessageRecord, error) {
	r, ok := m.msgs[id]
	if !ok || r.DeletedAt != nil {
		return nil, fmt.Errorf("message %s: %w", id, secondary.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *mockMessageRepo) List(ctx context.Context, filters secondary.MessageFilters) ([]*secondary.MessageRecord, error) {
	var out []*secondary.MessageRecord
	for _, r := range m.msgs {
		if r.DeletedAt != nil {
			continue
		}
		if filters.TopicID != "" && r.TopicID != filters.TopicID {
			continue
		}
		if filters.Status != "" && r.Status != filters.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sortMessageRecords(out)
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func sortMessageRecords(msgs []*secondary.MessageRecord) {
	sort.Slice(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if !a.ExceptExecuteTime.Equal(b.ExceptExecuteTime) {
			return a.ExceptExecuteTime.Before(b.ExceptExecuteTime)
		}
		return a.ID < b.ID
	})
}

func (m *mockMessageRepo) EarliestEligible(ctx context.Context, topicID string, now time.Time) (*secondary.MessageRecord, error) {
	var candidates []*secondary.MessageRecord
	for _, r := range m.msgs {
		if r.DeletedAt == nil && r.TopicID == topicID && r.Status == "pending" && !r.ExceptExecuteTime.After(now) {
			cp := *r
			candidates = append(candidates, &cp)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sortMessageRecords(candidates)
	return candidates[0], nil
}

func (m *mockMessageRepo) UpdateStatusIfMatch(ctx context.Context, id, fromStatus, toStatus, errMsg string) error {
	r, ok := m.msgs[id]
	if !ok || r.DeletedAt != nil || r.Status != fromStatus {
		return fmt.Errorf("message %s: %w", id, secondary.ErrConflict)
	}
	r.Status = toStatus
	r.ErrMsg = errMsg
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockMessageRepo) ResetForRetry(ctx context.Context, id string, notBefore time.Time) error {
	r, ok := m.msgs[id]
	if !ok || r.DeletedAt != nil || r.Status != "failed" {
		return fmt.Errorf("message %s: %w", id, secondary.ErrConflict)
	}
	r.Status = "pending"
	r.ErrMsg = ""
	r.ExceptExecuteTime = notBefore.UTC()
	return nil
}

func (m *mockMessageRepo) DelayPending(ctx context.Context, topicID string, now time.Time, delay time.Duration) (int, error) {
	moved := 0
	for _, r := range m.msgs {
		if r.DeletedAt != nil || r.TopicID != topicID || r.Status != "pending" {
			continue
		}
		base := r.ExceptExecuteTime
		if now.After(base) {
			base = now
		}
		r.ExceptExecuteTime = base.Add(delay)
		moved++
	}
	return moved, nil
}

func (m *mockMessageRepo) ListCompensationTopics(ctx context.Context, limit int, now time.Time, projectID string) ([]string, error) {
	oldest := make(map[string]time.Time)
	for _, r := range m.msgs {
		if r.DeletedAt != nil || r.Status != "pending" || r.ExceptExecuteTime.After(now) {
			continue
		}
		if projectID != "" && r.ProjectID != projectID {
			continue
		}
		if cur, ok := oldest[r.TopicID]; !ok || r.ExceptExecuteTime.Before(cur) {
			oldest[r.TopicID] = r.ExceptExecuteTime
		}
	}
	topics := make([]string, 0, len(oldest))
	for id := range oldest {
		topics = append(topics, id)
	}
	sort.Slice(topics, func(i, j int) bool {
		if !oldest[topics[i]].Equal(oldest[topics[j]]) {
			return oldest[topics[i]].Before(oldest[topics[j]])
		}
		return topics[i] < topics[j]
	})
	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}

func (m *mockMessageRepo) GetNextID(ctx context.Context) (string, error) {
	m.nextID++
	return fmt.Sprintf("MSG-%06d", m.nextID), nil
}

var _ secondary.ScheduleRepository = (*mockScheduleRepo)(nil)

type mockScheduleRepo struct {
	schedules map[string]*secondary.ScheduleRecord
	nextID    int
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{schedules: make(map[string]*secondary.ScheduleRecord)}
}

func (m *mockScheduleRepo) Create(ctx context.Context, schedule *secondary.ScheduleRecord) error {
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	if schedule.UpdatedAt.IsZero() {
		schedule.UpdatedAt = now
	}
	cp := *schedule
	m.schedules[schedule.ID] = &cp
	return nil
}

func (m *mockScheduleRepo) GetByID(ctx context.Context, id string) (*secondary.ScheduleRecord, error) {
	r, ok := m.schedules[id]
	if !ok || r.DeletedAt != nil {
		return nil, fmt.Errorf("schedule %s: %w", id, secondary.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, schedule *secondary.ScheduleRecord) error {
	r, ok := m.schedules[schedule.ID]
	if !ok || r.DeletedAt != nil {
		return fmt.Errorf("schedule %s: %w", schedule.ID, secondary.ErrNotFound)
	}
	r.Payload = schedule.Payload
	r.TimeSpec = schedule.TimeSpec
	r.Enabled = schedule.Enabled
	return nil
}

func (m *mockScheduleRepo) SetCompleted(ctx context.Context, id string) error {
	if r, ok := m.schedules[id]; ok {
		r.Completed = true
	}
	return nil
}

func (m *mockScheduleRepo) SetCrontabTriggerID(ctx context.Context, id, triggerID string) error {
	if r, ok := m.schedules[id]; ok {
		r.CrontabTriggerID = triggerID
	}
	return nil
}

func (m *mockScheduleRepo) ListEnabled(ctx context.Context, userID string) ([]*secondary.ScheduleRecord, error) {
	var out []*secondary.ScheduleRecord
	for _, r := range m.schedules {
		if r.DeletedAt != nil || !r.Enabled || r.Completed {
			continue
		}
		if userID != "" && r.UserID != userID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockScheduleRepo) SoftDelete(ctx context.Context, id string) error {
	if r, ok := m.schedules[id]; ok {
		now := time.Now().UTC()
		r.DeletedAt = &now
	}
	return nil
}

func (m *mockScheduleRepo) GetNextID(ctx context.Context) (string, error) {
	m.nextID++
	return fmt.Sprintf("SCHED-%06d", m.nextID), nil
}

var _ secondary.ForkRepository = (*mockForkRepo)(nil)

type mockForkRepo struct {
	forks  map[string]*secondary.ForkRecord
	files  *mockFileRepo // destination rows land here on CommitBatch
	nextID int
}

func newMockForkRepo(files *mockFileRepo) *mockForkRepo {
	return &mockForkRepo{forks: make(map[string]*secondary.ForkRecord), files: files}
}

func (m *mockForkRepo) Create(ctx context.Context, fork *secondary.ForkRecord) error {
	now := time.Now().UTC()
	if fork.CreatedAt.IsZero() {
		fork.CreatedAt = now
	}
	if fork.UpdatedAt.IsZero() {
		fork.UpdatedAt = now
	}
	cp := *fork
	m.forks[fork.ID] = &cp
	return nil
}

func (m *mockForkRepo) GetByID(ctx context.Context, id string) (*secondary.ForkRecord, error) {
	r, ok := m.forks[id]
	if !ok {
		return nil, fmt.Errorf("fork %s: %w", id, secondary.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *mockForkRepo) GetRunningForSource(ctx context.Context, userID, sourceProjectID string) (*secondary.ForkRecord, error) {
	for _, r := range m.forks {
		if r.UserID == userID && r.SourceProjectID == sourceProjectID && r.Status == "running" {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockForkRepo) ListRunning(ctx context.Context) ([]*secondary.ForkRecord, error) {
	var out []*secondary.ForkRecord
	for _, r := range m.forks {
		if r.Status == "running" {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockForkRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*secondary.ForkRecord, error) {
	var out []*secondary.ForkRecord
	for _, r := range m.forks {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockForkRepo) SetTotalFiles(ctx context.Context, id string, total int) error {
	if r, ok := m.forks[id]; ok {
		r.TotalFiles = total
	}
	return nil
}

func (m *mockForkRepo) CommitBatch(ctx context.Context, id string, files []*secondary.FileRecordRow, cursor string, processed, progress int) error {
	r, ok := m.forks[id]
	if !ok || r.Status != "running" {
		return fmt.Errorf("fork %s is no longer running: %w", id, secondary.ErrConflict)
	}
	for _, f := range files {
		if err := m.files.Create(ctx, f); err != nil {
			return err
		}
	}
	r.CurrentFileID = cursor
	r.ProcessedFiles = processed
	r.Progress = progress
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockForkRepo) SetStatus(ctx context.Context, id, status, errMsg string) error {
	r, ok := m.forks[id]
	if !ok || r.Status != "running" {
		return fmt.Errorf("fork %s is not running: %w", id, secondary.ErrConflict)
	}
	r.Status = status
	r.ErrMsg = errMsg
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockForkRepo) GetNextID(ctx context.Context) (string, error) {
	m.nextID++
	return fmt.Sprintf("FORK-%06d", m.nextID), nil
}

var _ secondary.FileRepository = (*mockFileRepo)(nil)

type mockFileRepo struct {
	rows   map[string]*secondary.FileRecordRow
	nextID int
}

func newMockFileRepo() *mockFileRepo {
	return &mockFileRepo{rows: make(map[string]*secondary.FileRecordRow)}
}

// addFile seeds a live row directly, advancing the ID sequence.
func (m *mockFileRepo) addFile(projectID, parentID, name, fileKey string, isDir bool) *secondary.FileRecordRow {
	m.nextID++
	now := time.Now().UTC()
	f := &secondary.FileRecordRow{
		ID:        fmt.Sprintf("FILE-%06d", m.nextID),
		ProjectID: projectID,
		ParentID:  parentID,
		Name:      name,
		FileKey:   fileKey,
		IsDir:     isDir,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.rows[f.ID] = f
	return f
}

func (m *mockFileRepo) Create(ctx context.Context, file *secondary.FileRecordRow) error {
	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	if file.UpdatedAt.IsZero() {
		file.UpdatedAt = now
	}
	cp := *file
	m.rows[file.ID] = &cp
	var seq int
	if _, err := fmt.Sscanf(file.ID, "FILE-%06d", &seq); err == nil && seq > m.nextID {
		m.nextID = seq
	}
	return nil
}

func (m *mockFileRepo) GetByID(ctx context.Context, id string) (*secondary.FileRecordRow, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, secondary.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *mockFileRepo) CountByProject(ctx context.Context, projectID string) (int, error) {
	count := 0
	for _, r := range m.rows {
		if r.ProjectID == projectID && r.DeletedAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *mockFileRepo) ListPageAfter(ctx context.Context, projectID, afterID string, limit int) ([]*secondary.FileRecordRow, error) {
	var out []*secondary.FileRecordRow
	for _, r := range m.rows {
		if r.ProjectID == projectID && r.ID > afterID && r.DeletedAt == nil {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockFileRepo) ListChildren(ctx context.Context, parentID string) ([]*secondary.FileRecordRow, error) {
	var out []*secondary.FileRecordRow
	for _, r := range m.rows {
		if r.ParentID == parentID && r.DeletedAt == nil {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockFileRepo) ListDuplicateKeys(ctx context.Context, scope secondary.DedupScope, limit int) ([]secondary.DuplicateKey, error) {
	counts := make(map[string]int)
	for _, r := range m.rows {
		if r.DeletedAt != nil {
			continue
		}
		if scope.ProjectID != "" && r.ProjectID != scope.ProjectID {
			continue
		}
		if scope.FileKey != "" && r.FileKey != scope.FileKey {
			continue
		}
		counts[r.ProjectID+"\x00"+r.FileKey]++
	}
	var keys []secondary.DuplicateKey
	for k, n := range counts {
		if n > 1 {
			parts := strings.SplitN(k, "\x00", 2)
			keys = append(keys, secondary.DuplicateKey{ProjectID: parts[0], FileKey: parts[1], Count: n})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ProjectID != keys[j].ProjectID {
			return keys[i].ProjectID < keys[j].ProjectID
		}
		return keys[i].FileKey < keys[j].FileKey
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (m *mockFileRepo) ListByKey(ctx context.Context, projectID, fileKey string) ([]*secondary.FileRecordRow, error) {
	var out []*secondary.FileRecordRow
	for _, r := range m.rows {
		if r.ProjectID == projectID && r.FileKey == fileKey {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockFileRepo) MergeKey(ctx context.Context, survivorID string, supersededIDs []string, repairIsDir, isDir bool) (int, error) {
	superseded := make(map[string]bool, len(supersededIDs))
	for _, id := range supersededIDs {
		superseded[id] = true
	}
	if repairIsDir {
		if r, ok := m.rows[survivorID]; ok {
			r.IsDir = isDir
		}
	}
	repointed := 0
	for _, r := range m.rows {
		if superseded[r.ParentID] && r.DeletedAt == nil {
			r.ParentID = survivorID
			repointed++
		}
	}
	now := time.Now().UTC()
	for id := range superseded {
		if r, ok := m.rows[id]; ok {
			r.DeletedAt = &now
		}
	}
	return repointed, nil
}

func (m *mockFileRepo) GetNextID(ctx context.Context) (string, error) {
	return fmt.Sprintf("FILE-%06d", m.nextID+1), nil
}

var _ secondary.SandboxClient = (*mockSandboxClient)(nil)

type mockSandboxClient struct {
	startErr  error
	sessionID string
	requests  []secondary.StartTaskRequest
}

func newMockSandboxClient() *mockSandboxClient {
	return &mockSandboxClient{sessionID: "sess-1"}
}

func (m *mockSandboxClient) StartTask(ctx context.Context, req secondary.StartTaskRequest) (*secondary.StartTaskResult, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.requests = append(m.requests, req)
	return &secondary.StartTaskResult{
		SandboxTaskID: "sbx-" + req.TaskID,
		SessionID:     m.sessionID,
	}, nil
}

var _ secondary.CrontabClient = (*mockCrontabClient)(nil)

type mockCrontabClient struct {
	registerErr  error
	nextTrigger  int
	registered   map[string]secondary.RegisterTriggerRequest
	unregistered []string
}

func newMockCrontabClient() *mockCrontabClient {
	return &mockCrontabClient{registered: make(map[string]secondary.RegisterTriggerRequest)}
}

func (m *mockCrontabClient) RegisterTrigger(ctx context.Context, req secondary.RegisterTriggerRequest) (string, error) {
	if m.registerErr != nil {
		return "", m.registerErr
	}
	m.nextTrigger++
	id := fmt.Sprintf("trig-%03d", m.nextTrigger)
	m.registered[id] = req
	return id, nil
}

func (m *mockCrontabClient) UnregisterTrigger(ctx context.Context, triggerID string) error {
	delete(m.registered, triggerID)
	m.unregistered = append(m.unregistered, triggerID)
	return nil
}

var _ secondary.Notifier = (*mockNotifier)(nil)

type mockNotifier struct {
	taskEvents []secondary.TaskStatusEvent
	forkEvents []secondary.ForkProgressEvent
}

func newMockNotifier() *mockNotifier { return &mockNotifier{} }

func (m *mockNotifier) PublishTaskStatus(ctx context.Context, event secondary.TaskStatusEvent) {
	m.taskEvents = append(m.taskEvents, event)
}

func (m *mockNotifier) PublishForkProgress(ctx context.Context, event secondary.ForkProgressEvent) {
	m.forkEvents = append(m.forkEvents, event)
}

var _ secondary.LogWriter = (*mockLogWriter)(nil)

type mockLogWriter struct {
	creates int
	updates int
	deletes int
}

func newMockLogWriter() *mockLogWriter { return &mockLogWriter{} }

func (m *mockLogWriter) LogCreate(ctx context.Context, entityType, entityID string) error {
	m.creates++
	return nil
}

func (m *mockLogWriter) LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error {
	m.updates++
	return nil
}

func (m *mockLogWriter) LogDelete(ctx context.Context, entityType, entityID string) error {
	m.deletes++
	return nil
}
