package app

import (
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/secondary"
)

// Converters between persistence records and domain models. Services
// return models; repositories speak records.

func recordToTask(r *secondary.TaskRecord) *models.Task {
	return &models.Task{
		ID:            r.ID,
		TopicID:       r.TopicID,
		ProjectID:     r.ProjectID,
		SandboxTaskID: r.SandboxTaskID,
		Status:        models.TaskStatus(r.Status),
		ErrMsg:        r.ErrMsg,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		DeletedAt:     r.DeletedAt,
	}
}

func recordToTopic(r *secondary.TopicRecord) *models.Topic {
	return &models.Topic{
		ID:                r.ID,
		ProjectID:         r.ProjectID,
		UserID:            r.UserID,
		Title:             r.Title,
		CurrentTaskID:     r.CurrentTaskID,
		CurrentTaskStatus: models.TaskStatus(r.CurrentTaskStatus),
		SandboxSessionID:  r.SandboxSessionID,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		DeletedAt:         r.DeletedAt,
	}
}

func recordToMessage(r *secondary.MessageRecord) *models.QueuedMessage {
	return &models.QueuedMessage{
		ID:                r.ID,
		TopicID:           r.TopicID,
		ProjectID:         r.ProjectID,
		UserID:            r.UserID,
		Payload:           r.Payload,
		Status:            models.MessageStatus(r.Status),
		ExceptExecuteTime: r.ExceptExecuteTime,
		ErrMsg:            r.ErrMsg,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		DeletedAt:         r.DeletedAt,
	}
}

func recordToSchedule(r *secondary.ScheduleRecord) *models.MessageSchedule {
	return &models.MessageSchedule{
		ID:               r.ID,
		UserID:           r.UserID,
		TopicID:          r.TopicID,
		ProjectID:        r.ProjectID,
		WorkspaceID:      r.WorkspaceID,
		Payload:          r.Payload,
		TimeSpec:         r.TimeSpec,
		OneShot:          r.OneShot,
		Enabled:          r.Enabled,
		Completed:        r.Completed,
		CrontabTriggerID: r.CrontabTriggerID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		DeletedAt:        r.DeletedAt,
	}
}

func recordToFork(r *secondary.ForkRecord) *models.ProjectFork {
	return &models.ProjectFork{
		ID:              r.ID,
		SourceProjectID: r.SourceProjectID,
		ForkProjectID:   r.ForkProjectID,
		WorkspaceID:     r.WorkspaceID,
		UserID:          r.UserID,
		Status:          models.ForkStatus(r.Status),
		Progress:        r.Progress,
		TotalFiles:      r.TotalFiles,
		ProcessedFiles:  r.ProcessedFiles,
		CurrentFileID:   r.CurrentFileID,
		ErrMsg:          r.ErrMsg,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func recordToFile(r *secondary.FileRecordRow) *models.FileRecord {
	return &models.FileRecord{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		TopicID:   r.TopicID,
		ParentID:  r.ParentID,
		Name:      r.Name,
		FileKey:   r.FileKey,
		IsDir:     r.IsDir,
		Sort:      r.Sort,
		Size:      r.Size,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		DeletedAt: r.DeletedAt,
	}
}
