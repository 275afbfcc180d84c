package app

import (
	"context"
	"fmt"

	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
)

// TopicServiceImpl implements the TopicService interface.
type TopicServiceImpl struct {
	topicRepo secondary.TopicRepository
	logWriter secondary.LogWriter
}

// NewTopicService creates a new TopicService with injected dependencies.
func NewTopicService(topicRepo secondary.TopicRepository, logWriter secondary.LogWriter) *TopicServiceImpl {
	return &TopicServiceImpl{
		topicRepo: topicRepo,
		logWriter: logWriter,
	}
}

// CreateTopic creates a new topic in a project.
func (s *TopicServiceImpl) CreateTopic(ctx context.Context, req primary.CreateTopicRequest) (*models.Topic, error) {
	if req.ProjectID == "" {
		return nil, fmt.Errorf("project ID must not be empty")
	}

	nextID, err := s.topicRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate topic ID: %w", err)
	}

	record := &secondary.TopicRecord{
		ID:        nextID,
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Title:     req.Title,
	}
	if err := s.topicRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	_ = s.logWriter.LogCreate(ctx, "topic", nextID)

	created, err := s.topicRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created topic: %w", err)
	}
	return recordToTopic(created), nil
}

// GetTopic retrieves a topic by ID.
func (s *TopicServiceImpl) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	record, err := s.topicRepo.GetByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	return recordToTopic(record), nil
}

// ListTopics lists topics with optional filters.
func (s *TopicServiceImpl) ListTopics(ctx context.Context, filters primary.TopicFilters) ([]*models.Topic, error) {
	records, err := s.topicRepo.List(ctx, secondary.TopicFilters{
		ProjectID: filters.ProjectID,
		UserID:    filters.UserID,
		Limit:     filters.Limit,
	})
	if err != nil {
		return nil, err
	}

	topics := make([]*models.Topic, 0, len(records))
	for _, r := range records {
		topics = append(topics, recordToTopic(r))
	}
	return topics, nil
}
