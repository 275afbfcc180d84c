// Package wire provides dependency injection for the Atelier application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"os"
	"sync"

	"github.com/example/atelier/internal/adapters/crontab"
	"github.com/example/atelier/internal/adapters/notify"
	"github.com/example/atelier/internal/adapters/sandbox"
	"github.com/example/atelier/internal/adapters/sqlite"
	"github.com/example/atelier/internal/app"
	"github.com/example/atelier/internal/config"
	"github.com/example/atelier/internal/db"
	"github.com/example/atelier/internal/ports/primary"
)

var (
	cfg             *config.Config
	taskService     primary.TaskService
	topicService    primary.TopicService
	queueService    primary.QueueService
	scheduleService primary.ScheduleService
	forkService     primary.ForkService
	dedupService    primary.DedupService
	runner          *app.Runner
	once            sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// TaskService returns the singleton TaskService instance.
func TaskService() primary.TaskService {
	once.Do(initServices)
	return taskService
}

// TopicService returns the singleton TopicService instance.
func TopicService() primary.TopicService {
	once.Do(initServices)
	return topicService
}

// QueueService returns the singleton QueueService instance.
func QueueService() primary.QueueService {
	once.Do(initServices)
	return queueService
}

// ScheduleService returns the singleton ScheduleService instance.
func ScheduleService() primary.ScheduleService {
	once.Do(initServices)
	return scheduleService
}

// ForkService returns the singleton ForkService instance.
func ForkService() primary.ForkService {
	once.Do(initServices)
	return forkService
}

// DedupService returns the singleton DedupService instance.
func DedupService() primary.DedupService {
	once.Do(initServices)
	return dedupService
}

// Runner returns the singleton background-worker runner.
func Runner() *app.Runner {
	once.Do(initServices)
	return runner
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to resolve working directory: %v", err)
	}
	cfg, err = config.Load(cwd)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.DBPath != "" {
		db.SetPath(cfg.DBPath)
	}
	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Repository adapters (secondary ports).
	taskRepo := sqlite.NewTaskRepository(database)
	topicRepo := sqlite.NewTopicRepository(database)
	messageRepo := sqlite.NewMessageRepository(database)
	scheduleRepo := sqlite.NewScheduleRepository(database)
	forkRepo := sqlite.NewForkRepository(database)
	fileRepo := sqlite.NewFileRepository(database)
	logWriter := sqlite.NewLogWriter(database)

	// External-system adapters.
	sandboxClient := sandbox.NewClient(cfg.SandboxURL, cfg.HTTPTimeout())
	crontabClient := crontab.NewClient(cfg.CrontabURL, cfg.HTTPTimeout())
	notifier := notify.NewPublisher(cfg.NotifyURL, cfg.HTTPTimeout())

	// Services (primary ports implementation).
	taskService = app.NewTaskService(taskRepo, topicRepo, notifier, logWriter)
	topicService = app.NewTopicService(topicRepo, logWriter)
	queueService = app.NewQueueService(messageRepo, topicRepo, taskRepo,
		sandboxClient, notifier, logWriter, cfg.PollLimit)
	scheduleService = app.NewScheduleService(scheduleRepo, queueService, crontabClient, logWriter)
	forkService = app.NewForkService(forkRepo, fileRepo, topicRepo, notifier, logWriter, cfg.ForkBatchSize)
	dedupService = app.NewDedupService(fileRepo, logWriter, cfg.DedupBatchSize)

	runner = app.NewRunner(queueService, taskService, forkService, forkRepo, app.RunnerConfig{
		PollInterval:   cfg.PollInterval(),
		ReapInterval:   cfg.ReapInterval(),
		StaleThreshold: cfg.StaleThreshold(),
	})
}
