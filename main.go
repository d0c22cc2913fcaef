package main

import (
	"log"

	api "pollux-backend/cmd/api"
	"pollux-backend/internal/gitevent/domain"
	"pollux-backend/internal/gitevent/repository"
	"pollux-backend/internal/gitevent/scheduler"
	"pollux-backend/internal/gitevent/usecase"
	"pollux-backend/pkg/config"
	"pollux-backend/pkg/database"
	"pollux-backend/pkg/github"
	"pollux-backend/pkg/gitlab"
	"pollux-backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.DevMode)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	// Initialize database (retries with exponential backoff)
	db, err := database.NewPostgresConnection(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&domain.GitPlatform{}, &domain.GitProject{}, &domain.GitAction{}, &domain.Event{}, &domain.GitEvent{}); err != nil {
		zapLogger.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize repository and platform adapters (dependency injection)
	gitEventRepo := repository.NewGitEventRepository(db, zapLogger)
	githubClient := github.NewClient(cfg.GithubAPIToken, cfg.GithubUsername, zapLogger)
	gitlabClient := gitlab.NewClient(cfg.GitlabAPIToken, cfg.GitlabUserID, zapLogger)

	adapters := []usecase.PlatformAdapter{githubClient, gitlabClient}
	syncUsecase := usecase.NewSyncUsecase(gitEventRepo, adapters, cfg.SyncTimeout, zapLogger)

	// Start the periodic sync loop
	syncScheduler := scheduler.NewSyncScheduler(syncUsecase, cfg.ResyncInterval, zapLogger)
	syncScheduler.Start()
	defer syncScheduler.Stop()

	// Initialize HTTP handler and start server
	handler := api.NewHandler(syncUsecase, cfg)

	zapLogger.Info("server starting", zap.String("port", cfg.Port))
	if err := handler.Start(":" + cfg.Port); err != nil {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
}
