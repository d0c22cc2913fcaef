package api

import (
	"net/http"

	"pollux-backend/internal/gitevent/delivery"
	"pollux-backend/internal/gitevent/usecase"
	"pollux-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, syncUsecase usecase.SyncUsecase, cfg *config.Config) {
	gitEventHandler := delivery.NewGitEventHandler(syncUsecase, cfg.DevMode)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.GET("/force-sync", gitEventHandler.ForceSync)
		api.GET("/git-events", gitEventHandler.GetGitEvents)
	}
}
