package api

import (
	"pollux-backend/internal/gitevent/usecase"
	"pollux-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	syncUsecase usecase.SyncUsecase
	config      *config.Config
}

func NewHandler(syncUsecase usecase.SyncUsecase, cfg *config.Config) *Handler {
	return &Handler{
		syncUsecase: syncUsecase,
		config:      cfg,
	}
}

func (h *Handler) Start(addr string) error {
	if !h.config.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.syncUsecase, h.config)

	return r.Run(addr)
}
