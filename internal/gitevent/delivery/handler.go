package delivery

import (
	"net/http"
	"time"

	"pollux-backend/internal/gitevent/usecase"

	"github.com/gin-gonic/gin"
)

const (
	sinceLayout      = "2006-01-02"
	defaultQueryDays = 30
)

type GitEventHandler struct {
	syncUsecase usecase.SyncUsecase
	devMode     bool
}

func NewGitEventHandler(syncUsecase usecase.SyncUsecase, devMode bool) *GitEventHandler {
	return &GitEventHandler{
		syncUsecase: syncUsecase,
		devMode:     devMode,
	}
}

// GetGitEvents returns stored events since the given date (default: 30 days)
func (h *GitEventHandler) GetGitEvents(c *gin.Context) {
	since := time.Now().UTC().AddDate(0, 0, -defaultQueryDays)

	if sinceStr := c.Query("since"); sinceStr != "" {
		parsed, err := time.Parse(sinceLayout, sinceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be formatted as YYYY-MM-DD"})
			return
		}
		since = parsed
	}

	events, err := h.syncUsecase.EventsSince(since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, events)
}

// ForceSync triggers one cycle for all platforms. Only available in
// development mode; the response stays generic either way.
func (h *GitEventHandler) ForceSync(c *gin.Context) {
	if !h.devMode {
		c.JSON(http.StatusForbidden, gin.H{"error": "force sync is only available in development mode"})
		return
	}

	if err := h.syncUsecase.SyncAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed, see logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "sync completed"})
}
