package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListRuns - GET /api/sync/runs?kind=&size=
// Последние запуски синхронизации из Elasticsearch
func (h *Handlers) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sync history is not enabled"})
		return
	}

	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if size < 1 || size > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 1 and 100"})
		return
	}

	runs, err := h.runs.RecentRuns(c.Request.Context(), c.Query("kind"), size)
	if err != nil {
		h.log(c).Error("Failed to list sync runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sync runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
