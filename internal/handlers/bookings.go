package handlers

import (
	"net/http"

	"courtsync/internal/models"
	"courtsync/internal/service"

	"github.com/gin-gonic/gin"
)

// SyncBookings - POST /api/sync/bookings
// Синхронизировать бронирования AYO. Фильтры из JSON тела или query string.
func (h *Handlers) SyncBookings(c *gin.Context) {
	var req models.SyncBookingsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := service.WithTrigger(c.Request.Context(), models.TriggerAPI)
	stats, err := h.bookings.Sync(ctx, req.Filters())
	h.respondStats(c, stats, err)
}
