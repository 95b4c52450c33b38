package handlers

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "courtsync/internal/errors"
	"courtsync/internal/models"
	"courtsync/internal/service"

	"github.com/gin-gonic/gin"
)

// SyncCourts - POST /api/sync/courts
// Синхронизировать корты с полями AYO
func (h *Handlers) SyncCourts(c *gin.Context) {
	activeOnly, err := queryBool(c, "active_only", true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dryRun, err := queryBool(c, "dry_run", false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := service.WithTrigger(c.Request.Context(), models.TriggerAPI)
	stats, err := h.courts.Sync(ctx, activeOnly, dryRun)
	h.respondStats(c, stats, err)
}

// PreviewCourts - GET /api/sync/courts/preview
// Показать, что изменит синхронизация, ничего не записывая
func (h *Handlers) PreviewCourts(c *gin.Context) {
	activeOnly, err := queryBool(c, "active_only", true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := service.WithTrigger(c.Request.Context(), models.TriggerAPI)
	stats, err := h.courts.PreviewSync(ctx, activeOnly)
	h.respondStats(c, stats, err)
}

// GetCourtAyoLink - GET /api/courts/:id/ayo
func (h *Handlers) GetCourtAyoLink(c *gin.Context) {
	courtID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || courtID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid court id"})
		return
	}

	fieldID, err := h.courts.GetAyoFieldID(c.Request.Context(), courtID)
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Court not found"})
		return
	}
	if err != nil {
		h.log(c).Error("Failed to get court AYO link", "court_id", courtID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get court"})
		return
	}

	c.JSON(http.StatusOK, models.CourtAyoResponse{
		CourtID:    courtID,
		Synced:     fieldID != nil,
		AyoFieldID: fieldID,
	})
}

// GetCourtByAyoField - GET /api/courts/by-ayo-field/:field_id
func (h *Handlers) GetCourtByAyoField(c *gin.Context) {
	fieldID := c.Param("field_id")

	court, err := h.courts.GetCourtByAyoFieldID(c.Request.Context(), fieldID)
	if err != nil {
		h.log(c).Error("Failed to get court by AYO field", "ayo_field_id", fieldID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get court"})
		return
	}
	if court == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No court linked to this AYO field"})
		return
	}

	c.JSON(http.StatusOK, court)
}
