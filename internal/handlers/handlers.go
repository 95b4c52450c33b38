package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "courtsync/internal/errors"
	"courtsync/internal/logger"
	"courtsync/internal/models"
	"courtsync/internal/search"

	"github.com/gin-gonic/gin"
)

// CourtSyncer is what the court endpoints need from the court reconciler.
type CourtSyncer interface {
	Sync(ctx context.Context, activeOnly, dryRun bool) (*models.SyncStats, error)
	PreviewSync(ctx context.Context, activeOnly bool) (*models.SyncStats, error)
	IsCourtSyncedWithAyo(ctx context.Context, courtID int64) (bool, error)
	GetAyoFieldID(ctx context.Context, courtID int64) (*string, error)
	GetCourtByAyoFieldID(ctx context.Context, fieldID string) (*models.Court, error)
}

type BookingSyncer interface {
	Sync(ctx context.Context, filters map[string]string) (*models.SyncStats, error)
}

// RunHistory serves past runs from the audit index.
type RunHistory interface {
	RecentRuns(ctx context.Context, kind string, size int) ([]search.RunDocument, error)
}

type Handlers struct {
	courts   CourtSyncer
	bookings BookingSyncer
	runs     RunHistory
	logger   *slog.Logger
}

// NewHandlers wires the sync endpoints. runs may be nil when the audit index
// is disabled.
func NewHandlers(courts CourtSyncer, bookings BookingSyncer, runs RunHistory, log *slog.Logger) *Handlers {
	return &Handlers{
		courts:   courts,
		bookings: bookings,
		runs:     runs,
		logger:   log,
	}
}

func (h *Handlers) log(c *gin.Context) *slog.Logger {
	return logger.From(c.Request.Context(), h.logger)
}

// syncStatus maps a reconciler error to the HTTP status of the response.
func syncStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, apperrors.ErrSyncInProgress):
		return http.StatusConflict
	case apperrors.IsRemote(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondStats always sends the stats, whatever the outcome.
func (h *Handlers) respondStats(c *gin.Context, stats *models.SyncStats, err error) {
	if stats == nil {
		stats = models.NewSyncStats()
		stats.Fail(err)
	}
	if err != nil {
		h.log(c).Error("Sync request failed", "path", c.FullPath(), "error", err)
		_ = c.Error(err)
	}
	c.JSON(syncStatus(err), stats)
}

// queryBool reads a boolean query parameter, def when absent.
func queryBool(c *gin.Context, name string, def bool) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, errors.New(name + " must be a boolean")
	}
	return v, nil
}
