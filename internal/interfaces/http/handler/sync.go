package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/catalog"
	"github.com/netesim/backend/internal/interfaces/http/dto"
)

// Synchronizer runs catalog sync passes and reports past runs
type Synchronizer interface {
	Run(ctx context.Context) (*catalog.SyncOutcome, error)
	RecentLogs(ctx context.Context, limit int) ([]catalog.SyncLogEntry, error)
}

// SyncHandler exposes manual sync triggering and the sync run history
type SyncHandler struct {
	BaseHandler
	sync   Synchronizer
	logger *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sync Synchronizer, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{
		sync:   sync,
		logger: logger,
	}
}

// TriggerSync runs a catalog sync pass and returns its outcome. A run
// already in flight answers 409 instead of queueing a second pass.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	outcome, err := h.sync.Run(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrSyncAlreadyRunning):
			h.Conflict(c, "A sync run is already in progress")
		case errors.Is(err, catalog.ErrSourceUnavailable),
			errors.Is(err, catalog.ErrSourceInvalidResponse):
			h.BadGateway(c, "Vendor catalog is unavailable")
		default:
			h.logger.Error("manual sync failed", zap.Error(err))
			h.InternalError(c, "Sync run failed")
		}
		return
	}

	h.Success(c, dto.NewSyncOutcomeResponse(outcome))
}

// ListSyncLogs returns recent sync run records, newest first
func (h *SyncHandler) ListSyncLogs(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))

	entries, err := h.sync.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.NewSyncLogResponses(entries))
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("", h.TriggerSync)
		sync.GET("/logs", h.ListSyncLogs)
	}
}

// parseLimit parses a limit query parameter, returning 0 (service default)
// when absent or malformed
func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
