package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/interfaces/http/dto"
)

// vendorHealthTimeout caps how long a health probe may hold the request
const vendorHealthTimeout = 10 * time.Second

// Pinger checks database connectivity
type Pinger interface {
	Ping() error
}

// VendorChecker verifies the vendor session is usable
type VendorChecker interface {
	CheckAndRefresh(ctx context.Context) error
}

// HealthStatus reports the health of one dependency
type HealthStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the aggregate health report
type HealthResponse struct {
	Status  string                  `json:"status"`
	Checks  map[string]HealthStatus `json:"checks"`
	AppName string                  `json:"app_name,omitempty"`
}

// SystemHandler exposes health and service metadata endpoints
type SystemHandler struct {
	BaseHandler
	db      Pinger
	vendor  VendorChecker
	appName string
	logger  *zap.Logger
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, vendor VendorChecker, appName string, logger *zap.Logger) *SystemHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemHandler{
		db:      db,
		vendor:  vendor,
		appName: appName,
		logger:  logger,
	}
}

// Health reports readiness. The vendor check forces a token refresh when the
// session is stale, so a healthy answer means orders can actually be
// fulfilled right now.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:  "ok",
		Checks:  make(map[string]HealthStatus),
		AppName: h.appName,
	}

	if err := h.db.Ping(); err != nil {
		resp.Status = "degraded"
		resp.Checks["database"] = HealthStatus{Status: "down", Error: err.Error()}
		h.logger.Warn("health check: database unreachable", zap.Error(err))
	} else {
		resp.Checks["database"] = HealthStatus{Status: "ok"}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), vendorHealthTimeout)
	defer cancel()

	if err := h.vendor.CheckAndRefresh(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checks["vendor"] = HealthStatus{Status: "down", Error: err.Error()}
		h.logger.Warn("health check: vendor session unusable", zap.Error(err))
	} else {
		resp.Checks["vendor"] = HealthStatus{Status: "ok"}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.NewSuccessResponse(resp))
}

// RegisterRoutes registers system routes on the root group
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}
