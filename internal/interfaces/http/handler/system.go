package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payin/backend/internal/infrastructure/scheduler"
	"github.com/payin/backend/internal/interfaces/http/dto"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime   time.Time
	sweepRunner *scheduler.SweepRunner
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(sweepRunner *scheduler.SweepRunner) *SystemHandler {
	return &SystemHandler{
		startTime:   time.Now(),
		sweepRunner: sweepRunner,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"PayIn Backend API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo returns basic system information including version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "PayIn Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping is a simple endpoint to check if the API is responsive
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// GetSweepStatus reports the state of the stale-request sweep job
func (h *SystemHandler) GetSweepStatus(c *gin.Context) {
	h.Success(c, h.sweepRunner.GetStatus())
}

// TriggerSweep runs one sweep pass immediately
func (h *SystemHandler) TriggerSweep(c *gin.Context) {
	stats, err := h.sweepRunner.TriggerManualRun(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stats)
}

// RegisterRoutes registers all system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", h.GetSystemInfo)
		system.GET("/ping", h.Ping)
		system.GET("/sweep", h.GetSweepStatus)
		system.POST("/sweep/run", h.TriggerSweep)
	}
}
