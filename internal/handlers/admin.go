package handlers

import (
	"context"
	"net/http"
	"time"

	"rental-portal/internal/cleanup"
	"rental-portal/internal/config"
	"rental-portal/internal/integrity"
	"rental-portal/internal/ratelimit"
	"rental-portal/internal/scheduler"
	"rental-portal/internal/snapshot"
	"rental-portal/internal/stats"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	stats     *stats.Service
	snapshots *snapshot.Service
	cleanup   *cleanup.Service
	auditor   *integrity.Auditor
	scheduler *scheduler.Scheduler
	limiter   *ratelimit.RateLimiter
	cfg       config.CleanupConfig
	log       *zap.Logger
}

// AdminDeps are the services behind the admin endpoints
type AdminDeps struct {
	Stats     *stats.Service
	Snapshots *snapshot.Service
	Cleanup   *cleanup.Service
	Auditor   *integrity.Auditor
	Scheduler *scheduler.Scheduler
	Limiter   *ratelimit.RateLimiter
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(d AdminDeps, cfg config.CleanupConfig, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		stats:     d.Stats,
		snapshots: d.Snapshots,
		cleanup:   d.Cleanup,
		auditor:   d.Auditor,
		scheduler: d.Scheduler,
		limiter:   d.Limiter,
		cfg:       cfg,
		log:       log,
	}
}

// GetStats returns catalog, booking and deletion statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	summary, err := h.stats.Summary(ctx)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := gin.H{"summary": summary}
	deleteStats, err := h.cleanup.GetDeleteStats(ctx, h.cfg.RetentionDays)
	if err != nil {
		h.log.Warn("failed to get delete stats", zap.Error(err))
	} else {
		resp["deletions"] = deleteStats
	}
	c.JSON(http.StatusOK, resp)
}

// GetRentDistribution returns unit counts per rent band
func (h *AdminHandler) GetRentDistribution(c *gin.Context) {
	bands, err := h.stats.RentDistribution(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"distribution": bands})
}

// GetTypeStats returns property counts per property type
func (h *AdminHandler) GetTypeStats(c *gin.Context) {
	types, err := h.stats.ByPropertyType(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property_types": types, "count": len(types)})
}

// GetPropertyHistory returns snapshot history for a property
func (h *AdminHandler) GetPropertyHistory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	snapshots, err := h.snapshots.History(c.Request.Context(), id, limitQuery(c, 30, 365))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"property_id": id,
		"snapshots":   snapshots,
		"count":       len(snapshots),
	})
}

// GetRecentChanges returns the latest snapshots that recorded a change
func (h *AdminHandler) GetRecentChanges(c *gin.Context) {
	changes, err := h.snapshots.RecentChanges(c.Request.Context(), limitQuery(c, 100, 1000))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}

type cleanupRequest struct {
	RetentionDays    int   `json:"retention_days"`
	MaxDeletionCount int   `json:"max_deletion_count"`
	DryRun           *bool `json:"dry_run"` // defaults to true
}

// RunCleanup purges expired bookings. It is a dry run unless dry_run is false.
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req cleanupRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	cfg := h.cfg
	if req.RetentionDays > 0 {
		cfg.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		cfg.MaxDeletionCount = req.MaxDeletionCount
	}
	cfg.DryRun = req.DryRun == nil || *req.DryRun

	h.log.Info("manual cleanup requested",
		zap.Int("retention_days", cfg.RetentionDays),
		zap.Int("max_deletion_count", cfg.MaxDeletionCount),
		zap.Bool("dry_run", cfg.DryRun),
	)

	result, err := h.cleanup.Purge(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDeleteLogs returns recent delete log entries
func (h *AdminHandler) GetDeleteLogs(c *gin.Context) {
	logs, err := h.cleanup.RecentDeleteLogs(c.Request.Context(), limitQuery(c, 100, 1000))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// RunAudit checks the occupancy invariant across all units
func (h *AdminHandler) RunAudit(c *gin.Context) {
	report, err := h.auditor.Audit(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// TriggerJob starts a maintenance job in the background
func (h *AdminHandler) TriggerJob(c *gin.Context) {
	if h.scheduler == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody("unavailable", "scheduler not available"))
		return
	}
	name := c.Param("name")
	found := false
	for _, j := range h.scheduler.Jobs() {
		if j == name {
			found = true
			break
		}
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody("not_found", "job "+name+" not found"))
		return
	}

	h.log.Info("manual job trigger requested", zap.String("job", name))

	// Run in goroutine to avoid blocking
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		_ = h.scheduler.RunNow(ctx, name)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"job":    name,
		"status": "running",
	})
}

// GetRateLimitStats returns the booking limiter state for ?identity=
func (h *AdminHandler) GetRateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.limiter.GetStats(c.Query("identity")))
}
