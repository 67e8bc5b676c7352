package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Fn-M/HousingManager/internal/cleanup"
	"github.com/Fn-M/HousingManager/internal/scheduler"
	"github.com/gin-gonic/gin"
)

// GetStats returns system statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"listings": h.Service.Stats(time.Now()),
	}
	if h.Limiter != nil {
		stats["rate_limit"] = h.Limiter.GetStats()
	}
	if h.Scheduler != nil {
		stats["scheduler"] = h.Scheduler.Status()
	}

	// Delete logs statistics
	if h.Cleanup != nil {
		deleteStats, err := h.Cleanup.GetDeleteStats(c.Request.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to get delete stats")
		} else {
			stats["deletions"] = deleteStats
		}
	}

	c.JSON(http.StatusOK, stats)
}

// TriggerRefresh manually triggers a listing refresh
func (h *Handler) TriggerRefresh(c *gin.Context) {
	if h.Scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Scheduler not available",
		})
		return
	}
	if h.Scheduler.Status().Running {
		c.JSON(http.StatusConflict, gin.H{"error": "A refresh is already running"})
		return
	}

	h.logger.Info().Msg("manual refresh trigger requested")

	// Run in goroutine to avoid blocking
	go func() {
		if err := h.Scheduler.RunNow(); err != nil && !errors.Is(err, scheduler.ErrAlreadyRunning) {
			h.logger.Error().Err(err).Msg("manual refresh failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Refresh job started",
		"status":  "running",
	})
}

// GetRefreshStatus returns the scheduler status
func (h *Handler) GetRefreshStatus(c *gin.Context) {
	if h.Scheduler == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":       "disabled",
			"last_refresh": h.Service.LastRefresh(),
		})
		return
	}
	st := h.Scheduler.Status()
	status := "idle"
	if st.Running {
		status = "running"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"scheduler":    st,
		"last_refresh": h.Service.LastRefresh(),
	})
}

// RunCleanup prunes change and delete logs older than the retention window
func (h *Handler) RunCleanup(c *gin.Context) {
	if h.Cleanup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Cleanup is not available (requires MySQL/GORM)",
		})
		return
	}

	var req cleanup.Config
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg := req.WithDefaults()

	h.logger.Info().
		Int("retention_days", cfg.RetentionDays).
		Int("max", cfg.MaxDeletionCount).
		Bool("dry_run", cfg.DryRun).
		Msg("running cleanup")

	result, err := h.Cleanup.Prune(c.Request.Context(), cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("cleanup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDeleteLogs returns recent delete log entries
func (h *Handler) GetDeleteLogs(c *gin.Context) {
	if h.Deletions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Delete logs are not available (requires MySQL/GORM)",
		})
		return
	}

	logs, err := h.Deletions.RecentDeletions(c.Request.Context(), queryLimit(c, 100, 1000))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// Reindex pushes the whole store to the search index
func (h *Handler) Reindex(c *gin.Context) {
	if h.Search == nil {
		unavailable(c, "Search")
		return
	}

	listings := h.Service.Store().All()
	if err := h.Search.IndexListings(listings, nil); err != nil {
		h.logger.Error().Err(err).Msg("reindex failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reindex completed",
		"indexed": len(listings),
	})
}
