// Package handlers exposes the dashboard over HTTP with gin.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/auth"
	"github.com/Fn-M/HousingManager/internal/cleanup"
	"github.com/Fn-M/HousingManager/internal/dashboard"
	"github.com/Fn-M/HousingManager/internal/logging"
	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/Fn-M/HousingManager/internal/ratelimit"
	"github.com/Fn-M/HousingManager/internal/scheduler"
	"github.com/Fn-M/HousingManager/internal/search"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Searcher is the search index used by /api/search
type Searcher interface {
	FilterSearch(params search.FilterParams) ([]models.Listing, error)
	GetFacets(facets []string) (map[string]any, error)
	IndexListings(listings []models.Listing, removed []string) error
}

// ChangeReader reads the change log
type ChangeReader interface {
	GetRecentChanges(ctx context.Context, limit int) ([]models.ListingChange, error)
	GetListingHistory(ctx context.Context, listingID string, limit int) ([]models.ListingChange, error)
}

// Scheduler triggers and reports refresh jobs
type Scheduler interface {
	RunNow() error
	Status() scheduler.Status
}

// Cleaner prunes the change and delete logs
type Cleaner interface {
	Prune(ctx context.Context, cfg cleanup.Config) (*cleanup.Result, error)
	GetDeleteStats(ctx context.Context) (map[string]any, error)
}

// DeletionReader reads the delete log
type DeletionReader interface {
	RecentDeletions(ctx context.Context, limit int) ([]models.DeleteLog, error)
}

// Deps wires the router. Optional collaborators are left nil when their
// backend is not configured and the matching routes answer 503.
type Deps struct {
	Service *dashboard.Service
	Auth    *auth.Authenticator
	Limiter *ratelimit.RateLimiter

	Search    Searcher
	Changes   ChangeReader
	Scheduler Scheduler
	Cleanup   Cleaner
	Deletions DeletionReader

	AllowOrigins []string
	LogRequests  bool
	Logger       zerolog.Logger
}

// Handler serves the HTTP API
type Handler struct {
	Deps
	logger zerolog.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	h := &Handler{Deps: d, logger: logging.Component(d.Logger, "http")}

	r := gin.New()
	r.Use(gin.Recovery())
	if d.LogRequests {
		r.Use(logging.GinLogger(h.logger))
	}

	origins := d.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", logging.TraceHeader},
		ExposeHeaders:    []string{logging.TraceHeader},
		AllowCredentials: true,
	}))

	h.Register(r)
	return r
}

// Register adds the routes to r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.healthCheck)

	r.POST("/api/login", h.login)
	r.POST("/api/logout", h.logout)

	api := r.Group("/api", h.Auth.RequireUser())
	{
		api.GET("/me", h.me)

		api.GET("/listings", h.getListings)
		api.GET("/listings/:id", h.getListing)
		api.POST("/listings", h.rateLimitMiddleware(), h.addListing)
		api.POST("/listings/refresh", h.rateLimitMiddleware(), h.refreshListings)
		api.DELETE("/listings/:id", h.rateLimitMiddleware(), h.deleteListing)
		api.GET("/listings/:id/history", h.getListingHistory)

		api.GET("/search", h.searchListings)
		api.GET("/search/facets", h.getSearchFacets)
		api.GET("/changes/recent", h.getRecentChanges)
		api.GET("/ratelimit/stats", h.getRateLimitStats)

		view := api.Group("/view")
		view.GET("", h.getView)
		view.DELETE("", h.closeView)
		view.POST("/:id", h.openView)
		view.POST("/carousel/next", h.nextPhoto)
		view.POST("/carousel/prev", h.prevPhoto)
		view.POST("/carousel/key", h.photoKey)
		view.POST("/carousel/select", h.selectPhoto)
		view.DELETE("/pictures/current", h.rateLimitMiddleware(), h.deleteCurrentPhoto)
		view.DELETE("/pictures", h.rateLimitMiddleware(), h.deleteAllPhotos)
		view.POST("/comments", h.rateLimitMiddleware(), h.addComment)
		view.POST("/comments/:commentId/toggle", h.toggleReplies)
		view.POST("/edit", h.beginEdit)
		view.PATCH("/edit", h.updateDraft)
		view.POST("/edit/save", h.rateLimitMiddleware(), h.saveEdit)
		view.POST("/edit/cancel", h.cancelEdit)

		admin := api.Group("/admin")
		admin.GET("/stats", h.GetStats)
		admin.POST("/refresh/trigger", h.TriggerRefresh)
		admin.GET("/refresh/status", h.GetRefreshStatus)
		admin.POST("/cleanup/run", h.RunCleanup)
		admin.GET("/cleanup/logs", h.GetDeleteLogs)
		admin.POST("/search/reindex", h.Reindex)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"time":     time.Now().Format(time.RFC3339),
		"listings": h.Service.Store().Len(),
	})
}

// rateLimitMiddleware checks the sliding-window limits before mutating routes
func (h *Handler) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Limiter != nil && !h.Limiter.AllowRequest() {
			stats := h.Limiter.GetStats()
			if wait := h.Limiter.RetryAfter(); wait > 0 {
				c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
				"stats":   stats,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handler) getRateLimitStats(c *gin.Context) {
	if h.Limiter == nil {
		c.JSON(http.StatusOK, ratelimit.Stats{})
		return
	}
	c.JSON(http.StatusOK, h.Limiter.GetStats())
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Remote:
		return http.StatusBadGateway
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Throttled:
		return http.StatusTooManyRequests
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": message} with the status of its kind.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("trace_id", logging.TraceID(c.Request.Context())).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": what + " is not available",
	})
}

// queryLimit reads ?limit= with a default and an upper bound.
func queryLimit(c *gin.Context, def, maxLimit int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}
