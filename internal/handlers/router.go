// Package handlers is the JSON presentation boundary. Handlers resolve the
// actor, call exactly one core operation and render its result or failure.
package handlers

import (
	"net/http"
	"time"

	"rental-portal/internal/accounts"
	"rental-portal/internal/auth"
	"rental-portal/internal/booking"
	"rental-portal/internal/config"
	"rental-portal/internal/listing"
	"rental-portal/internal/metrics"
	"rental-portal/internal/models"
	"rental-portal/internal/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps wires the router to the services
type Deps struct {
	DB       *gorm.DB
	Accounts *accounts.Service
	Catalog  *listing.Service
	Bookings *booking.Service
	Tokens   *auth.TokenService
	Limiter  *ratelimit.RateLimiter
	Metrics  *metrics.Metrics // nil disables /metrics
	Search   FullText         // nil disables /api/search
	Admin    AdminDeps
	Log      *zap.Logger
}

// NewRouter builds the gin engine with every route
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(recoveryMiddleware(log))
	if cfg.Logging.LogRequests {
		r.Use(loggerMiddleware(log))
	}
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}

	// CORS configuration
	corsCfg := cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", healthCheck(d.DB))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	accountH := NewAccountHandler(d.Accounts, d.Tokens, log)
	listingH := NewListingHandler(d.Catalog, d.Admin.Stats, log)
	bookingH := NewBookingHandler(d.Bookings, log)
	searchH := NewSearchHandler(d.Search, d.Catalog, log)
	adminH := NewAdminHandler(d.Admin, cfg.Cleanup, log)

	optional := auth.Middleware(d.Tokens, d.Accounts, false)
	required := auth.Middleware(d.Tokens, d.Accounts, true)
	landlord := auth.RequireRole(models.RoleLandlord)

	api := r.Group("/api")

	// Public catalog
	public := api.Group("", optional)
	{
		public.POST("/accounts/register", accountH.Register)
		public.GET("/summary", listingH.Summary)
		public.GET("/properties", listingH.Search)
		public.GET("/properties/:id", listingH.GetProperty)
		public.GET("/properties/:id/stats", listingH.PropertyStats)
		public.GET("/properties/:id/units", listingH.ListUnits)
		public.GET("/units/:id", listingH.GetUnit)
		public.GET("/search", searchH.Search)
	}

	authed := api.Group("", required)
	{
		authed.GET("/accounts/me", accountH.Me)
		authed.GET("/accounts/me/properties", landlord, listingH.MyProperties)
		authed.PUT("/accounts/:id/landlord-profile", accountH.UpdateLandlordProfile)
		authed.PUT("/accounts/:id/tenant-profile", accountH.UpdateTenantProfile)

		authed.POST("/properties", listingH.CreateProperty)
		authed.PUT("/properties/:id", listingH.UpdateProperty)
		authed.DELETE("/properties/:id", listingH.DeleteProperty)
		authed.POST("/properties/:id/units", listingH.CreateUnit)
		authed.PUT("/units/:id", listingH.UpdateUnit)
		authed.PUT("/units/:id/status", listingH.UpdateUnitStatus)
		authed.GET("/units/:id/pending", bookingH.PendingForUnit)

		byIdentity := func(c *gin.Context) string { return auth.ActorFrom(c).ID.String() }
		var onLimited func()
		if d.Metrics != nil {
			onLimited = d.Metrics.RateLimited
		}
		authed.POST("/bookings", ratelimit.Middleware(d.Limiter, byIdentity, onLimited), bookingH.Submit)
		authed.GET("/bookings", bookingH.List)
		authed.GET("/bookings/:id", bookingH.Get)
		authed.POST("/bookings/:id/decision", bookingH.Decide)
	}

	admin := api.Group("/admin", required, auth.RequireRole(models.RoleAdmin))
	{
		admin.GET("/accounts", accountH.List)
		admin.POST("/accounts/:id/verify", accountH.Verify)
		admin.POST("/accounts/:id/status", accountH.SetStatus)

		admin.GET("/stats", adminH.GetStats)
		admin.GET("/rent-distribution", adminH.GetRentDistribution)
		admin.GET("/type-stats", adminH.GetTypeStats)
		admin.GET("/properties/:id/history", adminH.GetPropertyHistory)
		admin.GET("/changes/recent", adminH.GetRecentChanges)

		admin.POST("/cleanup/run", adminH.RunCleanup)
		admin.GET("/cleanup/logs", adminH.GetDeleteLogs)
		admin.POST("/audit", adminH.RunAudit)
		admin.POST("/jobs/:name/run", adminH.TriggerJob)
		admin.GET("/ratelimit/stats", adminH.GetRateLimitStats)
		admin.POST("/search/reindex", searchH.Reindex)
	}

	return r
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok"}
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// loggerMiddleware logs each request once it completes
func loggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// recoveryMiddleware recovers from panics and returns 500 error
func recoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("internal", "internal server error"))
			}
		}()
		c.Next()
	}
}
