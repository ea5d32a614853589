package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"downtime-tracker-backend/config"
	"downtime-tracker-backend/internal/mw"
	"downtime-tracker-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.Config, notifier Notifier) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, notifier, cfg.Push.PublicKey)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), 5, cfg.Server.RequestIPHeader)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)
	invalidating := mw.Invalidate(cacheStore)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/records", invalidating, handler.CreateRecord)
		api.GET("/records", handler.ListRecords)
		api.GET("/records/:id", handler.GetRecord)
		api.PATCH("/records/:id", invalidating, handler.UpdateRecord)
		api.DELETE("/records/:id", invalidating, handler.DeleteRecord)

		// Dashboard reads are cacheable; writes above flush the cache.
		api.GET("/stats", caching, handler.GetStats)
		api.GET("/catalogs", caching, handler.GetCatalogs)
		api.PUT("/catalogs/:kind", invalidating, handler.ReplaceCatalog)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
