package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/domain/itinerary"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Setup registers the API routes. check may be nil when nothing needs probing.
func Setup(r *gin.Engine, h *itinerary.Handler, check HealthCheck, log *zap.Logger) {
	r.GET("/healthz", func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/itinerary", h.HandleGenerate)
		api.GET("/itinerary/history", h.HandleHistory)
	}
}
