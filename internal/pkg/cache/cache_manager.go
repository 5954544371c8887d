package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
)

// CacheManager holds all application caches
type CacheManager struct {
	// Completed itineraries keyed by normalized trip request.
	Itineraries *UnifiedCache[*models.Itinerary]
}

// NewCacheManager creates the application caches. A non-positive ttl
// falls back to ten minutes.
func NewCacheManager(ttl time.Duration, logger *zap.Logger) *CacheManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CacheManager{
		Itineraries: NewUnifiedCache[*models.Itinerary](ttl, "itineraries", logger),
	}
}

// GetAllMetrics returns metrics for all caches
func (cm *CacheManager) GetAllMetrics() map[string]CacheMetrics {
	return map[string]CacheMetrics{
		"itineraries": cm.Itineraries.GetMetrics(),
	}
}

// ClearAll clears all caches
func (cm *CacheManager) ClearAll() {
	cm.Itineraries.Clear()
}

// TripRequestKey is the cache key for a trip request.
func TripRequestKey(req models.TripRequest, provider, model string, logger *zap.Logger) string {
	return NewCacheKeyBuilder(logger).
		Add("provider", provider).
		Add("model", model).
		AddText("origin", req.Origin).
		AddText("destination", req.Destination).
		AddText("dates", req.Dates).
		AddTextSet("interests", req.Interests).
		BuildOrDefault()
}
