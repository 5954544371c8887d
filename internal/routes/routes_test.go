package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/domain/itinerary"
)

func TestSetup_HealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		check HealthCheck
		want  int
	}{
		{"no dependencies", nil, http.StatusOK},
		{"healthy", func(context.Context) error { return nil }, http.StatusOK},
		{"database down", func(context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			Setup(r, itinerary.NewHandler(nil, zap.NewNop()), tt.check, zap.NewNop())

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSetup_RegistersAPIRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Setup(r, itinerary.NewHandler(nil, zap.NewNop()), nil, zap.NewNop())

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	assert.True(t, registered["POST /api/itinerary"])
	assert.True(t, registered["GET /api/itinerary/history"])
	assert.True(t, registered["GET /healthz"])
}
