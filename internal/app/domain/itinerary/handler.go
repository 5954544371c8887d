package itinerary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
	"github.com/Anexus5919/RoamiQ/internal/app/streaming"
	"github.com/Anexus5919/RoamiQ/internal/pkg/debugger"
)

const (
	eventBufferSize  = 64
	eventSendTimeout = 5 * time.Second
)

type Handler struct {
	service Service
	logger  *zap.Logger
	// progressTimeout bounds how long a progress event waits for a slow client.
	progressTimeout time.Duration
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service:         service,
		logger:          logger,
		progressTimeout: eventSendTimeout,
	}
}

// HandleGenerate streams one itinerary generation as server-sent events.
// POST /api/itinerary
func (h *Handler) HandleGenerate(c *gin.Context) {
	var req models.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid itinerary request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "destination, dates and at least one interest are required"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.logger.Error("Response writer does not support flushing")
		c.String(http.StatusInternalServerError, "Streaming not supported")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Status(http.StatusOK)

	sessionID := uuid.NewString()
	l := h.logger.With(zap.String("session_id", sessionID))
	l.Info("Itinerary stream started",
		zap.String("destination", req.Destination),
		zap.Int("interests", len(req.Interests)))

	// The request context ends when the client disconnects, which cancels the model call.
	g, ctx := errgroup.WithContext(c.Request.Context())
	events := make(chan streaming.Event, eventBufferSize)

	g.Go(func() error {
		defer close(events)
		// Only progress may be dropped for a stalled client; the partial, the
		// itinerary and the terminal events wait until the client is gone.
		emit := func(ev streaming.Event) {
			if ev.Type == models.EventTypeProgress {
				if !streaming.SendEventSafe(ctx, events, ev, h.progressTimeout) && ctx.Err() == nil {
					l.Warn("Dropped progress event for slow client")
				}
				return
			}
			if !streaming.SendEvent(ctx, events, ev) {
				l.Debug("Client gone before event was sent", zap.String("type", ev.Type))
			}
		}
		if err := h.service.Generate(ctx, sessionID, req, emit); err != nil {
			l.Debug("Generation ended with error", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		for ev := range events {
			data, err := writeEvent(c.Writer, ev)
			if err != nil {
				return fmt.Errorf("write %s event: %w", ev.Type, err)
			}
			flusher.Flush()
			debugger.LogEvent(l, ev.Type, data)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Info("Itinerary stream closed early", zap.Error(err))
		return
	}
	l.Info("Itinerary stream finished")
}

// HandleHistory returns recent generation-log records.
// GET /api/itinerary/history?limit=N
func (h *Handler) HandleHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	generations, err := h.service.History(c.Request.Context(), limit)
	switch {
	case errors.Is(err, models.ErrHistoryDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation history is disabled"})
		return
	case errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("Failed to load generation history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"generations": generations, "count": len(generations)})
}

func writeEvent(w io.Writer, ev streaming.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return data, err
}
