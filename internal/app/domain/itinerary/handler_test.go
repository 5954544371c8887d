package itinerary

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
	"github.com/Anexus5919/RoamiQ/internal/app/streaming"
)

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/itinerary", h.HandleGenerate)
	r.GET("/api/itinerary/history", h.HandleHistory)
	return r
}

func readEvents(t *testing.T, body string) []streaming.Event {
	t.Helper()
	var events []streaming.Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev streaming.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestHandleGenerate_StreamsEvents(t *testing.T) {
	svc := newTestService(t, &fakeSource{chunks: splitEvery(parisJSON, 16)}, nil, ServiceOptions{})
	router := setupRouter(NewHandler(svc, testLogger()))

	body := `{"origin": "New Delhi", "destination": "Paris", "dates": "June 1-2", "interests": ["art"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/itinerary", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := readEvents(t, w.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, models.EventTypeStart, events[0].Type)
	assert.Equal(t, models.EventTypeComplete, events[len(events)-1].Type)

	sessionID := events[0].SessionID
	assert.NotEmpty(t, sessionID)

	var itinerary *models.Itinerary
	for _, ev := range events {
		assert.Equal(t, sessionID, ev.SessionID)
		if ev.Type == models.EventTypeItinerary {
			itinerary = ev.Itinerary
		}
	}
	require.NotNil(t, itinerary)
	assert.Equal(t, "Paris", itinerary.DestinationName)
	assert.Len(t, itinerary.Days, 2)
}

func TestHandleGenerate_ErrorEvent(t *testing.T) {
	svc := newTestService(t, &fakeSource{chunks: []string{romeTruncatedJSON}}, nil, ServiceOptions{})
	router := setupRouter(NewHandler(svc, testLogger()))

	body := `{"destination": "Rome", "dates": "May", "interests": ["history"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/itinerary", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	events := readEvents(t, w.Body.String())
	last := events[len(events)-1]
	assert.Equal(t, models.EventTypeError, last.Type)
	assert.True(t, last.IsFinal)
	assert.Equal(t, "Unable to parse itinerary data. Please try again.", last.Error)
	assert.NotContains(t, w.Body.String(), "unexpected end")
}

// scriptedService emits a fixed event sequence.
type scriptedService struct {
	progress int
	outcome  *models.Itinerary
}

func (s *scriptedService) Generate(_ context.Context, sessionID string, _ models.TripRequest, emit func(streaming.Event)) error {
	emit(streaming.NewStartEvent(sessionID))
	for i := 0; i < s.progress; i++ {
		emit(streaming.NewProgressEvent(sessionID, streaming.Update{
			State:      streaming.StateStreaming,
			Milestones: streaming.InitialMilestones(),
			Chunk:      "x",
		}))
	}
	emit(streaming.NewItineraryEvent(sessionID, &streaming.Outcome{
		State:      streaming.StateCompleted,
		Itinerary:  s.outcome,
		Milestones: streaming.Close(streaming.InitialMilestones()),
	}, false))
	emit(streaming.NewCompleteEvent(sessionID))
	return nil
}

func (s *scriptedService) History(context.Context, int) ([]models.Generation, error) {
	return nil, nil
}

// stalledWriter blocks on its first write, like a client that stops reading.
type stalledWriter struct {
	*httptest.ResponseRecorder
	stall   time.Duration
	written bool
}

func (w *stalledWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
		time.Sleep(w.stall)
	}
	return w.ResponseRecorder.Write(b)
}

func TestHandleGenerate_SlowClientStillGetsItinerary(t *testing.T) {
	svc := &scriptedService{
		progress: eventBufferSize + 20,
		outcome:  &models.Itinerary{DestinationName: "Paris", Days: []models.DayPlan{{Day: 1}}},
	}
	h := NewHandler(svc, testLogger())
	h.progressTimeout = 5 * time.Millisecond
	router := setupRouter(h)

	body := `{"destination": "Paris", "dates": "June", "interests": ["art"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/itinerary", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := &stalledWriter{ResponseRecorder: httptest.NewRecorder(), stall: 300 * time.Millisecond}

	router.ServeHTTP(w, req)

	var others []string
	progress := 0
	for _, ev := range readEvents(t, w.Body.String()) {
		if ev.Type == models.EventTypeProgress {
			progress++
			continue
		}
		others = append(others, ev.Type)
	}
	assert.Equal(t, []string{models.EventTypeStart, models.EventTypeItinerary, models.EventTypeComplete}, others)
	assert.Less(t, progress, svc.progress, "some progress events should have been dropped")
}

func TestHandleGenerate_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `destination=Paris`},
		{"missing destination", `{"dates": "June", "interests": ["art"]}`},
		{"missing dates", `{"destination": "Paris", "interests": ["art"]}`},
		{"no interests", `{"destination": "Paris", "dates": "June", "interests": []}`},
		{"blank interest", `{"destination": "Paris", "dates": "June", "interests": [""]}`},
	}

	src := &fakeSource{}
	router := setupRouter(NewHandler(newTestService(t, src, nil, ServiceOptions{}), testLogger()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/itinerary", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Equal(t, 0, src.Calls())
}

func TestHandleGenerate_ClientDisconnect(t *testing.T) {
	src := &fakeSource{chunks: []string{`{"travelAnalysis": {`}, block: true}
	svc := newTestService(t, src, nil, ServiceOptions{})
	router := setupRouter(NewHandler(svc, testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	body := `{"destination": "Paris", "dates": "June", "interests": ["art"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/itinerary", strings.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(w, req)
	}()
	cancel()
	<-done

	assert.NotContains(t, w.Body.String(), `"type":"error"`)
	assert.NotContains(t, w.Body.String(), `"type":"complete"`)
}

func TestHandleHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		router := setupRouter(NewHandler(newTestService(t, &fakeSource{}, nil, ServiceOptions{}), testLogger()))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/itinerary/history", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		router := setupRouter(NewHandler(newTestService(t, &fakeSource{}, new(MockRepository), ServiceOptions{}), testLogger()))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/itinerary/history?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("lists generations", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListRecent", mock.Anything, 2).Return([]models.Generation{
			{Destination: "Paris", State: "completed"},
			{Destination: "Rome", State: "failed", ErrorKind: "incomplete_stream"},
		}, nil).Once()

		router := setupRouter(NewHandler(newTestService(t, &fakeSource{}, repo, ServiceOptions{}), testLogger()))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/itinerary/history?limit=2", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Generations []models.Generation `json:"generations"`
			Count       int                 `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
		assert.Equal(t, "incomplete_stream", resp.Generations[1].ErrorKind)
		repo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListRecent", mock.Anything, defaultHistoryLimit).Return(nil, errors.New("db down")).Once()

		router := setupRouter(NewHandler(newTestService(t, &fakeSource{}, repo, ServiceOptions{}), testLogger()))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/itinerary/history", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
