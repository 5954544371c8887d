package itinerary

import (
	"context"
	"iter"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
	"github.com/Anexus5919/RoamiQ/internal/app/observability/metrics"
	"github.com/Anexus5919/RoamiQ/internal/app/streaming"
)

const parisJSON = `{"fromName": "New Delhi", "destinationName": "Paris", "fromCoords": {"lat": 28.61, "lon": 77.21}, "destinationCoords": {"lat": 48.86, "lon": 2.35}, "thoughtProcess": "Art first.", "travelAnalysis": {"summary": "Fly"}, "destinationSummary": {"summary": "City of light", "hotelSuggestions": [{"name": "Lutetia"}]}, "days": [{"day": 1, "activities": [{"time": "Morning", "description": "Louvre"}]}, {"day": 2, "activities": [{"time": "Morning", "description": "Orsay"}]}]}`

const romeTruncatedJSON = `{"destinationName": "Rome", "days": [{"day": 1, "activities": [{"time": "Morning", "description": "Colos`

const tokyoDraftJSON = `{"draft": true} then {"destinationName": "Tokyo", "days": [{"day": 1, "activities": []}]}`

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SaveGeneration(ctx context.Context, g *models.Generation) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockRepository) ListRecent(ctx context.Context, limit int) ([]models.Generation, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Generation), args.Error(1)
}

// fakeSource replays fixed chunks, then optionally an error.
type fakeSource struct {
	mu     sync.Mutex
	chunks []string
	err    error
	// block makes the source wait for ctx after the chunks instead of ending.
	block bool
	calls int
}

func (f *fakeSource) Stream(ctx context.Context, _ string) iter.Seq2[string, error] {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.block {
			<-ctx.Done()
			yield("", ctx.Err())
			return
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func (f *fakeSource) Provider() string { return "fake" }

func (f *fakeSource) Model() string { return "fake-model" }

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func splitEvery(s string, n int) []string {
	var chunks []string
	for len(s) > n {
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

type eventRecorder struct {
	mu     sync.Mutex
	events []streaming.Event
}

func (r *eventRecorder) emit(ev streaming.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	last := ""
	for _, ev := range r.events {
		// Collapse runs of progress events.
		if ev.Type == models.EventTypeProgress && last == models.EventTypeProgress {
			continue
		}
		types = append(types, ev.Type)
		last = ev.Type
	}
	return types
}

func (r *eventRecorder) ofType(eventType string) []streaming.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []streaming.Event
	for _, ev := range r.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func testMetrics(t *testing.T) *metrics.AppMetrics {
	t.Helper()
	require.NoError(t, metrics.InitAppMetrics())
	return metrics.Get()
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
