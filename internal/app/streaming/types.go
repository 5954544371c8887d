package streaming

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
)

// Event is one server-sent event on the itinerary stream.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	State     State     `json:"state,omitempty"`
	Message   string    `json:"message,omitempty"`
	IsFinal   bool      `json:"is_final,omitempty"`

	Milestones *Milestones `json:"milestones,omitempty"`
	// Delta is the raw chunk text; concatenated deltas reproduce the model output.
	Delta string `json:"delta,omitempty"`

	Partial   *models.PartialItinerary `json:"partial,omitempty"`
	Itinerary *models.Itinerary        `json:"itinerary,omitempty"`
	Recovered bool                     `json:"recovered,omitempty"`
	Cached    bool                     `json:"cached,omitempty"`

	Error        string `json:"error,omitempty"`
	PartialShown bool   `json:"partial_shown,omitempty"`
}

func newEvent(sessionID, eventType string) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
	}
}

func NewStartEvent(sessionID string) Event {
	ev := newEvent(sessionID, models.EventTypeStart)
	ev.State = StateAwaitingFirstByte
	ev.Message = "Starting the AI engine..."
	m := InitialMilestones()
	ev.Milestones = &m
	return ev
}

func NewProgressEvent(sessionID string, upd Update) Event {
	ev := newEvent(sessionID, models.EventTypeProgress)
	ev.State = upd.State
	ev.Delta = upd.Chunk
	m := upd.Milestones
	ev.Milestones = &m
	return ev
}

func NewPartialEvent(sessionID string, partial *models.PartialItinerary) Event {
	ev := newEvent(sessionID, models.EventTypePartial)
	ev.State = StateStreaming
	ev.Partial = partial
	return ev
}

func NewItineraryEvent(sessionID string, outcome *Outcome, cached bool) Event {
	ev := newEvent(sessionID, models.EventTypeItinerary)
	ev.State = outcome.State
	ev.Itinerary = outcome.Itinerary
	ev.Recovered = outcome.Recovered()
	ev.Cached = cached
	m := outcome.Milestones
	ev.Milestones = &m
	return ev
}

// NewErrorEvent carries only the user-facing message of err. milestones is
// the session's last set; it is closed so the client stops its spinners.
func NewErrorEvent(sessionID string, err error, milestones Milestones, partialShown bool) Event {
	ev := newEvent(sessionID, models.EventTypeError)
	ev.State = StateFailed
	ev.IsFinal = true
	ev.PartialShown = partialShown
	m := Close(milestones)
	ev.Milestones = &m

	var genErr *GenerationError
	if errors.As(err, &genErr) {
		ev.Error = genErr.UserMessage()
	} else {
		ev.Error = "Failed to generate itinerary. Please try again."
	}
	return ev
}

func NewCompleteEvent(sessionID string) Event {
	ev := newEvent(sessionID, models.EventTypeComplete)
	ev.IsFinal = true
	return ev
}

// SendEvent blocks until event is queued or ctx is done.
func SendEvent(ctx context.Context, ch chan<- Event, event Event) bool {
	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// SendEventSafe sends event unless ctx ends or the channel stays full for timeout.
func SendEventSafe(ctx context.Context, ch chan<- Event, event Event, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- event:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
