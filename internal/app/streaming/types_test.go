package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
)

func TestNewErrorEvent_HidesInternals(t *testing.T) {
	err := newGenerationError(KindMalformedJSON, msgUnparseable, errors.New("invalid character 'x' at offset 912"))
	ev := NewErrorEvent("session-1", err, InitialMilestones(), true)

	assert.Equal(t, models.EventTypeError, ev.Type)
	assert.Equal(t, msgUnparseable, ev.Error)
	assert.True(t, ev.PartialShown)
	assert.True(t, ev.IsFinal)
	require.NotNil(t, ev.Milestones)
	assert.True(t, ev.Milestones.AllDone())

	data, mErr := json.Marshal(ev)
	require.NoError(t, mErr)
	assert.NotContains(t, string(data), "offset 912")
}

func TestNewErrorEvent_UnknownError(t *testing.T) {
	ev := NewErrorEvent("session-1", errors.New("boom"), InitialMilestones(), false)
	assert.Equal(t, "Failed to generate itinerary. Please try again.", ev.Error)
	assert.False(t, ev.PartialShown)
}

func TestNewErrorEvent_KeepsSessionLabels(t *testing.T) {
	s := NewSession(SessionOptions{})
	s.Feed(romeTruncated)
	_, err := s.Finish()
	require.Error(t, err)

	ev := NewErrorEvent("session-3", err, s.Milestones(), false)
	require.NotNil(t, ev.Milestones)
	assert.True(t, ev.Milestones.AllDone())
	assert.Equal(t, "Building your plan... (Day 2)", ev.Milestones[2].Label)
	assert.Equal(t, 2, ev.Milestones[2].Day)
}

func TestNewItineraryEvent(t *testing.T) {
	s := NewSession(SessionOptions{})
	s.Feed(tokyoDraftThenReal)
	outcome, err := s.Finish()
	require.NoError(t, err)

	ev := NewItineraryEvent("session-2", outcome, false)
	assert.Equal(t, models.EventTypeItinerary, ev.Type)
	assert.True(t, ev.Recovered)
	assert.Equal(t, StatePartialRecovered, ev.State)
	assert.Equal(t, "Tokyo", ev.Itinerary.DestinationID())
	assert.NotEmpty(t, ev.EventID)
}

func TestGenerationError_Is(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{KindTransport, models.ErrTransport},
		{KindIncompleteStream, models.ErrIncompleteStream},
		{KindShapeInvalid, models.ErrShapeInvalid},
		{KindMalformedJSON, models.ErrMalformedJSON},
		{KindTimeout, models.ErrTimeout},
		{KindCancelled, models.ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := error(newGenerationError(tt.kind, "failed", nil))
			assert.True(t, errors.Is(err, tt.sentinel))
			assert.NotEmpty(t, newGenerationError(tt.kind, "failed", nil).UserMessage())
			if tt.kind != KindTimeout {
				assert.False(t, errors.Is(err, models.ErrTimeout))
			}
		})
	}
}

func TestSendEventSafe(t *testing.T) {
	ch := make(chan Event, 1)
	assert.True(t, SendEventSafe(context.Background(), ch, NewCompleteEvent("s"), time.Second))

	// Channel full.
	assert.False(t, SendEventSafe(context.Background(), ch, NewCompleteEvent("s"), 10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, SendEventSafe(ctx, ch, NewCompleteEvent("s"), time.Second))
}

func TestSendEvent_WaitsForReader(t *testing.T) {
	ch := make(chan Event, 1)
	ch <- NewStartEvent("s")

	go func() {
		time.Sleep(50 * time.Millisecond)
		<-ch
	}()
	assert.True(t, SendEvent(context.Background(), ch, NewCompleteEvent("s")))
	assert.Equal(t, models.EventTypeComplete, (<-ch).Type)

	ch <- NewStartEvent("s")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, SendEvent(ctx, ch, NewCompleteEvent("s")))
}
