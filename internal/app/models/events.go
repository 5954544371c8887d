package models

// SSE event types sent to the itinerary page.
const (
	EventTypeStart     = "start"
	EventTypeProgress  = "progress"
	EventTypePartial   = "partial"
	EventTypeItinerary = "itinerary"
	EventTypeError     = "error"
	EventTypeComplete  = "complete"
)
