package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TripRequest is the form payload that starts a generation.
type TripRequest struct {
	Origin      string   `json:"origin,omitempty"`
	Destination string   `json:"destination" binding:"required"`
	Dates       string   `json:"dates" binding:"required"`
	Interests   []string `json:"interests" binding:"required,min=1,dive,required"`
}

// Coords is a point on the globe. The model emits "lon", not "lng".
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type TravelOption struct {
	Mode     string `json:"mode"`
	Time     string `json:"time"`
	Distance string `json:"distance,omitempty"`
}

type TravelAnalysis struct {
	Summary  string         `json:"summary,omitempty"`
	Distance string         `json:"distance,omitempty"`
	Options  []TravelOption `json:"options,omitempty"`
}

type Hotel struct {
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	Rating  *float64 `json:"rating,omitempty"`
	Link    string   `json:"link,omitempty"`
	Photo   string   `json:"photo,omitempty"`
}

type DestinationSummary struct {
	Summary          string  `json:"summary,omitempty"`
	BestTimeToVisit  string  `json:"bestTimeToVisit,omitempty"`
	HotelSuggestions []Hotel `json:"hotelSuggestions,omitempty"`
}

// Activity is one time-labelled entry of a day plan.
type Activity struct {
	Time        string `json:"time"`
	Description string `json:"description"`
}

type DayPlan struct {
	Day        int        `json:"day"`
	Title      string     `json:"title,omitempty"`
	Date       string     `json:"date,omitempty"`
	Activities []Activity `json:"activities"`
}

// Itinerary is the object the model is asked to produce.
// Older prompts used "destination", newer ones "destinationName"; both are accepted.
type Itinerary struct {
	Destination        string              `json:"destination,omitempty"`
	DestinationName    string              `json:"destinationName,omitempty"`
	FromName           string              `json:"fromName,omitempty"`
	FromCoords         *Coords             `json:"fromCoords,omitempty"`
	DestinationCoords  *Coords             `json:"destinationCoords,omitempty"`
	ThoughtProcess     string              `json:"thoughtProcess,omitempty"`
	TravelAnalysis     *TravelAnalysis     `json:"travelAnalysis,omitempty"`
	DestinationSummary *DestinationSummary `json:"destinationSummary,omitempty"`
	Days               []DayPlan           `json:"days"`
}

// DestinationID returns the destination identifier, preferring destinationName.
func (it *Itinerary) DestinationID() string {
	if name := strings.TrimSpace(it.DestinationName); name != "" {
		return name
	}
	return strings.TrimSpace(it.Destination)
}

// Validate reports whether the itinerary has the minimum usable shape:
// a destination identifier and at least one day.
func (it *Itinerary) Validate() error {
	if it == nil {
		return ErrShapeInvalid
	}
	if it.DestinationID() == "" {
		return &ShapeError{Field: "destinationName"}
	}
	if len(it.Days) == 0 {
		return &ShapeError{Field: "days"}
	}
	return nil
}

// PartialItinerary is the subset needed to draw the globe before the days arrive.
type PartialItinerary struct {
	FromName          string `json:"fromName"`
	DestinationName   string `json:"destinationName"`
	FromCoords        Coords `json:"fromCoords"`
	DestinationCoords Coords `json:"destinationCoords"`
}

// Generation is one row of the generation log.
type Generation struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	SessionID    string     `json:"session_id" db:"session_id"`
	Origin       string     `json:"origin,omitempty" db:"origin"`
	Destination  string     `json:"destination" db:"destination"`
	Dates        string     `json:"dates" db:"dates"`
	Interests    []string   `json:"interests" db:"interests"`
	Provider     string     `json:"provider" db:"provider"`
	Model        string     `json:"model" db:"model"`
	PromptHash   string     `json:"prompt_hash" db:"prompt_hash"`
	State        string     `json:"state" db:"state"`
	Strategy     string     `json:"strategy,omitempty" db:"strategy"`
	ErrorKind    string     `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	ChunkCount   int        `json:"chunk_count" db:"chunk_count"`
	RawLength    int        `json:"raw_length" db:"raw_length"`
	Itinerary    *Itinerary `json:"itinerary,omitempty" db:"itinerary"`
	DurationMs   int64      `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
