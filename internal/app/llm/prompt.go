package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
)

const itineraryPromptTemplate = `You are an expert travel itinerary planner. A user is planning a trip.
Origin: %s
Destination: %s
Travel Dates: %s
Interests: %s

Generate a detailed, day-by-day travel itinerary.

You MUST respond with ONLY a valid JSON object. Do not include any text,
markdown, or explanations before or after the JSON.

Emit the fields in exactly this order, so the first four can be shown on a map
while the rest is still being written:
{
  "fromName": "%s",
  "destinationName": "%s",
  "fromCoords": {"lat": 0.0, "lon": 0.0},
  "destinationCoords": {"lat": 0.0, "lon": 0.0},
  "thoughtProcess": "A brief (1-2 sentences) chain of thought on how you built this itinerary based on the user's interests.",
  "travelAnalysis": {
    "summary": "How to get from the origin to the destination.",
    "distance": "Approximate distance.",
    "options": [{"mode": "flight", "time": "2h", "distance": "1,100 km"}]
  },
  "destinationSummary": {
    "summary": "One paragraph about the destination.",
    "bestTimeToVisit": "Best season to visit.",
    "hotelSuggestions": [{"name": "", "address": "", "rating": 4.5, "link": "", "photo": ""}]
  },
  "days": [
    {
      "day": 1,
      "title": "Arrival and Local Exploration",
      "date": "",
      "activities": [
        {"time": "Morning", "description": "Arrive, transfer to hotel, and check-in."},
        {"time": "Afternoon", "description": "Light lunch at a local cafe and a walk around the hotel area."},
        {"time": "Evening", "description": "Welcome dinner at a restaurant featuring local cuisine."}
      ]
    }
  ]
}

Use real latitude and longitude values. Include one entry in "days" per day of the trip.
Ensure the itinerary is tailored to the specified interests.
`

// BuildItineraryPrompt renders the JSON-only itinerary prompt for req.
func BuildItineraryPrompt(req models.TripRequest) string {
	origin := strings.TrimSpace(req.Origin)
	if origin == "" {
		origin = "Not specified (pick the nearest major international airport to the destination)"
	}
	destination := strings.TrimSpace(req.Destination)

	return fmt.Sprintf(itineraryPromptTemplate,
		origin,
		destination,
		strings.TrimSpace(req.Dates),
		strings.Join(req.Interests, ", "),
		jsonEscape(strings.TrimSpace(req.Origin)),
		jsonEscape(destination),
	)
}

// HashPrompt returns the hex SHA-256 of prompt, stored instead of the prompt itself.
func HashPrompt(prompt string) string {
	hash := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(hash[:])
}

func jsonEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ", "\r", " ")
	return r.Replace(s)
}
