package streaming

import (
	"iter"
	"strings"
)

const parisItinerary = `{
  "fromName": "New Delhi",
  "destinationName": "Paris",
  "fromCoords": {"lat": 28.6139, "lon": 77.209},
  "destinationCoords": {"lat": 48.8566, "lon": 2.3522},
  "thoughtProcess": "She wants \"quiet\" mornings {no crowds} and \\ good coffee.",
  "travelAnalysis": {"summary": "Long-haul flight", "distance": "6,590 km", "options": [{"mode": "flight", "time": "9h"}]},
  "destinationSummary": {"summary": "City of light", "bestTimeToVisit": "April to June", "hotelSuggestions": [{"name": "Hotel Lutetia", "rating": 4.7}]},
  "days": [
    {"day": 1, "title": "Museums", "activities": [{"time": "9:00 AM", "description": "Louvre"}]},
    {"day": 2, "title": "Montmartre", "activities": [{"time": "10:00 AM", "description": "Sacré-Cœur"}]},
    {"day": 3, "title": "Seine", "activities": [{"time": "7:00 PM", "description": "River cruise"}]}
  ]
}`

const parisThoughtProcess = `She wants "quiet" mornings {no crowds} and \ good coffee.`

// romeTruncated ends in the middle of the second day.
const romeTruncated = `{"destinationName": "Rome", "days": [{"day": 1, "activities": [{"time": "9:00 AM", "description": "Colosseum"}]}, {"day": 2, "activities": [{"time": "10:00 AM", "description": "Vatic`

const tokyoDraftThenReal = `{"draft": true} Actually, here is the full plan: {"destinationName": "Tokyo", "days": [{"day": 1, "activities": [{"time": "8:00 AM", "description": "Tsukiji"}]}]}`

// splitEvery cuts s into chunks of n bytes.
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

func chunkSeq(chunks []string, tailErr error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if tailErr != nil {
			yield("", tailErr)
		}
	}
}

func withProse(obj string) string {
	return "Sure! Here is your itinerary:\n```json\n" + obj + "\n```\n" + strings.Repeat("Enjoy! ", 2)
}
