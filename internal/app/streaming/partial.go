package streaming

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
)

var (
	fromCoordsRe = regexp.MustCompile(`"fromCoords"\s*:\s*(\{[^{}]*\})`)
	destCoordsRe = regexp.MustCompile(`"destinationCoords"\s*:\s*(\{[^{}]*\})`)
	fromNameRe   = regexp.MustCompile(`"fromName"\s*:\s*("(?:[^"\\]|\\.)*")`)
	destNameRe   = regexp.MustCompile(`"destinationName"\s*:\s*("(?:[^"\\]|\\.)*")`)
)

const (
	fieldFromName = iota
	fieldDestName
	fieldFromCoords
	fieldDestCoords
	partialFields
)

var partialPatterns = [partialFields]struct {
	key string
	re  *regexp.Regexp
}{
	fieldFromName:   {`"fromName"`, fromNameRe},
	fieldDestName:   {`"destinationName"`, destNameRe},
	fieldFromCoords: {`"fromCoords"`, fromCoordsRe},
	fieldDestCoords: {`"destinationCoords"`, destCoordsRe},
}

// ExtractEarlyPartial pulls the globe fields out of an incomplete buffer with
// field-level patterns, without parsing the whole object. It returns false
// until both names and both coordinate pairs are present and decodable.
// The result is a rendering hint only; the final itinerary supersedes it.
func ExtractEarlyPartial(buf string) (*models.PartialItinerary, bool) {
	var sc partialScanner
	return sc.update(buf)
}

// partialScanner is ExtractEarlyPartial for a growing buffer. Each field is
// searched from where its key can still start, so text that was already
// ruled out is not matched again.
type partialScanner struct {
	from     [partialFields]int
	resolved [partialFields]bool
	// failed marks a field whose first complete value did not decode; like
	// ExtractEarlyPartial on the whole buffer, it never yields a partial.
	failed [partialFields]bool

	names  [2]string
	coords [2]models.Coords
}

func (p *partialScanner) update(buf string) (*models.PartialItinerary, bool) {
	complete := true
	for i := range partialPatterns {
		if !p.resolved[i] && !p.failed[i] {
			p.scanField(i, buf)
		}
		if p.failed[i] {
			return nil, false
		}
		complete = complete && p.resolved[i]
	}
	if !complete {
		return nil, false
	}

	return &models.PartialItinerary{
		FromName:          p.names[0],
		DestinationName:   p.names[1],
		FromCoords:        p.coords[0],
		DestinationCoords: p.coords[1],
	}, true
}

func (p *partialScanner) scanField(i int, buf string) {
	pat := partialPatterns[i]
	tail := buf[p.from[i]:]

	m := pat.re.FindStringSubmatchIndex(tail)
	if m == nil {
		// Every match starts with the key, so nothing before its first
		// occurrence (or before a key still being streamed in) can match.
		if k := strings.Index(tail, pat.key); k >= 0 {
			p.from[i] += k
		} else {
			p.from[i] = max(p.from[i], len(buf)-len(pat.key)+1)
		}
		return
	}

	value := tail[m[2]:m[3]]
	var ok bool
	switch i {
	case fieldFromName, fieldDestName:
		p.names[i-fieldFromName], ok = decodeName(value)
	default:
		p.coords[i-fieldFromCoords], ok = decodeCoords(value)
	}
	p.resolved[i] = ok
	p.failed[i] = !ok
}

func decodeCoords(raw string) (models.Coords, bool) {
	var c struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil || c.Lat == nil || c.Lon == nil {
		return models.Coords{}, false
	}
	return models.Coords{Lat: *c.Lat, Lon: *c.Lon}, true
}

func decodeName(raw string) (string, bool) {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}
