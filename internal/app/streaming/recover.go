package streaming

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
)

// Strategy names the step that produced an itinerary.
type Strategy string

const (
	StrategyFirstObject      Strategy = "first_object"
	StrategyLargestCandidate Strategy = "largest_candidate"
	StrategyRepaired         Strategy = "repaired_candidate"
	StrategyDoubleEncoded    Strategy = "double_encoded"
)

// decodeItinerary parses text strictly and checks the minimum shape.
// Type mismatches on known fields count as shape failures, not syntax ones.
func decodeItinerary(text string) (*models.Itinerary, error) {
	var it models.Itinerary
	if err := json.Unmarshal([]byte(text), &it); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %v", models.ErrShapeInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedJSON, err)
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	return &it, nil
}

type recovery struct {
	shapeInvalid bool
	lastErr      error
}

func (r *recovery) try(text string) *models.Itinerary {
	it, err := decodeItinerary(text)
	if err != nil {
		if errors.Is(err, models.ErrShapeInvalid) {
			r.shapeInvalid = true
		}
		r.lastErr = err
		return nil
	}
	return it
}

// Recover runs the end-of-stream strategies in order of strictness and
// returns the first shape-valid itinerary found in buf.
func Recover(buf string) (*models.Itinerary, Strategy, error) {
	r := &recovery{}
	first := ExtractFirst(buf, true)

	if it, strategy := r.direct(buf, first); it != nil {
		return it, strategy, nil
	}

	if inner, ok := unwrapDoubleEncoded(buf); ok {
		if it, _ := r.direct(inner, ExtractFirst(inner, true)); it != nil {
			return it, StrategyDoubleEncoded, nil
		}
	}

	return nil, "", r.classify(first)
}

func (r *recovery) direct(buf string, first Extraction) (*models.Itinerary, Strategy) {
	if first.Kind == ExtractCandidate {
		if it := r.try(first.Text); it != nil {
			return it, StrategyFirstObject
		}
	}

	candidates := ExtractAll(buf)
	for _, c := range candidates {
		if first.Kind == ExtractCandidate && c == first.Text {
			continue
		}
		if it := r.try(c); it != nil {
			return it, StrategyLargestCandidate
		}
	}

	for _, c := range candidates {
		repaired := repairJSON(c)
		if repaired == c {
			continue
		}
		if it := r.try(repaired); it != nil {
			return it, StrategyRepaired
		}
	}
	return nil, ""
}

func (r *recovery) classify(first Extraction) *GenerationError {
	switch {
	case first.Kind == ExtractMalformed:
		return newGenerationError(KindIncompleteStream, msgUnparseable, r.lastErr)
	case r.shapeInvalid:
		return newGenerationError(KindShapeInvalid, msgUnparseable, r.lastErr)
	case first.Start == -1:
		return newGenerationError(KindMalformedJSON, msgUnparseable, errors.New("no JSON object found"))
	default:
		return newGenerationError(KindMalformedJSON, msgUnparseable, r.lastErr)
	}
}

// repairJSON fixes the mistakes models commonly make in otherwise balanced
// output: backticks from markdown, trailing commas, and raw control
// characters inside strings.
func repairJSON(s string) string {
	s = strings.ReplaceAll(s, "`", "")

	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escapeNext := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escapeNext:
				escapeNext = false
				b.WriteByte(c)
			case c == '\\':
				escapeNext = true
				b.WriteByte(c)
			case c == '"':
				inString = false
				b.WriteByte(c)
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\r':
				b.WriteString(`\r`)
			case c == '\t':
				b.WriteString(`\t`)
			case c < 0x20:
				fmt.Fprintf(&b, `\u%04x`, c)
			default:
				b.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case ',':
			if closesNext(s, i+1) {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closesNext reports whether the next non-space byte at or after i closes an
// object or array.
func closesNext(s string, i int) bool {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

var encodedObjectRe = regexp.MustCompile(`"\s*\{`)

// unwrapDoubleEncoded finds the first JSON string literal that decodes to
// text containing an object, as produced when a model JSON-encodes its own
// answer.
func unwrapDoubleEncoded(buf string) (string, bool) {
	for _, loc := range encodedObjectRe.FindAllStringIndex(buf, -1) {
		end, ok := stringLiteralEnd(buf, loc[0])
		if !ok {
			continue
		}
		var decoded string
		if err := json.Unmarshal([]byte(buf[loc[0]:end]), &decoded); err != nil {
			continue
		}
		if strings.Contains(decoded, "{") {
			return decoded, true
		}
	}
	return "", false
}

// stringLiteralEnd returns the exclusive end of the string literal whose
// opening quote is at start.
func stringLiteralEnd(s string, start int) (int, bool) {
	escapeNext := false
	for i := start + 1; i < len(s); i++ {
		switch {
		case escapeNext:
			escapeNext = false
		case s[i] == '\\':
			escapeNext = true
		case s[i] == '"':
			return i + 1, true
		}
	}
	return 0, false
}
