package streaming

import (
	"fmt"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
)

// ErrorKind classifies a terminal generation failure for logs and metrics.
type ErrorKind string

const (
	KindTransport        ErrorKind = "transport"
	KindIncompleteStream ErrorKind = "incomplete_stream"
	KindShapeInvalid     ErrorKind = "shape_invalid"
	KindMalformedJSON    ErrorKind = "malformed_json"
	KindTimeout          ErrorKind = "timeout"
	KindCancelled        ErrorKind = "cancelled"
)

const msgUnparseable = "Unable to parse itinerary data. Please try again."

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return models.ErrTransport
	case KindIncompleteStream:
		return models.ErrIncompleteStream
	case KindShapeInvalid:
		return models.ErrShapeInvalid
	case KindTimeout:
		return models.ErrTimeout
	case KindCancelled:
		return models.ErrCancelled
	default:
		return models.ErrMalformedJSON
	}
}

// GenerationError is the single terminal error a session surfaces.
// errors.Is matches it against the sentinel for its kind.
type GenerationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func newGenerationError(kind ErrorKind, msg string, err error) *GenerationError {
	return &GenerationError{Kind: kind, Message: msg, Err: err}
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// UserMessage is the text shown to the user; it never includes internals.
func (e *GenerationError) UserMessage() string {
	switch e.Kind {
	case KindTimeout:
		return "The itinerary took too long to generate. Please try again."
	case KindTransport:
		return "Failed to generate itinerary. Is the model server running?"
	case KindCancelled:
		return "Itinerary generation was cancelled."
	default:
		return msgUnparseable
	}
}
