package models

import (
	"errors"
	"fmt"
)

// Generation failure kinds.
var (
	ErrTransport        = errors.New("model stream transport failed")
	ErrIncompleteStream = errors.New("stream ended inside an unterminated JSON structure")
	ErrShapeInvalid     = errors.New("itinerary is missing required fields")
	ErrMalformedJSON    = errors.New("model output is not valid JSON")
	ErrTimeout          = errors.New("itinerary generation timed out")
	ErrCancelled        = errors.New("itinerary generation cancelled")
)

// Request and storage errors.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrHistoryDisabled    = errors.New("generation history is disabled")
	ErrUnknownLLMProvider = errors.New("unknown llm provider")
)

// ShapeError names the first required field a parsed itinerary lacks.
type ShapeError struct {
	Field string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("itinerary is missing required field %q", e.Field)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeInvalid
}
