package streaming

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
)

// State is the lifecycle state of one streaming generation.
type State string

const (
	StateAwaitingFirstByte State = "awaiting_first_byte"
	StateStreaming         State = "streaming"
	StateCompleted         State = "completed"
	StatePartialRecovered  State = "partial_recovered"
	StateFailed            State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StatePartialRecovered || s == StateFailed
}

type SessionOptions struct {
	// MaxChunks bounds the number of chunks parsed; 0 means unbounded.
	MaxChunks int
	Logger    *zap.Logger
}

// Update is what a Session reports after each chunk.
// Partial and Itinerary are set only on the update that first produced them.
type Update struct {
	State      State
	Milestones Milestones
	Chunk      string
	Partial    *models.PartialItinerary
	Itinerary  *models.Itinerary
}

// Outcome is the result of a successful session.
type Outcome struct {
	State      State
	Itinerary  *models.Itinerary
	Partial    *models.PartialItinerary
	Strategy   Strategy
	Raw        string
	Chunks     int
	Milestones Milestones
}

// Recovered reports whether the itinerary was only found after the stream ended.
func (o *Outcome) Recovered() bool {
	return o.State == StatePartialRecovered
}

// Session turns one chunked model response into an itinerary.
// It is owned by a single request and must not be shared between goroutines.
type Session struct {
	opts   SessionOptions
	logger *zap.Logger

	buf        Buffer
	state      State
	milestones Milestones
	itinerary  *models.Itinerary
	partial    *models.PartialItinerary
	strategy   Strategy
	err        *GenerationError

	// Incremental scans over buf; each only looks at bytes added since its last call.
	first       firstObjectTracker
	partialScan partialScanner

	// The first balanced object is fixed once found; after it has been
	// rejected there is nothing left to check until the stream ends.
	firstRejected bool
}

func NewSession(opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		opts:       opts,
		logger:     logger,
		state:      StateAwaitingFirstByte,
		milestones: InitialMilestones(),
	}
}

func (s *Session) State() State { return s.state }

func (s *Session) Milestones() Milestones { return s.milestones }

// Raw returns the buffered model output, for debugging.
func (s *Session) Raw() string { return s.buf.String() }

// Chunks returns how many chunks have been buffered.
func (s *Session) Chunks() int { return s.buf.Chunks() }

// Partial returns the early partial itinerary, if one was found.
func (s *Session) Partial() *models.PartialItinerary { return s.partial }

// Feed appends one chunk and advances the session. Chunks arriving after a
// terminal state are ignored.
func (s *Session) Feed(chunk string) Update {
	if s.state.Terminal() {
		return Update{State: s.state, Milestones: s.milestones}
	}

	if s.opts.MaxChunks > 0 && s.buf.Chunks() >= s.opts.MaxChunks {
		s.fail(newGenerationError(KindTimeout, "itinerary generation exceeded its chunk budget",
			fmt.Errorf("more than %d chunks", s.opts.MaxChunks)))
		return Update{State: s.state, Milestones: s.milestones, Chunk: chunk}
	}

	prevLen := s.buf.Len()
	s.buf.Append(chunk)
	s.state = StateStreaming

	buf := s.buf.String()
	upd := Update{Chunk: chunk}

	if !s.firstRejected {
		if ext := s.first.update(buf); ext.Kind == ExtractCandidate {
			it, err := decodeItinerary(ext.Text)
			if err == nil {
				s.complete(it, StrategyFirstObject)
				upd.State = s.state
				upd.Milestones = s.milestones
				upd.Itinerary = it
				return upd
			}
			s.firstRejected = true
			s.logger.Debug("First balanced object rejected, deferring to end-of-stream recovery",
				zap.Int("object_length", len(ext.Text)),
				zap.Bool("shape_invalid", errors.Is(err, models.ErrShapeInvalid)),
				zap.Error(err))
		}
	}

	if s.partial == nil {
		if p, ok := s.partialScan.update(buf); ok {
			s.partial = p
			upd.Partial = p
			s.logger.Debug("Early partial itinerary extracted",
				zap.String("from", p.FromName),
				zap.String("destination", p.DestinationName))
		}
	}

	// Milestones never regress, so only the new text needs scanning, plus
	// enough of the old text to catch a marker split across chunks.
	s.milestones = Advance(s.milestones, buf[max(0, prevLen-markerOverlap):])
	upd.State = s.state
	upd.Milestones = s.milestones
	return upd
}

// Finish is called at end-of-stream. It returns the completed outcome, or
// runs lenient recovery, or fails with a *GenerationError.
func (s *Session) Finish() (*Outcome, error) {
	switch s.state {
	case StateCompleted, StatePartialRecovered:
		return s.outcome(), nil
	case StateFailed:
		return nil, s.err
	}

	s.milestones = Close(s.milestones)

	it, strategy, err := Recover(s.buf.String())
	if err != nil {
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			genErr = newGenerationError(KindMalformedJSON, msgUnparseable, err)
		}
		s.fail(genErr)
		return nil, genErr
	}

	s.itinerary = it
	s.strategy = strategy
	s.state = StatePartialRecovered
	s.logger.Debug("Itinerary recovered after end of stream",
		zap.String("strategy", string(strategy)),
		zap.Int("chunks", s.buf.Chunks()))
	return s.outcome(), nil
}

// Run consumes chunks until the source ends, fails, or ctx is done.
// onUpdate is called synchronously after every parsed chunk. Once the
// itinerary is complete, remaining chunks are drained without parsing.
// Cancellation returns immediately without touching the session further.
func (s *Session) Run(ctx context.Context, chunks iter.Seq2[string, error], onUpdate func(Update)) (*Outcome, error) {
	for chunk, err := range chunks {
		if s.state == StateCompleted {
			if err != nil {
				s.logger.Debug("Stream error after itinerary was complete", zap.Error(err))
				break
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, s.abort(ctxErr)
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, s.abort(err)
			}
			genErr := newGenerationError(KindTransport, "model stream failed", err)
			s.fail(genErr)
			return nil, genErr
		}

		upd := s.Feed(chunk)
		if onUpdate != nil {
			onUpdate(upd)
		}
		if upd.State == StateFailed {
			return nil, s.err
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil && s.state != StateCompleted {
		return nil, s.abort(ctxErr)
	}
	return s.Finish()
}

// abort maps a context error to the session's terminal error. A deadline is
// a failure; a cancellation leaves the session untouched.
func (s *Session) abort(ctxErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		genErr := newGenerationError(KindTimeout, "itinerary generation timed out", ctxErr)
		s.fail(genErr)
		return genErr
	}
	return newGenerationError(KindCancelled, "itinerary generation cancelled", ctxErr)
}

func (s *Session) complete(it *models.Itinerary, strategy Strategy) {
	s.itinerary = it
	s.strategy = strategy
	s.state = StateCompleted
	s.milestones = Close(s.milestones)
	s.logger.Debug("Itinerary completed mid-stream",
		zap.Int("chunks", s.buf.Chunks()),
		zap.Int("buffer_length", s.buf.Len()))
}

func (s *Session) fail(err *GenerationError) {
	s.err = err
	s.state = StateFailed
	s.milestones = Close(s.milestones)
	s.logger.Debug("Session failed",
		zap.String("kind", string(err.Kind)),
		zap.Int("chunks", s.buf.Chunks()),
		zap.Error(err))
}

func (s *Session) outcome() *Outcome {
	return &Outcome{
		State:      s.state,
		Itinerary:  s.itinerary,
		Partial:    s.partial,
		Strategy:   s.strategy,
		Raw:        s.buf.String(),
		Chunks:     s.buf.Chunks(),
		Milestones: s.milestones,
	}
}
