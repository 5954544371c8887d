package itinerary

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/llm"
	"github.com/Anexus5919/RoamiQ/internal/app/models"
	"github.com/Anexus5919/RoamiQ/internal/app/observability/metrics"
	"github.com/Anexus5919/RoamiQ/internal/app/streaming"
	"github.com/Anexus5919/RoamiQ/internal/pkg/cache"
)

var _ Service = (*ServiceImpl)(nil)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	persistTimeout      = 5 * time.Second
)

// Service generates itineraries and exposes the generation log.
type Service interface {
	// Generate streams one itinerary generation as events through emit.
	// Every terminal outcome except cancellation is reported as an event;
	// the returned error is for logging only.
	Generate(ctx context.Context, sessionID string, req models.TripRequest, emit func(streaming.Event)) error
	History(ctx context.Context, limit int) ([]models.Generation, error)
}

type ServiceOptions struct {
	Timeout   time.Duration
	MaxChunks int
}

type ServiceImpl struct {
	logger  *zap.Logger
	source  llm.ChunkSource
	repo    Repository
	cache   *cache.UnifiedCache[*models.Itinerary]
	metrics *metrics.AppMetrics
	opts    ServiceOptions

	persistWG sync.WaitGroup
}

// NewServiceImpl wires the service. repo and itineraryCache may be nil to
// disable the generation log and caching.
func NewServiceImpl(
	source llm.ChunkSource,
	repo Repository,
	itineraryCache *cache.UnifiedCache[*models.Itinerary],
	appMetrics *metrics.AppMetrics,
	opts ServiceOptions,
	logger *zap.Logger,
) *ServiceImpl {
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	return &ServiceImpl{
		logger:  logger,
		source:  source,
		repo:    repo,
		cache:   itineraryCache,
		metrics: appMetrics,
		opts:    opts,
	}
}

func (s *ServiceImpl) Generate(ctx context.Context, sessionID string, req models.TripRequest, emit func(streaming.Event)) error {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "itinerary.Generate", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("trip.destination", req.Destination),
		attribute.String("llm.provider", s.source.Provider()),
		attribute.String("llm.model", s.source.Model()),
	))
	defer span.End()

	l := s.logger.With(
		zap.String("session_id", sessionID),
		zap.String("destination", req.Destination),
		zap.String("provider", s.source.Provider()),
	)
	started := time.Now()
	emit(streaming.NewStartEvent(sessionID))

	cacheKey := cache.TripRequestKey(req, s.source.Provider(), s.source.Model(), s.logger)
	if s.cache != nil && cacheKey != "" {
		if it, found := s.cache.Get(cacheKey); found {
			s.metrics.RecordCacheHit(ctx)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			l.Info("Itinerary served from cache")
			emit(streaming.NewItineraryEvent(sessionID, &streaming.Outcome{
				State:      streaming.StateCompleted,
				Itinerary:  it,
				Milestones: streaming.Close(streaming.InitialMilestones()),
			}, true))
			emit(streaming.NewCompleteEvent(sessionID))
			span.SetStatus(codes.Ok, "cache hit")
			return nil
		}
	}

	prompt := llm.BuildItineraryPrompt(req)
	genCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	session := streaming.NewSession(streaming.SessionOptions{
		MaxChunks: s.opts.MaxChunks,
		Logger:    l,
	})

	onUpdate := func(upd streaming.Update) {
		emit(streaming.NewProgressEvent(sessionID, upd))
		if upd.Partial != nil {
			emit(streaming.NewPartialEvent(sessionID, upd.Partial))
		}
		if upd.Itinerary != nil {
			// Delivered as soon as it is complete; the rest of the stream is only drained.
			emit(streaming.NewItineraryEvent(sessionID, &streaming.Outcome{
				State:      upd.State,
				Itinerary:  upd.Itinerary,
				Milestones: upd.Milestones,
			}, false))
		}
	}

	chunks := s.timeFirstChunk(genCtx, s.source.Stream(genCtx, prompt), started)
	outcome, err := session.Run(genCtx, chunks, onUpdate)
	elapsed := time.Since(started)

	if err != nil {
		var genErr *streaming.GenerationError
		if !errors.As(err, &genErr) {
			genErr = &streaming.GenerationError{Kind: streaming.KindMalformedJSON, Message: err.Error(), Err: err}
		}
		s.metrics.RecordGeneration(ctx, s.source.Provider(), string(streaming.StateFailed), string(genErr.Kind), session.Chunks(), elapsed)
		s.persist(ctx, s.failedGeneration(sessionID, req, prompt, session, genErr, elapsed))

		span.RecordError(err)
		span.SetStatus(codes.Error, string(genErr.Kind))

		if genErr.Kind == streaming.KindCancelled {
			l.Info("Itinerary generation cancelled by client", zap.Duration("elapsed", elapsed))
			return err
		}

		l.Warn("Itinerary generation failed",
			zap.String("kind", string(genErr.Kind)),
			zap.Int("raw_length", len(session.Raw())),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		emit(streaming.NewErrorEvent(sessionID, genErr, session.Milestones(), session.Partial() != nil))
		return err
	}

	if outcome.Recovered() {
		emit(streaming.NewItineraryEvent(sessionID, outcome, false))
	}

	if s.cache != nil && cacheKey != "" {
		s.cache.Set(cacheKey, outcome.Itinerary)
	}
	s.metrics.RecordGeneration(ctx, s.source.Provider(), string(outcome.State), "", outcome.Chunks, elapsed)
	s.persist(ctx, s.completedGeneration(sessionID, req, prompt, outcome, elapsed))

	l.Info("Itinerary generated",
		zap.String("state", string(outcome.State)),
		zap.String("strategy", string(outcome.Strategy)),
		zap.Int("chunks", outcome.Chunks),
		zap.Int("days", len(outcome.Itinerary.Days)),
		zap.Duration("elapsed", elapsed))

	span.SetAttributes(
		attribute.String("generation.state", string(outcome.State)),
		attribute.String("generation.strategy", string(outcome.Strategy)),
		attribute.Int("stream.chunks", outcome.Chunks),
	)
	span.SetStatus(codes.Ok, "itinerary generated")
	emit(streaming.NewCompleteEvent(sessionID))
	return nil
}

func (s *ServiceImpl) History(ctx context.Context, limit int) ([]models.Generation, error) {
	if s.repo == nil {
		return nil, models.ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

// Wait blocks until pending generation-log writes have finished.
func (s *ServiceImpl) Wait() {
	s.persistWG.Wait()
}

func (s *ServiceImpl) timeFirstChunk(ctx context.Context, chunks iter.Seq2[string, error], started time.Time) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		first := true
		for chunk, err := range chunks {
			if first && err == nil {
				first = false
				s.metrics.RecordFirstChunk(ctx, s.source.Provider(), time.Since(started))
			}
			if !yield(chunk, err) {
				return
			}
		}
	}
}

// persist writes the log entry in the background so the response is not
// held up by the database. The write outlives the request context.
func (s *ServiceImpl) persist(ctx context.Context, g *models.Generation) {
	if s.repo == nil {
		return
	}
	asyncCtx := context.WithoutCancel(ctx)

	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()
		writeCtx, cancel := context.WithTimeout(asyncCtx, persistTimeout)
		defer cancel()

		if err := s.repo.SaveGeneration(writeCtx, g); err != nil {
			s.logger.Error("Failed to save generation log",
				zap.String("session_id", g.SessionID),
				zap.String("generation_id", g.ID.String()),
				zap.Error(err))
		}
	}()
}

func (s *ServiceImpl) baseGeneration(sessionID string, req models.TripRequest, prompt string, elapsed time.Duration) *models.Generation {
	return &models.Generation{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Dates:       req.Dates,
		Interests:   req.Interests,
		Provider:    s.source.Provider(),
		Model:       s.source.Model(),
		PromptHash:  llm.HashPrompt(prompt),
		DurationMs:  elapsed.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
}

func (s *ServiceImpl) completedGeneration(sessionID string, req models.TripRequest, prompt string, outcome *streaming.Outcome, elapsed time.Duration) *models.Generation {
	g := s.baseGeneration(sessionID, req, prompt, elapsed)
	g.State = string(outcome.State)
	g.Strategy = string(outcome.Strategy)
	g.ChunkCount = outcome.Chunks
	g.RawLength = len(outcome.Raw)
	g.Itinerary = outcome.Itinerary
	return g
}

func (s *ServiceImpl) failedGeneration(sessionID string, req models.TripRequest, prompt string, session *streaming.Session, genErr *streaming.GenerationError, elapsed time.Duration) *models.Generation {
	g := s.baseGeneration(sessionID, req, prompt, elapsed)
	g.State = string(streaming.StateFailed)
	g.ErrorKind = string(genErr.Kind)
	g.ErrorMessage = genErr.UserMessage()
	g.ChunkCount = session.Chunks()
	g.RawLength = len(session.Raw())
	return g
}
