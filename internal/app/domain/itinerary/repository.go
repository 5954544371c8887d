package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
	"github.com/Anexus5919/RoamiQ/internal/app/observability/metrics"
)

var _ Repository = (*RepositoryImpl)(nil)

const generationsTable = "itinerary_generations"

var generationColumns = []string{
	"id", "session_id", "origin", "destination", "dates", "interests",
	"provider", "model", "prompt_hash", "state", "strategy", "error_kind",
	"error_message", "chunk_count", "raw_length", "itinerary", "duration_ms", "created_at",
}

// Repository persists the generation log.
type Repository interface {
	SaveGeneration(ctx context.Context, g *models.Generation) error
	ListRecent(ctx context.Context, limit int) ([]models.Generation, error)
}

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type RepositoryImpl struct {
	logger  *zap.Logger
	db      DB
	metrics *metrics.AppMetrics
	psql    sq.StatementBuilderType
}

func NewRepositoryImpl(db DB, appMetrics *metrics.AppMetrics, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger:  logger,
		db:      db,
		metrics: appMetrics,
		psql:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *RepositoryImpl) SaveGeneration(ctx context.Context, g *models.Generation) error {
	ctx, span := otel.Tracer("ItineraryRepo").Start(ctx, "SaveGeneration", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", generationsTable),
		attribute.String("generation.state", g.State),
	))
	defer span.End()

	var itineraryJSON []byte
	if g.Itinerary != nil {
		var err error
		if itineraryJSON, err = json.Marshal(g.Itinerary); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "marshal itinerary")
			return fmt.Errorf("failed to marshal itinerary: %w", err)
		}
	}

	interests := g.Interests
	if interests == nil {
		interests = []string{}
	}

	query, args, err := r.psql.Insert(generationsTable).
		Columns(generationColumns...).
		Values(
			g.ID, g.SessionID, g.Origin, g.Destination, g.Dates, interests,
			g.Provider, g.Model, g.PromptHash, g.State, g.Strategy, g.ErrorKind,
			g.ErrorMessage, g.ChunkCount, g.RawLength, itineraryJSON, g.DurationMs, g.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	start := time.Now()
	_, err = r.db.Exec(ctx, query, args...)
	r.recordQuery(ctx, "INSERT", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return fmt.Errorf("database error saving generation: %w", err)
	}

	span.SetStatus(codes.Ok, "Generation saved")
	return nil
}

func (r *RepositoryImpl) ListRecent(ctx context.Context, limit int) ([]models.Generation, error) {
	ctx, span := otel.Tracer("ItineraryRepo").Start(ctx, "ListRecent", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", generationsTable),
		attribute.Int("limit", limit),
	))
	defer span.End()

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive: %w", models.ErrBadRequest)
	}

	query, args, err := r.psql.Select(generationColumns...).
		From(generationsTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.recordQuery(ctx, "SELECT", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error listing generations: %w", err)
	}
	defer rows.Close()

	generations := make([]models.Generation, 0, limit)
	for rows.Next() {
		var (
			g             models.Generation
			itineraryJSON []byte
		)
		if err := rows.Scan(
			&g.ID, &g.SessionID, &g.Origin, &g.Destination, &g.Dates, &g.Interests,
			&g.Provider, &g.Model, &g.PromptHash, &g.State, &g.Strategy, &g.ErrorKind,
			&g.ErrorMessage, &g.ChunkCount, &g.RawLength, &itineraryJSON, &g.DurationMs, &g.CreatedAt,
		); err != nil {
			r.recordQuery(ctx, "SELECT", start, err)
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		if len(itineraryJSON) > 0 {
			g.Itinerary = &models.Itinerary{}
			if err := json.Unmarshal(itineraryJSON, g.Itinerary); err != nil {
				r.logger.Warn("Stored itinerary is not valid JSON",
					zap.String("generation_id", g.ID.String()), zap.Error(err))
				g.Itinerary = nil
			}
		}
		generations = append(generations, g)
	}
	err = rows.Err()
	r.recordQuery(ctx, "SELECT", start, err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating generation rows: %w", err)
	}

	span.SetAttributes(attribute.Int("db.rows", len(generations)))
	span.SetStatus(codes.Ok, "Generations listed")
	return generations, nil
}

func (r *RepositoryImpl) recordQuery(ctx context.Context, operation string, start time.Time, err error) {
	if r.metrics != nil {
		r.metrics.RecordDBQuery(ctx, operation, time.Since(start), err)
	}
}
