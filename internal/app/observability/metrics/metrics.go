package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal      metric.Int64Counter
	HTTPRequestDuration    metric.Float64Histogram
	GenerationsTotal       metric.Int64Counter
	GenerationDuration     metric.Float64Histogram
	TimeToFirstChunk       metric.Float64Histogram
	StreamChunks           metric.Int64Histogram
	CacheHitsTotal         metric.Int64Counter
	DBQueryDurationSeconds metric.Float64Histogram
	DBQueryErrorsTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	initErr    error
	once       sync.Once
)

// InitAppMetrics creates the instruments from the global MeterProvider.
// Only the first call does any work; later calls return its result.
func InitAppMetrics() error {
	once.Do(func() {
		appMetrics, initErr = newAppMetrics(otel.GetMeterProvider().Meter("roamiq"))
	})
	return initErr
}

// Get returns the initialized AppMetrics.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	m := &AppMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests completed"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("metrics: http_requests_total: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("metrics: http_request_duration_seconds: %w", err)
	}

	if m.GenerationsTotal, err = meter.Int64Counter(
		"itinerary_generations_total",
		metric.WithDescription("Itinerary generations by terminal state and error kind"),
		metric.WithUnit("{generation}"),
	); err != nil {
		return nil, fmt.Errorf("metrics: itinerary_generations_total: %w", err)
	}

	if m.GenerationDuration, err = meter.Float64Histogram(
		"itinerary_generation_duration_seconds",
		metric.WithDescription("Wall time from request to terminal state"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("metrics: itinerary_generation_duration_seconds: %w", err)
	}

	if m.TimeToFirstChunk, err = meter.Float64Histogram(
		"itinerary_time_to_first_chunk_seconds",
		metric.WithDescription("Time until the model produced its first chunk"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("metrics: itinerary_time_to_first_chunk_seconds: %w", err)
	}

	if m.StreamChunks, err = meter.Int64Histogram(
		"itinerary_stream_chunks",
		metric.WithDescription("Chunks received per generation"),
		metric.WithUnit("{chunk}"),
	); err != nil {
		return nil, fmt.Errorf("metrics: itinerary_stream_chunks: %w", err)
	}

	if m.CacheHitsTotal, err = meter.Int64Counter(
		"itinerary_cache_hits_total",
		metric.WithDescription("Requests answered from the itinerary cache"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, fmt.Errorf("metrics: itinerary_cache_hits_total: %w", err)
	}

	if m.DBQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("metrics: db_query_duration_seconds: %w", err)
	}

	if m.DBQueryErrorsTotal, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Total number of database query errors"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("metrics: db_query_errors_total: %w", err)
	}

	return m, nil
}

// RecordGeneration records one finished generation. errorKind is empty on success.
func (m *AppMetrics) RecordGeneration(ctx context.Context, provider, state, errorKind string, chunks int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("state", state),
		attribute.String("error_kind", errorKind),
	)
	m.GenerationsTotal.Add(ctx, 1, attrs)
	m.GenerationDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.StreamChunks.Record(ctx, int64(chunks), metric.WithAttributes(attribute.String("provider", provider)))
}

func (m *AppMetrics) RecordFirstChunk(ctx context.Context, provider string, elapsed time.Duration) {
	m.TimeToFirstChunk.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("provider", provider)))
}

func (m *AppMetrics) RecordCacheHit(ctx context.Context) {
	m.CacheHitsTotal.Add(ctx, 1)
}

// RecordDBQuery records the duration of one query and counts it as an error when err is non-nil.
func (m *AppMetrics) RecordDBQuery(ctx context.Context, operation string, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("db.operation", operation))
	m.DBQueryDurationSeconds.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		m.DBQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), attrs)
}
