package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/observability/metrics"
	"github.com/Anexus5919/RoamiQ/internal/app/observability/tracer"
)

// ObservabilityShutdownFunc is the function type returned by InitObservability
type ObservabilityShutdownFunc func(context.Context) error

// InitObservability initializes OpenTelemetry and application metrics.
// The meter provider must be installed before the instruments are created.
func InitObservability(opts tracer.Options, logger *zap.Logger) (ObservabilityShutdownFunc, *metrics.AppMetrics, error) {
	otelShutdown, err := tracer.InitOtelProviders(opts, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	if err := metrics.InitAppMetrics(); err != nil {
		_ = otelShutdown(context.Background())
		return nil, nil, fmt.Errorf("failed to initialize application metrics: %w", err)
	}
	logger.Info("Observability initialized", zap.String("metrics_endpoint", opts.MetricsAddr+"/metrics"))

	return otelShutdown, metrics.Get(), nil
}
