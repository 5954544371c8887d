package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/domain/itinerary"
	"github.com/Anexus5919/RoamiQ/internal/app/llm"
	"github.com/Anexus5919/RoamiQ/internal/app/observability/tracer"
	"github.com/Anexus5919/RoamiQ/internal/pkg/cache"
	"github.com/Anexus5919/RoamiQ/internal/pkg/config"
	"github.com/Anexus5919/RoamiQ/internal/pkg/logger"
	"github.com/Anexus5919/RoamiQ/internal/server"
)

const (
	serviceName    = "roamiq"
	serviceVersion = "0.1.0"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	l, err := logger.New(cfg.LogLevel, zap.String("service", serviceName))
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	otelShutdown, appMetrics, err := server.InitObservability(tracer.Options{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		MetricsAddr:    cfg.Observability.MetricsAddr,
		OTLPEndpoint:   cfg.Observability.OTelEndpoint,
	}, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			l.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	ctx := context.Background()
	srv, err := server.New(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer srv.Close()

	source, err := llm.NewSource(ctx, cfg.LLM, l)
	if err != nil {
		return err
	}
	l.Info("Model source ready", zap.String("provider", source.Provider()), zap.String("model", source.Model()))

	var repo itinerary.Repository
	if pool := srv.GetDBPool(); pool != nil {
		repo = itinerary.NewRepositoryImpl(pool, appMetrics, l)
	}
	cacheManager := cache.NewCacheManager(cfg.Stream.CacheTTL, l)

	svc := itinerary.NewServiceImpl(source, repo, cacheManager.Itineraries, appMetrics, itinerary.ServiceOptions{
		Timeout:   cfg.Stream.Timeout,
		MaxChunks: cfg.Stream.MaxChunks,
	}, l)
	// Let pending generation-log writes land before the pool closes.
	defer svc.Wait()

	router := server.SetupRouter(serviceName, itinerary.NewHandler(svc, l), srv.HealthCheck, appMetrics, l)
	srv.SetRouter(router)

	pprofServer := server.StartPprofServer(cfg.Observability.PprofAddr, l)

	httpServer := srv.HTTPServer()

	done := make(chan bool, 1)
	go server.GracefulShutdown(l, done, httpServer, pprofServer)

	l.Info("Server starting", zap.String("port", cfg.ServerPort))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("Server error", zap.Error(err))
		return err
	}

	<-done
	l.Info("Graceful shutdown complete")

	return nil
}
