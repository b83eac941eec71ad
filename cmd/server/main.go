// Package main runs the analysis service: HTTP API, case management, report
// stream and optional Kafka delivery over the configured stores.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"chain-fraud-lab/internal/api"
	"chain-fraud-lab/internal/config"
	"chain-fraud-lab/internal/logging"
	"chain-fraud-lab/internal/orchestrator"
	"chain-fraud-lab/internal/publish"
	"chain-fraud-lab/internal/storage/backend"
	"chain-fraud-lab/internal/stream"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment settings.
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string")
	kafkaBrokers := flag.String("kafka-brokers", strings.Join(cfg.KafkaBrokers, ","), "Comma-separated Kafka brokers (empty disables Kafka)")
	kafkaTopic := flag.String("kafka-topic", cfg.KafkaTopic, "Kafka topic for finished reports")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL and ClickHouse")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level")

	flag.Parse()

	logger, err := logging.New(logging.Config{Level: *logLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logger = logging.WithComponent(logger, "server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := backend.Open(ctx, backend.Options{
		PostgresDSN:   *postgresDSN,
		ClickHouseDSN: *clickhouseDSN,
		UseMemory:     *useMemory,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open stores")
	}
	defer stores.Close()
	logger.Info().Str("stores", stores.Kind).Msg("stores ready")
	if cfg.APIKey == "" {
		logger.Warn().Msg("BACKEND_API_KEY not set, API is unauthenticated")
	}

	orch := orchestrator.New(logger, cfg.Detector).
		WithStore(stores.Events).
		WithConcurrency(cfg.DetectorConcurrency)

	hub := stream.NewHub(logger)
	sinks := []publish.Publisher{hub}
	if brokers := splitBrokers(*kafkaBrokers); len(brokers) > 0 {
		kafka, err := publish.NewKafkaPublisher(brokers, *kafkaTopic, logger)
		if err != nil {
			logger.Fatal().Err(err).Strs("brokers", brokers).Msg("failed to create kafka publisher")
		}
		sinks = append(sinks, kafka)
		logger.Info().Strs("brokers", brokers).Str("topic", *kafkaTopic).Msg("kafka publishing enabled")
	}
	publisher := publish.NewFanout(sinks...)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close publishers")
		}
	}()

	router := api.NewServer(orch, logger,
		api.WithReportStore(stores.Reports),
		api.WithCaseStore(stores.Cases),
		api.WithAPIKey(cfg.APIKey),
		api.WithPublisher(publisher),
		api.WithStream(hub),
		api.WithAnalysisTimeout(cfg.AnalysisTimeout),
	)
	handler := handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, router))

	if err := serve(ctx, *httpAddr, handler, logger); err != nil {
		logger.Error().Err(err).Msg("server error")
		return
	}
	logger.Info().Msg("shutdown complete")
}

func serve(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
