// Package main loads a file of fetcher records, normalizes them and stores
// the events for later AnalyzeStored requests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"chain-fraud-lab/internal/config"
	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/logging"
	"chain-fraud-lab/internal/normalization"
	"chain-fraud-lab/internal/observability"
	"chain-fraud-lab/internal/storage"
	"chain-fraud-lab/internal/storage/backend"
)

const defaultBatchSize = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	input := flag.String("input", "", "JSON file with an array of tagged records (required)")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string")
	batchSize := flag.Int("batch-size", defaultBatchSize, "Events per insert batch")
	skipExisting := flag.Bool("skip-existing", true, "Insert one by one when a batch hits an existing event")
	dryRun := flag.Bool("dry-run", false, "Normalize only, store into memory")

	flag.Parse()

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logger = logging.WithComponent(logger, "ingest")

	if *input == "" {
		logger.Fatal().Msg("--input is required")
	}
	if *batchSize < 1 {
		logger.Fatal().Int("batch_size", *batchSize).Msg("--batch-size must be >= 1")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(*input)
	if err != nil {
		logger.Fatal().Err(err).Str("input", *input).Msg("failed to read input")
	}
	records, err := normalization.DecodeRecords(data)
	if err != nil {
		logger.Fatal().Err(err).Str("input", *input).Msg("failed to decode records")
	}

	res := normalization.Normalize(records)
	for _, d := range res.Dropped {
		observability.RecordDropped(string(d.Kind))
		logger.Warn().Int("index", d.Index).Str("kind", string(d.Kind)).Str("reason", d.Reason).Msg("dropped record")
	}

	stores, err := backend.Open(ctx, backend.Options{
		PostgresDSN:   *postgresDSN,
		ClickHouseDSN: *clickhouseDSN,
		UseMemory:     *dryRun,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open stores")
	}
	defer stores.Close()

	stored, skipped, err := ingest(ctx, stores.Events, res.Events, *batchSize, *skipExisting, logger)
	if err != nil {
		logger.Error().Err(err).Int("stored", stored).Msg("ingest failed")
		stores.Close()
		os.Exit(1)
	}

	logger.Info().
		Int("records", len(records)).
		Int("dropped", len(res.Dropped)).
		Int("stored", stored).
		Int("skipped", skipped).
		Str("stores", stores.Kind).
		Msg("ingest complete")
}

// ingest writes events in batches. With skipExisting, a batch rejected for a
// duplicate is retried event by event and existing events are skipped.
func ingest(ctx context.Context, store storage.EventStore, events []domain.Event, batchSize int, skipExisting bool, logger zerolog.Logger) (stored, skipped int, err error) {
	for start := 0; start < len(events); start += batchSize {
		if err := ctx.Err(); err != nil {
			return stored, skipped, err
		}
		end := min(start+batchSize, len(events))

		batch := make([]*domain.Event, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, &events[i])
		}

		err := store.InsertBulk(ctx, batch)
		switch {
		case err == nil:
			stored += len(batch)
			observability.RecordEventsStored("router", len(batch))
			continue
		case !errors.Is(err, storage.ErrDuplicateKey) || !skipExisting:
			return stored, skipped, fmt.Errorf("insert batch at %d: %w", start, err)
		}

		logger.Debug().Int("batch_start", start).Msg("batch has existing events, inserting one by one")
		for _, e := range batch {
			err := store.Insert(ctx, e)
			if errors.Is(err, storage.ErrDuplicateKey) {
				skipped++
				continue
			}
			if err != nil {
				return stored, skipped, fmt.Errorf("insert event %s: %w", e.ID, err)
			}
			stored++
			observability.RecordEventsStored("router", 1)
		}
	}
	return stored, skipped, nil
}
