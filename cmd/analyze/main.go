// Package main runs one analysis from the command line and writes the
// report renderings (Markdown, JSON, CSV) into an output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"chain-fraud-lab/internal/config"
	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/logging"
	"chain-fraud-lab/internal/normalization"
	"chain-fraud-lab/internal/orchestrator"
	"chain-fraud-lab/internal/reporting"
	"chain-fraud-lab/internal/storage/backend"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	input := flag.String("input", "", "JSON file with an array of tagged records (empty reads the event store)")
	entity := flag.String("entity", "", "Analyzed address or contract (empty analyzes the whole window)")
	fromBlock := flag.Uint64("from-block", 0, "First block of the window (inclusive)")
	toBlock := flag.Uint64("to-block", 0, "Last block of the window (inclusive, 0 for no bound)")
	detectors := flag.String("detectors", "", "Comma-separated detectors (empty runs all)")
	options := flag.String("options", "", "Comma-separated key=value detector options")
	targets := flag.String("targets", "", "Comma-separated addresses for centrality reporting")
	baselineFirstN := flag.Int("baseline-first-n", 0, "Baseline over the first N entity events")
	baselineBefore := flag.Uint64("baseline-before-block", 0, "Baseline over entity events before this block")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string")
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	opts, err := parseOptions(*options)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --options")
	}

	req := orchestrator.Request{
		Entity:              *entity,
		FromBlock:           *fromBlock,
		ToBlock:             *toBlock,
		Detectors:           splitList(*detectors),
		Options:             opts,
		Targets:             splitList(*targets),
		BaselineFirstN:      *baselineFirstN,
		BaselineBeforeBlock: *baselineBefore,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, cfg.AnalysisTimeout)

	orch := orchestrator.New(logger, cfg.Detector).WithConcurrency(cfg.DetectorConcurrency)
	err = runAnalyze(ctx, logger, orch, req, *input, *outputDir, func(ctx context.Context) (*backend.Stores, error) {
		return backend.Open(ctx, backend.Options{
			PostgresDSN:   *postgresDSN,
			ClickHouseDSN: *clickhouseDSN,
		}, logger)
	})
	cancel()
	stop()
	if err != nil {
		logger.Error().Err(err).Msg("analysis failed")
		os.Exit(1)
	}
}

// runAnalyze analyzes records from input, or from the event store when input
// is empty, and writes the report files. Stores are closed before it returns.
func runAnalyze(
	ctx context.Context,
	logger zerolog.Logger,
	orch *orchestrator.Orchestrator,
	req orchestrator.Request,
	input, outputDir string,
	openStores func(context.Context) (*backend.Stores, error),
) error {
	var report *domain.Report
	if input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("read input %s: %w", input, err)
		}
		req.Records, err = normalization.DecodeRecords(data)
		if err != nil {
			return fmt.Errorf("decode records from %s: %w", input, err)
		}
		report, err = orch.Analyze(ctx, req)
		if err != nil {
			return err
		}
	} else {
		stores, err := openStores(ctx)
		if err != nil {
			return fmt.Errorf("open stores: %w", err)
		}
		defer stores.Close()

		report, err = orch.WithStore(stores.Events).AnalyzeStored(ctx, req)
		if err != nil {
			return err
		}
		if err := stores.Reports.Save(ctx, report); err != nil {
			logger.Warn().Err(err).Str("report_id", report.ID).Msg("failed to store report")
		}
	}

	paths, err := reporting.WriteFiles(outputDir, report)
	if err != nil {
		return fmt.Errorf("write report files: %w", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}

	logger.Info().
		Str("report_id", report.ID).
		Str("verdict", string(report.Decision.Verdict)).
		Int("findings", len(report.Findings)).
		Msg("report written")
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseOptions parses "key=value,key=value" into detector options.
func parseOptions(raw string) (map[string]float64, error) {
	parts := splitList(raw)
	if len(parts) == 0 {
		return nil, nil
	}
	opts := make(map[string]float64, len(parts))
	for _, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("option %q: want key=value", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", part, err)
		}
		opts[strings.TrimSpace(key)] = v
	}
	return opts, nil
}
