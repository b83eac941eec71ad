// Package config loads process settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chain-fraud-lab/internal/detector"
)

// Config holds settings shared by the binaries.
type Config struct {
	Environment string
	LogLevel    string
	LogFormat   string

	HTTPAddr string
	// APIKey, when set, is required in the X-API-Key header of API requests.
	APIKey        string
	PostgresDSN   string
	ClickHouseDSN string

	KafkaBrokers []string
	KafkaTopic   string

	AnalysisTimeout     time.Duration
	DetectorConcurrency int

	// Detector holds default thresholds; requests may override them.
	Detector detector.Config
}

// detectorEnv maps environment variables to detector option keys.
var detectorEnv = map[string]string{
	"Z_THRESHOLD":                   detector.OptZThreshold,
	"Z_HIGH_MARGIN":                 detector.OptZHighMargin,
	"CUSUM_THRESHOLD":               detector.OptCUSUMThreshold,
	"CUSUM_LIMIT":                   detector.OptCUSUMLimit,
	"CENTRALITY_MIN_DEGREE":         detector.OptCentralityMinDegree,
	"PRICE_IMPACT_BPS":              detector.OptPriceImpactBps,
	"WASH_MAX_INTERVAL":             detector.OptWashMaxInterval,
	"WASH_MAX_BLOCK_GAP":            detector.OptWashMaxBlockGap,
	"CONCENTRATION_SHARE_THRESHOLD": detector.OptConcentrationShare,
	"HIGH_FREQUENCY_THRESHOLD":      detector.OptHighFrequencyCount,
}

// Load reads .env from the working directory (without overriding variables
// already set) and then builds the Config from the environment.
func Load() (Config, error) {
	LoadEnvFile(".env")
	return FromEnv(os.Getenv)
}

// FromEnv builds the Config from a variable lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Environment:   valueOr(getenv("ENVIRONMENT"), "development"),
		LogLevel:      valueOr(getenv("LOG_LEVEL"), "info"),
		LogFormat:     valueOr(getenv("LOG_FORMAT"), "json"),
		HTTPAddr:      valueOr(getenv("HTTP_ADDR"), ":8080"),
		APIKey:        strings.TrimSpace(getenv("BACKEND_API_KEY")),
		PostgresDSN:   getenv("POSTGRES_DSN"),
		ClickHouseDSN: getenv("CLICKHOUSE_DSN"),
		KafkaBrokers:  splitList(getenv("KAFKA_BROKERS")),
		KafkaTopic:    valueOr(getenv("KAFKA_TOPIC"), "fraud-reports"),
	}

	timeout, err := parseDuration(getenv, "ANALYSIS_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.AnalysisTimeout = timeout

	concurrency, err := parseInt(getenv, "DETECTOR_CONCURRENCY", 4)
	if err != nil {
		return Config{}, err
	}
	if concurrency < 1 {
		return Config{}, fmt.Errorf("DETECTOR_CONCURRENCY must be >= 1, got %d", concurrency)
	}
	cfg.DetectorConcurrency = concurrency

	det, err := detectorFromEnv(getenv)
	if err != nil {
		return Config{}, err
	}
	cfg.Detector = det

	return cfg, nil
}

func detectorFromEnv(getenv func(string) string) (detector.Config, error) {
	base := detector.DefaultConfig()

	if raw := strings.TrimSpace(getenv("LARGE_TRANSFER_THRESHOLD")); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return detector.Config{}, fmt.Errorf("LARGE_TRANSFER_THRESHOLD: %w", err)
		}
		base.LargeTransferThreshold = d
	}

	opts := make(map[string]float64)
	for env, key := range detectorEnv {
		raw := strings.TrimSpace(getenv(env))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return detector.Config{}, fmt.Errorf("%s: %w", env, err)
		}
		opts[key] = v
	}

	cfg, err := base.WithOptions(opts)
	if err != nil {
		return detector.Config{}, fmt.Errorf("detector defaults: %w", err)
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE lines from path into the environment.
// Existing variables are not overridden; a missing file is ignored.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
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

func parseDuration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseInt(getenv func(string) string, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
