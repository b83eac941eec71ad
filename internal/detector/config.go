package detector

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfig is returned for invalid thresholds or detector selections.
// It is raised before any detector runs.
var ErrInvalidConfig = errors.New("invalid detector configuration")

// Option keys accepted in analysis requests.
const (
	OptZThreshold             = "z_threshold"
	OptZHighMargin            = "z_high_margin"
	OptCUSUMThreshold         = "cusum_threshold"
	OptCUSUMLimit             = "cusum_limit"
	OptCentralityMinDegree    = "centrality_min_degree"
	OptPriceImpactBps         = "price_impact_bps"
	OptWashMaxInterval        = "wash_max_interval"
	OptWashMaxBlockGap        = "wash_max_block_gap"
	OptLargeTransferThreshold = "large_transfer_threshold"
	OptConcentrationShare     = "concentration_share"
	OptHighFrequencyCount     = "high_frequency_count"
)

// Config holds every detector threshold. It is passed by value and never
// mutated after validation.
type Config struct {
	ZThreshold             float64         // |z| above this is anomalous
	ZHighMargin            float64         // |z| >= ZThreshold+ZHighMargin is High
	CUSUMThreshold         float64         // per-event slack subtracted from |z|
	CUSUMLimit             float64         // accumulator level that triggers a finding
	CentralityMinDegree    int             // degree must exceed this
	PriceImpactBps         float64         // |bps| above this is flagged
	WashMaxInterval        int64           // seconds between round-trip legs
	WashMaxBlockGap        uint64          // block distance when timestamps are absent
	LargeTransferThreshold decimal.Decimal // raw units
	ConcentrationShare     float64         // share of window volume in (0, 1]
	HighFrequencyCount     int             // events per address
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		ZThreshold:             3.0,
		ZHighMargin:            0.5,
		CUSUMThreshold:         3.0,
		CUSUMLimit:             5.0,
		CentralityMinDegree:    3,
		PriceImpactBps:         50,
		WashMaxInterval:        60,
		WashMaxBlockGap:        2,
		LargeTransferThreshold: decimal.New(1, 18),
		ConcentrationShare:     0.20,
		HighFrequencyCount:     50,
	}
}

// Validate checks every threshold. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if !(c.ZThreshold > 0) {
		return fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidConfig, OptZThreshold, c.ZThreshold)
	}
	if c.ZHighMargin < 0 || math.IsNaN(c.ZHighMargin) {
		return fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidConfig, OptZHighMargin, c.ZHighMargin)
	}
	if c.CUSUMThreshold < 0 || math.IsNaN(c.CUSUMThreshold) {
		return fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidConfig, OptCUSUMThreshold, c.CUSUMThreshold)
	}
	if !(c.CUSUMLimit > 0) {
		return fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidConfig, OptCUSUMLimit, c.CUSUMLimit)
	}
	if c.CentralityMinDegree < 0 {
		return fmt.Errorf("%w: %s must be >= 0, got %d", ErrInvalidConfig, OptCentralityMinDegree, c.CentralityMinDegree)
	}
	if c.PriceImpactBps < 0 || math.IsNaN(c.PriceImpactBps) {
		return fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidConfig, OptPriceImpactBps, c.PriceImpactBps)
	}
	if c.WashMaxInterval < 0 {
		return fmt.Errorf("%w: %s must be >= 0, got %d", ErrInvalidConfig, OptWashMaxInterval, c.WashMaxInterval)
	}
	if c.LargeTransferThreshold.IsNegative() {
		return fmt.Errorf("%w: %s must be >= 0, got %s", ErrInvalidConfig, OptLargeTransferThreshold, c.LargeTransferThreshold)
	}
	if !(c.ConcentrationShare > 0 && c.ConcentrationShare <= 1) {
		return fmt.Errorf("%w: %s must be in (0, 1], got %v", ErrInvalidConfig, OptConcentrationShare, c.ConcentrationShare)
	}
	if c.HighFrequencyCount < 1 {
		return fmt.Errorf("%w: %s must be >= 1, got %d", ErrInvalidConfig, OptHighFrequencyCount, c.HighFrequencyCount)
	}
	return nil
}

// WithOptions returns a copy of c with request options applied and validated.
// Unknown keys and non-integral values for integer options are rejected.
func (c Config) WithOptions(opts map[string]float64) (Config, error) {
	// Apply in key order so the first reported error is deterministic.
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := opts[key]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Config{}, fmt.Errorf("%w: %s must be finite", ErrInvalidConfig, key)
		}
		switch key {
		case OptZThreshold:
			c.ZThreshold = v
		case OptZHighMargin:
			c.ZHighMargin = v
		case OptCUSUMThreshold:
			c.CUSUMThreshold = v
		case OptCUSUMLimit:
			c.CUSUMLimit = v
		case OptPriceImpactBps:
			c.PriceImpactBps = v
		case OptConcentrationShare:
			c.ConcentrationShare = v
		case OptLargeTransferThreshold:
			c.LargeTransferThreshold = decimal.NewFromFloat(v)
		case OptCentralityMinDegree:
			n, err := integral(key, v)
			if err != nil {
				return Config{}, err
			}
			c.CentralityMinDegree = int(n)
		case OptWashMaxInterval:
			n, err := integral(key, v)
			if err != nil {
				return Config{}, err
			}
			c.WashMaxInterval = n
		case OptWashMaxBlockGap:
			n, err := integral(key, v)
			if err != nil {
				return Config{}, err
			}
			if n < 0 {
				return Config{}, fmt.Errorf("%w: %s must be >= 0, got %d", ErrInvalidConfig, key, n)
			}
			c.WashMaxBlockGap = uint64(n)
		case OptHighFrequencyCount:
			n, err := integral(key, v)
			if err != nil {
				return Config{}, err
			}
			c.HighFrequencyCount = int(n)
		default:
			return Config{}, fmt.Errorf("%w: unknown option %q", ErrInvalidConfig, key)
		}
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// OptionKeys lists the recognized option keys, sorted.
func OptionKeys() []string {
	keys := []string{
		OptZThreshold, OptZHighMargin, OptCUSUMThreshold, OptCUSUMLimit,
		OptCentralityMinDegree, OptPriceImpactBps, OptWashMaxInterval,
		OptWashMaxBlockGap, OptLargeTransferThreshold, OptConcentrationShare,
		OptHighFrequencyCount,
	}
	sort.Strings(keys)
	return keys
}

// int64Bound is 2^63, the first float64 beyond the int64 range.
const int64Bound = 1 << 63

func integral(key string, v float64) (int64, error) {
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidConfig, key, v)
	}
	if v >= int64Bound || v < -int64Bound {
		return 0, fmt.Errorf("%w: %s out of range, got %v", ErrInvalidConfig, key, v)
	}
	return int64(v), nil
}
