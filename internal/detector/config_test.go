package detector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestWithOptions_Overrides(t *testing.T) {
	base := DefaultConfig()
	cfg, err := base.WithOptions(map[string]float64{
		OptZThreshold:          2.5,
		OptCentralityMinDegree: 4,
		OptWashMaxInterval:     30,
		OptWashMaxBlockGap:     5,
		OptPriceImpactBps:      100,
	})
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.ZThreshold)
	assert.Equal(t, 4, cfg.CentralityMinDegree)
	assert.Equal(t, int64(30), cfg.WashMaxInterval)
	assert.Equal(t, uint64(5), cfg.WashMaxBlockGap)
	assert.Equal(t, 100.0, cfg.PriceImpactBps)

	// Base config is untouched.
	assert.Equal(t, 3.0, base.ZThreshold)
}

func TestWithOptions_Rejects(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]float64
	}{
		{"unknown key", map[string]float64{"mixer_depth": 1}},
		{"negative z", map[string]float64{OptZThreshold: -1}},
		{"zero z", map[string]float64{OptZThreshold: 0}},
		{"negative cusum limit", map[string]float64{OptCUSUMLimit: -5}},
		{"negative degree", map[string]float64{OptCentralityMinDegree: -1}},
		{"fractional degree", map[string]float64{OptCentralityMinDegree: 2.5}},
		{"negative bps", map[string]float64{OptPriceImpactBps: -10}},
		{"negative interval", map[string]float64{OptWashMaxInterval: -1}},
		{"negative block gap", map[string]float64{OptWashMaxBlockGap: -1}},
		{"share above one", map[string]float64{OptConcentrationShare: 1.5}},
		{"zero frequency", map[string]float64{OptHighFrequencyCount: 0}},
		{"negative large transfer", map[string]float64{OptLargeTransferThreshold: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultConfig().WithOptions(tt.opts)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestWithOptions_RejectsOutOfRangeIntegers(t *testing.T) {
	for _, v := range []float64{1e19, -1e19, math.Inf(1), math.Inf(-1), math.MaxFloat64} {
		_, err := DefaultConfig().WithOptions(map[string]float64{OptWashMaxInterval: v})
		require.ErrorIs(t, err, ErrInvalidConfig, v)
		assert.Contains(t, err.Error(), "out of range")
	}

	cfg, err := DefaultConfig().WithOptions(map[string]float64{OptWashMaxInterval: 1 << 62})
	require.NoError(t, err)
	assert.Equal(t, int64(1<<62), cfg.WashMaxInterval)
}

func TestOptionKeys_Sorted(t *testing.T) {
	keys := OptionKeys()
	assert.Len(t, keys, 11)
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, OptWashMaxInterval)
}
