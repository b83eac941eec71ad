// Package metrics computes baseline statistics over ordered event sequences.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"chain-fraud-lab/internal/domain"
)

// EntityEvents returns the events the entity takes part in, in input order.
// An empty entity selects every event.
func EntityEvents(events []domain.Event, entity string) []domain.Event {
	if entity == "" {
		return events
	}
	out := make([]domain.Event, 0, len(events))
	for i := range events {
		if events[i].Involves(entity) {
			out = append(out, events[i])
		}
	}
	return out
}

// statsPrecision is the number of fractional digits kept when dividing.
const statsPrecision = 32

// Amounts extracts event values.
func Amounts(events []domain.Event) []decimal.Decimal {
	values := make([]decimal.Decimal, len(events))
	for i := range events {
		values[i] = events[i].Value
	}
	return values
}

// computeMean calculates the arithmetic mean of values in decimal arithmetic.
func computeMean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Sum(values[0], values[1:]...)
	return sum.DivRound(decimal.NewFromInt(int64(len(values))), statsPrecision)
}

// computeStddev calculates population standard deviation (n denominator).
// Deviations are summed exactly; only the final square root is float64.
// Returns 0 for fewer than 2 samples or when every value is equal.
func computeStddev(values []decimal.Decimal, mean decimal.Decimal) float64 {
	n := len(values)
	if n < 2 || allEqual(values) {
		return 0
	}
	sumSq := decimal.Zero
	for _, v := range values {
		diff := v.Sub(mean)
		sumSq = sumSq.Add(diff.Mul(diff))
	}
	variance := sumSq.DivRound(decimal.NewFromInt(int64(n)), statsPrecision)
	return math.Sqrt(variance.InexactFloat64())
}

func allEqual(values []decimal.Decimal) bool {
	for _, v := range values[1:] {
		if !v.Equal(values[0]) {
			return false
		}
	}
	return true
}

// ZScore returns (value - mean) / std. Callers must check std > 0.
func ZScore(value float64, baseline domain.BaselineStats) float64 {
	return (value - baseline.Mean) / baseline.StdDev
}
