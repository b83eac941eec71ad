package detector

import (
	"fmt"
	"math"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/metrics"
)

// ZScore flags isolated outlier values of the entity's events.
type ZScore struct{}

// Kind returns KindZScore.
func (ZScore) Kind() Kind { return KindZScore }

// Detect emits one finding per entity event with |z| > ZThreshold.
// A baseline without spread (fewer than 2 samples or constant values) yields nothing.
func (ZScore) Detect(in Input, cfg Config) ([]domain.Finding, error) {
	if !in.Baseline.HasSpread() {
		return nil, nil
	}

	var out []domain.Finding
	for i := range in.EntityEvents {
		e := &in.EntityEvents[i]
		value := e.Value.InexactFloat64()
		z := metrics.ZScore(value, in.Baseline)
		absZ := math.Abs(z)
		if absZ <= cfg.ZThreshold {
			continue
		}

		severity := domain.SeverityMedium
		if absZ >= cfg.ZThreshold+cfg.ZHighMargin {
			severity = domain.SeverityHigh
		}

		f := newFinding(KindZScore, severity, e.BlockNumber, e.ID,
			fmt.Sprintf("value %s is %.2f standard deviations from the baseline mean %.4g", e.Value, z, in.Baseline.Mean))
		f.Evidence.EventIDs = []string{e.ID}
		f.Evidence.Addresses = eventAddresses(e)
		f.Evidence.Metrics["z"] = z
		f.Evidence.Metrics["value"] = value
		f.Evidence.Metrics["mean"] = in.Baseline.Mean
		f.Evidence.Metrics["std_dev"] = in.Baseline.StdDev
		out = append(out, f)
	}
	return out, nil
}

// eventAddresses returns the non-empty, distinct sender and recipient.
func eventAddresses(e *domain.Event) []string {
	var addrs []string
	if e.Sender != "" {
		addrs = append(addrs, e.Sender)
	}
	if e.Recipient != "" && e.Recipient != e.Sender {
		addrs = append(addrs, e.Recipient)
	}
	return addrs
}
