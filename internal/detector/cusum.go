package detector

import (
	"fmt"
	"math"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/metrics"
)

// CUSUM flags sustained deviation from the baseline.
//
// A single left-to-right pass keeps cusum = max(0, cusum + |z| - CUSUMThreshold).
// When cusum exceeds CUSUMLimit a finding is emitted at that event and the
// accumulator resets, so each sustained episode yields one finding. The result
// depends on event order.
type CUSUM struct{}

// Kind returns KindCUSUM.
func (CUSUM) Kind() Kind { return KindCUSUM }

// Detect runs the accumulator over the entity events.
func (CUSUM) Detect(in Input, cfg Config) ([]domain.Finding, error) {
	if !in.Baseline.HasSpread() {
		return nil, nil
	}

	var out []domain.Finding
	cusum := 0.0
	start := 0

	for i := range in.EntityEvents {
		e := &in.EntityEvents[i]
		z := metrics.ZScore(e.Value.InexactFloat64(), in.Baseline)
		cusum = math.Max(0, cusum+math.Abs(z)-cfg.CUSUMThreshold)
		if cusum == 0 {
			start = i + 1
			continue
		}
		if cusum <= cfg.CUSUMLimit {
			continue
		}

		episode := in.EntityEvents[start : i+1]
		ids := make([]string, len(episode))
		for j := range episode {
			ids[j] = episode[j].ID
		}

		f := newFinding(KindCUSUM, domain.SeverityHigh, e.BlockNumber, e.ID,
			fmt.Sprintf("persistent anomaly: cumulative deviation %.2f exceeded limit %.2f over %d events", cusum, cfg.CUSUMLimit, len(episode)))
		f.Evidence.EventIDs = ids
		f.Evidence.Addresses = eventAddresses(e)
		f.Evidence.Metrics["cusum"] = cusum
		f.Evidence.Metrics["limit"] = cfg.CUSUMLimit
		f.Evidence.Metrics["episode_events"] = float64(len(episode))
		out = append(out, f)

		cusum = 0
		start = i + 1
	}
	return out, nil
}
