package detector

import (
	"fmt"

	"chain-fraud-lab/internal/domain"
)

// LargeTransfer flags entity events at or above an absolute value threshold.
type LargeTransfer struct{}

// Kind returns KindLargeTransfer.
func (LargeTransfer) Kind() Kind { return KindLargeTransfer }

// Detect compares values in full precision.
func (LargeTransfer) Detect(in Input, cfg Config) ([]domain.Finding, error) {
	var out []domain.Finding
	for i := range in.EntityEvents {
		e := &in.EntityEvents[i]
		if e.Value.IsZero() || e.Value.LessThan(cfg.LargeTransferThreshold) {
			continue
		}

		f := newFinding(KindLargeTransfer, domain.SeverityHigh, e.BlockNumber, e.ID,
			fmt.Sprintf("large transfer of %s from %s to %s", e.Value, e.Sender, e.Recipient))
		f.Evidence.EventIDs = []string{e.ID}
		f.Evidence.Addresses = eventAddresses(e)
		f.Evidence.Metrics["value"] = e.Value.InexactFloat64()
		f.Evidence.Labels = map[string]string{"threshold": cfg.LargeTransferThreshold.String()}
		if e.Contract != "" {
			f.Evidence.Labels["asset"] = e.Contract
		}
		out = append(out, f)
	}
	return out, nil
}
