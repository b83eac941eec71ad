package detector

import (
	"fmt"

	"chain-fraud-lab/internal/domain"
)

// WashTrade flags adjacent round-trip pairs within one contract scope.
//
// Only the immediately preceding event of the same scope is compared, so a
// cycle interleaved with unrelated events of that scope (A->B, C->D, B->A) is
// not detected.
type WashTrade struct{}

// Kind returns KindWashTrade.
func (WashTrade) Kind() Kind { return KindWashTrade }

// Detect makes a single pass over the window keeping the previous event per scope.
func (WashTrade) Detect(in Input, cfg Config) ([]domain.Finding, error) {
	prevByScope := make(map[string]*domain.Event)

	var out []domain.Finding
	for i := range in.Events {
		curr := &in.Events[i]
		scope := curr.Contract
		prev, ok := prevByScope[scope]
		prevByScope[scope] = curr
		if !ok || !isRoundTrip(prev, curr) {
			continue
		}

		gap, unit, within := pairGap(prev, curr, cfg)
		if !within {
			continue
		}

		f := newFinding(KindWashTrade, domain.SeverityHigh, curr.BlockNumber, prev.ID+"|"+curr.ID,
			fmt.Sprintf("potential wash-trade round trip between %s and %s (%d %s apart)", prev.Sender, prev.Recipient, gap, unit))
		f.Evidence.EventIDs = []string{prev.ID, curr.ID}
		f.Evidence.Addresses = []string{prev.Sender, prev.Recipient}
		f.Evidence.Metrics["gap"] = float64(gap)
		f.Evidence.Metrics["first_value"] = prev.Value.InexactFloat64()
		f.Evidence.Metrics["second_value"] = curr.Value.InexactFloat64()
		f.Evidence.Labels = map[string]string{"gap_unit": unit}
		if scope != "" {
			f.Evidence.Labels["scope"] = scope
		}
		out = append(out, f)
	}
	return out, nil
}

func isRoundTrip(prev, curr *domain.Event) bool {
	if curr.Sender == "" || curr.Recipient == "" || curr.IsSelfTransfer() {
		return false
	}
	return curr.Sender == prev.Recipient && curr.Recipient == prev.Sender
}

// pairGap measures the distance between the legs in seconds when both carry
// timestamps, otherwise in blocks.
func pairGap(prev, curr *domain.Event, cfg Config) (int64, string, bool) {
	if prev.Timestamp != nil && curr.Timestamp != nil {
		gap := *curr.Timestamp - *prev.Timestamp
		if gap < 0 {
			gap = -gap
		}
		return gap, "seconds", gap < cfg.WashMaxInterval
	}
	gap := curr.BlockNumber - prev.BlockNumber
	return int64(gap), "blocks", gap < cfg.WashMaxBlockGap
}
