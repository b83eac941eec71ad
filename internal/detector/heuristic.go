package detector

import (
	"fmt"

	"chain-fraud-lab/internal/domain"
)

// Heuristic rules.
const (
	ruleSelfTransfer = "self_transfer"
	ruleZeroValue    = "zero_value"
)

// Heuristic applies rule-based checks to entity transfers: self transfers
// (Medium) and zero-value transfers (Low), a common address-poisoning pattern.
type Heuristic struct{}

// Kind returns KindHeuristic.
func (Heuristic) Kind() Kind { return KindHeuristic }

// Detect evaluates both rules per transfer event.
func (Heuristic) Detect(in Input, cfg Config) ([]domain.Finding, error) {
	var out []domain.Finding
	for i := range in.EntityEvents {
		e := &in.EntityEvents[i]
		if e.Kind != domain.EventKindTransfer {
			continue
		}

		if e.IsSelfTransfer() {
			f := newFinding(KindHeuristic, domain.SeverityMedium, e.BlockNumber, ruleSelfTransfer+":"+e.ID,
				fmt.Sprintf("self transfer of %s by %s", e.Value, e.Sender))
			f.Evidence.EventIDs = []string{e.ID}
			f.Evidence.Addresses = []string{e.Sender}
			f.Evidence.Metrics["value"] = e.Value.InexactFloat64()
			f.Evidence.Labels = map[string]string{"rule": ruleSelfTransfer}
			out = append(out, f)
		}

		if e.Value.IsZero() {
			f := newFinding(KindHeuristic, domain.SeverityLow, e.BlockNumber, ruleZeroValue+":"+e.ID,
				fmt.Sprintf("zero-value transfer from %s to %s", e.Sender, e.Recipient))
			f.Evidence.EventIDs = []string{e.ID}
			f.Evidence.Addresses = eventAddresses(e)
			f.Evidence.Labels = map[string]string{"rule": ruleZeroValue}
			out = append(out, f)
		}
	}
	return out, nil
}
