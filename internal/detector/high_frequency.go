package detector

import (
	"fmt"
	"sort"

	"chain-fraud-lab/internal/domain"
)

// HighFrequency flags senders with an unusually high number of events in the window.
type HighFrequency struct{}

// Kind returns KindHighFrequency.
func (HighFrequency) Kind() Kind { return KindHighFrequency }

// Detect reports senders with at least HighFrequencyCount events: Low, Medium at 2x.
func (HighFrequency) Detect(in Input, cfg Config) ([]domain.Finding, error) {
	counts := make(map[string]int)
	lastBlock := make(map[string]uint64)
	for i := range in.Events {
		e := &in.Events[i]
		if e.Sender == "" {
			continue
		}
		counts[e.Sender]++
		lastBlock[e.Sender] = max(lastBlock[e.Sender], e.BlockNumber)
	}

	senders := make([]string, 0, len(counts))
	for addr, n := range counts {
		if n >= cfg.HighFrequencyCount {
			senders = append(senders, addr)
		}
	}
	sort.Strings(senders)

	out := make([]domain.Finding, 0, len(senders))
	for _, addr := range senders {
		n := counts[addr]
		severity := domain.SeverityLow
		if n >= 2*cfg.HighFrequencyCount {
			severity = domain.SeverityMedium
		}

		f := newFinding(KindHighFrequency, severity, lastBlock[addr], addr,
			fmt.Sprintf("%s sent %d events in the window", addr, n))
		f.Evidence.Addresses = []string{addr}
		f.Evidence.Metrics["tx_count"] = float64(n)
		out = append(out, f)
	}
	return out, nil
}
