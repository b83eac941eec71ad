package detector

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"chain-fraud-lab/internal/domain"
)

// Concentration flags senders that account for a large share of window volume.
type Concentration struct{}

// Kind returns KindConcentration.
func (Concentration) Kind() Kind { return KindConcentration }

// Detect reports senders with share >= ConcentrationShare. Zero total volume yields nothing.
func (Concentration) Detect(in Input, cfg Config) ([]domain.Finding, error) {
	total := decimal.Zero
	bySender := make(map[string]decimal.Decimal)
	lastBlock := make(map[string]uint64)

	for i := range in.Events {
		e := &in.Events[i]
		total = total.Add(e.Value)
		if e.Sender == "" {
			continue
		}
		bySender[e.Sender] = bySender[e.Sender].Add(e.Value)
		lastBlock[e.Sender] = max(lastBlock[e.Sender], e.BlockNumber)
	}
	if !total.IsPositive() {
		return nil, nil
	}

	senders := make([]string, 0, len(bySender))
	for addr := range bySender {
		senders = append(senders, addr)
	}
	sort.Strings(senders)

	var out []domain.Finding
	for _, addr := range senders {
		share := bySender[addr].Div(total).InexactFloat64()
		if share < cfg.ConcentrationShare {
			continue
		}

		f := newFinding(KindConcentration, domain.SeverityMedium, lastBlock[addr], addr,
			fmt.Sprintf("%s sent %.2f%% of the window volume", addr, share*100))
		f.Evidence.Addresses = []string{addr}
		f.Evidence.Metrics["share"] = share
		f.Evidence.Metrics["volume"] = bySender[addr].InexactFloat64()
		f.Evidence.Metrics["total_volume"] = total.InexactFloat64()
		out = append(out, f)
	}
	return out, nil
}
