package detector

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"chain-fraud-lab/internal/domain"
)

var bpsScale = decimal.NewFromInt(10000)

// PriceImpact flags swaps that moved the pool price by more than PriceImpactBps.
type PriceImpact struct{}

// Kind returns KindPriceImpact.
func (PriceImpact) Kind() Kind { return KindPriceImpact }

// Detect scans swap events of the window. Swaps with price_before <= 0 are skipped.
func (PriceImpact) Detect(in Input, cfg Config) ([]domain.Finding, error) {
	var out []domain.Finding
	for i := range in.Events {
		e := &in.Events[i]
		if e.Kind != domain.EventKindSwap || e.PriceBefore == nil || e.PriceAfter == nil {
			continue
		}
		if !e.PriceBefore.IsPositive() {
			continue
		}

		bps := e.PriceAfter.Sub(*e.PriceBefore).Div(*e.PriceBefore).Mul(bpsScale).InexactFloat64()
		absBps := math.Abs(bps)
		if absBps <= cfg.PriceImpactBps {
			continue
		}

		severity := domain.SeverityMedium
		if absBps > 2*cfg.PriceImpactBps {
			severity = domain.SeverityHigh
		}
		direction := "up"
		if bps < 0 {
			direction = "down"
		}

		f := newFinding(KindPriceImpact, severity, e.BlockNumber, e.ID,
			fmt.Sprintf("potential manipulation/MEV: swap moved price %s by %.1f bps (%s -> %s)", direction, absBps, e.PriceBefore, e.PriceAfter))
		f.Evidence.EventIDs = []string{e.ID}
		f.Evidence.Addresses = append([]string{e.Contract}, eventAddresses(e)...)
		f.Evidence.Metrics["price_delta_bps"] = bps
		f.Evidence.Metrics["price_before"] = e.PriceBefore.InexactFloat64()
		f.Evidence.Metrics["price_after"] = e.PriceAfter.InexactFloat64()
		f.Evidence.Labels = map[string]string{"direction": direction}
		out = append(out, f)
	}
	return out, nil
}
