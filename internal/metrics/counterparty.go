package metrics

import (
	"sort"

	"chain-fraud-lab/internal/domain"
)

// SummarizeCounterparties aggregates the entity's flows per counterparty.
// Results are ordered by total event count DESC, then address ASC, and cut to
// limit entries when limit > 0. An empty entity yields nil.
func SummarizeCounterparties(events []domain.Event, entity string, limit int) []domain.Counterparty {
	if entity == "" {
		return nil
	}

	byAddr := make(map[string]*domain.Counterparty)
	get := func(addr string) *domain.Counterparty {
		cp, ok := byAddr[addr]
		if !ok {
			cp = &domain.Counterparty{Address: addr}
			byAddr[addr] = cp
		}
		return cp
	}

	for i := range events {
		e := &events[i]
		value := e.Value.InexactFloat64()
		switch {
		case e.Sender == entity && e.Recipient != "" && e.Recipient != entity:
			cp := get(e.Recipient)
			cp.SentCount++
			cp.SentVolume += value
		case e.Recipient == entity && e.Sender != "" && e.Sender != entity:
			cp := get(e.Sender)
			cp.RecvCount++
			cp.RecvVolume += value
		}
	}

	out := make([]domain.Counterparty, 0, len(byAddr))
	for _, cp := range byAddr {
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool {
		ti := out[i].SentCount + out[i].RecvCount
		tj := out[j].SentCount + out[j].RecvCount
		if ti != tj {
			return ti > tj
		}
		return out[i].Address < out[j].Address
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
