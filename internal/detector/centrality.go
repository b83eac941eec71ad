package detector

import (
	"fmt"
	"sort"

	"chain-fraud-lab/internal/address"
	"chain-fraud-lab/internal/domain"
)

// Centrality flags hub addresses of the window's transfer graph.
type Centrality struct{}

// Kind returns KindCentrality.
func (Centrality) Kind() Kind { return KindCentrality }

// Detect reports evaluated nodes whose degree exceeds CentralityMinDegree.
// Evaluated nodes are the request targets, else the entity, else every node.
// Degree >= 2x the minimum is High; program-derived Solana accounts (pools,
// vaults) are expected hubs and are reported as Low.
func (Centrality) Detect(in Input, cfg Config) ([]domain.Finding, error) {
	g := BuildGraph(in.Events)
	if g.NodeCount() == 0 {
		return nil, nil
	}

	var out []domain.Finding
	for _, addr := range centralityTargets(g, in) {
		degree := g.Degree(addr)
		if degree <= cfg.CentralityMinDegree {
			continue
		}

		severity := domain.SeverityMedium
		if cfg.CentralityMinDegree > 0 && degree >= 2*cfg.CentralityMinDegree {
			severity = domain.SeverityHigh
		}
		programDerived := address.IsProgramDerived(addr)
		if programDerived {
			severity = domain.SeverityLow
		}

		centrality := g.Centrality(addr)
		f := newFinding(KindCentrality, severity, g.LastBlock(addr), addr,
			fmt.Sprintf("high centrality / possible hub: %s has %d distinct counterparties (centrality %.3f)", addr, degree, centrality))
		f.Evidence.Addresses = []string{addr}
		f.Evidence.Metrics["degree"] = float64(degree)
		f.Evidence.Metrics["centrality"] = centrality
		f.Evidence.Metrics["in_degree"] = float64(g.InDegree(addr))
		f.Evidence.Metrics["out_degree"] = float64(g.OutDegree(addr))
		f.Evidence.Metrics["nodes"] = float64(g.NodeCount())
		if programDerived {
			f.Evidence.Labels = map[string]string{"account": "program_derived"}
		}
		out = append(out, f)
	}
	return out, nil
}

func centralityTargets(g *TransferGraph, in Input) []string {
	var targets []string
	switch {
	case len(in.Targets) > 0:
		targets = in.Targets
	case in.Entity != "":
		targets = []string{in.Entity}
	default:
		return g.Nodes()
	}

	seen := make(map[string]bool, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if seen[t] || !g.Has(t) {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
