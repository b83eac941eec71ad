// Package findings merges detector outputs into the ranked finding list.
package findings

import (
	"sort"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/idhash"
)

// Aggregate collapses duplicates and ranks findings.
//
// Duplicates share (kind, block_number, evidence key); the highest severity
// wins and the first occurrence wins ties. The result is stably sorted by
// severity DESC, block_number ASC, so it is deterministic for a given input
// order. Aggregate is idempotent and does not modify its input.
func Aggregate(in []domain.Finding) []domain.Finding {
	out := make([]domain.Finding, 0, len(in))
	index := make(map[string]int, len(in))

	for i := range in {
		f := in[i]
		key := f.DedupKey()
		if pos, ok := index[key]; ok {
			if f.Severity > out[pos].Severity {
				out[pos] = f
			}
			continue
		}
		index[key] = len(out)
		out = append(out, f)
	}

	for i := range out {
		if out[i].ID == "" {
			out[i].ID = idhash.ComputeFindingID(out[i].Kind, out[i].BlockNumber, out[i].Evidence.Key)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].BlockNumber < out[j].BlockNumber
	})
	return out
}

// CountByKind returns the number of findings per detector kind.
func CountByKind(findings []domain.Finding) map[string]int {
	counts := make(map[string]int)
	for i := range findings {
		counts[findings[i].Kind]++
	}
	return counts
}

// MaxSeverity returns the highest severity, or nil for an empty list.
func MaxSeverity(findings []domain.Finding) *domain.Severity {
	if len(findings) == 0 {
		return nil
	}
	maxSev := findings[0].Severity
	for i := range findings {
		if findings[i].Severity > maxSev {
			maxSev = findings[i].Severity
		}
	}
	return &maxSev
}
