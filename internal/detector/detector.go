// Package detector implements the closed set of anomaly detectors.
//
// Every detector is a pure function of (Input, Config): it reads the shared,
// already ordered event window and baseline and returns findings. Detectors
// hold no state between calls and never mutate their input.
package detector

import (
	"errors"
	"fmt"

	"chain-fraud-lab/internal/domain"
)

// Kind names one detector of the closed set.
type Kind string

const (
	KindZScore        Kind = "zscore"
	KindCUSUM         Kind = "cusum"
	KindCentrality    Kind = "centrality"
	KindPriceImpact   Kind = "price_impact"
	KindWashTrade     Kind = "wash_trade"
	KindLargeTransfer Kind = "large_transfer"
	KindHeuristic     Kind = "heuristic"
	KindConcentration Kind = "concentration"
	KindHighFrequency Kind = "high_frequency"
)

// allKinds is the fixed run and merge order.
var allKinds = []Kind{
	KindZScore,
	KindCUSUM,
	KindCentrality,
	KindPriceImpact,
	KindWashTrade,
	KindLargeTransfer,
	KindHeuristic,
	KindConcentration,
	KindHighFrequency,
}

// ErrUnknownDetector is returned for a detector name outside the closed set.
var ErrUnknownDetector = errors.New("unknown detector")

// AllKinds returns every detector kind in the fixed order.
func AllKinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// String returns the string representation of Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the kind belongs to the closed set.
func (k Kind) IsValid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKinds turns a request allow-list into kinds in the fixed order.
// Duplicates are ignored. An empty list selects every detector.
func ParseKinds(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return AllKinds(), nil
	}

	selected := make(map[Kind]bool, len(names))
	for _, name := range names {
		k := Kind(name)
		if !k.IsValid() {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnknownDetector, name)
		}
		selected[k] = true
	}

	out := make([]Kind, 0, len(selected))
	for _, k := range allKinds {
		if selected[k] {
			out = append(out, k)
		}
	}
	return out, nil
}

// Input is the shared, read-only view handed to every detector of a run.
type Input struct {
	// Entity is the analyzed address or contract. Empty means the whole window.
	Entity string
	// Events is the full window in canonical order.
	Events []domain.Event
	// EntityEvents is the subset of Events involving Entity.
	EntityEvents []domain.Event
	// Baseline is computed once per run from EntityEvents.
	Baseline domain.BaselineStats
	// Targets restricts the nodes the centrality detector reports on.
	Targets []string
}

// Detector is the uniform contract of the closed detector set.
type Detector interface {
	// Kind returns the detector name used as Finding.Kind.
	Kind() Kind
	// Detect returns findings for the input. An error means the detector
	// could not run; degenerate statistics are not errors.
	Detect(in Input, cfg Config) ([]domain.Finding, error)
}

// New returns the detector for a kind.
func New(kind Kind) (Detector, error) {
	switch kind {
	case KindZScore:
		return ZScore{}, nil
	case KindCUSUM:
		return CUSUM{}, nil
	case KindCentrality:
		return Centrality{}, nil
	case KindPriceImpact:
		return PriceImpact{}, nil
	case KindWashTrade:
		return WashTrade{}, nil
	case KindLargeTransfer:
		return LargeTransfer{}, nil
	case KindHeuristic:
		return Heuristic{}, nil
	case KindConcentration:
		return Concentration{}, nil
	case KindHighFrequency:
		return HighFrequency{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDetector, kind)
	}
}

// Registry returns one detector per kind.
func Registry() map[Kind]Detector {
	reg := make(map[Kind]Detector, len(allKinds))
	for _, k := range allKinds {
		d, _ := New(k)
		reg[k] = d
	}
	return reg
}

// newFinding builds a finding; the aggregator assigns the ID.
func newFinding(kind Kind, severity domain.Severity, block uint64, key, message string) domain.Finding {
	return domain.Finding{
		Kind:        kind.String(),
		Severity:    severity,
		Message:     message,
		BlockNumber: block,
		Evidence: domain.Evidence{
			Key:     key,
			Metrics: make(map[string]float64),
		},
	}
}
