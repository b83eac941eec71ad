package domain

import (
	"fmt"
	"strings"
)

// Severity is the ordered severity of a finding: Low < Medium < High.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// IsValid checks if the severity is one of the defined levels.
func (s Severity) IsValid() bool {
	return s >= SeverityLow && s <= SeverityHigh
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "low":
		*s = SeverityLow
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	default:
		return fmt.Errorf("unknown severity %q", string(text))
	}
	return nil
}

// Evidence is the structured support for a finding.
// Key identifies the finding subject for deduplication (event id, address, pair).
type Evidence struct {
	Key       string             `json:"key"`
	EventIDs  []string           `json:"event_ids,omitempty"`
	Addresses []string           `json:"addresses,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Labels    map[string]string  `json:"labels,omitempty"`
}

// Finding is one detector output unit.
type Finding struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	BlockNumber uint64   `json:"block_number"`
	Evidence    Evidence `json:"evidence"`
}

// DedupKey returns the identity used to collapse duplicate findings.
func (f *Finding) DedupKey() string {
	return fmt.Sprintf("%s|%d|%s", f.Kind, f.BlockNumber, f.Evidence.Key)
}
