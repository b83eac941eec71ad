package domain

import "time"

// BaselineStats summarizes an entity's typical activity over a reference window.
// StdDev is the population standard deviation and is 0 when SampleCount < 2
// or every sample has the same value.
type BaselineStats struct {
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	SampleCount int     `json:"sample_count"`
	Window      string  `json:"window"`
}

// HasSpread reports whether z-scores can be computed against this baseline.
func (b BaselineStats) HasSpread() bool {
	return b.SampleCount >= 2 && b.StdDev > 0
}

// DetectorFault records a detector that failed during an analysis.
type DetectorFault struct {
	Detector string `json:"detector"`
	Error    string `json:"error"`
}

// DroppedRecord notes a raw record rejected by the normalizer.
type DroppedRecord struct {
	Index  int       `json:"index"`
	Kind   EventKind `json:"kind"`
	Reason string    `json:"reason"`
}

// Counterparty summarizes the flow between the entity and one address.
type Counterparty struct {
	Address    string  `json:"address"`
	SentCount  int     `json:"sent_count"`
	RecvCount  int     `json:"recv_count"`
	SentVolume float64 `json:"sent_volume"`
	RecvVolume float64 `json:"recv_volume"`
}

// Verdict is the overall outcome of an analysis.
type Verdict string

const (
	VerdictClear          Verdict = "CLEAR"
	VerdictSuspectedFraud Verdict = "SUSPECTED_FRAUD"
)

// CriterionResult represents one evaluated criterion of the verdict.
type CriterionResult struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Triggered bool   `json:"triggered"`
}

// Decision is the verdict section of a report.
type Decision struct {
	Verdict     Verdict           `json:"verdict"`
	MaxSeverity *Severity         `json:"max_severity,omitempty"`
	CountByKind map[string]int    `json:"count_by_kind"`
	Criteria    []CriterionResult `json:"criteria"`
}

// Report is the orchestrator output for one analysis request.
// It is built once and never mutated after being returned.
type Report struct {
	ID             string          `json:"id"`
	Entity         string          `json:"entity"`
	FromBlock      uint64          `json:"from_block"`
	ToBlock        uint64          `json:"to_block"`
	GeneratedAt    time.Time       `json:"generated_at"`
	EventCount     int             `json:"event_count"`
	Detectors      []string        `json:"detectors"`
	Baseline       BaselineStats   `json:"baseline"`
	Findings       []Finding       `json:"findings"`
	Faults         []DetectorFault `json:"faults,omitempty"`
	Dropped        []DroppedRecord `json:"dropped,omitempty"`
	Counterparties []Counterparty  `json:"counterparties,omitempty"`
	Decision       Decision        `json:"decision"`
}
