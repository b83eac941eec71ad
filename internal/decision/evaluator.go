// Package decision turns aggregated findings into a report verdict.
package decision

import (
	"fmt"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/findings"
)

// Detector kinds with a dedicated criterion.
const (
	kindWashTrade = "wash_trade"
	kindCUSUM     = "cusum"
	kindPrice     = "price_impact"
)

// Evaluator evaluates verdict criteria.
type Evaluator struct{}

// NewEvaluator creates a new decision evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces the Decision for an aggregated finding list.
// CLEAR if there are no findings, SUSPECTED_FRAUD otherwise. The criteria
// explain which signals contributed.
func (e *Evaluator) Evaluate(list []domain.Finding) domain.Decision {
	counts := findings.CountByKind(list)

	verdict := domain.VerdictClear
	if len(list) > 0 {
		verdict = domain.VerdictSuspectedFraud
	}

	return domain.Decision{
		Verdict:     verdict,
		MaxSeverity: findings.MaxSeverity(list),
		CountByKind: counts,
		Criteria:    e.evaluateCriteria(list, counts),
	}
}

// evaluateCriteria evaluates the 5 verdict criteria.
// Triggered=true means the signal is present.
func (e *Evaluator) evaluateCriteria(list []domain.Finding, counts map[string]int) []domain.CriterionResult {
	criteria := make([]domain.CriterionResult, 5)

	// 1. Any finding
	criteria[0] = domain.CriterionResult{
		Name:      "Anomalies detected",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", len(list)),
		Triggered: len(list) > 0,
	}

	// 2. High severity findings
	high := 0
	for i := range list {
		if list[i].Severity == domain.SeverityHigh {
			high++
		}
	}
	criteria[1] = domain.CriterionResult{
		Name:      "High severity findings",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", high),
		Triggered: high > 0,
	}

	// 3. Wash-trade round trips
	criteria[2] = domain.CriterionResult{
		Name:      "Wash-trade round trips",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", counts[kindWashTrade]),
		Triggered: counts[kindWashTrade] > 0,
	}

	// 4. Sustained drift
	criteria[3] = domain.CriterionResult{
		Name:      "Persistent anomalies (CUSUM)",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", counts[kindCUSUM]),
		Triggered: counts[kindCUSUM] > 0,
	}

	// 5. Price manipulation
	criteria[4] = domain.CriterionResult{
		Name:      "Price impact / MEV",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", counts[kindPrice]),
		Triggered: counts[kindPrice] > 0,
	}

	return criteria
}
