package metrics

import (
	"fmt"

	"chain-fraud-lab/internal/domain"
)

// Window selects the reference events used for the baseline.
// Zero value means the entity's whole history in the analyzed range.
type Window struct {
	// FirstN keeps only the first N entity events. 0 disables the limit.
	FirstN int
	// BeforeBlock keeps only events strictly before this block. 0 disables the bound.
	BeforeBlock uint64
}

// String describes the window for reports.
func (w Window) String() string {
	switch {
	case w.FirstN > 0 && w.BeforeBlock > 0:
		return fmt.Sprintf("first %d before block %d", w.FirstN, w.BeforeBlock)
	case w.FirstN > 0:
		return fmt.Sprintf("first %d", w.FirstN)
	case w.BeforeBlock > 0:
		return fmt.Sprintf("before block %d", w.BeforeBlock)
	default:
		return "all"
	}
}

// Estimate computes the entity's baseline over the reference window.
// Events must be in canonical order. Mean and std dev are computed once here
// and shared by every detector of the run.
func Estimate(events []domain.Event, entity string, window Window) domain.BaselineStats {
	selected := selectWindow(EntityEvents(events, entity), window)
	values := Amounts(selected)

	stats := domain.BaselineStats{
		SampleCount: len(values),
		Window:      window.String(),
	}
	if len(values) == 0 {
		return stats
	}

	mean := computeMean(values)
	stats.Mean = mean.InexactFloat64()
	stats.StdDev = computeStddev(values, mean)
	return stats
}

func selectWindow(events []domain.Event, window Window) []domain.Event {
	out := events
	if window.BeforeBlock > 0 {
		out = make([]domain.Event, 0, len(events))
		for i := range events {
			if events[i].BlockNumber < window.BeforeBlock {
				out = append(out, events[i])
			}
		}
	}
	if window.FirstN > 0 && len(out) > window.FirstN {
		out = out[:window.FirstN]
	}
	return out
}
