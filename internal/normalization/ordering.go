package normalization

import (
	"errors"
	"sort"

	"chain-fraud-lab/internal/domain"
)

// ErrInvalidOrdering is returned when events are not in canonical order.
var ErrInvalidOrdering = errors.New("events are not in canonical order")

// SortEvents orders events by (block_number ASC, tx_index ASC, log_index ASC).
// The sort is stable: events that compare equal keep their input order.
func SortEvents(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return compareEvents(&events[i], &events[j]) < 0
	})
}

// ValidateOrdering checks that events are in canonical order.
// Equal positions are allowed because records without indices share them.
func ValidateOrdering(events []domain.Event) error {
	for i := 1; i < len(events); i++ {
		if compareEvents(&events[i-1], &events[i]) > 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareEvents(a, b *domain.Event) int {
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	if a.TxIndex != b.TxIndex {
		if a.TxIndex < b.TxIndex {
			return -1
		}
		return 1
	}
	if a.LogIndex != b.LogIndex {
		if a.LogIndex < b.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}
