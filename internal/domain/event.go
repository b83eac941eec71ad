package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EventKind identifies the origin of a normalized event.
type EventKind string

const (
	EventKindTransfer EventKind = "transfer"
	EventKindSwap     EventKind = "swap"
	EventKindLog      EventKind = "log"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known value.
func (k EventKind) IsValid() bool {
	return k == EventKindTransfer || k == EventKindSwap || k == EventKindLog
}

// Event is one on-chain occurrence in canonical form.
// Events of a window are ordered by (BlockNumber, TxIndex, LogIndex) ASC.
type Event struct {
	ID          string           // tx_hash:log_index, or synthesized from position
	Kind        EventKind        // transfer | swap | log
	BlockNumber uint64           // block height
	TxIndex     int              // transaction index within block
	LogIndex    int              // log index within block
	Timestamp   *int64           // Unix seconds (nullable)
	TxHash      string           // transaction hash (may be empty)
	Contract    string           // token, pool or emitting contract
	Sender      string           // canonical sender address
	Recipient   string           // canonical recipient address
	Value       decimal.Decimal  // non-negative amount
	PriceBefore *decimal.Decimal // swaps only
	PriceAfter  *decimal.Decimal // swaps only
	Seq         int              // position in normalizer input
}

// Involves reports whether the address is sender, recipient or contract of the event.
func (e *Event) Involves(address string) bool {
	return e.Sender == address || e.Recipient == address || e.Contract == address
}

// IsSelfTransfer reports whether sender and recipient are the same address.
func (e *Event) IsSelfTransfer() bool {
	return e.Sender != "" && e.Sender == e.Recipient
}

// EventID builds the canonical identifier for an event.
func EventID(txHash string, blockNumber uint64, txIndex, logIndex int) string {
	if txHash != "" {
		return fmt.Sprintf("%s:%d", txHash, logIndex)
	}
	return fmt.Sprintf("%d:%d:%d", blockNumber, txIndex, logIndex)
}
