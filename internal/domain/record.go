package domain

// RawRecord is a record handed over by the fetcher before normalization.
// The set of variants is closed: TransferRecord, LogRecord, SwapRecord and
// Event (already normalized input passes through).
type RawRecord interface {
	RecordKind() EventKind
	isRawRecord()
}

// TransferRecord is a decoded token or native transfer.
// Numeric strings accept decimal or 0x-prefixed hex notation.
type TransferRecord struct {
	BlockNumber *uint64 `json:"block_number"`
	TxIndex     *int    `json:"tx_index,omitempty"`
	LogIndex    *int    `json:"log_index,omitempty"`
	Timestamp   *int64  `json:"timestamp,omitempty"`
	TxHash      string  `json:"tx_hash,omitempty"`
	Token       string  `json:"token,omitempty"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Value       *string `json:"value"`
}

// LogRecord is a generic contract log. Sender, Recipient and Value are set
// when the fetcher managed to decode them; otherwise the log counts as a
// zero-value event emitted by Address.
type LogRecord struct {
	BlockNumber *uint64  `json:"block_number"`
	TxIndex     *int     `json:"tx_index,omitempty"`
	LogIndex    *int     `json:"log_index,omitempty"`
	Timestamp   *int64   `json:"timestamp,omitempty"`
	TxHash      string   `json:"tx_hash,omitempty"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics,omitempty"`
	Data        string   `json:"data,omitempty"`
	Sender      string   `json:"sender,omitempty"`
	Recipient   string   `json:"recipient,omitempty"`
	Value       *string  `json:"value,omitempty"`
}

// SwapRecord is a decoded pool swap with pool prices around the trade.
type SwapRecord struct {
	BlockNumber *uint64 `json:"block_number"`
	TxIndex     *int    `json:"tx_index,omitempty"`
	LogIndex    *int    `json:"log_index,omitempty"`
	Timestamp   *int64  `json:"timestamp,omitempty"`
	TxHash      string  `json:"tx_hash,omitempty"`
	Pool        string  `json:"pool"`
	Sender      string  `json:"sender"`
	Recipient   string  `json:"recipient,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	PriceBefore *string `json:"price_before"`
	PriceAfter  *string `json:"price_after"`
}

func (TransferRecord) RecordKind() EventKind { return EventKindTransfer }
func (LogRecord) RecordKind() EventKind      { return EventKindLog }
func (SwapRecord) RecordKind() EventKind     { return EventKindSwap }

// RecordKind returns the kind of the normalized event.
func (e Event) RecordKind() EventKind { return e.Kind }

// UndecodedRecord stands in for a wire record that could not be decoded, so
// the normalizer drops it at its original position with the decode error.
type UndecodedRecord struct {
	Kind   EventKind
	Reason string
}

// RecordKind returns the kind tag the record claimed, possibly empty.
func (r UndecodedRecord) RecordKind() EventKind { return r.Kind }

func (TransferRecord) isRawRecord()  {}
func (LogRecord) isRawRecord()       {}
func (SwapRecord) isRawRecord()      {}
func (Event) isRawRecord()           {}
func (UndecodedRecord) isRawRecord() {}

// AsRecords wraps normalized events so they can be fed back to the normalizer.
func AsRecords(events []Event) []RawRecord {
	records := make([]RawRecord, len(events))
	for i, e := range events {
		records[i] = e
	}
	return records
}
