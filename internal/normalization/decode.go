package normalization

import (
	"encoding/json"
	"fmt"

	"chain-fraud-lab/internal/domain"
)

// taggedRecord is the envelope used on the wire: every record carries a
// "kind" field naming its variant.
type taggedRecord struct {
	Kind domain.EventKind `json:"kind"`
}

// DecodeRecords decodes a JSON array of tagged raw records.
// Elements with an unknown kind or a body that does not match the variant
// become UndecodedRecord at the same position, so Normalize reports them with
// their wire index. Only a malformed top-level document is an error.
func DecodeRecords(data []byte) ([]domain.RawRecord, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	records := make([]domain.RawRecord, len(items))
	for i, item := range items {
		rec, kind, err := decodeRecord(item)
		if err != nil {
			records[i] = domain.UndecodedRecord{Kind: kind, Reason: err.Error()}
			continue
		}
		records[i] = rec
	}

	return records, nil
}

func decodeRecord(item json.RawMessage) (domain.RawRecord, domain.EventKind, error) {
	var tag taggedRecord
	if err := json.Unmarshal(item, &tag); err != nil {
		return nil, "", fmt.Errorf("decode kind: %w", err)
	}

	switch tag.Kind {
	case domain.EventKindTransfer:
		var r domain.TransferRecord
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, tag.Kind, fmt.Errorf("decode transfer: %w", err)
		}
		return r, tag.Kind, nil
	case domain.EventKindLog:
		var r domain.LogRecord
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, tag.Kind, fmt.Errorf("decode log: %w", err)
		}
		return r, tag.Kind, nil
	case domain.EventKindSwap:
		var r domain.SwapRecord
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, tag.Kind, fmt.Errorf("decode swap: %w", err)
		}
		return r, tag.Kind, nil
	default:
		return nil, tag.Kind, fmt.Errorf("%w: %q", errUnknownKind, tag.Kind)
	}
}
