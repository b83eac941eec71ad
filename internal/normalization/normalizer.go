// Package normalization converts raw fetcher records into ordered events.
package normalization

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"chain-fraud-lab/internal/address"
	"chain-fraud-lab/internal/domain"
)

// Record validation errors. They end up as DroppedRecord reasons.
var (
	errMissingField  = errors.New("missing required field")
	errInvalidNumber = errors.New("invalid number")
	errNegative      = errors.New("negative value")
	errNilRecord     = errors.New("nil record")
	errUnknownKind   = errors.New("unknown record kind")
)

// Result is the normalizer output: events in canonical order plus the
// records that were rejected.
type Result struct {
	Events  []domain.Event
	Dropped []domain.DroppedRecord
}

// Normalize converts records into events sorted by (block, tx index, log index).
// A malformed record is dropped with a note; it never aborts the batch.
// Event inputs pass through unchanged, so Normalize is idempotent on its own output.
func Normalize(records []domain.RawRecord) Result {
	res := Result{Events: make([]domain.Event, 0, len(records))}

	for i, rec := range records {
		ev, err := normalizeRecord(rec, i)
		if err != nil {
			res.Dropped = append(res.Dropped, domain.DroppedRecord{
				Index:  i,
				Kind:   recordKind(rec),
				Reason: err.Error(),
			})
			continue
		}
		res.Events = append(res.Events, ev)
	}

	SortEvents(res.Events)
	return res
}

func normalizeRecord(rec domain.RawRecord, seq int) (domain.Event, error) {
	switch r := rec.(type) {
	case domain.TransferRecord:
		return normalizeTransfer(r, seq)
	case *domain.TransferRecord:
		if r == nil {
			return domain.Event{}, errNilRecord
		}
		return normalizeTransfer(*r, seq)
	case domain.LogRecord:
		return normalizeLog(r, seq)
	case *domain.LogRecord:
		if r == nil {
			return domain.Event{}, errNilRecord
		}
		return normalizeLog(*r, seq)
	case domain.SwapRecord:
		return normalizeSwap(r, seq)
	case *domain.SwapRecord:
		if r == nil {
			return domain.Event{}, errNilRecord
		}
		return normalizeSwap(*r, seq)
	case domain.Event:
		return passThrough(r)
	case *domain.Event:
		if r == nil {
			return domain.Event{}, errNilRecord
		}
		return passThrough(*r)
	case domain.UndecodedRecord:
		return domain.Event{}, errors.New(r.Reason)
	case nil:
		return domain.Event{}, errNilRecord
	default:
		return domain.Event{}, fmt.Errorf("%w: %T", errUnknownKind, rec)
	}
}

// recordKind is RecordKind without dereferencing typed nil pointers.
func recordKind(rec domain.RawRecord) domain.EventKind {
	switch r := rec.(type) {
	case nil:
		return ""
	case *domain.TransferRecord:
		return domain.EventKindTransfer
	case *domain.LogRecord:
		return domain.EventKindLog
	case *domain.SwapRecord:
		return domain.EventKindSwap
	case *domain.Event:
		if r == nil {
			return ""
		}
		return r.Kind
	default:
		return rec.RecordKind()
	}
}

func normalizeTransfer(r domain.TransferRecord, seq int) (domain.Event, error) {
	if r.BlockNumber == nil {
		return domain.Event{}, fmt.Errorf("%w: block_number", errMissingField)
	}
	from, err := requireAddress("from", r.From)
	if err != nil {
		return domain.Event{}, err
	}
	to, err := requireAddress("to", r.To)
	if err != nil {
		return domain.Event{}, err
	}
	token, err := optionalAddress("token", r.Token)
	if err != nil {
		return domain.Event{}, err
	}
	if r.Value == nil {
		return domain.Event{}, fmt.Errorf("%w: value", errMissingField)
	}
	value, err := parseAmount("value", *r.Value)
	if err != nil {
		return domain.Event{}, err
	}

	ev := newEvent(domain.EventKindTransfer, *r.BlockNumber, r.TxIndex, r.LogIndex, r.Timestamp, r.TxHash, seq)
	ev.Contract = token
	ev.Sender = from
	ev.Recipient = to
	ev.Value = value
	return ev, nil
}

func normalizeLog(r domain.LogRecord, seq int) (domain.Event, error) {
	if r.BlockNumber == nil {
		return domain.Event{}, fmt.Errorf("%w: block_number", errMissingField)
	}
	contract, err := requireAddress("address", r.Address)
	if err != nil {
		return domain.Event{}, err
	}
	sender, err := optionalAddress("sender", r.Sender)
	if err != nil {
		return domain.Event{}, err
	}
	if sender == "" {
		sender = contract
	}
	recipient, err := optionalAddress("recipient", r.Recipient)
	if err != nil {
		return domain.Event{}, err
	}

	value := decimal.Zero
	if r.Value != nil {
		value, err = parseAmount("value", *r.Value)
		if err != nil {
			return domain.Event{}, err
		}
	}

	ev := newEvent(domain.EventKindLog, *r.BlockNumber, r.TxIndex, r.LogIndex, r.Timestamp, r.TxHash, seq)
	ev.Contract = contract
	ev.Sender = sender
	ev.Recipient = recipient
	ev.Value = value
	return ev, nil
}

func normalizeSwap(r domain.SwapRecord, seq int) (domain.Event, error) {
	if r.BlockNumber == nil {
		return domain.Event{}, fmt.Errorf("%w: block_number", errMissingField)
	}
	pool, err := requireAddress("pool", r.Pool)
	if err != nil {
		return domain.Event{}, err
	}
	sender, err := requireAddress("sender", r.Sender)
	if err != nil {
		return domain.Event{}, err
	}
	recipient, err := optionalAddress("recipient", r.Recipient)
	if err != nil {
		return domain.Event{}, err
	}
	if r.PriceBefore == nil {
		return domain.Event{}, fmt.Errorf("%w: price_before", errMissingField)
	}
	if r.PriceAfter == nil {
		return domain.Event{}, fmt.Errorf("%w: price_after", errMissingField)
	}
	// Prices may be zero or negative here; the price-impact detector skips them.
	before, err := parseNumber("price_before", *r.PriceBefore)
	if err != nil {
		return domain.Event{}, err
	}
	after, err := parseNumber("price_after", *r.PriceAfter)
	if err != nil {
		return domain.Event{}, err
	}

	amount := decimal.Zero
	if r.Amount != nil {
		amount, err = parseAmount("amount", *r.Amount)
		if err != nil {
			return domain.Event{}, err
		}
	}

	ev := newEvent(domain.EventKindSwap, *r.BlockNumber, r.TxIndex, r.LogIndex, r.Timestamp, r.TxHash, seq)
	ev.Contract = pool
	ev.Sender = sender
	ev.Recipient = recipient
	ev.Value = amount
	ev.PriceBefore = &before
	ev.PriceAfter = &after
	return ev, nil
}

// passThrough validates an already normalized event and returns it unchanged.
func passThrough(e domain.Event) (domain.Event, error) {
	if !e.Kind.IsValid() {
		return domain.Event{}, fmt.Errorf("%w: %q", errUnknownKind, e.Kind)
	}
	if e.Value.IsNegative() {
		return domain.Event{}, fmt.Errorf("%w: value %s", errNegative, e.Value)
	}
	if e.ID == "" {
		return domain.Event{}, fmt.Errorf("%w: id", errMissingField)
	}
	return e, nil
}

func newEvent(kind domain.EventKind, block uint64, txIndex, logIndex *int, ts *int64, txHash string, seq int) domain.Event {
	ev := domain.Event{
		Kind:        kind,
		BlockNumber: block,
		TxHash:      strings.TrimSpace(txHash),
		Seq:         seq,
	}
	if txIndex != nil {
		ev.TxIndex = *txIndex
	}
	if logIndex != nil {
		ev.LogIndex = *logIndex
	}
	if ts != nil {
		v := *ts
		ev.Timestamp = &v
	}

	if ev.TxHash == "" && txIndex == nil && logIndex == nil {
		// No on-chain position inside the block: fall back to input position
		// so identifiers stay unique.
		ev.ID = fmt.Sprintf("%d:#%d", block, seq)
	} else {
		ev.ID = domain.EventID(ev.TxHash, block, ev.TxIndex, ev.LogIndex)
	}
	return ev
}

func requireAddress(field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: %s", errMissingField, field)
	}
	canon, _, err := address.Canonical(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return canon, nil
}

func optionalAddress(field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return requireAddress(field, raw)
}

// parseAmount parses a non-negative amount.
func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := parseNumber(field, raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s=%s", errNegative, field, raw)
	}
	return d, nil
}

// parseNumber accepts decimal notation or 0x-prefixed hex integers.
func parseNumber(field, raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", errMissingField, field)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return decimal.Decimal{}, fmt.Errorf("%w: %s=%q", errInvalidNumber, field, raw)
		}
		return decimal.NewFromBigInt(n, 0), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s=%q", errInvalidNumber, field, raw)
	}
	return d, nil
}
