// Package address canonicalizes chain addresses and classifies Solana accounts.
package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Chain is the address family detected from the address format.
type Chain string

const (
	ChainEVM     Chain = "evm"
	ChainSolana  Chain = "solana"
	ChainUnknown Chain = "unknown"
)

// Errors returned by Canonical.
var (
	ErrEmpty     = errors.New("address is empty")
	ErrMalformed = errors.New("malformed address")
)

const (
	evmAddressHexLen = 40
	solanaKeyLen     = 32
)

// Canonical returns the canonical form of an address and its family.
// EVM addresses are lowercased; Solana base58 keys are kept as-is because
// base58 is case sensitive. Anything else is treated as an opaque identifier.
func Canonical(addr string) (string, Chain, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", ChainUnknown, ErrEmpty
	}

	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		body := addr[2:]
		if len(body) != evmAddressHexLen {
			return "", ChainUnknown, fmt.Errorf("%w: %q has %d hex chars, want %d", ErrMalformed, addr, len(body), evmAddressHexLen)
		}
		if _, err := hex.DecodeString(body); err != nil {
			return "", ChainUnknown, fmt.Errorf("%w: %q: %v", ErrMalformed, addr, err)
		}
		return "0x" + strings.ToLower(body), ChainEVM, nil
	}

	if decoded, err := base58.Decode(addr); err == nil && len(decoded) == solanaKeyLen {
		return addr, ChainSolana, nil
	}

	return addr, ChainUnknown, nil
}

// CanonicalOrRaw returns the canonical form of addr, or addr itself when it
// does not parse.
func CanonicalOrRaw(addr string) string {
	c, _, err := Canonical(addr)
	if err != nil {
		return addr
	}
	return c
}

// IsProgramDerived reports whether addr is a Solana key that does not lie on
// the ed25519 curve. Such accounts have no private key and are owned by a
// program (pool vaults, escrow PDAs).
func IsProgramDerived(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != solanaKeyLen {
		return false
	}
	return !isOnCurve(decoded)
}

func isOnCurve(point []byte) bool {
	if len(point) != solanaKeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
