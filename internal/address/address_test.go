package address

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// 32 zero bytes: the system program id, a valid curve point.
	onCurveKey = "11111111111111111111111111111111"
	// y=3 little-endian, on the curve.
	onCurveKey2 = "CiDwVBFgWV9E5MvXWoLgnEgn2hK7rJikbvfWavzAQz3"
	// y=2 little-endian, not on the curve.
	offCurveKey = "8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh"
)

func TestCanonical_EVMLowercased(t *testing.T) {
	got, chain, err := Canonical("  0xAbCdEf0123456789aBcDeF0123456789ABCDEF01 ")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", got)
	assert.Equal(t, ChainEVM, chain)
}

func TestCanonical_EVMMalformed(t *testing.T) {
	tests := []string{
		"0x1234",
		"0xZZcdef0123456789abcdef0123456789abcdef01",
		"0x",
	}
	for _, in := range tests {
		_, _, err := Canonical(in)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Canonical(%q): expected ErrMalformed, got %v", in, err)
		}
	}
}

func TestCanonical_Empty(t *testing.T) {
	_, _, err := Canonical("   ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestCanonical_Solana(t *testing.T) {
	got, chain, err := Canonical(onCurveKey2)
	require.NoError(t, err)
	assert.Equal(t, onCurveKey2, got)
	assert.Equal(t, ChainSolana, chain)
}

func TestCanonical_OpaquePassThrough(t *testing.T) {
	got, chain, err := Canonical("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
	assert.Equal(t, ChainUnknown, chain)
}

func TestCanonicalOrRaw(t *testing.T) {
	assert.Equal(t, "0x1234", CanonicalOrRaw("0x1234"))
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01",
		CanonicalOrRaw("0xABCDEF0123456789ABCDEF0123456789ABCDEF01"))
}

func TestIsProgramDerived(t *testing.T) {
	assert.False(t, IsProgramDerived(onCurveKey))
	assert.False(t, IsProgramDerived(onCurveKey2))
	assert.True(t, IsProgramDerived(offCurveKey))

	// Not a Solana key at all.
	assert.False(t, IsProgramDerived("0xabcdef0123456789abcdef0123456789abcdef01"))
	assert.False(t, IsProgramDerived("alice"))
}
