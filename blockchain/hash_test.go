package blockchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashOfIsDeterministic(t *testing.T) {
	a := HashOf(uint64(42))
	b := HashOf(uint64(42))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, HashOf(uint64(43)))
}

func TestZeroHash(t *testing.T) {
	assert.True(t, ZeroHash().IsZero())
	assert.False(t, HashOf("x").IsZero())
}

func TestMatchesTarget(t *testing.T) {
	var be [32]byte
	be[31] = 5 // the number 5, big-endian
	h := HashFromBytes(be)

	assert.True(t, h.MatchesTarget(NewU256(5)))
	assert.True(t, h.MatchesTarget(NewU256(6)))
	assert.False(t, h.MatchesTarget(NewU256(4)))
	assert.False(t, h.MatchesTarget(NewU256(0)))
	assert.True(t, ZeroHash().MatchesTarget(NewU256(0)))
}

func TestHashByteOrders(t *testing.T) {
	var be [32]byte
	for i := range be {
		be[i] = byte(i)
	}
	h := HashFromBytes(be)

	// Bytes() is the little-endian view of the big-endian-loaded digest.
	le := h.Bytes()
	for i := range be {
		require.Equal(t, be[i], le[31-i])
	}
	n := h.U256()
	assert.Equal(t, be, n.Bytes32())
}

func TestHashCBORRoundTrip(t *testing.T) {
	h := HashOf("some value")
	encoded, err := Marshal(h)
	require.NoError(t, err)

	var decoded Hash
	require.NoError(t, Unmarshal(encoded, &decoded))
	assert.Equal(t, h, decoded)
}

func TestMinTargetTopBitsZero(t *testing.T) {
	minTarget := DefaultParams().MinTarget
	b := minTarget.Bytes32()
	assert.Equal(t, byte(0), b[0])
	assert.Equal(t, byte(0), b[1])
	for i := 2; i < len(b); i++ {
		assert.Equal(t, byte(0xFF), b[i])
	}
}

func TestU256Decimal(t *testing.T) {
	v, err := U256FromDecimal("123456789012345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", v.Dec())

	_, err = U256FromDecimal("not a number")
	assert.Error(t, err)
}
