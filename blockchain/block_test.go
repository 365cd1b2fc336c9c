package blockchain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader(target U256) BlockHeader {
	return NewBlockHeader(
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		0,
		ZeroHash(),
		HashOf("merkle"),
		target,
	)
}

func TestMineAlreadySatisfiedLeavesHeaderUntouched(t *testing.T) {
	params := easyParams()
	header := testHeader(params.MinTarget) // full range, everything matches

	before := header
	assert.True(t, header.Mine(0))
	assert.Equal(t, before, header)
}

func TestMineExhaustsSteps(t *testing.T) {
	header := testHeader(NewU256(0)) // only the zero hash could match

	assert.False(t, header.Mine(10))
	assert.Equal(t, uint64(10), header.Nonce)
}

func TestMineFindsNonce(t *testing.T) {
	// Target with the top 12 bits clear: one attempt matches with
	// probability 1/4096, so 200k steps fail with negligible odds.
	var b [32]byte
	for i := range b {
		b[i] = 0xFF
	}
	b[0] = 0x00
	b[1] = 0x0F
	header := testHeader(U256FromBytes(b[:]))
	header.Nonce = 1 // start off-target on purpose

	require.True(t, header.Mine(200_000))
	assert.True(t, header.Hash().MatchesTarget(header.Target))
}

func TestMineNonceRollover(t *testing.T) {
	header := testHeader(NewU256(0))
	header.Nonce = math.MaxUint64
	before := header.Timestamp

	assert.False(t, header.Mine(1))
	assert.Equal(t, uint64(0), header.Nonce)
	assert.True(t, header.Timestamp.After(before))
}
