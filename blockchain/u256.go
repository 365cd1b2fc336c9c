package blockchain

import "github.com/holiman/uint256"

// U256 is the unsigned 256-bit integer used for difficulty targets and for
// the numeric view of hashes. Its own Add/Mul methods wrap modulo 2^256, so
// this package only compares and stores U256 values; the difficulty
// retarget routes its transiently-overflowing product through math/big
// rather than letting anything wrap.
type U256 = uint256.Int

// NewU256 returns a U256 holding the given small value.
func NewU256(v uint64) U256 {
	return *uint256.NewInt(v)
}

// U256FromDecimal parses a base-10 string into a U256.
func U256FromDecimal(s string) (U256, error) {
	var z uint256.Int
	if err := z.SetFromDecimal(s); err != nil {
		return U256{}, err
	}
	return z, nil
}

// U256FromBytes interprets up to 32 big-endian bytes as a U256.
func U256FromBytes(b []byte) U256 {
	var z uint256.Int
	z.SetBytes(b)
	return z
}

// defaultMinTarget builds the easiest stock target: the top 16 bits zero,
// everything below set.
func defaultMinTarget() U256 {
	var b [32]byte
	for i := 2; i < len(b); i++ {
		b[i] = 0xFF
	}
	return U256FromBytes(b[:])
}
