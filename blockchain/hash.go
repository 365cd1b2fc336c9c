package blockchain

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// Hash is a SHA-256 digest viewed as a 256-bit unsigned integer.
//
// The digest bytes are loaded big-endian (most significant byte first), so
// "hash below target" is a plain numeric comparison. Bytes() returns the
// little-endian ordering; signatures are computed over that ordering, and
// both conventions are consensus-significant.
type Hash struct {
	n uint256.Int
}

// HashOf hashes any canonically-encodable value: SHA-256 over its canonical
// encoding. Every record in the system is hashed this way, with no domain
// separator.
func HashOf(v any) Hash {
	encoded, err := Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("BUG: canonical encoding failed during hashing: %v", err))
	}
	digest := sha256.Sum256(encoded)
	var h Hash
	h.n.SetBytes(digest[:])
	return h
}

// ZeroHash is the all-zero digest, used as the previous-block hash of the
// genesis block.
func ZeroHash() Hash {
	return Hash{}
}

// IsZero reports whether the hash is the all-zero digest.
func (h Hash) IsZero() bool {
	return h.n.IsZero()
}

// MatchesTarget reports whether the hash, as a number, is at or below the
// target.
func (h Hash) MatchesTarget(target U256) bool {
	return h.n.Cmp(&target) <= 0
}

// Bytes returns the 32 digest bytes in little-endian order. This is the
// exact message signed and verified by the wallet keys.
func (h Hash) Bytes() [32]byte {
	be := h.n.Bytes32()
	var le [32]byte
	for i := range be {
		le[i] = be[31-i]
	}
	return le
}

// U256 returns the numeric value of the hash.
func (h Hash) U256() U256 {
	return h.n
}

// HashFromBytes rebuilds a Hash from 32 big-endian digest bytes.
func HashFromBytes(b [32]byte) Hash {
	var h Hash
	h.n.SetBytes(b[:])
	return h
}

func (h Hash) String() string {
	return fmt.Sprintf("%064x", h.n.Bytes32())
}

// MarshalCBOR encodes the hash as a 32-byte big-endian byte string.
func (h Hash) MarshalCBOR() ([]byte, error) {
	b := h.n.Bytes32()
	return cbor.Marshal(b[:])
}

// UnmarshalCBOR decodes a 32-byte big-endian byte string.
func (h *Hash) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("%w: hash must be 32 bytes, got %d", ErrMalformedInput, len(b))
	}
	h.n.SetBytes(b)
	return nil
}
