package blockchain

import (
	"math"
	"time"
)

// BlockHeader is the mined portion of a block. Its hash must come in at or
// below Target for the block to be accepted (the genesis block excepted).
type BlockHeader struct {
	_ struct{} `cbor:",toarray"`

	Timestamp     time.Time
	Nonce         uint64
	PrevBlockHash Hash
	MerkleRoot    MerkleRoot
	Target        U256
}

// NewBlockHeader builds a header from its parts.
func NewBlockHeader(timestamp time.Time, nonce uint64, prevBlockHash Hash, merkleRoot MerkleRoot, target U256) BlockHeader {
	return BlockHeader{
		Timestamp:     timestamp,
		Nonce:         nonce,
		PrevBlockHash: prevBlockHash,
		MerkleRoot:    merkleRoot,
		Target:        target,
	}
}

// Hash returns SHA-256 of the header's canonical encoding.
func (h *BlockHeader) Hash() Hash {
	return HashOf(h)
}

// Mine grinds the nonce for up to steps attempts, returning true as soon as
// the header hash meets the target.
//
// A header that already satisfies its target is reported true immediately,
// untouched. Each attempt increments the nonce; on overflow the nonce
// resets to zero and the timestamp is replaced with the current time, which
// reshuffles the search space. Deterministic except for that clock read.
func (h *BlockHeader) Mine(steps uint) bool {
	if h.Hash().MatchesTarget(h.Target) {
		return true
	}
	for i := uint(0); i < steps; i++ {
		if h.Nonce == math.MaxUint64 {
			h.Nonce = 0
			h.Timestamp = time.Now().UTC()
		} else {
			h.Nonce++
		}
		if h.Hash().MatchesTarget(h.Target) {
			return true
		}
	}
	return false
}

// Block is a header plus an ordered, nonempty transaction list whose first
// element is the coinbase.
type Block struct {
	_ struct{} `cbor:",toarray"`

	Header       BlockHeader
	Transactions []Transaction
}

// NewBlock builds a block from a header and its transactions.
func NewBlock(header BlockHeader, transactions []Transaction) *Block {
	return &Block{Header: header, Transactions: transactions}
}

// Hash returns SHA-256 of the whole block's canonical encoding.
func (b *Block) Hash() Hash {
	return HashOf(b)
}
